package services

import (
	"sort"
	"strings"

	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/models"
	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/utils"
)

// Confidence assignments for merged detection lists.
const (
	matchedBaseConfidence   = 0.85 // plus similarity * 0.10, topping out at 0.95
	primaryOnlyConfidence   = 0.60
	secondaryOnlyConfidence = 0.50
	singleModelConfidence   = 0.70 // all primary items when the secondary oracle failed
	nameMatchThreshold      = 0.50
)

// descriptor words stripped before name comparison: cooking methods and size
// adjectives don't change what the food is.
var strippedAdjectives = map[string]bool{
	"grilled": true, "fried": true, "baked": true, "steamed": true,
	"roasted": true, "raw": true, "cooked": true, "boiled": true,
	"sauteed": true, "smoked": true, "fresh": true, "frozen": true,
	"sliced": true, "diced": true, "chopped": true, "shredded": true,
	"small": true, "medium": true, "large": true, "whole": true,
}

// DetectionMerger reconciles food detections from two independent vision
// oracles into one deduplicated, confidence-scored list.
type DetectionMerger struct {
	log *utils.Logger
}

func NewDetectionMerger(log *utils.Logger) *DetectionMerger {
	return &DetectionMerger{log: log.With("service", "DetectionMerger")}
}

// Merge pairs primary detections with secondary ones by name similarity.
// Matching is greedy per primary item, best unclaimed secondary first; a
// claimed secondary item is never rematched. If the secondary oracle produced
// nothing, all primary detections are kept at a flat confidence and the merge
// is skipped entirely rather than merging a list with itself.
func (m *DetectionMerger) Merge(primary, secondary []models.FoodDetection, primaryModel, secondaryModel string) []models.FoodDetection {
	if len(secondary) == 0 {
		out := make([]models.FoodDetection, 0, len(primary))
		for _, d := range primary {
			d.Confidence = singleModelConfidence
			d.AgreedModels = []string{primaryModel}
			out = append(out, d)
		}
		m.log.Debug("secondary oracle empty, merge skipped", "primary", len(primary))
		return out
	}

	claimed := make([]bool, len(secondary))
	merged := make([]models.FoodDetection, 0, len(primary)+len(secondary))

	for _, p := range primary {
		bestIdx := -1
		bestSim := 0.0
		for i, s := range secondary {
			if claimed[i] {
				continue
			}
			sim := nameSimilarity(p.Name, s.Name)
			if sim > bestSim {
				bestSim = sim
				bestIdx = i
			}
		}

		if bestIdx >= 0 && bestSim >= nameMatchThreshold {
			claimed[bestIdx] = true
			s := secondary[bestIdx]
			d := p
			// keep the secondary's serving or complexity signal when the
			// primary lacks one
			if d.Serving == "" {
				d.Serving = s.Serving
			}
			d.IsComplex = p.IsComplex || s.IsComplex
			d.Confidence = matchedBaseConfidence + bestSim*0.10
			d.AgreedModels = []string{primaryModel, secondaryModel}
			d.NameSimilarity = bestSim
			merged = append(merged, d)
			continue
		}

		d := p
		d.Confidence = primaryOnlyConfidence
		d.AgreedModels = []string{primaryModel}
		merged = append(merged, d)
	}

	for i, s := range secondary {
		if claimed[i] {
			continue
		}
		d := s
		d.Confidence = secondaryOnlyConfidence
		d.AgreedModels = []string{secondaryModel}
		merged = append(merged, d)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})
	return merged
}

// nameSimilarity computes token-set Jaccard similarity over normalized names.
func nameSimilarity(a, b string) float64 {
	at := nameTokens(a)
	bt := nameTokens(b)
	if len(at) == 0 || len(bt) == 0 {
		return 0
	}

	intersection := 0
	for tok := range at {
		if bt[tok] {
			intersection++
		}
	}
	union := len(at) + len(bt) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func nameTokens(name string) map[string]bool {
	tokens := map[string]bool{}
	for _, tok := range strings.Fields(strings.ToLower(name)) {
		tok = strings.Trim(tok, ".,()-")
		if tok == "" || strippedAdjectives[tok] {
			continue
		}
		tokens[tok] = true
	}
	return tokens
}
