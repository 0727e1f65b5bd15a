package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/models"
	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/utils"
)

// profileFieldByNutrientID maps FDC nutrient IDs onto profile fields. The
// database reports per 100 g; scaling to the serving happens here, not in the
// client.
var profileFieldByNutrientID = map[int]string{
	1008: "calories",
	1003: "protein",
	1005: "carbs",
	1004: "fat",
	1258: "saturated_fat",
	1257: "trans_fat",
	1079: "fiber",
	2000: "sugar",
	1093: "sodium",
	1253: "cholesterol",
	1092: "potassium",
	1087: "calcium",
	1089: "iron",
	1090: "magnesium",
	1095: "zinc",
	1091: "phosphorus",
	1106: "vitamin_a",
	1162: "vitamin_c",
	1114: "vitamin_d",
	1109: "vitamin_e",
	1185: "vitamin_k",
	1175: "vitamin_b6",
	1178: "vitamin_b12",
	1177: "folate",
}

const maxCandidates = 5

// Resolution is the outcome of the fallback chain for one food.
type Resolution struct {
	Profile    *models.NutritionProfile
	Source     string
	Candidates []models.FoodCandidate
}

// NutritionResolver orchestrates the reference database and the generative
// oracle into an ordered fallback chain: direct lookup, oracle-assisted
// lookup (text path only), then full generative estimation.
type NutritionResolver struct {
	ref    ReferenceSearcher
	oracle Oracle
	log    *utils.Logger
}

func NewNutritionResolver(ref ReferenceSearcher, oracle Oracle, log *utils.Logger) *NutritionResolver {
	return &NutritionResolver{ref: ref, oracle: oracle, log: log.With("service", "NutritionResolver")}
}

// Resolve produces one canonical profile for the named food at the given
// serving. fromText marks foods described in words rather than detected in a
// photo; only those get the oracle-assisted search-term retry. A nil Profile
// with SourceFailed means every strategy came up empty — never an error, the
// caller decides what an unresolvable food means for the request.
func (r *NutritionResolver) Resolve(ctx context.Context, name string, serving models.ServingSpec, fromText bool) Resolution {
	if profile, candidates := r.lookupReference(ctx, name, serving); profile != nil {
		return Resolution{Profile: profile, Source: models.SourceReference, Candidates: candidates}
	}

	if fromText {
		if term := r.suggestSearchTerm(ctx, name); term != "" && !strings.EqualFold(term, name) {
			if profile, candidates := r.lookupReference(ctx, term, serving); profile != nil {
				return Resolution{Profile: profile, Source: models.SourceReferenceAssisted, Candidates: candidates}
			}
		}
	}

	if profile := r.estimate(ctx, name, serving); profile != nil {
		return Resolution{Profile: profile, Source: models.SourceEstimate}
	}

	r.log.Warn("all resolution strategies failed", "food", name)
	return Resolution{Source: models.SourceFailed}
}

// lookupReference queries the reference database and builds the ranked
// candidate list. The rank-1 profile is accepted only when it carries
// positive calories; zero-calorie matches are usually water entries or
// incomplete records.
func (r *NutritionResolver) lookupReference(ctx context.Context, query string, serving models.ServingSpec) (*models.NutritionProfile, []models.FoodCandidate) {
	foods, err := r.ref.SearchFoods(ctx, query, maxCandidates)
	if err != nil {
		r.log.Warn("reference lookup failed", "query", query, "error", err)
		return nil, nil
	}
	if len(foods) == 0 {
		return nil, nil
	}

	candidates := make([]models.FoodCandidate, 0, len(foods))
	for i, f := range foods {
		candidates = append(candidates, models.FoodCandidate{
			FDCID:       f.FDCID,
			Description: f.Description,
			DataType:    f.DataType,
			Rank:        i + 1,
			Nutrition:   profileFromReference(f, serving.Grams),
		})
	}

	top := candidates[0].Nutrition
	if top == nil || top.ValueOr("calories", 0) <= 0 {
		return nil, candidates
	}
	return top, candidates
}

// profileFromReference scales a per-100g record linearly to the serving.
func profileFromReference(f FDCFood, grams float64) *models.NutritionProfile {
	factor := grams / 100.0
	p := &models.NutritionProfile{}
	for id, field := range profileFieldByNutrientID {
		v, ok := f.Nutrients[id]
		if !ok || v < 0 {
			continue
		}
		p.SetValue(field, v*factor)
	}
	return p
}

func (r *NutritionResolver) suggestSearchTerm(ctx context.Context, name string) string {
	const system = "You map colloquial food descriptions to concise food-database search terms."
	user := fmt.Sprintf(
		`The description %q found no match in a food composition database. Respond with JSON: {"searchTerm": "<a simpler generic term likely to match>"}`,
		name,
	)

	text, err := r.oracle.GenerateText(ctx, system, user)
	if err != nil {
		r.log.Warn("search term suggestion failed", "food", name, "error", err)
		return ""
	}

	var out struct {
		SearchTerm string `json:"searchTerm"`
	}
	if !utils.DecodeFirstJSONObject(text, &out) {
		return ""
	}
	return strings.TrimSpace(out.SearchTerm)
}

// estimate asks the oracle for a complete nutrient payload. The serving is
// described in natural units, not grams: oracle estimates are
// serving-relative, so no rescaling happens afterwards.
func (r *NutritionResolver) estimate(ctx context.Context, name string, serving models.ServingSpec) *models.NutritionProfile {
	const system = "You are a nutrition estimation assistant. Respond with a single JSON object and nothing else."
	user := fmt.Sprintf(
		`Estimate the complete nutrition for %s of %q. Respond with JSON using these numeric keys (omit any you cannot estimate): %s. Units: calories kcal; protein/carbs/fat/saturated_fat/trans_fat/fiber/sugar g; sodium/cholesterol/potassium/calcium/iron/magnesium/zinc/phosphorus/vitamin_c/vitamin_e/vitamin_b6 mg; vitamin_a/vitamin_d/vitamin_k/vitamin_b12/folate mcg.`,
		describeServing(serving), name, strings.Join(models.NutrientFields, ", "),
	)

	text, err := r.oracle.GenerateText(ctx, system, user)
	if err != nil {
		r.log.Warn("generative estimation failed", "food", name, "error", err)
		return nil
	}
	profile := ProfileFromOracleText(text)
	if profile == nil {
		r.log.Warn("generative estimation returned no usable payload", "food", name)
	}
	return profile
}

// ProfileFromOracleText extracts the first JSON object from oracle output and
// coerces it into a profile. Fields that are negative or non-numeric are
// treated as absent. A payload without calories is unusable by contract.
func ProfileFromOracleText(text string) *models.NutritionProfile {
	var raw map[string]interface{}
	if !utils.DecodeFirstJSONObject(text, &raw) {
		return nil
	}

	p := &models.NutritionProfile{}
	for _, field := range models.NutrientFields {
		v, ok := raw[field]
		if !ok {
			continue
		}
		if coerced := models.CoerceNumber(v); coerced != nil {
			p.SetValue(field, *coerced)
		}
	}
	if _, ok := p.Value("calories"); !ok {
		return nil
	}
	return p
}

func describeServing(s models.ServingSpec) string {
	if s.Assumed {
		return fmt.Sprintf("1 serving (about %.0fg)", s.Grams)
	}
	return fmt.Sprintf("%g %s", s.Amount, s.Unit)
}
