package services

import (
	"fmt"
	"strings"

	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/models"
	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/utils"
)

// Typical single-serving maximums — deliberately tighter than the absolute
// realism ceilings. Values beyond these are statistically unusual, not
// necessarily impossible.
var typicalMaxByField = map[string]float64{
	"calories":      2000,
	"protein":       100,
	"carbs":         300,
	"fat":           150,
	"saturated_fat": 50,
	"trans_fat":     5,
	"fiber":         50,
	"sugar":         150,
	"sodium":        5000,
	"cholesterol":   1000,
	"potassium":     4000,
	"calcium":       2000,
	"iron":          50,
	"magnesium":     800,
	"zinc":          50,
	"phosphorus":    2000,
	"vitamin_a":     10000,
	"vitamin_c":     2000,
	"vitamin_d":     100,
	"vitamin_e":     300,
	"vitamin_k":     500,
	"vitamin_b6":    25,
	"vitamin_b12":   100,
	"folate":        1000,
}

// Daily reference intakes used only by the meal-level aggregate pass.
var dailyReferenceIntake = map[string]float64{
	"calories":      2000,
	"protein":       50,
	"carbs":         275,
	"fat":           78,
	"saturated_fat": 20,
	"fiber":         28,
	"sugar":         50,
	"sodium":        2300,
	"cholesterol":   300,
	"potassium":     4700,
	"calcium":       1300,
	"iron":          18,
	"magnesium":     420,
	"zinc":          11,
	"phosphorus":    1250,
	"vitamin_a":     900,
	"vitamin_c":     90,
	"vitamin_d":     20,
	"vitamin_e":     15,
	"vitamin_k":     120,
	"vitamin_b6":    1.7,
	"vitamin_b12":   2.4,
	"folate":        400,
}

// A meal total beyond this share of the daily reference intake is flagged.
// One meal should rarely exceed double a full day's recommendation.
const mealDRIThreshold = 2.0

// relationshipRule is one cross-nutrient consistency rule. Rules are data,
// not control flow: adding one is an append here, and each rule is evaluated
// independently against the already per-nutrient-corrected profile.
type relationshipRule struct {
	name     string
	severity string
	applies  func(p *models.NutritionProfile) bool
	message  func(p *models.NutritionProfile) string
	// nil for warning-only rules; otherwise returns the corrected field and
	// its correction record
	correct func(p *models.NutritionProfile) (string, models.Correction)
}

func caloriesFromMacros(p *models.NutritionProfile) float64 {
	return 4*p.ValueOr("protein", 0) + 4*p.ValueOr("carbs", 0) + 9*p.ValueOr("fat", 0)
}

var relationshipRules = []relationshipRule{
	{
		name:     "protein_without_calories",
		severity: models.SeverityAutoCorrect,
		applies: func(p *models.NutritionProfile) bool {
			return p.ValueOr("protein", 0) > 20 && p.ValueOr("calories", 0) < 10
		},
		message: func(p *models.NutritionProfile) string {
			return fmt.Sprintf("%.1fg protein with only %.1f kcal reported", p.ValueOr("protein", 0), p.ValueOr("calories", 0))
		},
		correct: func(p *models.NutritionProfile) (string, models.Correction) {
			return "calories", models.Correction{
				Original:  p.ValueOr("calories", 0),
				Corrected: caloriesFromMacros(p),
				Reason:    "calories recomputed from macronutrients (high protein with near-zero calories)",
			}
		},
	},
	{
		name:     "fat_without_calories",
		severity: models.SeverityAutoCorrect,
		applies: func(p *models.NutritionProfile) bool {
			return p.ValueOr("fat", 0) > 10 && p.ValueOr("calories", 0) < 10
		},
		message: func(p *models.NutritionProfile) string {
			return fmt.Sprintf("%.1fg fat with only %.1f kcal reported", p.ValueOr("fat", 0), p.ValueOr("calories", 0))
		},
		correct: func(p *models.NutritionProfile) (string, models.Correction) {
			return "calories", models.Correction{
				Original:  p.ValueOr("calories", 0),
				Corrected: caloriesFromMacros(p),
				Reason:    "calories recomputed from macronutrients (high fat with near-zero calories)",
			}
		},
	},
	{
		// plausible for liver and some fortified foods, so warn without touching it
		name:     "vitamin_a_alone",
		severity: models.SeverityWarning,
		applies: func(p *models.NutritionProfile) bool {
			return p.ValueOr("vitamin_a", 0) > 3000 &&
				p.ValueOr("vitamin_d", 0) < 1 &&
				p.ValueOr("vitamin_e", 0) < 1 &&
				p.ValueOr("vitamin_k", 0) < 1
		},
		message: func(p *models.NutritionProfile) string {
			return fmt.Sprintf("vitamin A %.0f with negligible vitamins D, E and K", p.ValueOr("vitamin_a", 0))
		},
	},
	{
		name:     "iron_without_protein",
		severity: models.SeverityWarning,
		applies: func(p *models.NutritionProfile) bool {
			return p.ValueOr("iron", 0) > 15 && p.ValueOr("protein", 0) < 2
		},
		message: func(p *models.NutritionProfile) string {
			return fmt.Sprintf("iron %.1fmg with only %.1fg protein", p.ValueOr("iron", 0), p.ValueOr("protein", 0))
		},
	},
	{
		name:     "sugar_exceeds_carbs",
		severity: models.SeverityAutoCorrect,
		applies: func(p *models.NutritionProfile) bool {
			return p.ValueOr("sugar", 0) > p.ValueOr("carbs", 0)*1.1
		},
		message: func(p *models.NutritionProfile) string {
			return fmt.Sprintf("sugar %.1fg exceeds total carbs %.1fg", p.ValueOr("sugar", 0), p.ValueOr("carbs", 0))
		},
		correct: func(p *models.NutritionProfile) (string, models.Correction) {
			return "sugar", models.Correction{
				Original:  p.ValueOr("sugar", 0),
				Corrected: p.ValueOr("carbs", 0),
				Reason:    "sugar cannot exceed total carbohydrates",
			}
		},
	},
	{
		name:     "fiber_exceeds_carbs",
		severity: models.SeverityAutoCorrect,
		applies: func(p *models.NutritionProfile) bool {
			return p.ValueOr("fiber", 0) > p.ValueOr("carbs", 0)*1.1
		},
		message: func(p *models.NutritionProfile) string {
			return fmt.Sprintf("fiber %.1fg exceeds total carbs %.1fg", p.ValueOr("fiber", 0), p.ValueOr("carbs", 0))
		},
		correct: func(p *models.NutritionProfile) (string, models.Correction) {
			return "fiber", models.Correction{
				Original:  p.ValueOr("fiber", 0),
				Corrected: p.ValueOr("carbs", 0),
				Reason:    "fiber cannot exceed total carbohydrates",
			}
		},
	},
}

// OutlierEngine runs the post-validation ratio scan, the cross-nutrient rule
// set with auto-correction, and the meal-level aggregate pass.
type OutlierEngine struct {
	log *utils.Logger
}

func NewOutlierEngine(log *utils.Logger) *OutlierEngine {
	return &OutlierEngine{log: log.With("service", "OutlierEngine")}
}

// classifyOutlierSeverity maps a value-to-typical-max ratio onto a severity.
// Monotonic in ratio with breakpoints at 2, 3 and 5; empty means unremarkable.
func classifyOutlierSeverity(ratio float64) string {
	switch {
	case ratio > 5:
		return models.SeverityAutoCorrect
	case ratio > 3:
		return models.SeverityWarning
	case ratio > 2:
		return models.SeverityInfo
	default:
		return ""
	}
}

// getCorrectedValue clamps a value to its ceiling. Idempotent: correcting an
// already-corrected value returns the same value.
func getCorrectedValue(value, max float64) float64 {
	if value > max {
		return max
	}
	return value
}

// DetectFood scans one profile for per-nutrient extremes and cross-nutrient
// contradictions. Relationship corrections apply to the already range-clamped
// profile, so a nutrient may legitimately be adjusted twice. The input
// profile is never mutated; Corrected carries the result (identical to the
// input when nothing was corrected).
func (e *OutlierEngine) DetectFood(p *models.NutritionProfile) *models.OutlierReport {
	report := &models.OutlierReport{
		Flagged:        []models.FlaggedNutrient{},
		Contradictions: []string{},
		Corrections:    map[string]models.Correction{},
	}
	if p == nil {
		return report
	}

	corrected := p.Clone()

	for _, field := range models.NutrientFields {
		value, ok := p.Value(field)
		if !ok {
			continue
		}
		typicalMax, hasTypical := typicalMaxByField[field]
		if !hasTypical {
			continue
		}

		ratio := value / typicalMax
		severity := classifyOutlierSeverity(ratio)

		// absolute ceiling is a secondary auto-correct trigger for values
		// that slip under the ratio breakpoints
		absMax, hasAbs := absoluteMaxByField[field]
		clampTo := typicalMax
		reason := fmt.Sprintf("%s %.1f is %.1fx the typical serving maximum %.0f", field, value, ratio, typicalMax)
		if severity != models.SeverityAutoCorrect && hasAbs && value > absMax {
			severity = models.SeverityAutoCorrect
			clampTo = absMax
			reason = fmt.Sprintf("%s %.1f exceeds the absolute per-serving maximum %.0f", field, value, absMax)
		}

		switch severity {
		case "":
			continue
		case models.SeverityInfo:
			// diagnostics only, filtered from the caller-facing report
			e.log.Debug("mild nutrient outlier", "nutrient", field, "value", value, "ratio", ratio)
			continue
		case models.SeverityWarning:
			report.Flagged = append(report.Flagged, models.FlaggedNutrient{
				Nutrient: field, Value: value, Severity: severity, RatioToTypical: ratio,
			})
		case models.SeverityAutoCorrect:
			report.Flagged = append(report.Flagged, models.FlaggedNutrient{
				Nutrient: field, Value: value, Severity: severity, RatioToTypical: ratio,
			})
			corrected.SetValue(field, getCorrectedValue(value, clampTo))
			recordCorrection(report.Corrections, field, value, getCorrectedValue(value, clampTo), reason)
		}
	}

	for _, rule := range relationshipRules {
		if !rule.applies(corrected) {
			continue
		}
		report.Contradictions = append(report.Contradictions, rule.message(corrected))
		if rule.correct == nil {
			continue
		}
		field, corr := rule.correct(corrected)
		corrected.SetValue(field, corr.Corrected)
		recordCorrection(report.Corrections, field, corr.Original, corr.Corrected, corr.Reason)
	}

	report.Corrected = corrected
	report.Detected = len(report.Flagged) > 0 || len(report.Contradictions) > 0 || len(report.Corrections) > 0
	return report
}

// recordCorrection layers a second adjustment onto an existing record instead
// of losing the first: Original stays from the earliest correction, reasons
// accumulate.
func recordCorrection(m map[string]models.Correction, field string, original, value float64, reason string) {
	if prev, ok := m[field]; ok {
		m[field] = models.Correction{
			Original:  prev.Original,
			Corrected: value,
			Reason:    prev.Reason + "; " + reason,
		}
		return
	}
	m[field] = models.Correction{Original: original, Corrected: value, Reason: reason}
}

// DetectMeal sums the corrected profiles of all foods in a request and flags
// nutrients whose total exceeds 200% of the daily reference intake. Advisory
// only: aggregate flags are not attributable to one food, so nothing is
// corrected. Empty food lists report no outliers rather than erroring.
func (e *OutlierEngine) DetectMeal(foods []*models.ResolvedFood) *models.MealAggregate {
	totals := &models.NutritionProfile{}
	for _, f := range foods {
		if f == nil {
			continue
		}
		profile := f.Nutrition
		if f.OutlierDetection != nil && f.OutlierDetection.Corrected != nil {
			profile = f.OutlierDetection.Corrected
		}
		totals.Add(profile)
	}

	flagged := []models.MealFlag{}
	for _, field := range models.NutrientFields {
		total, ok := totals.Value(field)
		if !ok {
			continue
		}
		dri, hasDRI := dailyReferenceIntake[field]
		if !hasDRI || dri <= 0 {
			continue
		}
		if total > dri*mealDRIThreshold {
			flagged = append(flagged, models.MealFlag{
				Nutrient:   field,
				Total:      total,
				DRI:        dri,
				PercentDRI: total / dri * 100,
			})
		}
	}

	summary := "no outliers detected"
	if len(flagged) > 0 {
		names := make([]string, 0, len(flagged))
		for _, f := range flagged {
			names = append(names, fmt.Sprintf("%s (%.0f%% of daily reference)", f.Nutrient, f.PercentDRI))
		}
		summary = "meal totals unusually high for: " + strings.Join(names, ", ")
	}

	return &models.MealAggregate{Totals: totals, FlaggedTotals: flagged, Summary: summary}
}
