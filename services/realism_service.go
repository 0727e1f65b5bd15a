package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/models"
	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/utils"
)

// Absolute per-serving ceilings. Values beyond these are physiologically
// implausible for a single serving regardless of the food. Units follow the
// profile field conventions.
var absoluteMaxByField = map[string]float64{
	"calories":      5000,
	"protein":       500,
	"carbs":         1000,
	"fat":           500,
	"saturated_fat": 200,
	"trans_fat":     50,
	"fiber":         150,
	"sugar":         500,
	"sodium":        25000,
	"cholesterol":   3000,
	"potassium":     11000,
	"calcium":       5000,
	"iron":          100,
	"magnesium":     2000,
	"zinc":          100,
	"phosphorus":    5000,
	"vitamin_a":     30000,
	"vitamin_c":     5000,
	"vitamin_d":     250,
	"vitamin_e":     1000,
	"vitamin_k":     1000,
	"vitamin_b6":    100,
	"vitamin_b12":   500,
	"folate":        2000,
}

// macro-calorie consistency tolerance: computed vs reported may deviate up to
// 40% of reported calories before the profile is rejected.
const macroCalorieTolerance = 0.40

// RealismValidator checks a profile against physiological bounds and
// macro/calorie consistency, and drives the single correction round-trip
// through the oracle when a profile fails.
type RealismValidator struct {
	oracle Oracle
	log    *utils.Logger
}

func NewRealismValidator(oracle Oracle, log *utils.Logger) *RealismValidator {
	return &RealismValidator{oracle: oracle, log: log.With("service", "RealismValidator")}
}

// Validate is stateless: same profile in, same issues out. Valid is true
// exactly when no issues were collected.
func (v *RealismValidator) Validate(p *models.NutritionProfile) models.ValidationResult {
	issues := []string{}

	calories, hasCalories := p.Value("calories")
	switch {
	case !hasCalories:
		issues = append(issues, "calories are missing")
	case calories <= 0:
		issues = append(issues, fmt.Sprintf("calories must be positive, got %.1f", calories))
	case calories > absoluteMaxByField["calories"]:
		issues = append(issues, fmt.Sprintf("calories %.0f exceed the per-serving ceiling of %.0f", calories, absoluteMaxByField["calories"]))
	}

	protein := p.ValueOr("protein", 0)
	carbs := p.ValueOr("carbs", 0)
	fat := p.ValueOr("fat", 0)

	if hasCalories && calories > 0 {
		computed := 4*protein + 4*carbs + 9*fat
		deviation := math.Abs(computed-calories) / calories
		if deviation > macroCalorieTolerance {
			issues = append(issues, fmt.Sprintf(
				"macros imply %.0f kcal but %.0f kcal reported (%.0f%% deviation)",
				computed, calories, deviation*100,
			))
		}
	}

	for _, field := range models.NutrientFields {
		if field == "calories" {
			continue // already handled with its own wording
		}
		value, ok := p.Value(field)
		if !ok {
			continue
		}
		max, bounded := absoluteMaxByField[field]
		if bounded && value > max {
			issues = append(issues, fmt.Sprintf("%s %.1f exceeds the per-serving maximum of %.0f", field, value, max))
		}
	}

	// a food cannot carry calories with no macronutrients at all; unknown
	// macros are not the same as reported zeros
	_, proteinKnown := p.Value("protein")
	_, carbsKnown := p.Value("carbs")
	_, fatKnown := p.Value("fat")
	if hasCalories && calories > 10 &&
		proteinKnown && carbsKnown && fatKnown &&
		protein == 0 && carbs == 0 && fat == 0 {
		issues = append(issues, fmt.Sprintf("%.0f kcal reported with zero protein, carbs and fat", calories))
	}

	return models.ValidationResult{Valid: len(issues) == 0, Issues: issues}
}

// CorrectOnce sends the failed profile and its issues to the oracle for one
// revised payload. Attempted exactly once per food; the retry's result and
// validation are what the caller keeps ("last attempt wins"). A nil profile
// means the oracle was unavailable or unusable and the caller should keep the
// original.
func (v *RealismValidator) CorrectOnce(ctx context.Context, foodName string, serving models.ServingSpec, p *models.NutritionProfile, issues []string) (*models.NutritionProfile, models.ValidationResult) {
	const system = "You correct implausible nutrition estimates. Respond with a single JSON object and nothing else."
	user := fmt.Sprintf(
		`A nutrition estimate for %s of %q failed validation:
- %s

Produce a corrected, internally consistent estimate. Respond with JSON using these numeric keys (omit any you cannot estimate): %s.`,
		describeServing(serving), foodName,
		strings.Join(issues, "\n- "),
		strings.Join(models.NutrientFields, ", "),
	)

	text, err := v.oracle.GenerateText(ctx, system, user)
	if err != nil {
		v.log.Warn("correction retry failed", "food", foodName, "error", err)
		return nil, models.ValidationResult{}
	}

	revised := ProfileFromOracleText(text)
	if revised == nil {
		v.log.Warn("correction retry returned no usable payload", "food", foodName)
		return nil, models.ValidationResult{}
	}

	result := v.Validate(revised)
	if !result.Valid {
		v.log.Warn("correction retry still fails validation", "food", foodName, "issues", result.Issues)
	}
	return revised, result
}
