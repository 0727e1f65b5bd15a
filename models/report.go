package models

// Resolution source tags, in fallback order.
const (
	SourceReference         = "reference"
	SourceReferenceAssisted = "reference_assisted"
	SourceEstimate          = "estimate"
	SourceEstimateCorrected = "estimate_corrected"
	SourceFailed            = "failed"
)

// Outlier severities, from mildest to strongest.
const (
	SeverityInfo        = "info"
	SeverityWarning     = "warning"
	SeverityAutoCorrect = "auto_correct"
)

// ValidationResult reports realism validation. Valid is true exactly when
// Issues is empty.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues"`
}

// FlaggedNutrient is one per-nutrient extreme found by the outlier scan.
type FlaggedNutrient struct {
	Nutrient       string  `json:"nutrient"`
	Value          float64 `json:"value"`
	Severity       string  `json:"severity"`
	RatioToTypical float64 `json:"ratio_to_typical"`
}

// Correction records one auto-corrected field.
type Correction struct {
	Original  float64 `json:"original"`
	Corrected float64 `json:"corrected"`
	Reason    string  `json:"reason"`
}

// OutlierReport is the per-food outlier scan result. Corrected always holds a
// usable profile: identical to the input when nothing was corrected.
type OutlierReport struct {
	Detected       bool                  `json:"detected"`
	Flagged        []FlaggedNutrient     `json:"flagged"`
	Contradictions []string              `json:"contradictions"`
	Corrections    map[string]Correction `json:"corrections"`
	Corrected      *NutritionProfile     `json:"corrected"`
}

// MealFlag is a meal total that exceeds the advisory share of its daily
// reference intake.
type MealFlag struct {
	Nutrient   string  `json:"nutrient"`
	Total      float64 `json:"total"`
	DRI        float64 `json:"dri"`
	PercentDRI float64 `json:"percent_dri"`
}

// MealAggregate sums a request's foods (corrected values where available) and
// flags totals beyond 200% of the daily reference intake. Advisory only — a
// meal-level flag is never attributable to one food, so nothing is corrected.
type MealAggregate struct {
	Totals        *NutritionProfile `json:"totals"`
	FlaggedTotals []MealFlag        `json:"flagged_totals"`
	Summary       string            `json:"summary"`
}

// ResolvedIngredient is one decomposed ingredient of a complex dish.
type ResolvedIngredient struct {
	Name              string            `json:"name"`
	Serving           ServingSpec       `json:"serving"`
	Nutrition         *NutritionProfile `json:"nutrition"`
	Source            string            `json:"source"`
	RealismValidation ValidationResult  `json:"realism_validation"`
}

// ResolvedFood is the per-food output of the full pipeline. For complex dishes
// CompositeNutrition carries the ingredient-sum alternative alongside the
// whole-dish figure; it never replaces Nutrition.
type ResolvedFood struct {
	Name                 string               `json:"name"`
	Serving              ServingSpec          `json:"serving"`
	Nutrition            *NutritionProfile    `json:"nutrition"`
	Source               string               `json:"source"`
	Candidates           []FoodCandidate      `json:"candidates"`
	Detection            FoodDetection        `json:"detection"`
	Ingredients          []ResolvedIngredient `json:"ingredients,omitempty"`
	CompositeNutrition   *NutritionProfile    `json:"composite_nutrition,omitempty"`
	CompositeValidation  *ValidationResult    `json:"composite_validation,omitempty"`
	RealismValidation    ValidationResult     `json:"realism_validation"`
	OutlierDetection     *OutlierReport       `json:"outlier_detection,omitempty"`
}

// AnalysisResult is the request-level output handed to the HTTP layer.
type AnalysisResult struct {
	Foods                []*ResolvedFood `json:"foods"`
	MealOutlierDetection *MealAggregate  `json:"meal_outlier_detection,omitempty"`
}
