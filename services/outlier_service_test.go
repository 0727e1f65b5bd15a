package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/models"
	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/utils"
)

func TestClassifyOutlierSeverityMonotonic(t *testing.T) {
	tests := []struct {
		ratio    float64
		severity string
	}{
		{0.5, ""},
		{2.0, ""},
		{2.0001, models.SeverityInfo},
		{3.0, models.SeverityInfo},
		{3.0001, models.SeverityWarning},
		{5.0, models.SeverityWarning},
		{5.0001, models.SeverityAutoCorrect},
		{50, models.SeverityAutoCorrect},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.severity, classifyOutlierSeverity(tt.ratio), "ratio=%v", tt.ratio)
	}
}

func TestGetCorrectedValueIdempotent(t *testing.T) {
	once := getCorrectedValue(900, 150)
	twice := getCorrectedValue(once, 150)
	assert.Equal(t, 150.0, once)
	assert.Equal(t, once, twice)

	// in-range values pass through untouched
	assert.Equal(t, 100.0, getCorrectedValue(100, 150))
}

func TestDetectFoodSugarExceedsCarbs(t *testing.T) {
	e := NewOutlierEngine(utils.NopLogger())

	p := &models.NutritionProfile{
		Calories: models.Float(200),
		Protein:  models.Float(5),
		Carbs:    models.Float(20),
		Fat:      models.Float(10),
		Sugar:    models.Float(30),
	}
	report := e.DetectFood(p)

	require.True(t, report.Detected)
	corr, ok := report.Corrections["sugar"]
	require.True(t, ok)
	assert.Equal(t, 30.0, corr.Original)
	assert.Equal(t, 20.0, corr.Corrected)

	sugar, _ := report.Corrected.Value("sugar")
	carbs, _ := report.Corrected.Value("carbs")
	assert.LessOrEqual(t, sugar, carbs*1.1)
	// only sugar was touched
	assert.Len(t, report.Corrections, 1)
	assert.Equal(t, 20.0, carbs)

	// the input profile is never mutated
	assert.Equal(t, 30.0, *p.Sugar)
}

func TestDetectFoodCaloriesFromProtein(t *testing.T) {
	e := NewOutlierEngine(utils.NopLogger())

	p := &models.NutritionProfile{
		Calories: models.Float(0),
		Protein:  models.Float(30),
	}
	report := e.DetectFood(p)

	require.True(t, report.Detected)
	corrected, _ := report.Corrected.Value("calories")
	assert.Equal(t, 120.0, corrected) // 30g protein * 4 kcal/g

	corr := report.Corrections["calories"]
	assert.Equal(t, 0.0, corr.Original)
	assert.Equal(t, 120.0, corr.Corrected)
}

func TestDetectFoodRangeClampThenRelationship(t *testing.T) {
	e := NewOutlierEngine(utils.NopLogger())

	// sugar 800g is 5.3x the typical max (clamp to 150), and the clamped
	// value still exceeds carbs (rule corrects down to 50). Two layered
	// adjustments on one nutrient are intentional.
	p := &models.NutritionProfile{
		Calories: models.Float(400),
		Protein:  models.Float(5),
		Carbs:    models.Float(50),
		Fat:      models.Float(20),
		Sugar:    models.Float(800),
	}
	report := e.DetectFood(p)

	sugar, _ := report.Corrected.Value("sugar")
	assert.Equal(t, 50.0, sugar)

	corr := report.Corrections["sugar"]
	assert.Equal(t, 800.0, corr.Original)
	assert.Equal(t, 50.0, corr.Corrected)
	assert.Contains(t, corr.Reason, ";") // both reasons retained
}

func TestDetectFoodWarningOnlyRules(t *testing.T) {
	e := NewOutlierEngine(utils.NopLogger())

	p := &models.NutritionProfile{
		Calories: models.Float(150),
		Protein:  models.Float(1),
		Carbs:    models.Float(30),
		Fat:      models.Float(2),
		Iron:     models.Float(20),
	}
	report := e.DetectFood(p)

	require.True(t, report.Detected)
	require.NotEmpty(t, report.Contradictions)
	// warning rules never correct
	_, corrected := report.Corrections["iron"]
	assert.False(t, corrected)
	iron, _ := report.Corrected.Value("iron")
	assert.Equal(t, 20.0, iron)
}

func TestDetectFoodInfoFilteredFromReport(t *testing.T) {
	e := NewOutlierEngine(utils.NopLogger())

	// fiber 110g is 2.2x typical: info severity, diagnostics only
	p := &models.NutritionProfile{
		Calories: models.Float(800),
		Protein:  models.Float(10),
		Carbs:    models.Float(180),
		Fat:      models.Float(5),
		Fiber:    models.Float(110),
	}
	report := e.DetectFood(p)

	for _, f := range report.Flagged {
		assert.NotEqual(t, models.SeverityInfo, f.Severity)
	}
}

func TestDetectFoodCleanProfile(t *testing.T) {
	e := NewOutlierEngine(utils.NopLogger())

	p := &models.NutritionProfile{
		Calories: models.Float(350),
		Protein:  models.Float(30),
		Carbs:    models.Float(25),
		Fat:      models.Float(12),
		Sugar:    models.Float(3),
	}
	report := e.DetectFood(p)

	assert.False(t, report.Detected)
	assert.Empty(t, report.Corrections)
	cal, _ := report.Corrected.Value("calories")
	assert.Equal(t, 350.0, cal)
}

func TestDetectFoodNilProfile(t *testing.T) {
	e := NewOutlierEngine(utils.NopLogger())

	report := e.DetectFood(nil)
	assert.False(t, report.Detected)
	assert.Empty(t, report.Flagged)
}

func TestDetectMealSodiumAggregation(t *testing.T) {
	e := NewOutlierEngine(utils.NopLogger())

	food := func(sodium float64) *models.ResolvedFood {
		return &models.ResolvedFood{
			Nutrition: &models.NutritionProfile{
				Calories: models.Float(400),
				Sodium:   models.Float(sodium),
			},
		}
	}
	agg := e.DetectMeal([]*models.ResolvedFood{food(3000), food(3000)})

	total, ok := agg.Totals.Value("sodium")
	require.True(t, ok)
	assert.Equal(t, 6000.0, total)

	require.Len(t, agg.FlaggedTotals, 1)
	flag := agg.FlaggedTotals[0]
	assert.Equal(t, "sodium", flag.Nutrient)
	assert.Equal(t, 2300.0, flag.DRI)
	assert.Greater(t, flag.PercentDRI, 200.0)
	assert.Contains(t, agg.Summary, "sodium")
}

func TestDetectMealUsesCorrectedProfiles(t *testing.T) {
	e := NewOutlierEngine(utils.NopLogger())

	foods := []*models.ResolvedFood{
		{
			Nutrition: &models.NutritionProfile{Sodium: models.Float(30000)},
			OutlierDetection: &models.OutlierReport{
				Corrected: &models.NutritionProfile{Sodium: models.Float(5000)},
			},
		},
	}
	agg := e.DetectMeal(foods)

	total, _ := agg.Totals.Value("sodium")
	assert.Equal(t, 5000.0, total)
}

func TestDetectMealEmpty(t *testing.T) {
	e := NewOutlierEngine(utils.NopLogger())

	agg := e.DetectMeal(nil)
	assert.Empty(t, agg.FlaggedTotals)
	assert.Equal(t, "no outliers detected", agg.Summary)
}
