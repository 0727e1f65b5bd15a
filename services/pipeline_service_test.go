package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/models"
	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/utils"
)

func newPipeline(oracle Oracle, ref ReferenceSearcher, secondary VisionDetector) *PipelineService {
	log := utils.NopLogger()
	normalizer := NewServingNormalizer()
	resolver := NewNutritionResolver(ref, oracle, log)
	validator := NewRealismValidator(oracle, log)
	return NewPipelineService(
		normalizer,
		resolver,
		validator,
		NewOutlierEngine(log),
		NewDetectionMerger(log),
		NewDishDecomposer(oracle, resolver, validator, normalizer, log),
		oracle,
		secondary,
		log,
	)
}

func TestAnalyzeTextReferenceHit(t *testing.T) {
	oracle := &stubOracle{}
	ref := &stubReference{foods: []FDCFood{appleFDC}}

	result, err := newPipeline(oracle, ref, nil).AnalyzeText(context.Background(), "apple", "200 g")
	require.NoError(t, err)
	require.Len(t, result.Foods, 1)

	food := result.Foods[0]
	assert.Equal(t, models.SourceReference, food.Source)
	assert.True(t, food.RealismValidation.Valid)
	cal, _ := food.Nutrition.Value("calories")
	assert.InDelta(t, 104, cal, 0.001)

	// a single food gets no meal-level pass
	assert.Nil(t, result.MealOutlierDetection)
	// reference hits never touch the oracle
	assert.Empty(t, oracle.textPrompts)
}

func TestAnalyzeTextCorrectionRetry(t *testing.T) {
	oracle := &stubOracle{textResponses: []string{
		`{"searchTerm": "oatmeal"}`,
		`{"calories": 500, "protein": 25, "carbs": 30, "fat": 5}`,
		`{"calories": 265, "protein": 25, "carbs": 30, "fat": 5}`,
	}}
	ref := &stubReference{}

	result, err := newPipeline(oracle, ref, nil).AnalyzeText(context.Background(), "my grandma's oatmeal", "1 cup")
	require.NoError(t, err)
	require.Len(t, result.Foods, 1)

	food := result.Foods[0]
	assert.Equal(t, models.SourceEstimateCorrected, food.Source)
	assert.True(t, food.RealismValidation.Valid)
	cal, _ := food.Nutrition.Value("calories")
	assert.Equal(t, 265.0, cal)

	// both the original name and the suggested term were tried against the
	// reference database before estimation kicked in
	assert.Equal(t, []string{"my grandma's oatmeal", "oatmeal"}, ref.queries)
}

func TestAnalyzeTextUnresolvable(t *testing.T) {
	oracle := &stubOracle{textErr: errors.New("rate limited")}
	ref := &stubReference{err: errors.New("service unavailable")}

	result, err := newPipeline(oracle, ref, nil).AnalyzeText(context.Background(), "mystery dish", "")
	require.ErrorIs(t, err, ErrAllFoodsFailedRealism)

	// the result still carries the failed food for inspection
	require.NotNil(t, result)
	require.Len(t, result.Foods, 1)
	assert.Equal(t, models.SourceFailed, result.Foods[0].Source)
	assert.Nil(t, result.Foods[0].Nutrition)
}

func TestAnalyzePhotoTwoOracles(t *testing.T) {
	oracle := &stubOracle{imageResponse: `{"foods": [
		{"name": "apple", "serving": "1 medium"},
		{"name": "banana", "serving": "1 medium"}
	]}`}
	secondary := &stubVision{detections: []models.FoodDetection{{Name: "apple"}}}
	ref := &stubReference{foods: []FDCFood{appleFDC}}

	result, err := newPipeline(oracle, ref, secondary).AnalyzePhoto(context.Background(), "data:image/jpeg;base64,xxxx")
	require.NoError(t, err)
	require.Len(t, result.Foods, 2)

	// the food both oracles agreed on sorts first with the matched confidence
	assert.Equal(t, "apple", result.Foods[0].Name)
	assert.InDelta(t, 0.95, result.Foods[0].Detection.Confidence, 0.001)
	assert.Len(t, result.Foods[0].Detection.AgreedModels, 2)

	assert.Equal(t, "banana", result.Foods[1].Name)
	assert.InDelta(t, 0.6, result.Foods[1].Detection.Confidence, 0.001)

	require.NotNil(t, result.MealOutlierDetection)
	assert.Equal(t, "no outliers detected", result.MealOutlierDetection.Summary)
}

func TestAnalyzePhotoSecondaryFailureIsSoft(t *testing.T) {
	oracle := &stubOracle{imageResponse: `{"foods": [{"name": "apple", "serving": "1 medium"}]}`}
	secondary := &stubVision{err: errors.New("throttled")}
	ref := &stubReference{foods: []FDCFood{appleFDC}}

	result, err := newPipeline(oracle, ref, secondary).AnalyzePhoto(context.Background(), "data:image/jpeg;base64,xxxx")
	require.NoError(t, err)
	require.Len(t, result.Foods, 1)
	assert.InDelta(t, 0.7, result.Foods[0].Detection.Confidence, 0.001)
}

func TestAnalyzePhotoPrimaryFailureTerminal(t *testing.T) {
	oracle := &stubOracle{imageErr: errors.New("model overloaded")}
	secondary := &stubVision{detections: []models.FoodDetection{{Name: "apple"}}}
	ref := &stubReference{foods: []FDCFood{appleFDC}}

	result, err := newPipeline(oracle, ref, secondary).AnalyzePhoto(context.Background(), "data:image/jpeg;base64,xxxx")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrVisionUnavailable)
}

func TestAnalyzePhotoNoFoodsDetected(t *testing.T) {
	oracle := &stubOracle{imageResponse: `{"foods": []}`}
	ref := &stubReference{foods: []FDCFood{appleFDC}}

	result, err := newPipeline(oracle, ref, nil).AnalyzePhoto(context.Background(), "data:image/jpeg;base64,xxxx")
	require.NoError(t, err)
	assert.Empty(t, result.Foods)
}

func TestAnalyzePhotoComplexDishDecomposed(t *testing.T) {
	oracle := &stubOracle{
		imageResponse: `{"foods": [{"name": "fruit salad", "serving": "1 cup", "isComplex": true}]}`,
		textResponses: []string{
			`{"isComplex": true, "ingredients": [
				{"name": "apple", "serving": "1/2 cup"},
				{"name": "banana", "serving": "1/2 cup"}
			]}`,
		},
	}
	ref := &stubReference{foods: []FDCFood{appleFDC}}

	result, err := newPipeline(oracle, ref, nil).AnalyzePhoto(context.Background(), "data:image/jpeg;base64,xxxx")
	require.NoError(t, err)
	require.Len(t, result.Foods, 1)

	food := result.Foods[0]
	require.Len(t, food.Ingredients, 2)
	require.NotNil(t, food.CompositeNutrition)
	require.NotNil(t, food.CompositeValidation)

	// the whole-dish resolution stays authoritative alongside the breakdown
	assert.Equal(t, models.SourceReference, food.Source)
	require.NotNil(t, food.Nutrition)
}

func TestAnalyzePhotoOutlierCorrectionApplied(t *testing.T) {
	// a photo-path estimate with sugar exceeding carbs: the outlier pass must
	// hand back the corrected profile as the food's nutrition
	oracle := &stubOracle{
		imageResponse: `{"foods": [{"name": "glazed donut", "serving": "1 piece"}]}`,
		textResponses: []string{
			`{"calories": 300, "protein": 3, "carbs": 30, "fat": 15, "sugar": 45}`,
		},
	}
	ref := &stubReference{}

	result, err := newPipeline(oracle, ref, nil).AnalyzePhoto(context.Background(), "data:image/jpeg;base64,xxxx")
	require.NoError(t, err)
	require.Len(t, result.Foods, 1)

	food := result.Foods[0]
	require.NotNil(t, food.OutlierDetection)
	assert.True(t, food.OutlierDetection.Detected)
	require.Contains(t, food.OutlierDetection.Corrections, "sugar")

	sugar, _ := food.Nutrition.Value("sugar")
	assert.Equal(t, 30.0, sugar)
}
