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

func newDecomposer(oracle Oracle, ref ReferenceSearcher) *DishDecomposer {
	log := utils.NopLogger()
	resolver := NewNutritionResolver(ref, oracle, log)
	validator := NewRealismValidator(oracle, log)
	return NewDishDecomposer(oracle, resolver, validator, NewServingNormalizer(), log)
}

func TestDecomposeComplexDish(t *testing.T) {
	oracle := &stubOracle{textResponses: []string{
		`{"isComplex": true, "ingredients": [
			{"name": "apple", "serving": "1 cup"},
			{"name": "apple sauce", "serving": "100 g"},
			{"name": "dried apple", "serving": "1/2 cup"}
		]}`,
	}}
	ref := &stubReference{foods: []FDCFood{appleFDC}}

	dec := newDecomposer(oracle, ref).Decompose(context.Background(), "apple crumble")
	require.NotNil(t, dec)
	require.Len(t, dec.Ingredients, 3)

	first := dec.Ingredients[0]
	assert.Equal(t, "apple", first.Name)
	assert.Equal(t, 240.0, first.Serving.Grams)
	assert.Equal(t, models.SourceReference, first.Source)
	assert.True(t, first.RealismValidation.Valid)

	// composite is the sum of the scaled ingredient profiles:
	// 52 kcal/100g at 240 + 100 + 120 grams
	require.NotNil(t, dec.Composite)
	cal, ok := dec.Composite.Value("calories")
	require.True(t, ok)
	assert.InDelta(t, 239.2, cal, 0.01)
	assert.True(t, dec.CompositeValidation.Valid)
}

func TestDecomposeNotComplex(t *testing.T) {
	oracle := &stubOracle{textResponses: []string{
		`{"isComplex": false, "ingredients": []}`,
	}}
	ref := &stubReference{foods: []FDCFood{appleFDC}}

	dec := newDecomposer(oracle, ref).Decompose(context.Background(), "apple")
	assert.Nil(t, dec)
	// the answer ended the flow before any resolution happened
	assert.Empty(t, ref.queries)
}

func TestDecomposeIngredientCountOutOfRange(t *testing.T) {
	oracle := &stubOracle{textResponses: []string{
		`{"isComplex": true, "ingredients": [{"name": "bread", "serving": "1 slice"}]}`,
	}}
	ref := &stubReference{foods: []FDCFood{appleFDC}}

	dec := newDecomposer(oracle, ref).Decompose(context.Background(), "toast")
	assert.Nil(t, dec)
	assert.Empty(t, ref.queries)
}

func TestDecomposeOracleFailure(t *testing.T) {
	oracle := &stubOracle{textErr: errors.New("timeout")}
	ref := &stubReference{foods: []FDCFood{appleFDC}}

	assert.Nil(t, newDecomposer(oracle, ref).Decompose(context.Background(), "lasagna"))
}

func TestDecomposeUnresolvableIngredients(t *testing.T) {
	// decomposition succeeds but nothing downstream resolves: the breakdown is
	// still returned with each ingredient marked failed
	oracle := &stubOracle{textResponses: []string{
		`{"isComplex": true, "ingredients": [
			{"name": "secret sauce", "serving": "1 tbsp"},
			{"name": "mystery meat", "serving": "100 g"}
		]}`,
	}}
	ref := &stubReference{err: errors.New("service unavailable")}

	dec := newDecomposer(oracle, ref).Decompose(context.Background(), "mystery burger")
	require.NotNil(t, dec)
	require.Len(t, dec.Ingredients, 2)
	for _, ing := range dec.Ingredients {
		assert.Equal(t, models.SourceFailed, ing.Source)
		assert.Nil(t, ing.Nutrition)
		assert.False(t, ing.RealismValidation.Valid)
	}
	assert.False(t, dec.CompositeValidation.Valid)
}
