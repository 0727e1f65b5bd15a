package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/models"
	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/utils"
)

// A decomposition is only trusted when the oracle names between 2 and 8
// ingredients; anything outside that range reads as a hallucinated or
// degenerate breakdown.
const (
	minIngredients = 2
	maxIngredients = 8
)

// Decomposition is the ingredient-level alternative for a complex dish. The
// composite total sits alongside the whole-dish profile, never replacing it.
type Decomposition struct {
	Ingredients         []models.ResolvedIngredient
	Composite           *models.NutritionProfile
	CompositeValidation models.ValidationResult
}

// DishDecomposer expands a complex-dish detection into constituent
// ingredients, resolves each independently, and aggregates a composite total.
type DishDecomposer struct {
	oracle     Oracle
	resolver   *NutritionResolver
	validator  *RealismValidator
	normalizer *ServingNormalizer
	log        *utils.Logger
}

func NewDishDecomposer(oracle Oracle, resolver *NutritionResolver, validator *RealismValidator, normalizer *ServingNormalizer, log *utils.Logger) *DishDecomposer {
	return &DishDecomposer{
		oracle:     oracle,
		resolver:   resolver,
		validator:  validator,
		normalizer: normalizer,
		log:        log.With("service", "DishDecomposer"),
	}
}

type decompositionPayload struct {
	IsComplex   bool `json:"isComplex"`
	Ingredients []struct {
		Name    string `json:"name"`
		Serving string `json:"serving"`
	} `json:"ingredients"`
}

// Decompose asks the oracle to break the dish into ingredients and resolves
// each one through the standard chain plus realism validation (no outlier
// pass at ingredient granularity). A "not complex" answer, an oracle failure,
// or an out-of-range ingredient count all return nil — the caller keeps the
// whole-dish resolution.
func (d *DishDecomposer) Decompose(ctx context.Context, dishName string) *Decomposition {
	payload := d.askForIngredients(ctx, dishName)
	if payload == nil || !payload.IsComplex {
		return nil
	}
	if len(payload.Ingredients) < minIngredients || len(payload.Ingredients) > maxIngredients {
		d.log.Warn("decomposition ingredient count out of range",
			"dish", dishName, "count", len(payload.Ingredients))
		return nil
	}

	composite := &models.NutritionProfile{}
	ingredients := make([]models.ResolvedIngredient, 0, len(payload.Ingredients))
	for _, ing := range payload.Ingredients {
		name := strings.TrimSpace(ing.Name)
		if name == "" {
			continue
		}
		serving := d.normalizer.Normalize(ing.Serving, false)
		res := d.resolver.Resolve(ctx, name, serving, false)

		resolved := models.ResolvedIngredient{
			Name:    name,
			Serving: serving,
			Source:  res.Source,
		}
		if res.Profile != nil {
			resolved.Nutrition = res.Profile
			resolved.RealismValidation = d.validator.Validate(res.Profile)
			composite.Add(res.Profile)
		} else {
			resolved.RealismValidation = models.ValidationResult{
				Valid:  false,
				Issues: []string{"ingredient nutrition could not be resolved"},
			}
		}
		ingredients = append(ingredients, resolved)
	}

	if len(ingredients) < minIngredients {
		return nil
	}

	// the composite validation is a sanity check on decomposition quality,
	// not a gate: an implausible sum is surfaced with its issues
	compositeValidation := d.validator.Validate(composite)
	if !compositeValidation.Valid {
		d.log.Warn("composite ingredient total fails realism check",
			"dish", dishName, "issues", compositeValidation.Issues)
	}

	return &Decomposition{
		Ingredients:         ingredients,
		Composite:           composite,
		CompositeValidation: compositeValidation,
	}
}

func (d *DishDecomposer) askForIngredients(ctx context.Context, dishName string) *decompositionPayload {
	const system = "You break complex dishes into their main ingredients. Respond with a single JSON object and nothing else."
	user := fmt.Sprintf(
		`Is %q a complex dish made of distinct ingredients? Respond with JSON: {"isComplex": <bool>, "ingredients": [{"name": "<ingredient>", "serving": "<amount and unit, e.g. '1/2 cup'>"}]}. List 2 to 8 ingredients when complex, an empty list otherwise.`,
		dishName,
	)

	text, err := d.oracle.GenerateText(ctx, system, user)
	if err != nil {
		d.log.Warn("dish decomposition failed", "dish", dishName, "error", err)
		return nil
	}

	var payload decompositionPayload
	if !utils.DecodeFirstJSONObject(text, &payload) {
		d.log.Warn("dish decomposition returned no usable payload", "dish", dishName)
		return nil
	}
	return &payload
}
