package services

import (
	"strconv"
	"strings"

	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/models"
)

// Default gram weights applied when a serving expression is absent or cannot
// be parsed. Servings are approximate by nature; a hard failure here would
// block the whole pipeline over a cosmetic parsing miss.
const (
	DefaultPhotoServingGrams = 150
	DefaultTextServingGrams  = 100
)

// gramsPerUnit converts one unit of each known serving token to grams.
// Volume units assume water-like density; close enough for serving estimates.
var gramsPerUnit = map[string]float64{
	"g":           1,
	"gram":        1,
	"grams":       1,
	"kg":          1000,
	"kilogram":    1000,
	"kilograms":   1000,
	"mg":          0.001,
	"oz":          28.35,
	"ounce":       28.35,
	"ounces":      28.35,
	"lb":          453.6,
	"lbs":         453.6,
	"pound":       453.6,
	"pounds":      453.6,
	"ml":          1,
	"milliliter":  1,
	"milliliters": 1,
	"l":           1000,
	"liter":       1000,
	"liters":      1000,
	"cup":         240,
	"cups":        240,
	"tbsp":        15,
	"tablespoon":  15,
	"tablespoons": 15,
	"tsp":         5,
	"teaspoon":    5,
	"teaspoons":   5,
	"slice":       30,
	"slices":      30,
	"piece":       50,
	"pieces":      50,
	"serving":     150,
	"servings":    150,
	"small":       100,
	"medium":      150,
	"large":       200,
}

// ServingNormalizer parses quantity+unit expressions into gram weights.
type ServingNormalizer struct{}

func NewServingNormalizer() *ServingNormalizer {
	return &ServingNormalizer{}
}

// Normalize derives a ServingSpec from a free-form serving expression such as
// "2 tbsp" or "150g". An empty expression, an unknown unit, or an unparsable
// amount resolves to a fixed default weight (photo detections skew larger
// than text descriptions) with Assumed set.
func (n *ServingNormalizer) Normalize(raw string, photo bool) models.ServingSpec {
	def := float64(DefaultTextServingGrams)
	if photo {
		def = DefaultPhotoServingGrams
	}
	assumed := models.ServingSpec{Raw: raw, Amount: 1, Unit: "serving", Grams: def, Assumed: true}

	expr := strings.ToLower(strings.TrimSpace(raw))
	if expr == "" {
		assumed.Raw = "1 serving"
		return assumed
	}

	amount, rest, ok := parseLeadingAmount(expr)
	if !ok {
		// unit-only expressions like "slice" count as one of that unit
		amount = 1
		rest = expr
	}

	unit := firstToken(rest)
	weight, known := gramsPerUnit[unit]
	if !known || amount <= 0 {
		return assumed
	}

	return models.ServingSpec{
		Raw:    raw,
		Amount: amount,
		Unit:   unit,
		Grams:  amount * weight,
	}
}

// parseLeadingAmount reads an integer, decimal, or simple fraction ("1/2",
// "1 1/2") off the front of expr.
func parseLeadingAmount(expr string) (float64, string, bool) {
	isAmountChar := func(i int) bool {
		c := expr[i]
		if c >= '0' && c <= '9' || c == '.' || c == '/' {
			return true
		}
		// a space continues the amount only between numeric pieces ("1 1/2")
		return c == ' ' && i+1 < len(expr) && expr[i+1] >= '0' && expr[i+1] <= '9'
	}

	i := 0
	for i < len(expr) && isAmountChar(i) {
		i++
	}
	numPart := strings.TrimSpace(expr[:i])
	if numPart == "" {
		return 0, expr, false
	}

	total := 0.0
	for _, piece := range strings.Fields(numPart) {
		if num, den, found := strings.Cut(piece, "/"); found {
			n1, err1 := strconv.ParseFloat(num, 64)
			n2, err2 := strconv.ParseFloat(den, 64)
			if err1 != nil || err2 != nil || n2 == 0 {
				return 0, expr, false
			}
			total += n1 / n2
			continue
		}
		v, err := strconv.ParseFloat(piece, 64)
		if err != nil {
			return 0, expr, false
		}
		total += v
	}
	return total, strings.TrimSpace(expr[i:]), true
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], ".,()")
}
