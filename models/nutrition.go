package models

import (
	"math"
	"strconv"
	"strings"
)

// NutritionProfile is the canonical multi-nutrient snapshot for one resolved food.
// A nil field means "unknown" — never zero. Units: calories in kcal; protein, carbs,
// fat, saturated/trans fat, fiber and sugar in g; sodium, cholesterol, potassium,
// calcium, iron, magnesium, zinc, phosphorus, vitamin C, vitamin E and vitamin B6 in
// mg; vitamin A, D, K, B12 and folate in µg.
type NutritionProfile struct {
	Calories     *float64 `json:"calories,omitempty"`
	Protein      *float64 `json:"protein,omitempty"`
	Carbs        *float64 `json:"carbs,omitempty"`
	Fat          *float64 `json:"fat,omitempty"`
	SaturatedFat *float64 `json:"saturated_fat,omitempty"`
	TransFat     *float64 `json:"trans_fat,omitempty"`
	Fiber        *float64 `json:"fiber,omitempty"`
	Sugar        *float64 `json:"sugar,omitempty"`
	Sodium       *float64 `json:"sodium,omitempty"`
	Cholesterol  *float64 `json:"cholesterol,omitempty"`
	Potassium    *float64 `json:"potassium,omitempty"`
	Calcium      *float64 `json:"calcium,omitempty"`
	Iron         *float64 `json:"iron,omitempty"`
	Magnesium    *float64 `json:"magnesium,omitempty"`
	Zinc         *float64 `json:"zinc,omitempty"`
	Phosphorus   *float64 `json:"phosphorus,omitempty"`
	VitaminA     *float64 `json:"vitamin_a,omitempty"`
	VitaminC     *float64 `json:"vitamin_c,omitempty"`
	VitaminD     *float64 `json:"vitamin_d,omitempty"`
	VitaminE     *float64 `json:"vitamin_e,omitempty"`
	VitaminK     *float64 `json:"vitamin_k,omitempty"`
	VitaminB6    *float64 `json:"vitamin_b6,omitempty"`
	VitaminB12   *float64 `json:"vitamin_b12,omitempty"`
	Folate       *float64 `json:"folate,omitempty"`
}

// NutrientFields is the canonical iteration order for the profile fields.
var NutrientFields = []string{
	"calories", "protein", "carbs", "fat",
	"saturated_fat", "trans_fat", "fiber", "sugar",
	"sodium", "cholesterol", "potassium", "calcium",
	"iron", "magnesium", "zinc", "phosphorus",
	"vitamin_a", "vitamin_c", "vitamin_d", "vitamin_e",
	"vitamin_k", "vitamin_b6", "vitamin_b12", "folate",
}

func (p *NutritionProfile) fieldPtr(name string) **float64 {
	switch name {
	case "calories":
		return &p.Calories
	case "protein":
		return &p.Protein
	case "carbs":
		return &p.Carbs
	case "fat":
		return &p.Fat
	case "saturated_fat":
		return &p.SaturatedFat
	case "trans_fat":
		return &p.TransFat
	case "fiber":
		return &p.Fiber
	case "sugar":
		return &p.Sugar
	case "sodium":
		return &p.Sodium
	case "cholesterol":
		return &p.Cholesterol
	case "potassium":
		return &p.Potassium
	case "calcium":
		return &p.Calcium
	case "iron":
		return &p.Iron
	case "magnesium":
		return &p.Magnesium
	case "zinc":
		return &p.Zinc
	case "phosphorus":
		return &p.Phosphorus
	case "vitamin_a":
		return &p.VitaminA
	case "vitamin_c":
		return &p.VitaminC
	case "vitamin_d":
		return &p.VitaminD
	case "vitamin_e":
		return &p.VitaminE
	case "vitamin_k":
		return &p.VitaminK
	case "vitamin_b6":
		return &p.VitaminB6
	case "vitamin_b12":
		return &p.VitaminB12
	case "folate":
		return &p.Folate
	}
	return nil
}

// Value returns the named nutrient and whether it is known.
func (p *NutritionProfile) Value(name string) (float64, bool) {
	ptr := p.fieldPtr(name)
	if ptr == nil || *ptr == nil {
		return 0, false
	}
	return **ptr, true
}

// ValueOr returns the named nutrient or def when unknown.
func (p *NutritionProfile) ValueOr(name string, def float64) float64 {
	if v, ok := p.Value(name); ok {
		return v
	}
	return def
}

// SetValue overwrites the named nutrient. Unknown names are ignored.
func (p *NutritionProfile) SetValue(name string, v float64) {
	if ptr := p.fieldPtr(name); ptr != nil {
		*ptr = &v
	}
}

// Clone returns a deep copy so corrections never mutate a profile already
// handed to a caller.
func (p *NutritionProfile) Clone() *NutritionProfile {
	out := &NutritionProfile{}
	for _, name := range NutrientFields {
		if v, ok := p.Value(name); ok {
			out.SetValue(name, v)
		}
	}
	return out
}

// Add accumulates every known nutrient of other into p. Unknown fields on
// either side contribute nothing rather than asserting zero.
func (p *NutritionProfile) Add(other *NutritionProfile) {
	if other == nil {
		return
	}
	for _, name := range NutrientFields {
		v, ok := other.Value(name)
		if !ok {
			continue
		}
		if cur, known := p.Value(name); known {
			p.SetValue(name, cur+v)
		} else {
			p.SetValue(name, v)
		}
	}
}

// CoerceNumber converts a decoded JSON value into a nutrient amount. Anything
// that is not a finite non-negative number comes back nil ("unknown"), never
// zero — a missing sodium figure is not the same as zero sodium.
func CoerceNumber(raw interface{}) *float64 {
	var v float64
	switch t := raw.(type) {
	case float64:
		v = t
	case float32:
		v = float64(t)
	case int:
		v = float64(t)
	case int64:
		v = float64(t)
	case string:
		// tolerate "12", "12.5 g" and similar
		s := strings.TrimSpace(t)
		i := 0
		for i < len(s) && (s[i] == '-' || s[i] == '.' || (s[i] >= '0' && s[i] <= '9')) {
			i++
		}
		parsed, err := strconv.ParseFloat(s[:i], 64)
		if err != nil {
			return nil
		}
		v = parsed
	default:
		return nil
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Float is a pointer-literal helper for profile construction.
func Float(v float64) *float64 { return &v }
