package models

// ServingSpec is a parsed serving expression. Grams is derived once by the
// serving normalizer and never recomputed downstream.
type ServingSpec struct {
	Raw     string  `json:"raw"`
	Amount  float64 `json:"amount"`
	Unit    string  `json:"unit"`
	Grams   float64 `json:"grams"`
	Assumed bool    `json:"assumed"` // true when the default weight was applied
}

// FoodDetection is one food identified from a photo or described in text.
// Confidence, AgreedModels and NameSimilarity are only populated on the
// multi-model photo path.
type FoodDetection struct {
	Name           string   `json:"name"`
	Serving        string   `json:"serving,omitempty"`
	IsComplex      bool     `json:"is_complex"`
	Confidence     float64  `json:"confidence,omitempty"`
	AgreedModels   []string `json:"agreed_models,omitempty"`
	NameSimilarity float64  `json:"name_similarity,omitempty"`
}

// FoodCandidate is one reference-database match, already scaled to the
// requested serving. Rank 1 is the automatically selected record; the rest of
// the list is kept so callers can inspect alternates.
type FoodCandidate struct {
	FDCID       int               `json:"fdc_id"`
	Description string            `json:"description"`
	DataType    string            `json:"data_type"`
	Rank        int               `json:"rank"`
	Nutrition   *NutritionProfile `json:"nutrition"`
}
