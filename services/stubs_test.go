package services

import (
	"context"
	"errors"
	"sync"

	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/models"
)

// stubOracle scripts text responses consumed in order. Image responses are
// static since at most one identification happens per request.
type stubOracle struct {
	mu            sync.Mutex
	textResponses []string
	textErr       error
	imageResponse string
	imageErr      error
	textPrompts   []string
}

func (o *stubOracle) GenerateText(_ context.Context, _, user string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.textPrompts = append(o.textPrompts, user)
	if o.textErr != nil {
		return "", o.textErr
	}
	if len(o.textResponses) == 0 {
		return "", errors.New("no scripted response")
	}
	resp := o.textResponses[0]
	o.textResponses = o.textResponses[1:]
	return resp, nil
}

func (o *stubOracle) GenerateTextWithImage(_ context.Context, _, _, _ string) (string, error) {
	if o.imageErr != nil {
		return "", o.imageErr
	}
	return o.imageResponse, nil
}

// stubReference serves the same result list for every query and records what
// was asked.
type stubReference struct {
	mu      sync.Mutex
	foods   []FDCFood
	err     error
	queries []string
}

func (r *stubReference) SearchFoods(_ context.Context, query string, _ int) ([]FDCFood, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, query)
	if r.err != nil {
		return nil, r.err
	}
	return r.foods, nil
}

type stubVision struct {
	detections []models.FoodDetection
	err        error
}

func (v *stubVision) DetectFoods(_ context.Context, _ string) ([]models.FoodDetection, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.detections, nil
}

// appleFDC is a per-100g reference record used across tests.
var appleFDC = FDCFood{
	FDCID:       171688,
	Description: "Apples, raw, with skin",
	DataType:    "SR Legacy",
	Nutrients: map[int]float64{
		1008: 52,   // calories
		1003: 0.3,  // protein
		1005: 13.8, // carbs
		1004: 0.2,  // fat
		1079: 2.4,  // fiber
		2000: 10.4, // sugar
		1093: 1,    // sodium
	},
}
