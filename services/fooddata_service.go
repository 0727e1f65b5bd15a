package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/config"
	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/utils"
)

// FDCFood is one reference-database record. Nutrient values are on the
// database's fixed basis (per 100 g), keyed by FDC nutrient ID; the resolver
// owns the ID-to-field mapping and the serving scaling.
type FDCFood struct {
	FDCID       int
	Description string
	DataType    string
	Nutrients   map[int]float64
}

// ReferenceSearcher is the reference-database capability the resolver needs.
type ReferenceSearcher interface {
	SearchFoods(ctx context.Context, query string, limit int) ([]FDCFood, error)
}

// FoodDataService queries the USDA FoodData Central search endpoint.
type FoodDataService struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     *utils.Logger
}

func NewFoodDataService(log *utils.Logger) *FoodDataService {
	return &FoodDataService{
		apiKey:  config.Getenv("FDC_API_KEY", "DEMO_KEY"),
		baseURL: config.Getenv("FDC_BASE_URL", "https://api.nal.usda.gov/fdc"),
		client:  &http.Client{Timeout: config.GetenvDuration("FDC_TIMEOUT", 10 * time.Second)},
		log:     log.With("service", "FoodDataService"),
	}
}

type fdcSearchResponse struct {
	Foods []struct {
		FDCID         int    `json:"fdcId"`
		Description   string `json:"description"`
		DataType      string `json:"dataType"`
		FoodNutrients []struct {
			NutrientID int     `json:"nutrientId"`
			Value      float64 `json:"value"`
		} `json:"foodNutrients"`
	} `json:"foods"`
}

func (s *FoodDataService) SearchFoods(ctx context.Context, query string, limit int) ([]FDCFood, error) {
	if limit <= 0 {
		limit = 5
	}
	u := fmt.Sprintf(
		"%s/v1/foods/search?query=%s&pageSize=%d&api_key=%s",
		s.baseURL, url.QueryEscape(query), limit, s.apiKey,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create FDC search request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call FDC search: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read FDC search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("FDC search API error %d: %s", resp.StatusCode, string(body))
	}

	var sr fdcSearchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("failed to parse FDC search JSON: %w", err)
	}

	results := make([]FDCFood, 0, len(sr.Foods))
	for _, f := range sr.Foods {
		nutrients := make(map[int]float64, len(f.FoodNutrients))
		for _, n := range f.FoodNutrients {
			nutrients[n.NutrientID] = n.Value
		}
		results = append(results, FDCFood{
			FDCID:       f.FDCID,
			Description: f.Description,
			DataType:    f.DataType,
			Nutrients:   nutrients,
		})
	}
	return results, nil
}
