package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/config"
	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/models"
	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/utils"
)

// Terminal request-level outcomes. Everything else in the pipeline degrades
// locally: fallback strategies, single retries, auto-corrections.
var (
	// ErrVisionUnavailable: the outermost image-identification step failed or
	// timed out. Without it there is nothing to resolve.
	ErrVisionUnavailable = errors.New("image identification unavailable")
	// ErrAllFoodsFailedRealism: every resolved food failed validation even
	// after its correction retry. Surfaced distinctly so the caller can ask
	// the user to retake or rephrase instead of showing untrustworthy numbers.
	ErrAllFoodsFailedRealism = errors.New("all foods failed realism validation")
)

// At most this many detections are resolved per request; beyond that the
// photo is almost certainly misidentified clutter.
const maxFoodsPerRequest = 25

const (
	primaryOracleModel   = "oracle"
	secondaryOracleModel = "rekognition"
)

// PipelineService runs the full resolution flow for a request: detection
// (photo path), per-food concurrent resolution, realism validation with one
// correction retry, outlier scanning, complex-dish decomposition, and the
// meal-level aggregate pass.
type PipelineService struct {
	normalizer *ServingNormalizer
	resolver   *NutritionResolver
	validator  *RealismValidator
	outliers   *OutlierEngine
	merger     *DetectionMerger
	decomposer *DishDecomposer
	oracle     Oracle
	secondary  VisionDetector // nil when no secondary oracle is configured
	log        *utils.Logger

	primaryVisionTimeout   time.Duration
	secondaryVisionTimeout time.Duration
	foodTimeout            time.Duration
}

func NewPipelineService(
	normalizer *ServingNormalizer,
	resolver *NutritionResolver,
	validator *RealismValidator,
	outliers *OutlierEngine,
	merger *DetectionMerger,
	decomposer *DishDecomposer,
	oracle Oracle,
	secondary VisionDetector,
	log *utils.Logger,
) *PipelineService {
	return &PipelineService{
		normalizer: normalizer,
		resolver:   resolver,
		validator:  validator,
		outliers:   outliers,
		merger:     merger,
		decomposer: decomposer,
		oracle:     oracle,
		secondary:  secondary,
		log:        log.With("service", "PipelineService"),

		primaryVisionTimeout:   config.GetenvDuration("VISION_PRIMARY_TIMEOUT", 45*time.Second),
		// the secondary oracle is advisory, so it gets a shorter leash
		secondaryVisionTimeout: config.GetenvDuration("VISION_SECONDARY_TIMEOUT", 10*time.Second),
		foodTimeout:            config.GetenvDuration("FOOD_RESOLVE_TIMEOUT", 90*time.Second),
	}
}

// AnalyzeText resolves a single described food.
func (s *PipelineService) AnalyzeText(ctx context.Context, description, servingExpr string) (*models.AnalysisResult, error) {
	detection := models.FoodDetection{Name: description, Serving: servingExpr}
	foods := s.resolveAll(ctx, []models.FoodDetection{detection}, true)
	return s.finish(foods)
}

// AnalyzePhoto identifies foods in the image with two oracles in parallel,
// merges the detections, and resolves each food. Primary identification
// failure is terminal; the secondary oracle failing only skips the merge.
func (s *PipelineService) AnalyzePhoto(ctx context.Context, imageDataURI string) (*models.AnalysisResult, error) {
	detections, err := s.identify(ctx, imageDataURI)
	if err != nil {
		return nil, err
	}
	if len(detections) == 0 {
		return &models.AnalysisResult{Foods: []*models.ResolvedFood{}}, nil
	}
	if len(detections) > maxFoodsPerRequest {
		s.log.Warn("capping detections", "detected", len(detections), "cap", maxFoodsPerRequest)
		detections = detections[:maxFoodsPerRequest]
	}

	foods := s.resolveAll(ctx, detections, false)
	return s.finish(foods)
}

// identify runs the two vision oracles in parallel with independent timeouts.
func (s *PipelineService) identify(ctx context.Context, imageDataURI string) ([]models.FoodDetection, error) {
	var primary, secondary []models.FoodDetection
	var primaryErr error

	g := &errgroup.Group{}
	g.Go(func() error {
		pctx, cancel := context.WithTimeout(ctx, s.primaryVisionTimeout)
		defer cancel()
		primary, primaryErr = s.identifyWithOracle(pctx, imageDataURI)
		return nil
	})
	g.Go(func() error {
		if s.secondary == nil {
			return nil
		}
		sctx, cancel := context.WithTimeout(ctx, s.secondaryVisionTimeout)
		defer cancel()
		dets, err := s.secondary.DetectFoods(sctx, imageDataURI)
		if err != nil {
			// advisory oracle, soft failure
			s.log.Warn("secondary vision oracle failed", "error", err)
			return nil
		}
		secondary = dets
		return nil
	})
	_ = g.Wait()

	if primaryErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrVisionUnavailable, primaryErr)
	}
	return s.merger.Merge(primary, secondary, primaryOracleModel, secondaryOracleModel), nil
}

type identificationPayload struct {
	Foods []struct {
		Name      string `json:"name"`
		Serving   string `json:"serving"`
		IsComplex bool   `json:"isComplex"`
	} `json:"foods"`
}

func (s *PipelineService) identifyWithOracle(ctx context.Context, imageDataURI string) ([]models.FoodDetection, error) {
	const system = "You identify foods in meal photos. Respond with a single JSON object and nothing else."
	const user = `Identify every distinct food in this photo. Respond with JSON: {"foods": [{"name": "<food>", "serving": "<estimated amount and unit, e.g. '1 cup'>", "isComplex": <true if the item is a multi-ingredient dish>}]}`

	text, err := s.oracle.GenerateTextWithImage(ctx, system, user, imageDataURI)
	if err != nil {
		return nil, err
	}

	var payload identificationPayload
	if !utils.DecodeFirstJSONObject(text, &payload) {
		return nil, errors.New("identification returned no usable payload")
	}

	detections := make([]models.FoodDetection, 0, len(payload.Foods))
	for _, f := range payload.Foods {
		if f.Name == "" {
			continue
		}
		detections = append(detections, models.FoodDetection{
			Name:      f.Name,
			Serving:   f.Serving,
			IsComplex: f.IsComplex,
		})
	}
	return detections, nil
}

// resolveAll fans the detections out concurrently. Each food's resolution,
// validation and outlier pass is an independent unit of work; nothing here
// depends on sibling ordering.
func (s *PipelineService) resolveAll(ctx context.Context, detections []models.FoodDetection, fromText bool) []*models.ResolvedFood {
	foods := make([]*models.ResolvedFood, len(detections))

	g := &errgroup.Group{}
	for i, det := range detections {
		i, det := i, det
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, s.foodTimeout)
			defer cancel()
			foods[i] = s.resolveFood(fctx, det, fromText)
			return nil
		})
	}
	_ = g.Wait()

	return foods
}

// resolveFood is the per-food unit of work: normalize, resolve, validate with
// at most one sequential correction retry, outlier-scan, and decompose when
// the detection is flagged complex.
func (s *PipelineService) resolveFood(ctx context.Context, det models.FoodDetection, fromText bool) *models.ResolvedFood {
	serving := s.normalizer.Normalize(det.Serving, !fromText)
	res := s.resolver.Resolve(ctx, det.Name, serving, fromText)

	food := &models.ResolvedFood{
		Name:       det.Name,
		Serving:    serving,
		Detection:  det,
		Source:     res.Source,
		Candidates: res.Candidates,
		Nutrition:  res.Profile,
	}
	if food.Candidates == nil {
		food.Candidates = []models.FoodCandidate{}
	}

	if res.Profile == nil {
		food.Source = models.SourceFailed
		food.RealismValidation = models.ValidationResult{
			Valid:  false,
			Issues: []string{"nutrition could not be resolved by any strategy"},
		}
		return food
	}

	validation := s.validator.Validate(res.Profile)
	if !validation.Valid {
		// one correction round-trip, strictly after the failed validation —
		// never speculative. Last attempt wins: once the retry yields a
		// profile, the original is discarded even if the retry is worse.
		revised, revisedValidation := s.validator.CorrectOnce(ctx, det.Name, serving, res.Profile, validation.Issues)
		if revised != nil {
			food.Nutrition = revised
			validation = revisedValidation
			if revisedValidation.Valid {
				food.Source = models.SourceEstimateCorrected
			}
		}
	}
	food.RealismValidation = validation

	report := s.outliers.DetectFood(food.Nutrition)
	food.OutlierDetection = report
	if report != nil && report.Corrected != nil {
		food.Nutrition = report.Corrected
	}

	if det.IsComplex {
		if dec := s.decomposer.Decompose(ctx, det.Name); dec != nil {
			food.Ingredients = dec.Ingredients
			food.CompositeNutrition = dec.Composite
			food.CompositeValidation = &dec.CompositeValidation
		}
	}

	return food
}

// finish runs the meal-level aggregate pass and the request-level realism
// verdict.
func (s *PipelineService) finish(foods []*models.ResolvedFood) (*models.AnalysisResult, error) {
	result := &models.AnalysisResult{Foods: foods}
	if len(foods) > 1 {
		result.MealOutlierDetection = s.outliers.DetectMeal(foods)
	}

	allFailed := len(foods) > 0
	for _, f := range foods {
		if f.RealismValidation.Valid {
			allFailed = false
			break
		}
	}
	if allFailed {
		return result, ErrAllFoodsFailedRealism
	}
	return result, nil
}
