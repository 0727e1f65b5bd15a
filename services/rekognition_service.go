package services

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/config"
	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/models"
	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/utils"
)

// VisionDetector is the secondary food-identification capability consumed by
// the photo pipeline.
type VisionDetector interface {
	DetectFoods(ctx context.Context, imageDataURI string) ([]models.FoodDetection, error)
}

// RekognitionService detects food labels in an image via AWS Rekognition. It
// plays the advisory second oracle: its detections only ever confirm or
// extend the primary oracle's list.
type RekognitionService struct {
	client *rekognition.Client
	log    *utils.Logger
}

func NewRekognitionService(ctx context.Context, log *utils.Logger) (*RekognitionService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(config.Getenv("AWS_REGION", "us-east-1")))
	if err != nil {
		return nil, err
	}
	return &RekognitionService{
		client: rekognition.NewFromConfig(cfg),
		log:    log.With("service", "RekognitionService"),
	}, nil
}

// labels this generic are category noise, not foods
var genericFoodLabels = map[string]bool{
	"food": true, "meal": true, "dish": true, "cuisine": true,
	"plate": true, "lunch": true, "dinner": true, "breakfast": true,
	"produce": true, "plant": true, "beverage": true, "drink": true,
}

// DetectFoods returns food detections for a base64 data-URI image.
func (r *RekognitionService) DetectFoods(ctx context.Context, imageDataURI string) ([]models.FoodDetection, error) {
	data, err := decodeImageDataURI(imageDataURI)
	if err != nil {
		return nil, err
	}

	out, err := r.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: data},
		MaxLabels:     aws.Int32(10),
		MinConfidence: aws.Float32(55),
	})
	if err != nil {
		return nil, err
	}

	detections := make([]models.FoodDetection, 0, len(out.Labels))
	for _, l := range out.Labels {
		if l.Name == nil || !isFoodLabel(l) {
			continue
		}
		name := strings.ToLower(*l.Name)
		if genericFoodLabels[name] {
			continue
		}
		detections = append(detections, models.FoodDetection{Name: name})
	}
	return detections, nil
}

// isFoodLabel keeps only labels under Rekognition's food/beverage taxonomy.
func isFoodLabel(l types.Label) bool {
	for _, p := range l.Parents {
		if p.Name == nil {
			continue
		}
		switch strings.ToLower(*p.Name) {
		case "food", "food and beverage", "beverage", "produce", "fruit", "vegetable":
			return true
		}
	}
	for _, c := range l.Categories {
		if c.Name != nil && strings.Contains(strings.ToLower(*c.Name), "food") {
			return true
		}
	}
	return false
}

// decodeImageDataURI strips a data:image/...;base64, prefix and decodes the
// payload. Bare https URLs are not supported here; the HTTP layer always
// hands the core inline images.
func decodeImageDataURI(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, "data:image") {
		return nil, errors.New("invalid image data URI")
	}
	_, payload, found := strings.Cut(uri, ",")
	if !found {
		return nil, errors.New("invalid image data URI")
	}
	return base64.StdEncoding.DecodeString(payload)
}
