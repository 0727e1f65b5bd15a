package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/config"
	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/utils"
)

// Oracle is the generative text/vision capability consumed by the core. It is
// deliberately narrow: a prompt in, free-form text expected to contain one
// JSON-shaped object out. Callers own extraction and fail soft on absence.
type Oracle interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
	GenerateTextWithImage(ctx context.Context, system, user, imageDataURI string) (string, error)
}

// OracleService talks to an OpenAI-compatible chat completions endpoint.
type OracleService struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	log     *utils.Logger
}

func NewOracleService(log *utils.Logger) (*OracleService, error) {
	apiKey := strings.TrimSpace(os.Getenv("ORACLE_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("missing ORACLE_API_KEY")
	}
	return &OracleService{
		baseURL: strings.TrimRight(config.Getenv("ORACLE_BASE_URL", "https://api.openai.com"), "/"),
		apiKey:  apiKey,
		model:   config.Getenv("ORACLE_MODEL", "gpt-4o-mini"),
		client:  &http.Client{Timeout: config.GetenvDuration("ORACLE_TIMEOUT", 60 * time.Second)},
		log:     log.With("service", "OracleService"),
	}, nil
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (s *OracleService) GenerateText(ctx context.Context, system, user string) (string, error) {
	return s.complete(ctx, system, user)
}

// GenerateTextWithImage sends the prompt with an attached image. The image is
// a data URI (data:image/...;base64,...) or an https URL.
func (s *OracleService) GenerateTextWithImage(ctx context.Context, system, user, imageDataURI string) (string, error) {
	content := []map[string]interface{}{
		{"type": "text", "text": user},
		{"type": "image_url", "image_url": map[string]string{"url": imageDataURI}},
	}
	return s.send(ctx, []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: content},
	})
}

func (s *OracleService) complete(ctx context.Context, system, user string) (string, error) {
	return s.send(ctx, []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
}

func (s *OracleService) send(ctx context.Context, messages []chatMessage) (string, error) {
	payload := chatRequest{Model: s.model, Messages: messages, Temperature: 0.2}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal oracle payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("failed to create oracle request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call oracle: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read oracle response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oracle API error %d: %s", resp.StatusCode, string(body))
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", fmt.Errorf("failed to parse oracle JSON: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", errors.New("oracle returned no choices")
	}
	text := strings.TrimSpace(cr.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("oracle returned empty content")
	}
	return text, nil
}
