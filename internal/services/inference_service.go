package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"hybrid-rag/internal/models"
)

const (
	// DefaultCloudBaseURL is the hosted model catalog endpoint
	DefaultCloudBaseURL = "https://integrate.api.nvidia.com/v1"
	// DefaultLocalBaseURL is the TGI-style inference server started on this machine
	DefaultLocalBaseURL = "http://localhost:9090/v1"
	// LocalMicroserviceHost is the hostname of the sidecar microservice container
	LocalMicroserviceHost = "local_nim"

	cloudAPIKeyEnv = "NVCF_RUN_KEY"
	hfTokenEnv     = "HUGGING_FACE_HUB_TOKEN"
)

// ungatedLocalModels can be served without a Hugging Face token; anything
// else on the local system requires one.
var ungatedLocalModels = map[string]bool{
	"nvidia/Llama3-ChatQA-1.5-8B":        true,
	"microsoft/Phi-3-mini-128k-instruct": true,
}

// CompletionBackend is the interface the query router uses to reach the
// currently selected inference backend
type CompletionBackend interface {
	Complete(ctx context.Context, messages []models.ChatMessage, params models.GenerationParams) (string, error)
	CurrentConfig() (*models.InferenceConfig, error)
}

// completionRequest is the OpenAI-compatible chat completions request body
type completionRequest struct {
	Model            string               `json:"model"`
	Messages         []models.ChatMessage `json:"messages"`
	Temperature      float64              `json:"temperature"`
	TopP             float64              `json:"top_p,omitempty"`
	FrequencyPenalty float64              `json:"frequency_penalty,omitempty"`
	PresencePenalty  float64              `json:"presence_penalty,omitempty"`
	MaxTokens        int                  `json:"max_tokens"`
	Stream           bool                 `json:"stream"`
}

// completionResponse is the OpenAI-compatible chat completions response body
type completionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// InferenceService tracks the selected inference backend and forwards chat
// completions to it. The active configuration is mutated only by SelectMode.
type InferenceService struct {
	mu         sync.RWMutex
	config     *models.InferenceConfig
	httpClient *http.Client
	logger     *log.Logger

	cloudBaseURL string
	localBaseURL string
}

// NewInferenceService creates an inference service with no mode selected
func NewInferenceService(logger *log.Logger) *InferenceService {
	cloudURL := os.Getenv("CLOUD_ENDPOINT_URL")
	if cloudURL == "" {
		cloudURL = DefaultCloudBaseURL
	}
	localURL := os.Getenv("LOCAL_INFERENCE_URL")
	if localURL == "" {
		localURL = DefaultLocalBaseURL
	}

	return &InferenceService{
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // LLMs can be slow
		},
		logger:       logger,
		cloudBaseURL: cloudURL,
		localBaseURL: localURL,
	}
}

// SelectMode validates the configuration and makes it the active backend.
// Subsequent Complete calls route to the corresponding endpoint.
func (s *InferenceService) SelectMode(ctx context.Context, config models.InferenceConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	switch config.Mode {
	case models.ModeCloud:
		if os.Getenv(cloudAPIKeyEnv) == "" {
			return models.MissingFieldError(cloudAPIKeyEnv)
		}
	case models.ModeLocalSystem:
		if !ungatedLocalModels[config.ModelName] && os.Getenv(hfTokenEnv) == "" {
			return &models.ConfigError{
				Field:   hfTokenEnv,
				Message: "accessing a gated model and " + hfTokenEnv + " is not set",
			}
		}
	}

	config.ApplyDefaults()

	s.mu.Lock()
	s.config = &config
	s.mu.Unlock()

	s.logger.Printf("Inference mode selected: %s (model: %s, endpoint: %s)",
		config.Mode, config.ModelName, s.baseURLFor(&config))

	return nil
}

// CurrentConfig returns a copy of the active configuration
func (s *InferenceService) CurrentConfig() (*models.InferenceConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.config == nil {
		return nil, models.MissingFieldError("mode")
	}
	config := *s.config
	return &config, nil
}

// Complete sends the message sequence to the selected backend and returns
// the assistant's reply
func (s *InferenceService) Complete(ctx context.Context, messages []models.ChatMessage, params models.GenerationParams) (string, error) {
	config, err := s.CurrentConfig()
	if err != nil {
		return "", err
	}

	reqBody := completionRequest{
		Model:            config.ModelName,
		Messages:         messages,
		Temperature:      params.Temperature,
		TopP:             params.TopP,
		FrequencyPenalty: params.FrequencyPenalty,
		PresencePenalty:  params.PresencePenalty,
		MaxTokens:        params.MaxTokens,
		Stream:           false,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := s.baseURLFor(config) + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if config.Mode == models.ModeCloud {
		req.Header.Set("Authorization", "Bearer "+os.Getenv(cloudAPIKeyEnv))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", models.BackendUnreachableError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("inference backend returned status %d: %s", resp.StatusCode, string(body))
	}

	var completion completionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no completion returned by %s", config.Mode)
	}

	return completion.Choices[0].Message.Content, nil
}

// baseURLFor maps the selected mode to the completions endpoint base URL
func (s *InferenceService) baseURLFor(config *models.InferenceConfig) string {
	switch config.Mode {
	case models.ModeCloud:
		return s.cloudBaseURL
	case models.ModeLocalSystem:
		return s.localBaseURL
	case models.ModeMicroserviceRemote:
		return fmt.Sprintf("http://%s:%d/v1", strings.TrimSuffix(config.EndpointAddress, "/"), config.Port)
	case models.ModeMicroserviceLocal:
		return fmt.Sprintf("http://%s:%d/v1", LocalMicroserviceHost, config.Port)
	}
	return s.cloudBaseURL
}
