package services

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"hybrid-rag/internal/models"
)

func setupTestInferenceService(t *testing.T) *InferenceService {
	logger := log.New(os.Stdout, "[TEST] ", log.LstdFlags)
	return NewInferenceService(logger)
}

func completionHandler(t *testing.T, reply string, capture *completionRequest) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		if capture != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}

		resp := map[string]interface{}{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]interface{}{
				{
					"index": 0,
					"message": map[string]string{
						"role":    "assistant",
						"content": reply,
					},
					"finish_reason": "stop",
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// ============================================================================
// Mode Selection
// ============================================================================

func TestSelectMode_Cloud(t *testing.T) {
	t.Setenv("NVCF_RUN_KEY", "nvapi-test")
	service := setupTestInferenceService(t)

	err := service.SelectMode(context.Background(), models.InferenceConfig{
		Mode:      models.ModeCloud,
		ModelName: "meta/llama3-70b-instruct",
	})

	assert.NoError(t, err)
	config, err := service.CurrentConfig()
	assert.NoError(t, err)
	assert.Equal(t, models.ModeCloud, config.Mode)
	assert.Equal(t, models.QuantizationNone, config.Quantization)
}

func TestSelectMode_CloudWithoutAPIKey(t *testing.T) {
	t.Setenv("NVCF_RUN_KEY", "")
	service := setupTestInferenceService(t)

	err := service.SelectMode(context.Background(), models.InferenceConfig{
		Mode:      models.ModeCloud,
		ModelName: "meta/llama3-70b-instruct",
	})

	assert.Error(t, err)
	var cfgErr *models.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "NVCF_RUN_KEY", cfgErr.Field)
}

func TestSelectMode_LocalUngatedModelNeedsNoToken(t *testing.T) {
	t.Setenv("HUGGING_FACE_HUB_TOKEN", "")
	service := setupTestInferenceService(t)

	err := service.SelectMode(context.Background(), models.InferenceConfig{
		Mode:      models.ModeLocalSystem,
		ModelName: "nvidia/Llama3-ChatQA-1.5-8B",
	})

	assert.NoError(t, err)
}

func TestSelectMode_LocalGatedModelRequiresToken(t *testing.T) {
	t.Setenv("HUGGING_FACE_HUB_TOKEN", "")
	service := setupTestInferenceService(t)

	err := service.SelectMode(context.Background(), models.InferenceConfig{
		Mode:      models.ModeLocalSystem,
		ModelName: "mistralai/Mistral-7B-Instruct-v0.2",
	})

	assert.Error(t, err)
	var cfgErr *models.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "HUGGING_FACE_HUB_TOKEN", cfgErr.Field)
}

func TestSelectMode_MicroserviceRemoteDefaults(t *testing.T) {
	service := setupTestInferenceService(t)

	err := service.SelectMode(context.Background(), models.InferenceConfig{
		Mode:            models.ModeMicroserviceRemote,
		EndpointAddress: "10.0.0.5",
	})

	assert.NoError(t, err)
	config, _ := service.CurrentConfig()
	assert.Equal(t, models.DefaultMicroservicePort, config.Port)
	assert.Equal(t, models.DefaultMicroserviceModel, config.ModelName)
}

func TestSelectMode_MicroserviceLocalDerivesModelFromImage(t *testing.T) {
	service := setupTestInferenceService(t)

	err := service.SelectMode(context.Background(), models.InferenceConfig{
		Mode:           models.ModeMicroserviceLocal,
		ContainerImage: "nvcr.io/nim/meta/llama3-8b-instruct:latest",
	})

	assert.NoError(t, err)
	config, _ := service.CurrentConfig()
	assert.Equal(t, "meta/llama3-8b-instruct", config.ModelName)
	assert.Equal(t, models.DefaultMicroservicePort, config.Port)
}

func TestSelectMode_InvalidConfigurations(t *testing.T) {
	service := setupTestInferenceService(t)

	tests := []struct {
		name   string
		config models.InferenceConfig
	}{
		{"missing mode", models.InferenceConfig{}},
		{"unknown mode", models.InferenceConfig{Mode: "turbo"}},
		{"cloud without model", models.InferenceConfig{Mode: models.ModeCloud}},
		{"cloud with quantization", models.InferenceConfig{
			Mode: models.ModeCloud, ModelName: "m", Quantization: models.QuantizationInt4,
		}},
		{"remote without endpoint", models.InferenceConfig{Mode: models.ModeMicroserviceRemote}},
		{"local microservice without image", models.InferenceConfig{Mode: models.ModeMicroserviceLocal}},
		{"local microservice with bad image", models.InferenceConfig{
			Mode: models.ModeMicroserviceLocal, ContainerImage: "docker.io/library/nginx",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.SelectMode(context.Background(), tt.config)
			assert.Error(t, err)
		})
	}
}

func TestCurrentConfig_NoModeSelected(t *testing.T) {
	service := setupTestInferenceService(t)

	_, err := service.CurrentConfig()

	assert.Error(t, err)
}

// ============================================================================
// Completions
// ============================================================================

func TestComplete_Cloud(t *testing.T) {
	var captured completionRequest
	backend := httptest.NewServer(completionHandler(t, "The answer is 42.", &captured))
	defer backend.Close()

	t.Setenv("NVCF_RUN_KEY", "nvapi-test")
	t.Setenv("CLOUD_ENDPOINT_URL", backend.URL+"/v1")
	service := setupTestInferenceService(t)

	assert.NoError(t, service.SelectMode(context.Background(), models.InferenceConfig{
		Mode:      models.ModeCloud,
		ModelName: "meta/llama3-70b-instruct",
	}))

	messages := []models.ChatMessage{
		{Role: "system", Content: "You are helpful."},
		{Role: "user", Content: "What is the answer?"},
	}
	answer, err := service.Complete(context.Background(), messages, models.DefaultGenerationParams())

	assert.NoError(t, err)
	assert.Equal(t, "The answer is 42.", answer)
	assert.Equal(t, "meta/llama3-70b-instruct", captured.Model)
	assert.Len(t, captured.Messages, 2)
	assert.False(t, captured.Stream)
	assert.Equal(t, 250, captured.MaxTokens)
}

func TestComplete_CloudSendsAuthorizationHeader(t *testing.T) {
	var gotAuth string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		completionHandler(t, "ok", nil)(w, r)
	}))
	defer backend.Close()

	t.Setenv("NVCF_RUN_KEY", "nvapi-secret")
	t.Setenv("CLOUD_ENDPOINT_URL", backend.URL+"/v1")
	service := setupTestInferenceService(t)

	assert.NoError(t, service.SelectMode(context.Background(), models.InferenceConfig{
		Mode:      models.ModeCloud,
		ModelName: "meta/llama3-70b-instruct",
	}))

	_, err := service.Complete(context.Background(),
		[]models.ChatMessage{{Role: "user", Content: "hi"}}, models.DefaultGenerationParams())

	assert.NoError(t, err)
	assert.Equal(t, "Bearer nvapi-secret", gotAuth)
}

func TestComplete_LocalSystem(t *testing.T) {
	backend := httptest.NewServer(completionHandler(t, "local reply", nil))
	defer backend.Close()

	t.Setenv("LOCAL_INFERENCE_URL", backend.URL+"/v1")
	service := setupTestInferenceService(t)

	assert.NoError(t, service.SelectMode(context.Background(), models.InferenceConfig{
		Mode:      models.ModeLocalSystem,
		ModelName: "nvidia/Llama3-ChatQA-1.5-8B",
	}))

	answer, err := service.Complete(context.Background(),
		[]models.ChatMessage{{Role: "user", Content: "hi"}}, models.DefaultGenerationParams())

	assert.NoError(t, err)
	assert.Equal(t, "local reply", answer)
}

func TestComplete_NoModeSelected(t *testing.T) {
	service := setupTestInferenceService(t)

	_, err := service.Complete(context.Background(),
		[]models.ChatMessage{{Role: "user", Content: "hi"}}, models.DefaultGenerationParams())

	assert.Error(t, err)
}

func TestComplete_BackendUnreachable(t *testing.T) {
	t.Setenv("LOCAL_INFERENCE_URL", "http://127.0.0.1:1/v1")
	service := setupTestInferenceService(t)

	assert.NoError(t, service.SelectMode(context.Background(), models.InferenceConfig{
		Mode:      models.ModeLocalSystem,
		ModelName: "nvidia/Llama3-ChatQA-1.5-8B",
	}))

	_, err := service.Complete(context.Background(),
		[]models.ChatMessage{{Role: "user", Content: "hi"}}, models.DefaultGenerationParams())

	assert.Error(t, err)
	var qErr *models.QueryError
	assert.ErrorAs(t, err, &qErr)
	assert.Equal(t, models.QueryErrorBackendUnreachable, qErr.Kind)
}

func TestComplete_BackendErrorStatus(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer backend.Close()

	t.Setenv("LOCAL_INFERENCE_URL", backend.URL+"/v1")
	service := setupTestInferenceService(t)

	assert.NoError(t, service.SelectMode(context.Background(), models.InferenceConfig{
		Mode:      models.ModeLocalSystem,
		ModelName: "nvidia/Llama3-ChatQA-1.5-8B",
	}))

	_, err := service.Complete(context.Background(),
		[]models.ChatMessage{{Role: "user", Content: "hi"}}, models.DefaultGenerationParams())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestComplete_NoChoices(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cmpl-1","choices":[]}`))
	}))
	defer backend.Close()

	t.Setenv("LOCAL_INFERENCE_URL", backend.URL+"/v1")
	service := setupTestInferenceService(t)

	assert.NoError(t, service.SelectMode(context.Background(), models.InferenceConfig{
		Mode:      models.ModeLocalSystem,
		ModelName: "nvidia/Llama3-ChatQA-1.5-8B",
	}))

	_, err := service.Complete(context.Background(),
		[]models.ChatMessage{{Role: "user", Content: "hi"}}, models.DefaultGenerationParams())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no completion")
}

// ============================================================================
// Endpoint Routing
// ============================================================================

func TestBaseURLFor(t *testing.T) {
	service := setupTestInferenceService(t)

	tests := []struct {
		name     string
		config   models.InferenceConfig
		expected string
	}{
		{
			"remote microservice",
			models.InferenceConfig{Mode: models.ModeMicroserviceRemote, EndpointAddress: "10.0.0.5", Port: 8000},
			"http://10.0.0.5:8000/v1",
		},
		{
			"local microservice sidecar",
			models.InferenceConfig{Mode: models.ModeMicroserviceLocal, Port: 8000},
			"http://local_nim:8000/v1",
		},
		{
			"cloud",
			models.InferenceConfig{Mode: models.ModeCloud},
			DefaultCloudBaseURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, service.baseURLFor(&tt.config))
		})
	}
}
