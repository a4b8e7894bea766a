package models

import (
	"path"
	"strings"
)

// InferenceMode represents which backend serves chat completions
type InferenceMode string

const (
	// ModeCloud routes queries to a hosted cloud catalog endpoint
	ModeCloud InferenceMode = "cloud"
	// ModeLocalSystem routes queries to a TGI-style inference server on this machine
	ModeLocalSystem InferenceMode = "local_system"
	// ModeMicroserviceRemote routes queries to an OpenAI-compatible microservice on another host
	ModeMicroserviceRemote InferenceMode = "microservice_remote"
	// ModeMicroserviceLocal routes queries to a microservice container running as a sidecar
	ModeMicroserviceLocal InferenceMode = "microservice_local"
)

// Quantization represents the weight precision for local inference
type Quantization string

const (
	QuantizationNone Quantization = "none"
	QuantizationInt8 Quantization = "int8"
	QuantizationInt4 Quantization = "int4"
)

// Defaults matching the documented microservice behavior
const (
	DefaultMicroservicePort  = 8000
	DefaultMicroserviceModel = "meta/llama3-8b-instruct"
	DefaultLocalModel        = "nvidia/Llama3-ChatQA-1.5-8B"
)

// InferenceConfig holds the user-selected inference backend settings.
// Mutated only by an explicit mode selection.
type InferenceConfig struct {
	Mode            InferenceMode `json:"mode"`
	ModelName       string        `json:"model_name"`
	EndpointAddress string        `json:"endpoint_address,omitempty"`
	Port            int           `json:"port,omitempty"`
	Quantization    Quantization  `json:"quantization,omitempty"`
	// ContainerImage is the microservice container ref for local sidecar mode
	ContainerImage string `json:"container_image,omitempty"`
}

// IsValid checks if the inference mode is a known mode
func (m InferenceMode) IsValid() bool {
	switch m {
	case ModeCloud, ModeLocalSystem, ModeMicroserviceRemote, ModeMicroserviceLocal:
		return true
	default:
		return false
	}
}

// String returns the string representation of the mode
func (m InferenceMode) String() string {
	return string(m)
}

// IsValid checks if the quantization level is known
func (q Quantization) IsValid() bool {
	switch q {
	case QuantizationNone, QuantizationInt8, QuantizationInt4, "":
		return true
	default:
		return false
	}
}

// Validate checks required fields and rejects invalid combinations for the
// chosen mode. It does not reach out to any backend.
func (c *InferenceConfig) Validate() error {
	if c.Mode == "" {
		return MissingFieldError("mode")
	}
	if !c.Mode.IsValid() {
		return &ConfigError{Field: "mode", Message: "unknown inference mode: " + string(c.Mode)}
	}
	if !c.Quantization.IsValid() {
		return &ConfigError{Field: "quantization", Message: "unknown quantization: " + string(c.Quantization)}
	}

	switch c.Mode {
	case ModeCloud:
		if c.ModelName == "" {
			return MissingFieldError("model_name")
		}
		if c.Quantization != "" && c.Quantization != QuantizationNone {
			return InvalidCombinationError("quantization", "quantization cannot be applied to a cloud endpoint")
		}
	case ModeLocalSystem:
		if c.ModelName == "" {
			return MissingFieldError("model_name")
		}
	case ModeMicroserviceRemote:
		if c.EndpointAddress == "" {
			return MissingFieldError("endpoint_address")
		}
		if c.Quantization != "" && c.Quantization != QuantizationNone {
			return InvalidCombinationError("quantization", "quantization cannot be applied to a microservice endpoint")
		}
	case ModeMicroserviceLocal:
		if c.ContainerImage == "" {
			return MissingFieldError("container_image")
		}
		if !ValidContainerImage(c.ContainerImage) {
			return &ConfigError{Field: "container_image", Message: "not a valid microservice container image format: " + c.ContainerImage}
		}
		if c.Quantization != "" && c.Quantization != QuantizationNone {
			return InvalidCombinationError("quantization", "quantization cannot be applied to a microservice endpoint")
		}
	}

	return nil
}

// ApplyDefaults fills optional fields left empty by the user
func (c *InferenceConfig) ApplyDefaults() {
	switch c.Mode {
	case ModeMicroserviceRemote:
		if c.Port == 0 {
			c.Port = DefaultMicroservicePort
		}
		if c.ModelName == "" {
			c.ModelName = DefaultMicroserviceModel
		}
	case ModeMicroserviceLocal:
		c.Port = DefaultMicroservicePort
		if c.ModelName == "" {
			c.ModelName = ExtractModelFromImage(c.ContainerImage)
		}
	}
	if c.Quantization == "" {
		c.Quantization = QuantizationNone
	}
}

// ValidContainerImage reports whether ref looks like nvcr.io/nim/<org>/<model>
func ValidContainerImage(ref string) bool {
	ref = strings.SplitN(ref, ":", 2)[0]
	matched, err := path.Match("nvcr.io/nim/?*/?*", ref)
	return err == nil && matched
}

// ExtractModelFromImage derives the served model name from a container ref,
// e.g. nvcr.io/nim/meta/llama3-8b-instruct:latest -> meta/llama3-8b-instruct
func ExtractModelFromImage(ref string) string {
	ref = strings.SplitN(ref, ":", 2)[0]
	parts := strings.Split(ref, "/")
	if len(parts) < 2 {
		return ref
	}
	return strings.Join(parts[len(parts)-2:], "/")
}
