package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port           string
	ModelPath      string
	MetadataPath   string
	OnnxRuntimeLib string
	FrameWorkers   int
	MaxBodyBytes   int64
}

// Load reads the configuration from the environment, falling back to
// defaults for unset variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		ModelPath:      getEnv("MODEL_PATH", "models/emotion_model.onnx"),
		MetadataPath:   getEnv("MODEL_METADATA_PATH", "models/model_metadata.json"),
		OnnxRuntimeLib: getEnv("ONNXRUNTIME_LIB", ""),
	}

	workers, err := strconv.Atoi(getEnv("FRAME_WORKERS", "1"))
	if err != nil || workers < 1 {
		return nil, fmt.Errorf("FRAME_WORKERS must be a positive integer, got %q", os.Getenv("FRAME_WORKERS"))
	}
	cfg.FrameWorkers = workers

	maxBody, err := strconv.ParseInt(getEnv("MAX_BODY_BYTES", "67108864"), 10, 64)
	if err != nil || maxBody < 1 {
		return nil, fmt.Errorf("MAX_BODY_BYTES must be a positive integer, got %q", os.Getenv("MAX_BODY_BYTES"))
	}
	cfg.MaxBodyBytes = maxBody

	return cfg, nil
}

func getEnv(k, d string) string {
	if val, ok := os.LookupEnv(k); ok {
		return val
	}
	return d
}
