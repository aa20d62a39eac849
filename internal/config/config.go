// Package config loads runtime settings from GLANCE_* environment variables.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Storage backends for frames.
const (
	StorageS3     = "s3"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Detector backends.
const (
	DetectorYOLO       = "yolo"
	DetectorSubprocess = "subprocess"
)

type Config struct {
	TargetFPS     float64 `env:"GLANCE_TARGET_FPS"     envDefault:"10"`
	UploadWorkers int     `env:"GLANCE_UPLOAD_WORKERS" envDefault:"3"`
	UploadQueue   int     `env:"GLANCE_UPLOAD_QUEUE"   envDefault:"64"`
	MaxFrames     int     `env:"GLANCE_MAX_FRAMES"     envDefault:"3"`

	DetectorBackend string   `env:"GLANCE_DETECTOR"          envDefault:"yolo"`
	YOLOWeights     string   `env:"GLANCE_YOLO_WEIGHTS"      envDefault:"yolov3.weights"`
	YOLOConfig      string   `env:"GLANCE_YOLO_CONFIG"       envDefault:"yolov3.cfg"`
	DetectorCommand []string `env:"GLANCE_DETECTOR_COMMAND"  envSeparator:" "`
	ConfThreshold   float64  `env:"GLANCE_CONF_THRESHOLD"    envDefault:"0.5"`
	NMSThreshold    float64  `env:"GLANCE_NMS_THRESHOLD"     envDefault:"0.4"`

	StorageBackend string `env:"GLANCE_STORAGE" envDefault:"sqlite"`
	DataDir        string `env:"GLANCE_DATA_DIR" envDefault:"./data"`

	MinIOEndpoint  string `env:"GLANCE_MINIO_ENDPOINT"   envDefault:"localhost:9000"`
	MinIOAccessKey string `env:"GLANCE_MINIO_ACCESS_KEY" envDefault:"minioadmin"`
	MinIOSecretKey string `env:"GLANCE_MINIO_SECRET_KEY" envDefault:"minioadmin"`
	MinIOUseSSL    bool   `env:"GLANCE_MINIO_USE_SSL"    envDefault:"false"`
	MinIOBucket    string `env:"GLANCE_MINIO_BUCKET"     envDefault:"glance-frames"`

	OpenAIKey             string  `env:"OPENAI_API_KEY"`
	OpenAIBaseURL         string  `env:"GLANCE_OPENAI_BASE_URL"`
	OpenAIModel           string  `env:"GLANCE_OPENAI_MODEL"             envDefault:"gpt-4o-mini"`
	OpenAIVisionModel     string  `env:"GLANCE_OPENAI_VISION_MODEL"      envDefault:"gpt-4o"`
	OpenAITemperature     float32 `env:"GLANCE_OPENAI_TEMPERATURE"       envDefault:"0.7"`
	OpenAIMaxTokens       int     `env:"GLANCE_OPENAI_MAX_TOKENS"        envDefault:"150"`
	OpenAIVisionMaxTokens int     `env:"GLANCE_OPENAI_VISION_MAX_TOKENS" envDefault:"300"`

	HTTPAddr     string `env:"GLANCE_HTTP_ADDR"     envDefault:":8080"`
	OTLPEndpoint string `env:"GLANCE_OTLP_ENDPOINT"`
	LogLevel     string `env:"GLANCE_LOG_LEVEL"     envDefault:"info"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.TargetFPS <= 0 {
		return fmt.Errorf("GLANCE_TARGET_FPS must be positive, got %v", c.TargetFPS)
	}
	if c.UploadWorkers < 1 {
		return fmt.Errorf("GLANCE_UPLOAD_WORKERS must be at least 1, got %d", c.UploadWorkers)
	}
	if c.UploadQueue < 1 {
		return fmt.Errorf("GLANCE_UPLOAD_QUEUE must be at least 1, got %d", c.UploadQueue)
	}
	if c.MaxFrames < 1 {
		return fmt.Errorf("GLANCE_MAX_FRAMES must be at least 1, got %d", c.MaxFrames)
	}
	if c.ConfThreshold < 0 || c.ConfThreshold > 1 {
		return fmt.Errorf("GLANCE_CONF_THRESHOLD must be within [0, 1], got %v", c.ConfThreshold)
	}
	if c.NMSThreshold < 0 || c.NMSThreshold > 1 {
		return fmt.Errorf("GLANCE_NMS_THRESHOLD must be within [0, 1], got %v", c.NMSThreshold)
	}

	switch strings.ToLower(c.StorageBackend) {
	case StorageS3, StorageSQLite, StorageMemory:
		c.StorageBackend = strings.ToLower(c.StorageBackend)
	default:
		return fmt.Errorf("unknown GLANCE_STORAGE %q", c.StorageBackend)
	}

	switch strings.ToLower(c.DetectorBackend) {
	case DetectorYOLO:
		c.DetectorBackend = DetectorYOLO
	case DetectorSubprocess:
		c.DetectorBackend = DetectorSubprocess
		if len(c.DetectorCommand) == 0 {
			return fmt.Errorf("GLANCE_DETECTOR_COMMAND is required for the subprocess detector")
		}
	default:
		return fmt.Errorf("unknown GLANCE_DETECTOR %q", c.DetectorBackend)
	}

	return nil
}

// DatabasePath is the SQLite file holding runs and local frames.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "glance.db")
}
