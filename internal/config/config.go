package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Twitch     TwitchConfig     `yaml:"twitch"`
	Kick       KickConfig       `yaml:"kick"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Recorder   RecorderConfig   `yaml:"recorder"`
	S3         S3Config         `yaml:"s3"`
	Uploader   UploaderConfig   `yaml:"uploader"`
}

// TwitchConfig holds Twitch-specific configuration
type TwitchConfig struct {
	Username string   `yaml:"username"`
	OAuth    string   `yaml:"oauth"`
	Channels []string `yaml:"channels"`
}

// KickConfig holds the optional Kick ingress configuration
type KickConfig struct {
	Enabled  bool                `yaml:"enabled"`
	Channels []KickChannelConfig `yaml:"channels"`
}

// KickChannelConfig names a Kick channel, optionally with a pre-resolved
// chatroom ID (see tools/resolve-kick-channels)
type KickChannelConfig struct {
	Slug       string `yaml:"slug"`
	ChatroomID int    `yaml:"chatroom_id"`
}

// ClassifierConfig holds the hosted-model classification settings
type ClassifierConfig struct {
	BaseURL         string `yaml:"base_url"`         // OpenAI-compatible endpoint
	APIKey          string `yaml:"api_key"`
	Model           string `yaml:"model"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	HistorySize     int    `yaml:"history_size"`     // per-user buffer capacity
	TriggerMessages int    `yaml:"trigger_messages"` // buffer length that starts a cycle
	AlertThreshold  int    `yaml:"alert_threshold"`  // flag when mod_alert_level exceeds this
}

// RecorderConfig holds report recorder configuration
type RecorderConfig struct {
	OutputDir       string `yaml:"output_dir"`
	RotateMinutes   int    `yaml:"rotate_minutes"`
	RotateMegabytes int    `yaml:"rotate_megabytes"`
	BufferSize      int    `yaml:"buffer_size"`
}

// S3Config holds the optional report archive destination
type S3Config struct {
	Bucket          string `yaml:"bucket"`            // empty disables archiving
	Region          string `yaml:"region"`
	RoleARN         string `yaml:"role_arn"`          // IAM role ARN for OIDC authentication
	AccessKeyID     string `yaml:"access_key_id"`     // Legacy: static credentials
	SecretAccessKey string `yaml:"secret_access_key"` // Legacy: static credentials
}

// UploaderConfig holds uploader configuration
type UploaderConfig struct {
	DeleteAfterUpload bool `yaml:"delete_after_upload"`
	MaxRetries        int  `yaml:"max_retries"`
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	// Apply environment variable overrides
	if oauth := os.Getenv("TWITCH_OAUTH"); oauth != "" {
		cfg.Twitch.OAuth = oauth
	}
	if key := os.Getenv("CLASSIFIER_API_KEY"); key != "" {
		cfg.Classifier.APIKey = key
	} else if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Classifier.APIKey = key
	}
	if roleARN := os.Getenv("AWS_ROLE_ARN"); roleARN != "" {
		cfg.S3.RoleARN = roleARN
	}
	if keyID := os.Getenv("S3_ACCESS_KEY_ID"); keyID != "" {
		cfg.S3.AccessKeyID = keyID
	}
	if secretKey := os.Getenv("S3_SECRET_ACCESS_KEY"); secretKey != "" {
		cfg.S3.SecretAccessKey = secretKey
	}

	// Set defaults
	if cfg.Classifier.BaseURL == "" {
		cfg.Classifier.BaseURL = "https://api.deepseek.com"
	}
	if cfg.Classifier.Model == "" {
		cfg.Classifier.Model = "deepseek-chat"
	}
	if cfg.Classifier.TimeoutSeconds == 0 {
		cfg.Classifier.TimeoutSeconds = 30
	}
	if cfg.Classifier.HistorySize == 0 {
		cfg.Classifier.HistorySize = 5
	}
	if cfg.Classifier.TriggerMessages == 0 {
		cfg.Classifier.TriggerMessages = 1
	}
	if cfg.Classifier.AlertThreshold == 0 {
		cfg.Classifier.AlertThreshold = 50
	}
	if cfg.Recorder.BufferSize == 0 {
		cfg.Recorder.BufferSize = 100
	}
	if cfg.Recorder.RotateMinutes == 0 {
		cfg.Recorder.RotateMinutes = 60
	}
	if cfg.Recorder.RotateMegabytes == 0 {
		cfg.Recorder.RotateMegabytes = 100
	}
	if cfg.Recorder.OutputDir == "" {
		cfg.Recorder.OutputDir = "./data"
	}
	if cfg.Uploader.MaxRetries == 0 {
		cfg.Uploader.MaxRetries = 3
	}

	// Validate required fields
	if cfg.Twitch.Username == "" {
		return nil, fmt.Errorf("twitch.username is required")
	}
	if cfg.Twitch.OAuth == "" {
		return nil, fmt.Errorf("twitch.oauth is required (or set TWITCH_OAUTH env var)")
	}
	if len(cfg.Twitch.Channels) == 0 {
		return nil, fmt.Errorf("at least one twitch channel is required")
	}
	if cfg.Classifier.APIKey == "" {
		return nil, fmt.Errorf("classifier.api_key is required (or set CLASSIFIER_API_KEY env var)")
	}
	if cfg.Classifier.TriggerMessages > cfg.Classifier.HistorySize {
		return nil, fmt.Errorf("classifier.trigger_messages (%d) cannot exceed history_size (%d)",
			cfg.Classifier.TriggerMessages, cfg.Classifier.HistorySize)
	}
	if cfg.S3.Bucket != "" {
		if cfg.S3.Region == "" {
			return nil, fmt.Errorf("s3.region is required when s3.bucket is set")
		}
		if cfg.S3.RoleARN == "" && cfg.S3.AccessKeyID == "" {
			return nil, fmt.Errorf("either s3.role_arn (OIDC) or s3.access_key_id (legacy) is required")
		}
		if cfg.S3.AccessKeyID != "" && cfg.S3.SecretAccessKey == "" {
			return nil, fmt.Errorf("s3.secret_access_key is required when using access_key_id")
		}
	}

	return &cfg, nil
}
