package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const minimalConfig = `
twitch:
  username: modwatchbot
  oauth: oauth:abc123
  channels:
    - somechannel
classifier:
  api_key: sk-test
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "https://api.deepseek.com", cfg.Classifier.BaseURL)
	assert.Equal(t, "deepseek-chat", cfg.Classifier.Model)
	assert.Equal(t, 30, cfg.Classifier.TimeoutSeconds)
	assert.Equal(t, 5, cfg.Classifier.HistorySize)
	assert.Equal(t, 1, cfg.Classifier.TriggerMessages)
	assert.Equal(t, 50, cfg.Classifier.AlertThreshold)
	assert.Equal(t, 100, cfg.Recorder.BufferSize)
	assert.Equal(t, 60, cfg.Recorder.RotateMinutes)
	assert.Equal(t, "./data", cfg.Recorder.OutputDir)
	assert.Equal(t, 3, cfg.Uploader.MaxRetries)
}

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
twitch:
  username: modwatchbot
  oauth: oauth:abc123
  channels:
    - somechannel
    - otherchannel
kick:
  enabled: true
  channels:
    - slug: somekicker
      chatroom_id: 12345
classifier:
  base_url: https://api.example.com/v1
  api_key: sk-test
  model: some-model
  history_size: 10
  trigger_messages: 3
  alert_threshold: 70
recorder:
  output_dir: /tmp/reports
s3:
  bucket: my-reports
  region: us-east-1
  role_arn: arn:aws:iam::123456789012:role/modwatch
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"somechannel", "otherchannel"}, cfg.Twitch.Channels)
	assert.True(t, cfg.Kick.Enabled)
	require.Len(t, cfg.Kick.Channels, 1)
	assert.Equal(t, "somekicker", cfg.Kick.Channels[0].Slug)
	assert.Equal(t, 12345, cfg.Kick.Channels[0].ChatroomID)
	assert.Equal(t, 3, cfg.Classifier.TriggerMessages)
	assert.Equal(t, 70, cfg.Classifier.AlertThreshold)
	assert.Equal(t, "my-reports", cfg.S3.Bucket)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TWITCH_OAUTH", "oauth:fromenv")
	t.Setenv("CLASSIFIER_API_KEY", "sk-fromenv")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "oauth:fromenv", cfg.Twitch.OAuth)
	assert.Equal(t, "sk-fromenv", cfg.Classifier.APIKey)
}

func TestLoadOpenAIKeyFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-openai")

	cfg, err := Load(writeConfig(t, `
twitch:
  username: modwatchbot
  oauth: oauth:abc123
  channels:
    - somechannel
`))
	require.NoError(t, err)
	assert.Equal(t, "sk-openai", cfg.Classifier.APIKey)
}

func TestLoadRejectsMissingTwitchFields(t *testing.T) {
	_, err := Load(writeConfig(t, `
classifier:
  api_key: sk-test
`))
	assert.Error(t, err)
}

func TestLoadRejectsMissingAPIKey(t *testing.T) {
	_, err := Load(writeConfig(t, `
twitch:
  username: modwatchbot
  oauth: oauth:abc123
  channels:
    - somechannel
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}

func TestLoadRejectsTriggerAboveHistory(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
  history_size: 2
  trigger_messages: 3
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trigger_messages")
}

func TestLoadRejectsIncompleteS3(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
s3:
  bucket: my-reports
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3.region")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
