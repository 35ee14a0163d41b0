// Package config loads application configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"storyteller/internal/gen"
)

// ErrCredentialMissing is fatal at startup. Only the text-generation
// credential is mandatory; missing image or speech credentials merely
// degrade those features.
var ErrCredentialMissing = errors.New("required credential missing")

// Config holds the full application configuration.
type Config struct {
	// Credentials. OpenAIKey is mandatory; the others are optional.
	OpenAIKey     string
	StabilityKey  string
	ElevenLabsKey string

	Model          string
	VoiceID        string
	ImageBaseURL   string
	SpeechBaseURL  string
	MediaDir       string
	RequestTimeout time.Duration

	TurnLogPath string

	Log LogConfig
}

// LogConfig mirrors logging.Config without importing it.
type LogConfig struct {
	Level      string
	Encoding   string
	OutputPath string
}

// Load reads configuration from the environment. It fails only when the
// mandatory text-generation credential is absent, naming the missing key.
func Load() (Config, error) {
	cfg := Config{
		OpenAIKey:      getEnvStr("OPENAI_API_KEY", ""),
		StabilityKey:   getEnvStr("STABILITY_API_KEY", ""),
		ElevenLabsKey:  getEnvStr("ELEVENLABS_API_KEY", ""),
		Model:          getEnvStr("STORYTELLER_MODEL", "gpt-5-2025-08-07"),
		VoiceID:        getEnvStr("STORYTELLER_VOICE_ID", gen.DefaultVoiceID),
		ImageBaseURL:   getEnvStr("STORYTELLER_IMAGE_URL", gen.DefaultImageBaseURL),
		SpeechBaseURL:  getEnvStr("STORYTELLER_SPEECH_URL", gen.DefaultSpeechBaseURL),
		MediaDir:       getEnvStr("STORYTELLER_MEDIA_DIR", "media"),
		RequestTimeout: time.Duration(getEnvInt("STORYTELLER_TIMEOUT_SECONDS", 30)) * time.Second,
		TurnLogPath:    getEnvStr("STORYTELLER_TURN_LOG", "./turns.db"),
		Log: LogConfig{
			Level:    getEnvStr("LOG_LEVEL", "info"),
			Encoding: getEnvStr("LOG_ENCODING", "json"),
			// The TUI owns stdout, so logs default to a file.
			OutputPath: getEnvStr("LOG_PATH", "storyteller.log"),
		},
	}

	if cfg.OpenAIKey == "" {
		return cfg, fmt.Errorf("%w: OPENAI_API_KEY", ErrCredentialMissing)
	}
	return cfg, nil
}

func getEnvStr(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
