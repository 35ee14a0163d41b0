package gen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultSpeechBaseURL is the ElevenLabs text-to-speech API root.
const DefaultSpeechBaseURL = "https://api.elevenlabs.io"

// DefaultVoiceID is the "Rachel" narrator voice.
const DefaultVoiceID = "21m00Tcm4TlvDq8ikWAM"

// SpeechConfig configures the narration adapter. An empty APIKey turns
// narration into a silent no-op.
type SpeechConfig struct {
	APIKey   string
	BaseURL  string
	VoiceID  string
	MediaDir string
	Timeout  time.Duration
}

// SpeechService synthesizes narration audio through an ElevenLabs-style HTTP
// API and stores the raw audio bytes on disk.
type SpeechService struct {
	cfg    SpeechConfig
	client *http.Client
	logger *zap.Logger
}

func NewSpeechService(cfg SpeechConfig, logger *zap.Logger) (*SpeechService, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultSpeechBaseURL
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = DefaultVoiceID
	}
	if cfg.MediaDir == "" {
		cfg.MediaDir = "media"
	}
	if err := os.MkdirAll(cfg.MediaDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}
	return &SpeechService{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

type speechAPIRequest struct {
	Text string `json:"text"`
}

// SynthesizeSpeech narrates text with the configured voice. Returns
// (nil, nil) when no speech credential is configured.
func (s *SpeechService) SynthesizeSpeech(ctx context.Context, text string) (*AudioHandle, error) {
	if s.cfg.APIKey == "" {
		s.logger.Debug("narration skipped, no credential configured")
		return nil, nil
	}

	reqBody, err := json.Marshal(speechAPIRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal speech request: %w", err)
	}

	endpointURL := s.cfg.BaseURL + "/v1/text-to-speech/" + s.cfg.VoiceID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create speech request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		svcErr := classifyTransport("speech", err)
		s.logger.Warn("speech request failed", zap.String("kind", string(svcErr.Kind)), zap.Error(err))
		return nil, svcErr
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("speech API returned non-OK status",
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("response_body", body),
		)
		return nil, &ServiceError{
			Service: "speech",
			Kind:    KindHTTP,
			Message: fmt.Sprintf("speech API returned status %d", resp.StatusCode),
			Status:  resp.StatusCode,
			Body:    string(body),
		}
	}
	if readErr != nil {
		return nil, classifyTransport("speech", readErr)
	}
	if len(body) == 0 {
		return nil, &ServiceError{Service: "speech", Kind: KindHTTP, Message: "speech API returned empty audio", Status: resp.StatusCode}
	}

	fileName := uuid.NewString() + ".mp3"
	filePath := filepath.Join(s.cfg.MediaDir, fileName)
	if err := os.WriteFile(filePath, body, 0o644); err != nil {
		return nil, fmt.Errorf("failed to save narration audio: %w", err)
	}

	s.logger.Info("narration synthesized",
		zap.String("path", filePath),
		zap.Int("size_bytes", len(body)),
	)
	return &AudioHandle{Path: filePath}, nil
}
