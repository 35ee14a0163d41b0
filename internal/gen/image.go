package gen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultImageBaseURL targets the Stability SDXL text-to-image engine.
const DefaultImageBaseURL = "https://api.stability.ai/v1/generation/stable-diffusion-xl-1024-v1-0/text-to-image"

// Fixed generation parameters; the prompt is the only per-call variable.
const (
	imageCfgScale = 7
	imageSize     = 1024
	imageSamples  = 1
	imageSteps    = 30
)

const imagePromptPrefix = "cinematic, epic, high detail, masterpiece, "

// ImageConfig configures the image adapter. An empty APIKey disables image
// generation entirely rather than failing it.
type ImageConfig struct {
	APIKey   string
	BaseURL  string
	MediaDir string
	Timeout  time.Duration
}

// ImageService generates illustrations through a Stability-style HTTP API
// and stores the decoded artifact on disk.
type ImageService struct {
	cfg    ImageConfig
	client *http.Client
	logger *zap.Logger
}

func NewImageService(cfg ImageConfig, logger *zap.Logger) (*ImageService, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultImageBaseURL
	}
	if cfg.MediaDir == "" {
		cfg.MediaDir = "media"
	}
	if err := os.MkdirAll(cfg.MediaDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}
	return &ImageService{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

type imageAPIRequest struct {
	TextPrompts []imageTextPrompt `json:"text_prompts"`
	CfgScale    int               `json:"cfg_scale"`
	Height      int               `json:"height"`
	Width       int               `json:"width"`
	Samples     int               `json:"samples"`
	Steps       int               `json:"steps"`
}

type imageTextPrompt struct {
	Text string `json:"text"`
}

type imageAPIResponse struct {
	Artifacts []struct {
		Base64 string `json:"base64"`
	} `json:"artifacts"`
}

// GenerateImage renders the prompt and returns a handle to the stored file.
// Returns (nil, nil) when no image credential is configured.
func (s *ImageService) GenerateImage(ctx context.Context, prompt string) (*ImageHandle, error) {
	if s.cfg.APIKey == "" {
		s.logger.Debug("image generation skipped, no credential configured")
		return nil, nil
	}

	reqPayload := imageAPIRequest{
		TextPrompts: []imageTextPrompt{{Text: imagePromptPrefix + prompt}},
		CfgScale:    imageCfgScale,
		Height:      imageSize,
		Width:       imageSize,
		Samples:     imageSamples,
		Steps:       imageSteps,
	}
	reqBody, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal image request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create image request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		svcErr := classifyTransport("image", err)
		s.logger.Warn("image request failed", zap.String("kind", string(svcErr.Kind)), zap.Error(err))
		return nil, svcErr
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("image API returned non-OK status",
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("response_body", body),
		)
		return nil, &ServiceError{
			Service: "image",
			Kind:    KindHTTP,
			Message: fmt.Sprintf("image API returned status %d", resp.StatusCode),
			Status:  resp.StatusCode,
			Body:    string(body),
		}
	}
	if readErr != nil {
		return nil, classifyTransport("image", readErr)
	}

	var apiResp imageAPIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, &ServiceError{Service: "image", Kind: KindHTTP, Message: "malformed image API response: " + err.Error(), Status: resp.StatusCode, Body: string(body)}
	}
	if len(apiResp.Artifacts) == 0 {
		return nil, &ServiceError{Service: "image", Kind: KindHTTP, Message: "image API returned no artifacts", Status: resp.StatusCode, Body: string(body)}
	}

	imageData, err := base64.StdEncoding.DecodeString(apiResp.Artifacts[0].Base64)
	if err != nil {
		return nil, &ServiceError{Service: "image", Kind: KindHTTP, Message: "failed to decode image artifact: " + err.Error(), Status: resp.StatusCode}
	}

	fileName := uuid.NewString() + ".png"
	filePath := filepath.Join(s.cfg.MediaDir, fileName)
	if err := os.WriteFile(filePath, imageData, 0o644); err != nil {
		return nil, fmt.Errorf("failed to save image: %w", err)
	}

	s.logger.Info("image generated",
		zap.String("path", filePath),
		zap.Int("size_bytes", len(imageData)),
	)
	return &ImageHandle{Path: filePath, Prompt: prompt}, nil
}

func classifyTransport(service string, err error) *ServiceError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &ServiceError{Service: service, Kind: KindTimeout, Message: err.Error()}
	}
	return &ServiceError{Service: service, Kind: KindNetwork, Message: err.Error()}
}
