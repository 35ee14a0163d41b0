package gen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func newImageTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func newImageTestService(t *testing.T, serverURL string) *ImageService {
	t.Helper()
	svc, err := NewImageService(ImageConfig{
		APIKey:   "test-key",
		BaseURL:  serverURL,
		MediaDir: t.TempDir(),
		Timeout:  5 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func TestGenerateImageWritesDecodedArtifact(t *testing.T) {
	var gotAuth string
	var gotReq imageAPIRequest
	server := newImageTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(imageAPIResponse{
			Artifacts: []struct {
				Base64 string `json:"base64"`
			}{{Base64: base64.StdEncoding.EncodeToString(pngBytes)}},
		})
	})

	svc := newImageTestService(t, server.URL)
	handle, err := svc.GenerateImage(context.Background(), "a hatch venting mist")
	require.NoError(t, err)
	require.NotNil(t, handle)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "a hatch venting mist", handle.Prompt)
	assert.True(t, strings.HasSuffix(handle.Path, ".png"))

	data, err := os.ReadFile(handle.Path)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	// The style prefix is prepended to the caller's prompt.
	require.Len(t, gotReq.TextPrompts, 1)
	assert.Equal(t, imagePromptPrefix+"a hatch venting mist", gotReq.TextPrompts[0].Text)
	assert.Equal(t, imageCfgScale, gotReq.CfgScale)
	assert.Equal(t, imageSize, gotReq.Height)
	assert.Equal(t, imageSize, gotReq.Width)
	assert.Equal(t, imageSteps, gotReq.Steps)
}

func TestGenerateImageWithoutCredentialIsNoop(t *testing.T) {
	server := newImageTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without a credential")
	})

	svc, err := NewImageService(ImageConfig{
		BaseURL:  server.URL,
		MediaDir: t.TempDir(),
	}, zap.NewNop())
	require.NoError(t, err)

	handle, err := svc.GenerateImage(context.Background(), "anything")
	require.NoError(t, err)
	assert.Nil(t, handle)
}

func TestGenerateImageNonOKStatusCarriesBody(t *testing.T) {
	server := newImageTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"rate limit exceeded"}`))
	})

	svc := newImageTestService(t, server.URL)
	handle, err := svc.GenerateImage(context.Background(), "prompt")
	assert.Nil(t, handle)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, KindHTTP, svcErr.Kind)
	assert.Equal(t, http.StatusTooManyRequests, svcErr.Status)
	assert.Contains(t, svcErr.Body, "rate limit exceeded")
}

func TestGenerateImageEmptyArtifacts(t *testing.T) {
	server := newImageTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"artifacts":[]}`))
	})

	svc := newImageTestService(t, server.URL)
	_, err := svc.GenerateImage(context.Background(), "prompt")

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, KindHTTP, svcErr.Kind)
}

func TestGenerateImageNetworkFailure(t *testing.T) {
	server := newImageTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	serverURL := server.URL
	server.Close()

	svc := newImageTestService(t, serverURL)
	_, err := svc.GenerateImage(context.Background(), "prompt")

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, KindNetwork, svcErr.Kind)
}

func TestClassifyTransportTimeout(t *testing.T) {
	svcErr := classifyTransport("image", context.DeadlineExceeded)
	assert.Equal(t, KindTimeout, svcErr.Kind)
	assert.Equal(t, "image", svcErr.Service)
}
