package ai_test

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gamecontent-server/internal/ai"
	"gamecontent-server/internal/models"
	"gamecontent-server/internal/prompts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// pngBytes - минимальная сигнатура PNG, её достаточно для определения MIME.
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type recordedCall struct {
	path string
	body map[string]any
}

type hfStub struct {
	mu      sync.Mutex
	calls   []recordedCall
	handler func(w http.ResponseWriter, r *http.Request)
}

func (s *hfStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.mu.Lock()
	s.calls = append(s.calls, recordedCall{path: strings.TrimPrefix(r.URL.Path, "/"), body: body})
	s.mu.Unlock()
	s.handler(w, r)
}

func (s *hfStub) paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.calls))
	for _, c := range s.calls {
		out = append(out, c.path)
	}
	return out
}

func writePNG(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(pngBytes)
}

func writeHFError(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func newImageClient(t *testing.T, stub *hfStub, timeout time.Duration) ai.ImageGenerator {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	return ai.NewImageGenerator(ai.ImageConfig{
		BaseURL:             srv.URL,
		APIKey:              "hf_test",
		DefaultModel:        "turbo",
		Timeout:             timeout,
		ImageToImageTimeout: timeout,
		MaxDimension:        768,
	}, prompts.DefaultCatalog(), ai.FixedSeed(42), zap.NewNop())
}

func sourceImageDataURL() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
}

func TestGenerateImageFallsBackOnColdStart(t *testing.T) {
	stub := &hfStub{handler: func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "sdxl-turbo") {
			writeHFError(w, http.StatusServiceUnavailable, `{"error":"Model is currently loading","estimated_time":20}`)
			return
		}
		writePNG(w)
	}}
	client := newImageClient(t, stub, time.Second)

	res, err := client.GenerateImage(t.Context(), "a castle", ai.ImageOptions{})
	require.NoError(t, err)

	assert.Equal(t, "black-forest-labs/FLUX.1-schnell", res.Model)
	assert.Equal(t, []string{"stabilityai/sdxl-turbo", "black-forest-labs/FLUX.1-schnell"}, res.AttemptedModels)
	assert.Equal(t, int64(42), res.Seed)
	assert.Equal(t, 512, res.Width)
	assert.Equal(t, 512, res.Height)
	assert.Equal(t, "image/png", res.MimeType)
	assert.True(t, strings.HasPrefix(res.ImageURL, "data:image/png;base64,"))

	require.Len(t, stub.calls, 2)
	turboParams := stub.calls[0].body["parameters"].(map[string]any)
	assert.Equal(t, float64(4), turboParams["num_inference_steps"])
	assert.Equal(t, float64(0), turboParams["guidance_scale"])
	fluxParams := stub.calls[1].body["parameters"].(map[string]any)
	assert.Equal(t, float64(25), fluxParams["num_inference_steps"])
	assert.Equal(t, float64(42), fluxParams["seed"])
}

func TestGenerateImageStopsOnInvalidCredential(t *testing.T) {
	stub := &hfStub{handler: func(w http.ResponseWriter, r *http.Request) {
		writeHFError(w, http.StatusUnauthorized, `{"error":"Invalid credentials in Authorization header"}`)
	}}
	client := newImageClient(t, stub, time.Second)

	_, err := client.GenerateImage(t.Context(), "a castle", ai.ImageOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidCredential))
	assert.Len(t, stub.paths(), 1)
	assert.NotContains(t, models.AsAppError(err).Message, "Authorization header")
}

func TestGenerateImageExhaustsFallbackList(t *testing.T) {
	stub := &hfStub{handler: func(w http.ResponseWriter, r *http.Request) {
		writeHFError(w, http.StatusBadGateway, `{"error":"overloaded"}`)
	}}
	client := newImageClient(t, stub, time.Second)

	_, err := client.GenerateImage(t.Context(), "a castle", ai.ImageOptions{Model: "sd"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUnavailable))
	assert.Equal(t, []string{
		"runwayml/stable-diffusion-v1-5",
		"stabilityai/sdxl-turbo",
		"black-forest-labs/FLUX.1-schnell",
	}, stub.paths())
}

func TestGenerateImageTimeoutIsRetryable(t *testing.T) {
	stub := &hfStub{handler: func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}}
	client := newImageClient(t, stub, 30*time.Millisecond)

	_, err := client.GenerateImage(t.Context(), "a castle", ai.ImageOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrTimeout))
	assert.Len(t, stub.paths(), 3)
}

func TestGenerateImageClampsDimensionsAndUsesCallerSeed(t *testing.T) {
	stub := &hfStub{handler: func(w http.ResponseWriter, r *http.Request) { writePNG(w) }}
	client := newImageClient(t, stub, time.Second)

	seed := int64(7)
	res, err := client.GenerateImage(t.Context(), "a castle", ai.ImageOptions{Width: 4096, Height: 10, Seed: &seed})
	require.NoError(t, err)
	assert.Equal(t, 768, res.Width)
	assert.Equal(t, 64, res.Height)
	assert.Equal(t, int64(7), res.Seed)
}

func TestGenerateImageRejectsNonImagePayload(t *testing.T) {
	stub := &hfStub{handler: func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}}
	client := newImageClient(t, stub, time.Second)

	_, err := client.GenerateImage(t.Context(), "a castle", ai.ImageOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUnknown))
	assert.Len(t, stub.paths(), 1)
}

func TestImageToImageSuccess(t *testing.T) {
	stub := &hfStub{handler: func(w http.ResponseWriter, r *http.Request) { writePNG(w) }}
	client := newImageClient(t, stub, time.Second)

	res, err := client.GenerateImageFromImage(t.Context(), sourceImageDataURL(), "knight in armor",
		ai.ImageToImageOptions{ArtStyle: "pixel"})
	require.NoError(t, err)

	assert.Equal(t, ai.TransformationImageToImage, res.TransformationType)
	assert.Empty(t, res.FallbackReason)
	assert.Equal(t, "timbrooks/instruct-pix2pix", res.Model)
	assert.Equal(t, "knight in armor", res.OriginalPrompt)
	assert.Contains(t, res.Prompt, "pixel art game sprite")
	require.NotNil(t, res.Strength)
	assert.Equal(t, 0.75, *res.Strength)

	require.Len(t, stub.calls, 1)
	params := stub.calls[0].body["parameters"].(map[string]any)
	assert.Equal(t, "blurry, low quality, distorted, ugly, bad anatomy", params["negative_prompt"])
	assert.Equal(t, base64.StdEncoding.EncodeToString(pngBytes), stub.calls[0].body["inputs"])
}

func TestImageToImageFallbackIsLabeled(t *testing.T) {
	stub := &hfStub{handler: func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "instruct-pix2pix") {
			writeHFError(w, http.StatusInternalServerError, `{"error":"pipeline failed"}`)
			return
		}
		writePNG(w)
	}}
	client := newImageClient(t, stub, time.Second)

	res, err := client.GenerateImageFromImage(t.Context(), sourceImageDataURL(), "knight", ai.ImageToImageOptions{})
	require.NoError(t, err)

	assert.Equal(t, "text-to-image-fallback", res.TransformationType)
	assert.NotEmpty(t, res.FallbackReason)
	assert.NotContains(t, res.FallbackReason, "pipeline failed")
	assert.Equal(t, "stabilityai/sdxl-turbo", res.Model)
	assert.Equal(t, int64(42), res.Seed)
	assert.Equal(t, []string{"timbrooks/instruct-pix2pix", "stabilityai/sdxl-turbo"}, res.AttemptedModels)
	assert.Equal(t, []string{"timbrooks/instruct-pix2pix", "stabilityai/sdxl-turbo"}, stub.paths())
}

func TestImageToImageRejectsInvalidSource(t *testing.T) {
	stub := &hfStub{handler: func(w http.ResponseWriter, r *http.Request) { writePNG(w) }}
	client := newImageClient(t, stub, time.Second)

	for _, source := range []string{"", "%%%not-base64%%%", base64.StdEncoding.EncodeToString([]byte("plain text, not an image"))} {
		_, err := client.GenerateImageFromImage(t.Context(), source, "knight", ai.ImageToImageOptions{})
		require.Error(t, err, source)
		assert.True(t, errors.Is(err, models.ErrValidation), source)
	}
	assert.Empty(t, stub.paths(), "invalid input must not reach the vendor")
}

func TestDecodeSourceImageAcceptsWhitespaceAndRawBase64(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(pngBytes)
	spaced := encoded[:10] + "\n  " + encoded[10:]

	data, err := ai.DecodeSourceImage(spaced)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	data, err = ai.DecodeSourceImage(strings.TrimRight(encoded, "="))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
}

func TestUnconfiguredImageClient(t *testing.T) {
	client := ai.NewImageGenerator(ai.ImageConfig{}, prompts.DefaultCatalog(), nil, zap.NewNop())

	_, err := client.GenerateImage(t.Context(), "a castle", ai.ImageOptions{})
	assert.True(t, errors.Is(err, models.ErrConfiguration))
	_, err = client.GenerateImageFromImage(t.Context(), sourceImageDataURL(), "x", ai.ImageToImageOptions{})
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}
