package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/stress-api/internal/emotion"
	"github.com/Brownie44l1/stress-api/internal/frame"
)

// brightnessClassifier labels a frame by the shade of its first pixel: the
// test frames are uniform images whose gray level is 20 * (label index + 1).
type brightnessClassifier struct{}

func (brightnessClassifier) Predict(input []float32) ([]float32, error) {
	idx := int(input[0]*255/20+0.5) - 1
	if idx < 0 || idx >= len(emotion.Labels) {
		return nil, errors.New("unrecognised face")
	}
	scores := make([]float32, len(emotion.Labels))
	scores[idx] = 0.9
	return scores, nil
}

func faceFrame(t *testing.T, l emotion.Label) string {
	t.Helper()
	idx := -1
	for i, candidate := range emotion.Labels {
		if candidate == l {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0)

	img := image.NewGray(image.Rect(0, 0, 32, 40))
	for i := range img.Pix {
		img.Pix[i] = uint8(20 * (idx + 1))
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return frame.EncodeDataURI("image/png", buf.Bytes())
}

func newTestServer() http.Handler {
	return NewHandler(brightnessClassifier{}, 1, 1<<20).Routes()
}

func do(t *testing.T, h http.Handler, method, path string, body io.Reader) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	resp := w.Result()
	var decoded map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp, decoded
}

func upload(t *testing.T, h http.Handler, frames []string) (*http.Response, map[string]any) {
	t.Helper()
	body, err := json.Marshal(map[string]any{"frames": frames})
	require.NoError(t, err)
	return do(t, h, http.MethodPost, "/upload", bytes.NewReader(body))
}

func TestWelcome(t *testing.T) {
	resp, body := do(t, newTestServer(), http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, map[string]any{"message": "Welcome to the Emotion Detection API!"}, body)
}

func TestWelcomeUnknownPath(t *testing.T) {
	resp, body := do(t, newTestServer(), http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "error", body["status"])
}

func TestHealth(t *testing.T) {
	resp, body := do(t, newTestServer(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}

func TestCORSPreflight(t *testing.T) {
	resp, body := do(t, newTestServer(), http.MethodOptions, "/upload", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, body)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
	assert.Equal(t, "Content-Type", resp.Header.Get("Access-Control-Allow-Headers"))
}

func TestCORSOnResponses(t *testing.T) {
	resp, _ := upload(t, newTestServer(), []string{})
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "X-Request-ID", resp.Header.Get("Access-Control-Expose-Headers"))
}

func TestUploadEmpty(t *testing.T) {
	resp, body := upload(t, newTestServer(), []string{})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, []any{}, body["results"])
	assert.Equal(t, false, body["is_stressed"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestUploadStressed(t *testing.T) {
	var frames []string
	happy, sad := faceFrame(t, emotion.Happy), faceFrame(t, emotion.Sad)
	for i := 0; i < 30; i++ {
		frames = append(frames, happy)
	}
	for i := 0; i < 26; i++ {
		frames = append(frames, sad)
	}

	resp, body := upload(t, newTestServer(), frames)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	results := body["results"].([]any)
	require.Len(t, results, len(frames))
	assert.Equal(t, map[string]any{"emotion": "Happy"}, results[0])
	assert.Equal(t, map[string]any{"emotion": "Sad"}, results[len(results)-1])
	assert.Equal(t, true, body["is_stressed"])
}

func TestUploadBoundary(t *testing.T) {
	var frames []string
	fear := faceFrame(t, emotion.Fear)
	for i := 0; i < 25; i++ {
		frames = append(frames, fear)
	}
	frames = append(frames, faceFrame(t, emotion.Neutral))

	_, body := upload(t, newTestServer(), frames)
	assert.Equal(t, false, body["is_stressed"])

	frames = append(frames, fear)
	_, body = upload(t, newTestServer(), frames)
	assert.Equal(t, true, body["is_stressed"])
}

func TestUploadBadFrameIsIsolated(t *testing.T) {
	frames := []string{
		faceFrame(t, emotion.Angry),
		"iVBORw0KGgoAAAANSUhEUgAAAAEAAAAB",
		faceFrame(t, emotion.Surprise),
	}

	resp, body := upload(t, newTestServer(), frames)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{
		map[string]any{"emotion": "Angry"},
		map[string]any{"error": "Error in processing frame"},
		map[string]any{"emotion": "Surprise"},
	}, body["results"])
}

func TestUploadNonStringFrame(t *testing.T) {
	payload := `{"frames": [` + `"` + faceFrame(t, emotion.Disgust) + `", 42, null, {"a": "b,c"}]}`

	resp, body := do(t, newTestServer(), http.MethodPost, "/upload", strings.NewReader(payload))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	results := body["results"].([]any)
	require.Len(t, results, 4)
	assert.Equal(t, map[string]any{"emotion": "Disgust"}, results[0])
	for _, r := range results[1:] {
		assert.Equal(t, map[string]any{"error": "Error in processing frame"}, r)
	}
}

func TestUploadRequestErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"Missing frames", `{"images": []}`, http.StatusBadRequest},
		{"Null frames", `{"frames": null}`, http.StatusBadRequest},
		{"Frames not an array", `{"frames": "data:image/png;base64,AAAA"}`, http.StatusBadRequest},
		{"Invalid JSON", `{"frames": [`, http.StatusBadRequest},
		{"Empty body", ``, http.StatusBadRequest},
		{"Body is an array", `[]`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, newTestServer(), http.MethodPost, "/upload", strings.NewReader(tt.body))

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, "error", body["status"])
			assert.NotEmpty(t, body["message"])
			assert.NotContains(t, body, "results")
		})
	}
}

func TestUploadBodyTooLarge(t *testing.T) {
	h := NewHandler(brightnessClassifier{}, 1, 64).Routes()
	body := `{"frames": ["` + strings.Repeat("A", 200) + `"]}`

	resp, decoded := do(t, h, http.MethodPost, "/upload", strings.NewReader(body))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "error", decoded["status"])
}

func TestUploadMethodNotAllowed(t *testing.T) {
	resp, body := do(t, newTestServer(), http.MethodGet, "/upload", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "error", body["status"])
}

func TestUploadParallelWorkers(t *testing.T) {
	frames := []string{
		faceFrame(t, emotion.Happy),
		"bad",
		faceFrame(t, emotion.Sad),
		faceFrame(t, emotion.Neutral),
	}
	h := NewHandler(brightnessClassifier{}, 4, 1<<20).Routes()

	_, body := upload(t, h, frames)
	assert.Equal(t, []any{
		map[string]any{"emotion": "Happy"},
		map[string]any{"error": "Error in processing frame"},
		map[string]any{"emotion": "Sad"},
		map[string]any{"emotion": "Neutral"},
	}, body["results"])
}
