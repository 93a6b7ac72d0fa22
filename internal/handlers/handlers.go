package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/Brownie44l1/stress-api/internal/analysis"
)

type Handler struct {
	classifier   analysis.Classifier
	workers      int
	maxBodyBytes int64
}

// NewHandler builds the HTTP handlers around classifier. workers bounds the
// per-request classification fan-out; maxBodyBytes caps upload bodies.
func NewHandler(classifier analysis.Classifier, workers int, maxBodyBytes int64) *Handler {
	return &Handler{
		classifier:   classifier,
		workers:      workers,
		maxBodyBytes: maxBodyBytes,
	}
}

// Routes returns the API with CORS applied to every endpoint.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.Welcome)
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/upload", h.Upload)
	return EnableCORS(mux)
}

func (h *Handler) Welcome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": welcomeMessage})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	frames, status, err := h.readFrames(w, r)
	if err != nil {
		log.Printf("upload %s: %v", requestID, err)
		writeError(w, status, err.Error())
		return
	}

	analyzer := &analysis.Analyzer{Classifier: h.classifier, Workers: h.workers}
	report := analyzer.Analyze(frames)

	for i, res := range report.Results {
		if !res.OK() {
			log.Printf("upload %s: frame %d: %v", requestID, i, res.Err)
		}
	}
	log.Printf("upload %s: %d frames, %d stressed, is_stressed=%t",
		requestID, len(frames), report.StressCount, report.IsStressed)

	writeJSON(w, http.StatusOK, NewUploadResponse(report))
}

// NewUploadResponse renders report as the success envelope. Failed frames
// all get the same generic error message.
func NewUploadResponse(report analysis.Report) UploadResponse {
	results := make([]FrameResult, len(report.Results))
	for i, res := range report.Results {
		if !res.OK() {
			results[i] = FrameResult{Error: frameErrorMessage}
			continue
		}
		results[i] = FrameResult{Emotion: res.Label}
	}
	return UploadResponse{
		Status:     "success",
		Results:    results,
		IsStressed: report.IsStressed,
	}
}

// readFrames parses the upload body. Elements of frames that are not JSON
// strings come back empty so they fail as individual frames.
func (h *Handler) readFrames(w http.ResponseWriter, r *http.Request) ([]string, int, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, http.StatusBadRequest, fmt.Errorf("failed to read request body: %w", err)
	}

	var req UploadRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err)
	}
	if len(req.Frames) == 0 || string(req.Frames) == "null" {
		return nil, http.StatusBadRequest, errors.New("missing 'frames' field")
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(req.Frames, &raw); err != nil {
		return nil, http.StatusBadRequest, errors.New("'frames' must be an array of strings")
	}

	frames := make([]string, len(raw))
	for i, item := range raw {
		if err := json.Unmarshal(item, &frames[i]); err != nil {
			frames[i] = ""
		}
	}
	return frames, http.StatusOK, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Status: "error", Message: message})
}
