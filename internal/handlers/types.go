package handlers

import (
	"encoding/json"

	"github.com/Brownie44l1/stress-api/internal/emotion"
)

// frameErrorMessage is reported for every frame that could not be
// classified, whatever the cause.
const frameErrorMessage = "Error in processing frame"

const welcomeMessage = "Welcome to the Emotion Detection API!"

type UploadRequest struct {
	Frames json.RawMessage `json:"frames"`
}

// FrameResult carries either Emotion or Error.
type FrameResult struct {
	Emotion emotion.Label `json:"emotion,omitempty"`
	Error   string        `json:"error,omitempty"`
}

type UploadResponse struct {
	Status     string        `json:"status"`
	Results    []FrameResult `json:"results"`
	IsStressed bool          `json:"is_stressed"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
