package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/Brownie44l1/stress-api/internal/emotion"
	"github.com/Brownie44l1/stress-api/internal/frame"
)

// Metadata describes the exported model. It is read from an optional JSON
// sidecar and must agree with the fixed 48×48 grayscale, seven-class contract.
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
	InputName   string   `json:"input_name"`
	OutputName  string   `json:"output_name"`
}

// DefaultMetadata is the contract of the emotion model.
func DefaultMetadata() Metadata {
	classes := make([]string, len(emotion.Labels))
	for i, l := range emotion.Labels {
		classes[i] = string(l)
	}
	return Metadata{
		InputShape:  []int64{1, frame.Size, frame.Size, 1},
		OutputShape: []int64{1, int64(len(emotion.Labels))},
		Classes:     classes,
		ImageSize:   frame.Size,
		InputName:   "input",
		OutputName:  "output",
	}
}

// LoadMetadata reads path and fills unset fields from DefaultMetadata. A
// missing file yields the defaults.
func LoadMetadata(path string) (Metadata, error) {
	meta := DefaultMetadata()
	if path == "" {
		return meta, nil
	}

	metaFile, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return meta, nil
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var fromFile Metadata
	if err := json.Unmarshal(metaFile, &fromFile); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}

	if fromFile.InputShape != nil {
		meta.InputShape = fromFile.InputShape
	}
	if fromFile.OutputShape != nil {
		meta.OutputShape = fromFile.OutputShape
	}
	if fromFile.Classes != nil {
		meta.Classes = fromFile.Classes
	}
	if fromFile.ImageSize != 0 {
		meta.ImageSize = fromFile.ImageSize
	}
	if fromFile.InputName != "" {
		meta.InputName = fromFile.InputName
	}
	if fromFile.OutputName != "" {
		meta.OutputName = fromFile.OutputName
	}

	if err := meta.Validate(); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

// Validate checks m against the shapes and label order the service is built for.
func (m Metadata) Validate() error {
	want := DefaultMetadata()
	if !slices.Equal(m.InputShape, want.InputShape) {
		return fmt.Errorf("unsupported input shape %v, expected %v", m.InputShape, want.InputShape)
	}
	if !slices.Equal(m.OutputShape, want.OutputShape) {
		return fmt.Errorf("unsupported output shape %v, expected %v", m.OutputShape, want.OutputShape)
	}
	if m.ImageSize != want.ImageSize {
		return fmt.Errorf("unsupported image size %d, expected %d", m.ImageSize, want.ImageSize)
	}
	if len(m.Classes) != len(emotion.Labels) {
		return fmt.Errorf("expected %d classes, got %d", len(emotion.Labels), len(m.Classes))
	}
	for i, name := range m.Classes {
		l, err := emotion.Parse(name)
		if err != nil {
			return err
		}
		if l != emotion.Labels[i] {
			return fmt.Errorf("class %d is %s, expected %s", i, l, emotion.Labels[i])
		}
	}
	if m.InputName == "" || m.OutputName == "" {
		return errors.New("tensor names must not be empty")
	}
	return nil
}
