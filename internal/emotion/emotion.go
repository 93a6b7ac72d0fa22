package emotion

import (
	"errors"
	"fmt"
	"math"
)

// Label is one of the seven classes the emotion model predicts.
type Label string

const (
	Angry    Label = "Angry"
	Disgust  Label = "Disgust"
	Fear     Label = "Fear"
	Happy    Label = "Happy"
	Sad      Label = "Sad"
	Surprise Label = "Surprise"
	Neutral  Label = "Neutral"
)

// Labels is ordered the way the model emits its scores.
var Labels = [...]Label{Angry, Disgust, Fear, Happy, Sad, Surprise, Neutral}

var ErrScores = errors.New("invalid score vector")

// IsStress reports whether l counts toward the stress tally.
func (l Label) IsStress() bool {
	switch l {
	case Angry, Disgust, Fear, Sad:
		return true
	}
	return false
}

func (l Label) String() string { return string(l) }

// Parse looks up a label by its exact name.
func Parse(name string) (Label, error) {
	for _, l := range Labels {
		if string(l) == name {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown emotion label %q", name)
}

// FromScores returns the label with the highest score. Ties go to the
// label that comes first in Labels.
func FromScores(scores []float32) (Label, error) {
	if len(scores) != len(Labels) {
		return "", fmt.Errorf("%w: expected %d scores, got %d", ErrScores, len(Labels), len(scores))
	}

	maxIdx := 0
	maxVal := scores[0]
	for i, val := range scores {
		if math.IsNaN(float64(val)) {
			return "", fmt.Errorf("%w: NaN at index %d", ErrScores, i)
		}
		if val > maxVal {
			maxVal = val
			maxIdx = i
		}
	}

	return Labels[maxIdx], nil
}
