// Package analysis classifies batches of frames and decides whether the
// subject looks stressed.
package analysis

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Brownie44l1/stress-api/internal/emotion"
	"github.com/Brownie44l1/stress-api/internal/frame"
)

// StressThreshold is the number of stress-labelled frames a batch must
// exceed to be considered stressed.
const StressThreshold = 25

var ErrInference = errors.New("emotion inference failed")

// Classifier maps a preprocessed frame (frame.TensorLen values) to one score
// per label in emotion.Labels order. Implementations must be safe for
// concurrent use when Analyzer.Workers > 1.
type Classifier interface {
	Predict(input []float32) ([]float32, error)
}

// Result is the outcome for one frame. Exactly one of Label and Err is set.
type Result struct {
	Label emotion.Label
	Err   error
}

func (r Result) OK() bool { return r.Err == nil }

// Report is the outcome for a batch. Results are in input order.
type Report struct {
	Results     []Result
	StressCount int
	IsStressed  bool
}

// ClassifyFrame decodes, preprocesses and classifies a single frame.
// Failures wrap frame.ErrDecode or ErrInference.
func ClassifyFrame(c Classifier, s string) Result {
	input, err := frame.Tensor(s)
	if err != nil {
		return Result{Err: err}
	}

	scores, err := c.Predict(input)
	if err != nil {
		return Result{Err: fmt.Errorf("%w: %v", ErrInference, err)}
	}

	label, err := emotion.FromScores(scores)
	if err != nil {
		return Result{Err: fmt.Errorf("%w: %v", ErrInference, err)}
	}
	return Result{Label: label}
}

// Analyzer runs ClassifyFrame over a batch.
type Analyzer struct {
	Classifier Classifier
	// Workers bounds how many frames are classified at once. Values below 2
	// classify frames one after another.
	Workers int
	// OnResult, if set, is called once per frame as soon as it is done. With
	// Workers > 1 calls may come from several goroutines and out of order.
	OnResult func(i int, r Result)
}

// Analyze classifies frames and tallies the verdict. Results keep input
// order; a frame that fails only marks its own result.
func (a *Analyzer) Analyze(frames []string) Report {
	results := make([]Result, len(frames))

	if a.Workers <= 1 {
		for i, s := range frames {
			results[i] = a.classify(i, s)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(a.Workers)
		for i, s := range frames {
			g.Go(func() error {
				results[i] = a.classify(i, s)
				return nil
			})
		}
		g.Wait()
	}

	return Summarize(results)
}

func (a *Analyzer) classify(i int, s string) Result {
	r := ClassifyFrame(a.Classifier, s)
	if a.OnResult != nil {
		a.OnResult(i, r)
	}
	return r
}

// Summarize tallies the stress labels in results.
func Summarize(results []Result) Report {
	count := 0
	for _, r := range results {
		if r.OK() && r.Label.IsStress() {
			count++
		}
	}
	return Report{
		Results:     results,
		StressCount: count,
		IsStressed:  count > StressThreshold,
	}
}
