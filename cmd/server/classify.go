package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Brownie44l1/stress-api/internal/analysis"
	"github.com/Brownie44l1/stress-api/internal/frame"
	"github.com/Brownie44l1/stress-api/internal/handlers"
)

var classifyCmd = &cobra.Command{
	Use:   "classify FILE...",
	Short: "Classify local image files and print the stress report",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		frames, err := readFrames(args)
		if err != nil {
			return err
		}

		modelServer, err := loadModel()
		if err != nil {
			return err
		}
		defer modelServer.Close()

		report := classifyFiles(modelServer, frames, cfg.FrameWorkers)
		for i, res := range report.Results {
			if !res.OK() {
				log.Printf("%s: %v", args[i], res.Err)
			}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(handlers.NewUploadResponse(report))
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

// readFrames loads each file and wraps it as a data URI, the same shape a
// browser sends to /upload.
func readFrames(paths []string) ([]string, error) {
	frames := make([]string, len(paths))
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		frames[i] = frame.EncodeDataURI(http.DetectContentType(data), data)
	}
	return frames, nil
}

func classifyFiles(c analysis.Classifier, frames []string, workers int) analysis.Report {
	bar := progressbar.NewOptions(len(frames),
		progressbar.OptionSetDescription("Classifying frames"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)
	defer bar.Finish()

	analyzer := &analysis.Analyzer{
		Classifier: c,
		Workers:    workers,
		OnResult: func(int, analysis.Result) {
			bar.Add(1)
		},
	}
	return analyzer.Analyze(frames)
}
