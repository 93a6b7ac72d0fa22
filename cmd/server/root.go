package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/stress-api/internal/config"
	"github.com/Brownie44l1/stress-api/internal/model"
)

// Version is the application version.
const Version = "0.1.0"

var (
	cfg *config.Config

	flagPort         string
	flagModelPath    string
	flagMetadataPath string
	flagOnnxLib      string
	flagWorkers      int
)

var rootCmd = &cobra.Command{
	Use:     "server",
	Short:   "Facial emotion and stress detection API",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		flags := cmd.Flags()
		if flags.Changed("port") {
			cfg.Port = flagPort
		}
		if flags.Changed("model") {
			cfg.ModelPath = flagModelPath
		}
		if flags.Changed("metadata") {
			cfg.MetadataPath = flagMetadataPath
		}
		if flags.Changed("onnxruntime-lib") {
			cfg.OnnxRuntimeLib = flagOnnxLib
		}
		if flags.Changed("workers") {
			if flagWorkers < 1 {
				return fmt.Errorf("--workers must be at least 1, got %d", flagWorkers)
			}
			cfg.FrameWorkers = flagWorkers
		}
		return nil
	},
	// With no subcommand the API server starts.
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadModel builds the ONNX classifier. The caller must Close it.
func loadModel() (*model.Server, error) {
	modelServer, err := model.NewServer(cfg.ModelPath, cfg.MetadataPath, cfg.OnnxRuntimeLib)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model server: %w", err)
	}
	return modelServer, nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagModelPath, "model", "m", "", "Path to the ONNX emotion model (env MODEL_PATH)")
	pf.StringVar(&flagMetadataPath, "metadata", "", "Path to the model metadata JSON (env MODEL_METADATA_PATH)")
	pf.StringVar(&flagOnnxLib, "onnxruntime-lib", "", "Path to the ONNX Runtime shared library (env ONNXRUNTIME_LIB)")
	pf.IntVarP(&flagWorkers, "workers", "w", 1, "Frames classified concurrently per batch (env FRAME_WORKERS)")
	rootCmd.Flags().StringVarP(&flagPort, "port", "p", "", "Port to listen on (env PORT)")
}
