package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/stress-api/internal/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVarP(&flagPort, "port", "p", "", "Port to listen on (env PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	log.Printf("Loading model from: %s", cfg.ModelPath)

	modelServer, err := loadModel()
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer modelServer.Close()

	handler := handlers.NewHandler(modelServer, cfg.FrameWorkers, cfg.MaxBodyBytes)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Server starting on port %s", cfg.Port)
	log.Printf("Classes: %v", modelServer.Metadata.Classes)
	log.Printf("Frame workers: %d", cfg.FrameWorkers)
	log.Println("Endpoints:")
	log.Println("  GET  /        - Welcome message")
	log.Println("  GET  /health  - Health check")
	log.Println("  POST /upload  - Classify a batch of base64 frames")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
