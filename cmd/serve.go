package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-gallery/internal/recognizer"
	"github.com/kozaktomas/face-gallery/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Face Gallery web server.
The server exposes the gallery and recognition operations as a local JSON
API for enrollment tools and camera frontends.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

func runServe(cmd *cobra.Command, args []string) error {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, client, err := openStore(cfg)
	if err != nil {
		return err
	}

	rec := recognizer.New(store, client, recognizer.Options{
		Threshold: cfg.Recognition.Threshold,
		TopK:      cfg.Recognition.TopK,
		UseHNSW:   cfg.Recognition.UseHNSW,
	})
	if cfg.Recognition.UseHNSW {
		// Keep the approximate index in sync with gallery mutations.
		store.SetOnChange(rec.Refresh)
		fmt.Println("HNSW index enabled for recognition")
	}

	counts := store.Counts()
	fmt.Printf("Gallery %s loaded: %d people\n", store.Path(), len(counts))

	server := web.NewServer(cfg, store, rec, port, host)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Gallery API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
