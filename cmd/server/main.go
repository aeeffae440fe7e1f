/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Clarity analytics server. Handles configuration,
  dependency injection, optional workbook auto-load, and graceful shutdown.

STARTUP SEQUENCE:
  1. Read configuration (environment, optional config file)
  2. Create the in-memory store and Gemini client
  3. Auto-load a workbook if one is configured and present
  4. Configure HTTP router
  5. Start server with graceful shutdown

CONFIGURATION:
  All keys can be set in clarity.yaml (working directory) or via environment
  variables with the CLARITY_ prefix:

    port              HTTP server port          (default: 8080)
    data_file         Workbook to load at boot  (default: data.xlsx, optional)
    gemini_api_key    Gemini API key            (chat disabled when empty)
    gemini_model      Gemini model name

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Exit

EXAMPLES:
  # Run with defaults
  ./server

  # Run on a different port with a preloaded workbook
  CLARITY_PORT=3000 CLARITY_DATA_FILE=./data/book.xlsx ./server

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - dataset/store.go: In-memory store
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/clarity-bi/clarity/ai"
	"github.com/clarity-bi/clarity/api"
	"github.com/clarity-bi/clarity/dataset"
	"github.com/clarity-bi/clarity/xlsx"
)

func main() {
	cfg := loadConfig()

	store := dataset.NewStore()
	aiClient := ai.NewClient(ai.Config{
		APIKey: cfg.GetString("gemini_api_key"),
		Model:  cfg.GetString("gemini_model"),
	})

	// Preload a workbook when one is sitting next to the binary. Missing
	// files are fine; the upload endpoint covers that path.
	if path := cfg.GetString("data_file"); path != "" {
		if err := autoLoad(store, path); err != nil {
			log.Printf("Warning: failed to auto-load %s: %v", path, err)
		}
	}

	handler := api.NewHandler(store, aiClient)
	router := api.NewRouter(handler)

	port := cfg.GetInt("port")
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", port)
		log.Printf("📊 API available at http://localhost:%d/api", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func loadConfig() *viper.Viper {
	v := viper.New()
	v.SetDefault("port", 8080)
	v.SetDefault("data_file", "data.xlsx")
	v.SetDefault("gemini_model", "")

	v.SetEnvPrefix("clarity")
	v.AutomaticEnv()

	v.SetConfigName("clarity")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatalf("Failed to read config file: %v", err)
		}
	}
	return v
}

func autoLoad(store *dataset.Store, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	sales, claims, err := xlsx.Open(path)
	if err != nil {
		return err
	}
	store.Load(sales, claims)
	log.Printf("Loaded %s: %d sales rows, %d claims rows", path, sales.Len(), claims.Len())
	return nil
}
