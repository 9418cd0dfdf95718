package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/john/modwatch/internal/buffer"
	"github.com/john/modwatch/internal/classifier"
	"github.com/john/modwatch/internal/config"
	"github.com/john/modwatch/internal/health"
	"github.com/john/modwatch/internal/kick"
	"github.com/john/modwatch/internal/message"
	"github.com/john/modwatch/internal/moderator"
	"github.com/john/modwatch/internal/recorder"
	"github.com/john/modwatch/internal/report"
	"github.com/john/modwatch/internal/reporter"
	"github.com/john/modwatch/internal/twitch"
	"github.com/john/modwatch/internal/uploader"
)

func main() {
	log.Println("Modwatch starting...")

	// Load .env if present (API keys, OAuth tokens)
	_ = godotenv.Load()

	// Get config path from environment variable or use default
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Configuration loaded successfully")

	// Log configured platforms
	if len(cfg.Twitch.Channels) > 0 {
		log.Printf("Monitoring %d Twitch channels: %v", len(cfg.Twitch.Channels), cfg.Twitch.Channels)
	}
	if cfg.Kick.Enabled && len(cfg.Kick.Channels) > 0 {
		log.Printf("Monitoring %d Kick channels", len(cfg.Kick.Channels))
	}
	log.Printf("Classifying with %s (trigger: %d message(s), history: %d, alert threshold: %d%%)",
		cfg.Classifier.Model, cfg.Classifier.TriggerMessages, cfg.Classifier.HistorySize, cfg.Classifier.AlertThreshold)

	// Setup context and signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Create communication channels
	messageChan := make(chan message.Message, cfg.Recorder.BufferSize)
	reportChan := make(chan report.Report, cfg.Recorder.BufferSize)
	fileChan := make(chan string, 100)

	// Initialize platform connectors
	twitchConn := twitch.New(cfg.Twitch.Username, cfg.Twitch.OAuth, cfg.Twitch.Channels)

	var kickConn *kick.Connector
	if cfg.Kick.Enabled && len(cfg.Kick.Channels) > 0 {
		channels := make([]kick.ChannelConfig, 0, len(cfg.Kick.Channels))
		for _, ch := range cfg.Kick.Channels {
			channels = append(channels, kick.ChannelConfig{Slug: ch.Slug, ChatroomID: ch.ChatroomID})
		}
		kickConn = kick.New(channels)
	}

	// Initialize the moderation pipeline
	store := buffer.New(cfg.Classifier.HistorySize)
	cls := classifier.New(
		cfg.Classifier.BaseURL,
		cfg.Classifier.APIKey,
		cfg.Classifier.Model,
		time.Duration(cfg.Classifier.TimeoutSeconds)*time.Second,
	)
	rep := reporter.New(cfg.Classifier.AlertThreshold)
	stats := &moderator.Stats{}
	mod := moderator.New(store, cls, rep, cfg.Classifier.TriggerMessages, stats)

	rec := recorder.New(
		cfg.Recorder.OutputDir,
		cfg.Recorder.BufferSize,
		cfg.Recorder.RotateMinutes,
		cfg.Recorder.RotateMegabytes,
	)

	// Create the report archiver when an S3 bucket is configured
	var uploaderInstance *uploader.Uploader
	if cfg.S3.Bucket != "" {
		if cfg.S3.RoleARN != "" {
			// Use OIDC authentication
			log.Printf("Using OIDC authentication with role: %s", cfg.S3.RoleARN)
			uploaderInstance, err = uploader.New(
				ctx,
				cfg.S3.Bucket,
				cfg.S3.Region,
				cfg.S3.RoleARN,
				cfg.Uploader.DeleteAfterUpload,
				cfg.Uploader.MaxRetries,
			)
		} else {
			// Use legacy static credentials (deprecated)
			log.Println("WARNING: Using static AWS credentials (deprecated). Migrate to OIDC for better security.")
			uploaderInstance, err = uploader.NewWithStaticCredentials(
				ctx,
				cfg.S3.Bucket,
				cfg.S3.Region,
				cfg.S3.AccessKeyID,
				cfg.S3.SecretAccessKey,
				cfg.Uploader.DeleteAfterUpload,
				cfg.Uploader.MaxRetries,
			)
		}
		if err != nil {
			log.Fatalf("Failed to create uploader: %v", err)
		}

		// Scan for report files left over from a previous run
		if err := uploaderInstance.ScanAndUploadExisting(ctx, cfg.Recorder.OutputDir); err != nil {
			log.Printf("Warning: Failed to scan for existing files: %v", err)
		}
	} else {
		log.Println("No S3 bucket configured, report archiving disabled")
	}

	healthServer := health.New(":8080", stats)

	// Start all components
	var wg sync.WaitGroup

	// Start Twitch connector
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := twitchConn.Start(ctx, messageChan); err != nil && err != context.Canceled {
			log.Printf("Twitch connector error: %v", err)
		}
	}()

	// Start Kick connector (if configured)
	if kickConn != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := kickConn.Start(ctx, messageChan); err != nil && err != context.Canceled {
				log.Printf("Kick connector error: %v", err)
			}
		}()
	}

	// Start moderator
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mod.Start(ctx, messageChan, reportChan); err != nil && err != context.Canceled {
			log.Printf("Moderator error: %v", err)
		}
	}()

	// Start recorder
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := rec.Start(ctx, reportChan, fileChan); err != nil && err != context.Canceled {
			log.Printf("Recorder error: %v", err)
		}
	}()

	// Start uploader (if configured)
	if uploaderInstance != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := uploaderInstance.Start(ctx, fileChan); err != nil && err != context.Canceled {
				log.Printf("Uploader error: %v", err)
			}
		}()
	}

	// Start health check server
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := healthServer.Start(); err != nil && err != http.ErrServerClosed {
			log.Printf("Health server error: %v", err)
		}
	}()

	log.Println("All components started successfully")

	// Wait for shutdown signal
	go func() {
		<-sigChan
		log.Println("Shutdown signal received, initiating graceful shutdown...")

		// Create shutdown context with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Stop health server
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down health server: %v", err)
		}

		// Cancel main context to stop other components
		cancel()

		// Wait for components to finish with timeout
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			log.Println("All components stopped gracefully")
		case <-shutdownCtx.Done():
			log.Println("Shutdown timeout exceeded, forcing exit")
		}

		os.Exit(0)
	}()

	// Wait for shutdown
	wg.Wait()
	log.Println("Modwatch stopped")
}
