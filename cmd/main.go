// Package main is the entry point for the IPTV catalog service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/savid/iptv-catalog/internal/config"
	"github.com/savid/iptv-catalog/internal/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfg  = config.DefaultConfig()
	log  = logrus.New()
	mode = string(cfg.Source.Mode)
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "iptv-catalog",
		Short: "IPTV playlist catalog service",
		Long: `Loads an IPTV playlist (plain M3U or a panel account), classifies every
entry as live, movie or series, and serves the catalog over HTTP together with
quality preference, favorites and watch history.`,
		RunE: run,
	}

	// Source flags
	rootCmd.Flags().StringVar(&mode, "mode", mode, "Source mode (m3u, panel)")
	rootCmd.Flags().StringVar(&cfg.Source.URL, "url", "", "Playlist URL, or panel base URL in panel mode (required)")
	rootCmd.Flags().StringVar(&cfg.Source.Username, "username", "", "Panel username")
	rootCmd.Flags().StringVar(&cfg.Source.Password, "password", "", "Panel password")

	if err := rootCmd.MarkFlagRequired("url"); err != nil {
		log.WithError(err).Fatal("Failed to mark url flag as required")
	}

	// Server flags
	rootCmd.Flags().StringVar(&cfg.BindAddr, "bind", cfg.BindAddr, "Bind address")
	rootCmd.Flags().IntVar(&cfg.Port, "port", cfg.Port, "Port number")
	rootCmd.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	// Data flags
	rootCmd.Flags().DurationVar(&cfg.RefreshInterval, "refresh", cfg.RefreshInterval, "Catalog refresh interval")
	rootCmd.Flags().DurationVar(&cfg.FetchTimeout, "fetch-timeout", cfg.FetchTimeout, "Playlist fetch timeout")
	rootCmd.Flags().DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "Playlist response cache TTL (0 disables)")
	rootCmd.Flags().IntVar(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "Upstream requests per second (0 disables)")

	// State flags
	rootCmd.Flags().StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "Directory for preferences, favorites, history and playlist cache")
	rootCmd.Flags().StringVar(&cfg.Quality, "quality", cfg.Quality, "Default stream quality (auto, 1080p, 720p, 480p)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	// Configure logger
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	cfg.Source.Mode = config.Mode(mode)

	// Validate config
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"mode":      cfg.Source.Mode,
		"url":       cfg.Source.URL,
		"state_dir": cfg.StateDir,
	}).Info("Starting IPTV catalog")

	// Create and start server
	srv := server.NewServer(log, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		return err
	}

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Received shutdown signal")

	return srv.Stop()
}
