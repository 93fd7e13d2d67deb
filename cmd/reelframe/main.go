package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/reelframe/reelframe/internal/api"
	"github.com/reelframe/reelframe/internal/artwork"
	"github.com/reelframe/reelframe/internal/config"
	"github.com/reelframe/reelframe/internal/imdb"
	"github.com/reelframe/reelframe/internal/logger"
	"github.com/reelframe/reelframe/internal/probe"
	"github.com/reelframe/reelframe/internal/rank"
	"github.com/reelframe/reelframe/internal/search"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	title := flag.String("title", "", "Film title to fetch artwork for (prompts when empty)")
	serve := flag.Bool("serve", false, "Run the HTTP API server instead of a one-shot fetch")
	flag.Parse()

	// Local overrides for development; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Path:       cfg.Logging.Path,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	defer log.Close()

	log.Info().
		Str("version", config.Version).
		Str("logLevel", cfg.Logging.Level).
		Msg("starting ReelFrame")

	service := buildService(cfg, log)

	if *serve {
		runServer(cfg, service, log)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	query := strings.TrimSpace(*title)
	if query == "" {
		query = promptTitle()
	}
	if query == "" {
		fmt.Fprintln(os.Stderr, "no title given")
		os.Exit(1)
	}

	if err := runFetch(ctx, cfg, service, query); err != nil {
		log.Error().Err(err).Str("title", query).Msg("fetch failed")
		os.Exit(1)
	}
}

// buildService wires the full fetch pipeline from configuration: a shared
// HTTP client, the IMDb resolver, the prioritized search sources, the probe
// layer and the ranking engine.
func buildService(cfg *config.Config, log *logger.Logger) *artwork.Service {
	timeout := time.Duration(cfg.Client.TimeoutSeconds) * time.Second
	httpClient := &http.Client{Timeout: timeout}

	resolver := imdb.NewClient(httpClient, cfg.Client.UserAgent, log.Logger)
	prober := probe.New(timeout, cfg.Client.UserAgent, log.Logger)

	rules := []search.SourceRule{
		{Provider: search.NewUnsplashProvider(httpClient, cfg.Client.UserAgent, log.Logger), Cap: cfg.Sources.UnsplashCap},
		{Provider: search.NewGoogleProvider(httpClient, cfg.Client.UserAgent, log.Logger), Cap: cfg.Sources.GoogleCap, SkipAt: cfg.Sources.SkipGoogleAt},
		{Provider: search.NewDuckDuckGoProvider(httpClient, cfg.Client.UserAgent, log.Logger), Cap: cfg.Sources.DuckCap, SkipAt: cfg.Sources.SkipDuckAt},
		{Provider: search.NewBingProvider(httpClient, cfg.Client.UserAgent, log.Logger), Cap: cfg.Sources.BingCap, SkipAt: cfg.Sources.SkipBingAt},
	}
	collector := search.NewOrchestrator(rules, log.Logger)

	engine := rank.New(prober, rank.Params{
		MinWidth:          cfg.Landscape.MinWidth,
		MinAspect:         cfg.Landscape.MinAspect,
		TargetAspect:      cfg.Landscape.TargetAspect,
		AspectWeight:      cfg.Landscape.AspectWeight,
		ColorNormalizer:   cfg.Landscape.ColorNormalizer,
		ColorFailPenalty:  cfg.Landscape.ColorFailPenalty,
		EarlyExitScore:    cfg.Landscape.EarlyExitScore,
		EarlyExitMinValid: cfg.Landscape.EarlyExitMinValid,
		MaxProbes:         cfg.Landscape.MaxProbes,
	}, log.Logger)

	return artwork.NewService(resolver, collector, engine, prober, artwork.Config{
		MinPosterHeight: cfg.Poster.MinHeight,
	}, log.Logger)
}

// runFetch performs a one-shot fetch and writes the artifacts to the
// configured output directories. Partial success still saves what was found.
func runFetch(ctx context.Context, cfg *config.Config, service *artwork.Service, title string) error {
	result, err := service.Fetch(ctx, title)
	if err != nil {
		return err
	}

	saved, err := artwork.Save(result, artwork.SaveOptions{
		PosterDir:    cfg.Output.PosterDir,
		LandscapeDir: cfg.Output.LandscapeDir,
	})
	if err != nil {
		return err
	}

	if saved.PosterPath != "" {
		fmt.Printf("poster: %s\n", saved.PosterPath)
	} else {
		fmt.Println("poster: not found")
	}
	if saved.LandscapePath != "" {
		fmt.Printf("landscape: %s\n", saved.LandscapePath)
	} else {
		fmt.Println("landscape: not found")
	}

	return nil
}

// promptTitle asks for a title on stdout and reads one line from stdin.
// Logging goes to stderr so the prompt stays readable.
func promptTitle() string {
	fmt.Print("Film title: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

// runServer starts the HTTP API and blocks until a shutdown signal arrives.
func runServer(cfg *config.Config, service *artwork.Service, log *logger.Logger) {
	server := api.NewServer(service, cfg, log.Logger)
	server.SetLogsProvider(log)

	go func() {
		addr := cfg.Server.Address()
		log.Info().Str("address", addr).Msg("HTTP server listening")
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("server stopped")
}
