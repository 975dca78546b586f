// Command answerengine runs the HTTP/SSE answer engine server (spec.md
// §6.1): it wires the Query Planner, Parallel Searcher, Page Extractor,
// Feature Tagger, Ranker, Bandit/Event Store, and Synthesizer behind the
// external HTTP surface, and serves it until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/answerengine/internal/cache"
	"github.com/hyperifyio/answerengine/internal/config"
	"github.com/hyperifyio/answerengine/internal/eventstore"
	"github.com/hyperifyio/answerengine/internal/extract"
	"github.com/hyperifyio/answerengine/internal/fetch"
	"github.com/hyperifyio/answerengine/internal/httpapi"
	"github.com/hyperifyio/answerengine/internal/httpclient"
	"github.com/hyperifyio/answerengine/internal/llm"
	"github.com/hyperifyio/answerengine/internal/planner"
	"github.com/hyperifyio/answerengine/internal/robots"
	"github.com/hyperifyio/answerengine/internal/search"
	"github.com/hyperifyio/answerengine/internal/synth"
	"github.com/hyperifyio/answerengine/internal/tagger"
)

const userAgent = "answerengine/1.0 (+https://github.com/hyperifyio/answerengine)"

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := config.Default()
	if err := config.LoadFile(os.Getenv("CONFIG_FILE"), &cfg); err != nil {
		log.Fatal().Err(err).Msg("answerengine: failed to load config file")
	}
	config.ApplyEnv(&cfg)

	flag.IntVar(&cfg.ListenPort, "port", cfg.ListenPort, "HTTP listen port")
	flag.StringVar(&cfg.WebOrigin, "web.origin", cfg.WebOrigin, "Allowed CORS origin for the web client")
	flag.StringVar(&cfg.SearxURL, "searx.url", cfg.SearxURL, "SearxNG base URL")
	flag.StringVar(&cfg.LLMBaseURL, "llm.base", cfg.LLMBaseURL, "OpenAI-compatible base URL")
	flag.StringVar(&cfg.LLMModel, "llm.model", cfg.LLMModel, "Model name")
	flag.StringVar(&cfg.CacheDir, "cache.dir", cfg.CacheDir, "On-disk cache directory for fetched pages and robots.txt")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	flag.Parse()

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	srv := buildServer(cfg)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ListenPort),
		Handler: srv.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Int("port", cfg.ListenPort).Msg("answerengine: listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("answerengine: server failed")
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("answerengine: graceful shutdown failed")
	}
}

func buildServer(cfg config.Config) *httpapi.Server {
	httpCache := &cache.HTTPCache{Dir: cfg.CacheDir}

	outbound := httpclient.New()

	fetchHTTPClient := *outbound
	fetchHTTPClient.Timeout = cfg.FetchTimeout
	fetchClient := &fetch.Client{
		HTTPClient:        &fetchHTTPClient,
		UserAgent:         userAgent,
		MaxAttempts:       3,
		PerRequestTimeout: cfg.FetchTimeout,
		Cache:             httpCache,
		MaxConcurrent:     cfg.SearchConcurrency,
	}

	robotsHTTPClient := *outbound
	robotsHTTPClient.Timeout = cfg.FetchTimeout
	robotsManager := &robots.Manager{
		HTTPClient:  &robotsHTTPClient,
		Cache:       httpCache,
		UserAgent:   userAgent,
		EntryExpiry: time.Hour,
	}

	var chatClient llm.ChatClient
	if cfg.LLMAPIKey != "" || cfg.LLMBaseURL != "" {
		oaCfg := openai.DefaultConfig(cfg.LLMAPIKey)
		if cfg.LLMBaseURL != "" {
			oaCfg.BaseURL = cfg.LLMBaseURL
		}
		chatClient = &llm.OpenAIProvider{Inner: openai.NewClientWithConfig(oaCfg)}
	}

	searchHTTPClient := *outbound
	searchHTTPClient.Timeout = cfg.SearchTimeout
	searchProvider := search.Provider(&search.SearxNG{
		BaseURL:    cfg.SearxURL,
		APIKey:     cfg.SearchAPIKey,
		HTTPClient: &searchHTTPClient,
		UserAgent:  userAgent,
	})

	return &httpapi.Server{
		Planner:        &planner.LLMPlanner{Client: chatClient, Model: cfg.LLMModel, Verbose: cfg.Verbose},
		SearchProvider: searchProvider,
		PageFetcher: &extract.PageFetcher{
			HTTP:      fetchClient,
			Robots:    robotsManager,
			UserAgent: userAgent,
		},
		Tagger:               &tagger.LLMTagger{Client: chatClient, Model: cfg.LLMModel, Verbose: cfg.Verbose},
		Synthesizer:          &synth.Synthesizer{Client: chatClient, Model: cfg.LLMModel, Verbose: cfg.Verbose},
		Events:               eventstore.New(),
		WebOrigin:            cfg.WebOrigin,
		PendingImpressionTTL: cfg.PendingImpressionTimeout,
	}
}
