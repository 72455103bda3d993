package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/githulk/pkg/client"
	"github.com/Sternrassler/githulk/pkg/hulk"
	"github.com/Sternrassler/githulk/pkg/logging"
	"github.com/Sternrassler/githulk/pkg/metrics"
	"github.com/Sternrassler/githulk/pkg/options"
)

func main() {
	logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getEnv("LOG_PRETTY", "") != "",
		Output: os.Stderr,
	})

	// Configuration from environment
	redisURL := getEnv("REDIS_URL", "localhost:6379")
	port := getEnv("PORT", "8080")
	userAgent := getEnv("USER_AGENT", "githulk-proxy/0.1.0")

	redisClient := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", redisURL).Msg("Failed to connect to Redis")
	}
	log.Info().Str("addr", redisURL).Msg("Connected to Redis")

	cfg := hulk.DefaultConfig(redisClient, userAgent)
	cfg.BaseURL = getEnv("GITHUB_API_URL", client.DefaultBaseURL)
	cfg.Tokens = splitList(getEnv("GITHUB_TOKENS", ""))
	cfg.DefaultUser = getEnv("GITHUB_DEFAULT_USER", "")

	gh, err := hulk.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create GitHub client")
	}
	defer gh.Close()

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           newMux(gh, redisClient),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("addr", server.Addr).
		Str("user_agent", userAgent).
		Int("tokens", len(cfg.Tokens)).
		Msg("Starting GitHub proxy server")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
	log.Info().Msg("Server stopped")
}

func newMux(gh *hulk.Client, redisClient *redis.Client) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", readyHandler(redisClient, gh))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /repos/{owner}/{repo}/{resource}", collectionHandler(gh))
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func readyHandler(redisClient *redis.Client, gh *hulk.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if err := gh.Ping(ctx); err != nil {
			http.Error(w, "cache unavailable", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

type collectFunc func(ctx context.Context, call hulk.Call) ([]json.RawMessage, error)

// collectionHandler serves the merged pages of a repository collection.
// Query parameters other than nofollow are passed through to GitHub.
func collectionHandler(gh *hulk.Client) http.HandlerFunc {
	resources := map[string]collectFunc{
		"issues": gh.Issues.Repository,
		"pulls":  gh.Pulls.List,
		"labels": gh.Labels.List,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		collect, ok := resources[r.PathValue("resource")]
		if !ok {
			http.Error(w, "unknown resource", http.StatusNotFound)
			return
		}

		params := r.URL.Query()
		noFollow := params.Get("nofollow") == "1" || params.Get("nofollow") == "true"
		params.Del("nofollow")

		ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
		defer cancel()

		records, err := collect(ctx, hulk.Call{
			Target: r.PathValue("owner") + "/" + r.PathValue("repo"),
			Options: hulk.Options{
				Params:   params,
				NoFollow: noFollow,
			},
		})
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		if records == nil {
			records = []json.RawMessage{}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Total-Count", fmt.Sprint(len(records)))
		if err := json.NewEncoder(w).Encode(records); err != nil {
			log.Warn().Err(err).Msg("Failed to write response")
		}
	}
}

func statusFor(err error) int {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.StatusCode
	case errors.Is(err, client.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, options.ErrMissingParameter):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
