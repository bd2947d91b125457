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

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/peraluna/trip-planner-api/internal/platform/auth/jwtverifier"
	"github.com/peraluna/trip-planner-api/internal/platform/config"
)

// Dev-only HS256 token issuer.
//
// It signs with the same JWT_ISSUER / JWT_AUDIENCE / JWT_SECRET the API verifies with,
// so a locally running API in AUTH_MODE=jwt accepts its tokens.

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:           "devjwt",
		Short:         "Mint development bearer tokens for the trip planner API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to JWT_TTL)")

	cmd.AddCommand(&cobra.Command{
		Use:   "mint <subject>",
		Short: "Print a token for subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(ttl)
			if err != nil {
				return err
			}
			tok, err := jwtverifier.Mint(cfg, strings.TrimSpace(args[0]), time.Now().UTC(), cfg.TTL)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	})

	var port string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve GET /token?sub=<subject>",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(ttl)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, port)
		},
	}
	serveCmd.Flags().StringVar(&port, "port", "5556", "listen port")
	cmd.AddCommand(serveCmd)

	return cmd
}

func loadConfig(ttl time.Duration) (config.JWTConfig, error) {
	_ = godotenv.Load()
	cfg, err := config.LoadJWTConfigFromEnv()
	if err != nil {
		return config.JWTConfig{}, err
	}
	if ttl > 0 {
		cfg.TTL = ttl
	}
	return cfg, nil
}

func serve(parent context.Context, cfg config.JWTConfig, port string) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logrus.New()
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/token", func(w http.ResponseWriter, r *http.Request) {
		sub := strings.TrimSpace(r.URL.Query().Get("sub"))
		if sub == "" {
			http.Error(w, "missing sub", http.StatusBadRequest)
			return
		}
		now := time.Now().UTC()
		token, err := jwtverifier.Mint(cfg, sub, now, cfg.TTL)
		if err != nil {
			log.WithError(err).Error("mint token")
			http.Error(w, "failed to mint token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": token,
			"sub":   sub,
			"iss":   cfg.Issuer,
			"aud":   cfg.Audience,
			"exp":   now.Add(cfg.TTL).Unix(),
		})
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithFields(logrus.Fields{"port": port, "iss": cfg.Issuer, "aud": cfg.Audience, "ttl": cfg.TTL}).Info("devjwt listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
