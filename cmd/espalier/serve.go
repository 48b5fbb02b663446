package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/internal/config"
	"github.com/aretw0/espalier/internal/logging"
	espredis "github.com/aretw0/espalier/pkg/adapters/redis"
	"github.com/aretw0/espalier/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the flow HTTP server",
	Long:  `Starts the espalier engine in server mode, serving the built-in demo flow over HTTP.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Addr = addr
		}

		logger := buildLogger(cfg)

		reg := demoRegistry(cfg)

		promReg := prometheus.NewRegistry()
		metrics := observability.NewMetrics(promReg)

		opts := []espalier.Option{
			espalier.WithLogger(logger),
			espalier.WithMetrics(metrics),
		}
		if cfg.Redis != nil {
			store := espredis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
				espredis.WithTTL(time.Duration(cfg.Redis.TTL)))
			opts = append(opts, espalier.WithStore(store))
			if cfg.Redis.Lock {
				opts = append(opts, espalier.WithLocker(store.Locker()))
			}
		}

		app, err := espalier.New(reg, opts...)
		if err != nil {
			fmt.Printf("Error initializing espalier: %v\n", err)
			os.Exit(1)
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
		mux.HandleFunc("/welcome", welcomeHandler)
		mux.Handle("/", app.Handler())

		srv := &http.Server{
			Addr:    cfg.Addr,
			Handler: mux,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("starting espalier server", "addr", srv.Addr, "base_path", cfg.BasePath)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			logger.Info("starting shutdown", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			logger.Info("espalier server stopped")
		}
	},
}

func loadConfig(cmd *cobra.Command) *config.Config {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func buildLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	if cfg.LogJSON {
		return logging.NewJSON(os.Stderr, level)
	}
	return logging.New(level)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on (overrides config)")
}
