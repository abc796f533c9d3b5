package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slackr-server/config"
	"slackr-server/handlers"
	"slackr-server/middleware"
	"slackr-server/store"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const version = "0.1.0"

func main() {
	app := &cli.App{
		Name:    "slackr",
		Usage:   "slackr message server and reaction client",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				Value:   "slackr.toml",
				EnvVars: []string{"SLACKR_CONFIG"},
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			setupLogger(cfg)
			c.App.Metadata = map[string]interface{}{"config": cfg}
			return nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			loginCommand(),
			logoutCommand(),
			channelsCommand(),
			messagesCommand(),
			reactCommand("react", "Add your reaction to a message", false),
			reactCommand("unreact", "Remove your reaction from a message", true),
			toggleCommand(),
			showCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func appConfig(c *cli.Context) *config.Config {
	return c.App.Metadata["config"].(*config.Config)
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.DefaultContextLogger = &log.Logger

	if cfg.Log.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		zerolog.DefaultContextLogger = &log.Logger
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP and websocket server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", Usage: "listen port (overrides server.port)"},
		},
		Action: func(c *cli.Context) error {
			cfg := appConfig(c)
			port := cfg.Server.Port
			if c.IsSet("port") {
				port = c.String("port")
			}

			middleware.JWTSecret = []byte(cfg.Auth.JWTSecret)
			if cfg.Auth.TokenTTL > 0 {
				middleware.TokenTTL = cfg.Auth.TokenTTL
			}

			s, err := store.NewWithReacts(cfg.DB.Path, cfg.DB.ReactIDs)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer s.Close()

			hub := handlers.NewHub(s)
			go hub.Run()

			srv := &http.Server{
				Addr:              ":" + port,
				Handler:           handlers.NewRouter(s, hub, cfg.Server.CORSOrigins),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", srv.Addr).Str("db", cfg.DB.Path).Ints("react_ids", s.ReactIDs()).Msg("slackr server starting")
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

			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
