package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/daily-verse/internal/config"
	"github.com/tbourn/daily-verse/internal/domain"
	httpapi "github.com/tbourn/daily-verse/internal/http"
	"github.com/tbourn/daily-verse/internal/observability"
	"github.com/tbourn/daily-verse/internal/repo"
	"github.com/tbourn/daily-verse/internal/sysutil"
)

const shutdownTimeout = 10 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Port string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Long: `Run the web server. Configuration comes from the environment (and the
dotenv file); --port overrides PORT.

The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Port, "port", "p", "", "listen port (overrides PORT)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	cfg.Port = sysutil.FirstNonEmpty(opts.Port, cfg.Port)

	sysutil.SetLogLevel(cfg.LogLevel)
	log.Logger = sysutil.NewLogger(cmd.ErrOrStderr(), cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	if cfg.UsesDefaultSecret() {
		log.Warn().Msg("SESSION_SECRET is not set; sessions are signed with the default secret")
	}

	ctx := cmd.Context()
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, Version)
	if err != nil {
		return WrapExitError(ExitFailure, "setup tracing", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Error().Err(err).Msg("otel shutdown")
		}
	}()

	srv, err := newServer(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "build server", err)
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return WrapExitError(ExitFailure, "listen", err)
	}
	return serve(ctx, srv, ln)
}

// newServer builds the HTTP server over the configured flat files.
func newServer(cfg config.Config) (*http.Server, error) {
	r := gin.New()
	stores := httpapi.Stores{
		Verses:   repo.NewJSONFile[domain.Verse](cfg.VersesPath),
		Requests: repo.NewJSONFile[domain.PrayerRequest](cfg.RequestsPath),
	}
	if err := httpapi.RegisterRoutes(r, stores, cfg); err != nil {
		return nil, err
	}

	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}, nil
}

// serve runs srv on ln until ctx is done, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Str("version", Version).Msg("server listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return WrapExitError(ExitFailure, "server", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return WrapExitError(ExitFailure, "shutdown", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return WrapExitError(ExitFailure, "server", err)
	}
	log.Info().Msg("server stopped")
	return nil
}
