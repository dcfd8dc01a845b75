package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mbbill/samply-for-ai/internal/config"
	"github.com/mbbill/samply-for-ai/internal/httpapi"
	"github.com/mbbill/samply-for-ai/internal/logging"
	"github.com/mbbill/samply-for-ai/internal/profile"
	"github.com/mbbill/samply-for-ai/internal/session"
)

func newServeCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve <profile-file>",
		Short: "Decode a profile and serve query endpoints over HTTP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(args[0], host, port)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides config default)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config default when nonzero; a port of 0 picks any free port)")
	return cmd
}

func runServe(profilePath, host string, port int) error {
	loader := config.NewLoader()
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if host != "" {
		cfg.Host = host
	}
	if port != 0 {
		cfg.Port = port
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	logger := logging.NewWithComponent(logCfg, "serve")

	model, err := profile.DecodeFile(profilePath)
	if err != nil {
		return fmt.Errorf("decode profile: %w", err)
	}

	token, err := httpapi.GenerateToken(24)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}

	// Bind up front so the advertised port is the one actually listening,
	// even when cfg.Port is 0 ("pick any free port").
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	cfg.Port = listener.Addr().(*net.TCPAddr).Port
	_ = listener.Close()

	srv := httpapi.New(httpapi.Options{
		ProfilePath: profilePath,
		Token:       token,
		Config:      cfg,
		Model:       model,
		Logger:      logger,
	})
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	sess := session.New(srv.URL(), profilePath)
	if err := sess.Save(loader.SessionPath()); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	logger.Info().Str("url", srv.URL()).Str("profile", profilePath).Msg("samply server ready")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("error during shutdown")
	}
	if err := session.Remove(loader.SessionPath()); err != nil {
		logger.Warn().Err(err).Msg("error removing session file")
	}
	return nil
}
