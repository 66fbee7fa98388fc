package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iwvelando/bid-estimator/internal/server"
	"github.com/iwvelando/bid-estimator/pkg/constants"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type serveCmd struct {
	app           *app
	serverConfig  string
	address       string
	maxUploadSize string
}

func newServeCmd(a *app) *cobra.Command {
	sc := &serveCmd{app: a}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the estimate API over HTTP",
		RunE:  sc.run,
	}

	cmd.Flags().StringVar(&sc.serverConfig, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	cmd.Flags().StringVar(&sc.address, "address", "", "listen address override, e.g. :8080")
	cmd.Flags().StringVar(&sc.maxUploadSize, "max-upload-size", "", "maximum detection reply size override, e.g. 512K")

	return cmd
}

func (sc *serveCmd) run(cmd *cobra.Command, _ []string) error {
	conf, err := sc.app.loadConfig()
	if err != nil {
		return err
	}

	serverCfg, err := server.LoadConfig(sc.serverConfig)
	if err != nil {
		return err
	}
	if sc.address != "" {
		serverCfg.Address = sc.address
	}
	if sc.maxUploadSize != "" {
		size, err := server.ParseSize(sc.maxUploadSize)
		if err != nil {
			return fmt.Errorf("invalid --max-upload-size: %w", err)
		}
		serverCfg.SetUploadSizeBytes(size)
	}

	// Server logging settings take precedence over the estimator's.
	loggingConfig := conf.Logging
	if serverCfg.Logging.Level != "" || serverCfg.Logging.Format != "" || serverCfg.Logging.OutputFile != "" {
		loggingConfig = serverCfg.Logging
	}
	logger, err := initializeLogger(loggingConfig, sc.app.logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "serve"),
		)
	}

	handler, err := server.NewHandler(logger, conf, serverCfg.UploadSizeBytes(), version)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("serving estimate API",
		zap.String("op", "serve"),
		zap.String("address", serverCfg.Address),
		zap.Int64("maxUploadSize", serverCfg.UploadSizeBytes()),
		zap.String("version", version),
	)
	return server.New(logger, serverCfg, handler).Run(ctx)
}
