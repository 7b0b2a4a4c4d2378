package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/interview-judge/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept candidate media uploads over HTTP",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		serve(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "listen address (default from server.listen)")
}

func serve(cmd *cobra.Command) {
	ctx := cmd.Context()
	config, logger := setup()

	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		config.Server.Listen = listen
	}

	s, err := newStores(config.Storage)
	if err != nil {
		logger.Fatal("opening stores", zap.Error(err))
	}

	reg, err := openRegistry(ctx, config, logger)
	if err != nil {
		logger.Fatal("opening the registry", zap.Error(err))
	}
	defer reg.Close()

	manager, err := newPool(config, s, nil, logger)
	if err != nil {
		logger.Fatal("building the pool manager", zap.Error(err))
	}

	srv, err := server.New(config.Server, server.Deps{
		Media:      s.fs,
		MediaDir:   config.Storage.Media,
		Registry:   reg,
		Candidates: manager,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal("building the server", zap.Error(err))
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}
