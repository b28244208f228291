package main

import (
	"context"

	"feedserv/src/app"
	cfg "feedserv/src/configuration"
	"feedserv/src/logger"
	"feedserv/src/server"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := cfg.ReadProperties()
		if err != nil {
			return err
		}
		log := logger.New(config.LogLevel, config.LogFormat)
		if config.LogLevel != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx := context.Background()
		uploader, err := newUploader(ctx, config, log)
		if err != nil {
			return err
		}
		store, closeStore, err := newRowStore(ctx, config)
		if err != nil {
			return err
		}
		defer closeStore()

		log.Info("components ready",
			"storage", config.Storage.Backend,
			"credential_cache", config.CredCache.Backend,
			"sheet", config.Sheet.Backend)

		pipeline := app.NewPipeline(newNormalizer(config.Image), uploader, log)
		registrar := app.NewRegistrar(store, config.Sheet.Author, config.Sheet.Location(), log)
		handler := server.NewHandler(pipeline, registrar, config.Server.StaticDir, config.Server.MaxMultipartMB<<20, log)
		return server.RunServer(config, handler, log)
	},
}
