package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	repo "github.com/phenrril/tiendavirtual/internal/adapters/repo/postgres"
	"github.com/phenrril/tiendavirtual/internal/app"
	"github.com/phenrril/tiendavirtual/internal/config"
)

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if lvl, err := zerolog.ParseLevel(cfg.App.LogLevel); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}
	if !cfg.IsProduction() {
		zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	}
	zerolog.DefaultContextLogger = &zlog.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("configuración inválida")
	}
	setupLogger(cfg)

	gormLevel := gormlogger.Warn
	if cfg.App.LogLevel == "debug" {
		gormLevel = gormlogger.Info
	}
	db, err := gorm.Open(postgres.Open(cfg.Database.PostgresDSN()), &gorm.Config{Logger: repo.NewZeroLogger(gormLevel)})
	if err != nil {
		zlog.Fatal().Err(err).Msg("no se pudo conectar a la base de datos")
	}

	application, err := app.NewApp(cfg, db)
	if err != nil {
		zlog.Fatal().Err(err).Msg("no se pudo crear la app")
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.MigrateAndSeed(ctx); err != nil {
		zlog.Fatal().Err(err).Msg("falló la migración")
	}

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           application.HTTPHandler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		zlog.Info().Str("addr", server.Addr).Str("env", cfg.App.Env).Msg("servidor escuchando")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error().Err(err).Msg("servidor detenido")
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("apagado forzado")
	}
	zlog.Info().Msg("servidor apagado")
}
