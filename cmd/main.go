package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/azaliaz/bookverse/internal/config"
	"github.com/azaliaz/bookverse/internal/logger"
	"github.com/azaliaz/bookverse/internal/server"
	"github.com/azaliaz/bookverse/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.ReadConfig()
	if err != nil {
		log.Fatal(err)
	}
	log := logger.Get(cfg.Debug)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer cancel()

	log.Debug().Any("cfg", cfg).Send()

	stor := openStorage(ctx, cfg, log)
	defer func() {
		if err := stor.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("close storage failed")
		}
	}()

	serv := server.New(*cfg, stor)
	group, gCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return serv.Run(gCtx)
	})
	group.Go(func() error {
		<-gCtx.Done()
		log.Debug().Msg("ctx cancel; shutting down")
		shCtx, shCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shCancel()
		return serv.ShutdownServer(shCtx)
	})

	if err = group.Wait(); err != nil {
		log.Info().Str("stoping reason", err.Error()).Msg("server stopped")
		return
	}
	log.Info().Msg("server stopped")
}

// openStorage connects the backend named by the DSN. An unreachable
// database degrades to the in-memory store so the API still comes up.
func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) server.Storage {
	switch cfg.StorageKind() {
	case config.StoragePostgres:
		if err := storage.Migrations(cfg.DBDsn, cfg.MigratePath); err != nil {
			log.Fatal().Err(err).Msg("migrations failed")
		}
		db, err := storage.NewDB(ctx, cfg.DBDsn)
		if err != nil {
			log.Error().Err(err).Msg("connecting to postgres failed, using memory storage")
			return storage.New()
		}
		log.Info().Msg("using postgres storage")
		return db
	case config.StorageMongo:
		mgs, err := storage.NewMongo(ctx, cfg.DBDsn, cfg.DBName)
		if err != nil {
			log.Error().Err(err).Msg("connecting to mongo failed, using memory storage")
			return storage.New()
		}
		if err = mgs.EnsureIndexes(ctx); err != nil {
			log.Error().Err(err).Msg("create mongo indexes failed")
		}
		log.Info().Str("db", cfg.DBName).Msg("using mongo storage")
		return mgs
	default:
		log.Info().Msg("using memory storage")
		return storage.New()
	}
}
