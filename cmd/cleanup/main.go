package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bulls-cows/internal/config"
	"bulls-cows/internal/db"
	"bulls-cows/internal/logging"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func main() {
	grace := flag.Duration("grace", time.Hour, "keep rooms this long past their expiry before purging")
	interval := flag.Duration("interval", 0, "repeat the purge on this interval; zero runs once")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()
	logging.Setup(cfg.LogLevel)

	conn, err := db.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := purge(ctx, conn, *grace); err != nil {
		log.Fatal().Err(err).Msg("purge failed")
	}
	if *interval <= 0 {
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := purge(ctx, conn, *grace); err != nil {
				log.Error().Err(err).Msg("purge failed")
			}
		}
	}
}

func purge(ctx context.Context, conn *gorm.DB, grace time.Duration) error {
	cutoff := time.Now().UTC().Add(-grace)
	removed, err := db.PurgeExpiredRooms(ctx, conn, cutoff)
	if err != nil {
		return err
	}
	log.Debug().Int64("removed", removed).Time("cutoff", cutoff).Msg("purge pass finished")
	return nil
}
