//go:build integration

package db_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bulls-cows/internal/config"
	"bulls-cows/internal/db"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

var pgConn *gorm.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("bulls_cows"),
		postgres.WithUsername("bulls"),
		postgres.WithPassword("cows"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		panic(err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(err)
	}
	if err := applyMigrations(dsn); err != nil {
		panic(err)
	}

	cfg := config.Default()
	cfg.DatabaseURL = dsn
	pgConn, err = db.Open(cfg)
	if err != nil {
		panic(err)
	}

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func applyMigrations(dsn string) error {
	dir, err := filepath.Abs(filepath.Join("..", "..", "db", "migrations"))
	if err != nil {
		return err
	}
	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func TestPostgresSchemaMatchesModels(t *testing.T) {
	require.NoError(t, db.Migrate(pgConn))
}

func TestPostgresUniqueViolations(t *testing.T) {
	now := time.Now().UTC()
	room := db.Room{Code: "PGUNIQ", Status: "waiting_player", HostUserID: "u1", SpectatorCode: "K", MusicUpdatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, pgConn.Create(&room).Error)

	dup := db.Room{Code: "PGUNIQ", Status: "waiting_player", HostUserID: "u2", SpectatorCode: "K", MusicUpdatedAt: now, ExpiresAt: now.Add(time.Hour)}
	err := pgConn.Create(&dup).Error
	assert.True(t, db.IsUniqueViolation(err), "unexpected error %v", err)

	game := db.Game{RoomID: room.ID, RoundNo: 1, Status: "waiting_secrets"}
	require.NoError(t, pgConn.Create(&game).Error)
	err = pgConn.Create(&db.Game{RoomID: room.ID, RoundNo: 1, Status: "waiting_secrets"}).Error
	assert.True(t, db.IsUniqueViolation(err), "unexpected error %v", err)

	require.NoError(t, pgConn.Create(&db.Guess{GameID: game.ID, TurnNo: 1, GuesserSeat: 1, Guess: "1234"}).Error)
	err = pgConn.Create(&db.Guess{GameID: game.ID, TurnNo: 1, GuesserSeat: 2, Guess: "5678"}).Error
	assert.True(t, db.IsUniqueViolation(err), "unexpected error %v", err)

	require.NoError(t, pgConn.Create(&db.RoomPlayer{RoomID: room.ID, UserID: "u1", Seat: 1, DisplayName: "Ada", LastSeenAt: now}).Error)
	err = pgConn.Create(&db.RoomPlayer{RoomID: room.ID, UserID: "u2", Seat: 1, DisplayName: "Ben", LastSeenAt: now}).Error
	assert.True(t, db.IsUniqueViolation(err), "unexpected error %v", err)
}

func TestPostgresPurgeExpiredRooms(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	stale := db.Room{Code: "PGOLD1", Status: "finished", HostUserID: "u1", SpectatorCode: "K", MusicUpdatedAt: now, ExpiresAt: now.Add(-48 * time.Hour)}
	require.NoError(t, pgConn.Create(&stale).Error)
	game := db.Game{RoomID: stale.ID, RoundNo: 1, Status: "finished"}
	require.NoError(t, pgConn.Create(&game).Error)
	require.NoError(t, pgConn.Create(&db.RoomEvent{RoomID: stale.ID, GameID: &game.ID, Type: "game_finished", Payload: []byte(`{"winnerSeat":1}`), CreatedAt: now}).Error)

	removed, err := db.PurgeExpiredRooms(ctx, pgConn, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, removed, int64(1))

	var left int64
	require.NoError(t, pgConn.Model(&db.Room{}).Where("id = ?", stale.ID).Count(&left).Error)
	assert.Zero(t, left)
	require.NoError(t, pgConn.Model(&db.RoomEvent{}).Where("room_id = ?", stale.ID).Count(&left).Error)
	assert.Zero(t, left)
}
