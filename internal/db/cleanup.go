package db

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// PurgeExpiredRooms deletes rooms whose TTL ended before cutoff together
// with everything that hangs off them. It returns the number of rooms removed.
func PurgeExpiredRooms(ctx context.Context, conn *gorm.DB, cutoff time.Time) (int64, error) {
	var removed int64
	err := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rooms := tx.Model(&Room{}).Select("id").Where("expires_at < ?", cutoff)
		games := tx.Model(&Game{}).Select("id").Where("room_id IN (?)", rooms)

		for _, model := range []any{&Guess{}, &GameSecret{}, &RematchVote{}} {
			if err := tx.Where("game_id IN (?)", games).Delete(model).Error; err != nil {
				return err
			}
		}
		for _, model := range []any{&RoomEvent{}, &RoomMessage{}, &RoomPlayer{}, &Game{}} {
			if err := tx.Where("room_id IN (?)", rooms).Delete(model).Error; err != nil {
				return err
			}
		}
		result := tx.Where("expires_at < ?", cutoff).Delete(&Room{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Info().Int64("count", removed).Msg("expired rooms purged")
	}
	return removed, nil
}
