// Package notify records owner facing notifications and fans them out to
// other services over NATS.
package notify

import (
	"bitwise74/reel-api/internal/model"
	"crypto/rand"
	"fmt"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Persist inserts a notification inside tx. A row that already exists for
// the same video and type is left alone and reported as not inserted.
func Persist(tx *gorm.DB, userID, videoID, kind string) (bool, error) {
	id, err := ulid.New(ulid.Now(), rand.Reader)
	if err != nil {
		return false, fmt.Errorf("failed to generate notification id, %w", err)
	}

	res := tx.
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Notification{
			ID:      id.String(),
			UserID:  userID,
			VideoID: videoID,
			Type:    kind,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to insert notification, %w", res.Error)
	}

	return res.RowsAffected == 1, nil
}
