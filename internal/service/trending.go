package service

import (
	"bitwise74/reel-api/internal/model"
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const trendingBatch = 500

// TrendingScore weighs engagement against age in hours. Shares count the
// most, views the least.
func TrendingScore(views, likes, comments, shares int64, ageHours, gravity float64) float64 {
	engagement := float64(views + 2*likes + 3*comments + 4*shares)
	return engagement / math.Pow(max(ageHours, 0)+2, gravity)
}

// TrendingRefresh periodically recomputes trending_score for every ready
// video. It stops when ctx is cancelled.
func TrendingRefresh(ctx context.Context, t time.Duration, db *gorm.DB, gravity float64) {
	ticker := time.NewTicker(t)

	zap.L().Debug("Trending refresh attached", zap.Duration("tick_every", t))

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				n, err := RefreshTrending(ctx, db, now, gravity)
				if err != nil {
					zap.L().Error("Failed to refresh trending scores", zap.Error(err))
					continue
				}

				zap.L().Debug("Trending scores refreshed", zap.Int("videos", n))
			}
		}
	}()
}

type engagementRow struct {
	ID        string
	Views     int64
	Likes     int64
	Comments  int64
	Shares    int64
	CreatedAt int64
}

// RefreshTrending runs one pass and returns how many videos were scored.
func RefreshTrending(ctx context.Context, db *gorm.DB, now time.Time, gravity float64) (int, error) {
	db = db.WithContext(ctx)

	var (
		total int
		last  string
	)

	for {
		var rows []engagementRow

		err := db.
			Model(&model.Video{}).
			Select("id", "views", "likes", "comments", "shares", "created_at").
			Where("status = ? AND id > ?", model.StatusReady, last).
			Order("id ASC").
			Limit(trendingBatch).
			Find(&rows).
			Error
		if err != nil {
			return total, fmt.Errorf("failed to fetch videos to score, %w", err)
		}

		if len(rows) == 0 {
			return total, nil
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			for _, r := range rows {
				age := now.Sub(time.UnixMilli(r.CreatedAt)).Hours()
				score := TrendingScore(r.Views, r.Likes, r.Comments, r.Shares, age, gravity)

				err := tx.Model(&model.Video{}).
					Where("id = ?", r.ID).
					UpdateColumn("trending_score", score).
					Error
				if err != nil {
					return fmt.Errorf("failed to update score of %s, %w", r.ID, err)
				}
			}

			return nil
		})
		if err != nil {
			return total, err
		}

		total += len(rows)
		last = rows[len(rows)-1].ID

		if len(rows) < trendingBatch {
			return total, nil
		}
	}
}
