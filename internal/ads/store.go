package ads

import (
	"bitwise74/reel-api/internal/model"
	"bitwise74/reel-api/pkg/apperr"
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// DBSource serves active campaigns from the database.
type DBSource struct {
	DB *gorm.DB
}

// Candidate picks an active campaign by weight. The pick is seeded by the
// viewing history so the same session sees a stable sequence.
func (s *DBSource) Candidate(ctx context.Context, history []string, exclude []string) (*Ad, error) {
	q := s.DB.WithContext(ctx).
		Where("active = ?", true).
		Order("id ASC")

	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}

	var campaigns []model.Campaign
	if err := q.Find(&campaigns).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch campaigns, %w", err)
	}

	c := pick(campaigns, history)
	if c == nil {
		return nil, nil
	}

	return &Ad{
		CampaignID: c.ID,
		Title:      c.Title,
		MediaURL:   c.MediaURL,
		ClickURL:   c.ClickURL,
	}, nil
}

func pick(campaigns []model.Campaign, history []string) *model.Campaign {
	var total uint64
	for _, c := range campaigns {
		total += uint64(max(c.Weight, 1))
	}

	if total == 0 {
		return nil
	}

	h := fnv.New64a()
	h.Write([]byte(strings.Join(history, ",")))
	n := h.Sum64() % total

	for i := range campaigns {
		w := uint64(max(campaigns[i].Weight, 1))
		if n < w {
			return &campaigns[i]
		}
		n -= w
	}

	return nil
}

// DBImpressions persists one row per served ad.
type DBImpressions struct {
	DB *gorm.DB
}

func (s *DBImpressions) Record(ctx context.Context, campaignID string) (string, error) {
	db := s.DB.WithContext(ctx)

	var c model.Campaign
	err := db.Where("id = ? AND active = ?", campaignID, true).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperr.NotFound("Campaign not found")
		}

		return "", fmt.Errorf("failed to fetch campaign, %w", err)
	}

	imp := model.AdImpression{
		ID:         ulid.Make().String(),
		CampaignID: c.ID,
	}

	if err := db.Create(&imp).Error; err != nil {
		return "", fmt.Errorf("failed to insert impression, %w", err)
	}

	return imp.ID, nil
}
