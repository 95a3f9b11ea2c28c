// Package feed assembles ranked, paginated pages of ready videos.
package feed

import (
	"bitwise74/reel-api/internal/metrics"
	"bitwise74/reel-api/internal/model"
	"bitwise74/reel-api/pkg/apperr"
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Mode string

const (
	ModeTrending     Mode = "trending"
	ModePersonalized Mode = "personalized"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeTrending, ModePersonalized:
		return m, nil
	default:
		return "", apperr.Validation("Feed mode must be trending or personalized")
	}
}

type Query struct {
	Mode     Mode
	CallerID string
	Cursor   string
	Limit    int
}

type Item struct {
	model.Video

	LikedByCaller   bool    `json:"liked"`
	FollowingAuthor bool    `json:"following_author"`
	Score           float64 `json:"-"`
}

type Page struct {
	Items      []Item  `json:"results"`
	NextCursor *string `json:"nextCursor"`
	HasMore    bool    `json:"hasMore"`
}

type Options struct {
	DefaultLimit  int
	MaxLimit      int
	AffinityBoost float64
}

type Engine struct {
	db   *gorm.DB
	opts Options
}

func NewEngine(db *gorm.DB, o Options) *Engine {
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = 10
	}

	if o.MaxLimit < o.DefaultLimit {
		o.MaxLimit = o.DefaultLimit
	}

	return &Engine{db: db, opts: o}
}

func (e *Engine) limit(n int) int {
	switch {
	case n <= 0:
		return e.opts.DefaultLimit
	case n > e.opts.MaxLimit:
		return e.opts.MaxLimit
	default:
		return n
	}
}

type rankedRow struct {
	model.Video
	Score float64 `gorm:"column:score"`
}

// GetFeed returns one page. Every filter runs in SQL before the limit so
// a page is never short because of rows dropped afterwards.
func (e *Engine) GetFeed(ctx context.Context, q Query) (*Page, error) {
	if q.Mode != ModeTrending && q.Mode != ModePersonalized {
		return nil, apperr.Validation("Feed mode must be trending or personalized")
	}

	cur, err := DecodeCursor(q.Cursor)
	if err != nil {
		return nil, err
	}

	limit := e.limit(q.Limit)
	db := e.db.WithContext(ctx)

	query := db.Table("(?) AS ranked", e.ranked(db, q))
	if cur != nil {
		query = query.Where(
			"score < ? OR (score = ? AND (created_at < ? OR (created_at = ? AND id < ?)))",
			cur.Score, cur.Score, cur.CreatedAt, cur.CreatedAt, cur.ID,
		)
	}

	var rows []rankedRow
	err = query.
		Order("score DESC").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit + 1).
		Find(&rows).
		Error
	if err != nil {
		zap.L().Error("Failed to query feed", zap.String("mode", string(q.Mode)), zap.Error(err))
		return nil, apperr.Internal("failed to query feed", err)
	}

	page := &Page{Items: make([]Item, 0, min(len(rows), limit))}

	if len(rows) > limit {
		page.HasMore = true
		rows = rows[:limit]
	}

	for _, r := range rows {
		page.Items = append(page.Items, Item{Video: r.Video, Score: r.Score})
	}

	if err := e.enrich(db, q.CallerID, page.Items); err != nil {
		zap.L().Error("Failed to enrich feed page", zap.Error(err))
		return nil, apperr.Internal("failed to enrich feed", err)
	}

	if page.HasMore {
		last := page.Items[len(page.Items)-1]
		next := Cursor{Score: last.Score, CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
		page.NextCursor = &next
	}

	metrics.FeedPages.WithLabelValues(string(q.Mode)).Inc()

	return page, nil
}

// ranked builds the eligible rows with their score column.
func (e *Engine) ranked(db *gorm.DB, q Query) *gorm.DB {
	score := "videos.trending_score"
	args := []any{}

	if q.Mode == ModePersonalized {
		score = `videos.trending_score
			+ CASE WHEN EXISTS (
				SELECT 1 FROM follows f
				WHERE f.follower_id = ? AND f.followee_id = videos.user_id
			) THEN ? ELSE 0 END
			+ CASE WHEN EXISTS (
				SELECT 1 FROM likes l JOIN videos lv ON lv.id = l.video_id
				WHERE l.user_id = ? AND lv.user_id = videos.user_id AND lv.id <> videos.id
			) THEN ? ELSE 0 END`
		args = append(args, q.CallerID, e.opts.AffinityBoost, q.CallerID, e.opts.AffinityBoost/2)
	}

	return db.
		Model(&model.Video{}).
		Select(fmt.Sprintf("videos.*, (%s) AS score", score), args...).
		Where("videos.status = ?", model.StatusReady).
		Where("videos.visibility = ? OR videos.user_id = ?", model.VisibilityPublic, q.CallerID).
		Where(`NOT EXISTS (
			SELECT 1 FROM blocks b
			WHERE (b.blocker_id = ? AND b.blocked_id = videos.user_id)
			   OR (b.blocker_id = videos.user_id AND b.blocked_id = ?)
		)`, q.CallerID, q.CallerID)
}

// enrich sets the per caller flags with one query per relation.
func (e *Engine) enrich(db *gorm.DB, callerID string, items []Item) error {
	if len(items) == 0 || callerID == "" {
		return nil
	}

	videoIDs := make([]string, 0, len(items))
	authorIDs := make([]string, 0, len(items))
	seen := map[string]struct{}{}

	for _, it := range items {
		videoIDs = append(videoIDs, it.ID)

		if _, ok := seen[it.UserID]; !ok {
			seen[it.UserID] = struct{}{}
			authorIDs = append(authorIDs, it.UserID)
		}
	}

	var liked []string
	err := db.
		Model(&model.Like{}).
		Where("user_id = ? AND video_id IN ?", callerID, videoIDs).
		Pluck("video_id", &liked).
		Error
	if err != nil {
		return fmt.Errorf("failed to fetch likes, %w", err)
	}

	var followed []string
	err = db.
		Model(&model.Follow{}).
		Where("follower_id = ? AND followee_id IN ?", callerID, authorIDs).
		Pluck("followee_id", &followed).
		Error
	if err != nil {
		return fmt.Errorf("failed to fetch follows, %w", err)
	}

	likedSet := toSet(liked)
	followSet := toSet(followed)

	for i := range items {
		_, items[i].LikedByCaller = likedSet[items[i].ID]
		_, items[i].FollowingAuthor = followSet[items[i].UserID]
	}

	return nil
}

func toSet(s []string) map[string]struct{} {
	m := make(map[string]struct{}, len(s))
	for _, v := range s {
		m[v] = struct{}{}
	}

	return m
}
