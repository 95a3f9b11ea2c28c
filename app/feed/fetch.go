package feed

import (
	"bitwise74/reel-api/app/respond"
	"bitwise74/reel-api/internal"
	"bitwise74/reel-api/internal/ads"
	"bitwise74/reel-api/internal/feed"
	"bitwise74/reel-api/pkg/apperr"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const maxHistory = 500

// FeedFetch serves one page of the trending or personalized feed,
// decorated with ads unless they are turned off.
func FeedFetch(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	mode, err := feed.ParseMode(c.Param("mode"))
	if err != nil {
		respond.Error(c, err)
		return
	}

	limit := 0
	if s := c.Query("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil {
			respond.Error(c, apperr.Validation("Limit must be a number"))
			return
		}
	}

	withAds := d.Config.Ads.Enabled && d.Ads != nil
	if s := c.Query("ads"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			respond.Error(c, apperr.Validation("ads must be true or false"))
			return
		}
		withAds = withAds && b
	}

	history := parseHistory(c.Query("history"))

	page, err := d.Feed.GetFeed(c.Request.Context(), feed.Query{
		Mode:     mode,
		CallerID: userID,
		Cursor:   c.Query("cursor"),
		Limit:    limit,
	})
	if err != nil {
		respond.Error(c, err)
		return
	}

	var results []ads.FeedItem
	if withAds {
		results = d.Ads.Decorate(c.Request.Context(), page.Items, history)
	} else {
		results = make([]ads.FeedItem, 0, len(page.Items))
		for i := range page.Items {
			results = append(results, ads.FeedItem{Type: ads.ItemVideo, Video: &page.Items[i]})
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"results":    results,
		"nextCursor": page.NextCursor,
		"hasMore":    page.HasMore,
	})
}

func parseHistory(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	// Only the tail matters for cadence and candidate seeding
	if len(out) > maxHistory {
		out = out[len(out)-maxHistory:]
	}

	return out
}
