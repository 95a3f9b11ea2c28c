package gateway

import (
	"bitwise74/reel-api/internal/model"
	"bitwise74/reel-api/pkg/apperr"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxTags      = 30
	maxTagLength = 50
)

// Metadata is the descriptive part of a video the owner controls.
type Metadata struct {
	Caption       string               `json:"caption"`
	Tags          []string             `json:"tags"`
	Visibility    model.Visibility     `json:"visibility"`
	AllowComments *bool                `json:"allowComments"`
	AllowDuet     *bool                `json:"allowDuet"`
	AllowStitch   *bool                `json:"allowStitch"`
	ParentVideoID *string              `json:"parentVideoId"`
	ParentKind    model.DerivativeKind `json:"parentKind"`
}

// normalize validates m in place and fills defaults. Tags lose their
// leading '#', get lowercased and deduplicated.
func (m *Metadata) normalize(maxCaption int) error {
	m.Caption = strings.TrimSpace(m.Caption)
	if maxCaption > 0 && utf8.RuneCountInString(m.Caption) > maxCaption {
		return apperr.Validation(fmt.Sprintf("Caption can't be longer than %d characters", maxCaption))
	}

	switch m.Visibility {
	case "":
		m.Visibility = model.VisibilityPublic
	case model.VisibilityPublic, model.VisibilityFriends, model.VisibilityPrivate:
	default:
		return apperr.Validation("Visibility must be one of public, friends or private")
	}

	if len(m.Tags) > maxTags {
		return apperr.Validation(fmt.Sprintf("No more than %d tags are allowed", maxTags))
	}

	seen := make(map[string]struct{}, len(m.Tags))
	tags := make([]string, 0, len(m.Tags))

	for _, t := range m.Tags {
		t = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "#"))

		if t == "" {
			return apperr.Validation("Tags can't be empty")
		}

		if utf8.RuneCountInString(t) > maxTagLength {
			return apperr.Validation(fmt.Sprintf("Tags can't be longer than %d characters", maxTagLength))
		}

		if strings.ContainsAny(t, ", \t\n") {
			return apperr.Validation("Tags can't contain commas or whitespace")
		}

		if _, ok := seen[t]; ok {
			continue
		}

		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	m.Tags = tags

	if m.ParentVideoID != nil && *m.ParentVideoID == "" {
		m.ParentVideoID = nil
	}

	if m.ParentVideoID == nil {
		if m.ParentKind != "" {
			return apperr.Validation("parentKind requires parentVideoId")
		}

		return nil
	}

	if m.ParentKind != model.DerivativeDuet && m.ParentKind != model.DerivativeStitch {
		return apperr.Validation("parentKind must be duet or stitch")
	}

	return nil
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}

	return *b
}

// columns returns the video columns m controls.
func (m *Metadata) columns() map[string]any {
	return map[string]any{
		"caption":         m.Caption,
		"tags":            model.StringSlice(m.Tags),
		"visibility":      m.Visibility,
		"allow_comments":  boolOr(m.AllowComments, true),
		"allow_duet":      boolOr(m.AllowDuet, true),
		"allow_stitch":    boolOr(m.AllowStitch, true),
		"parent_video_id": m.ParentVideoID,
		"parent_kind":     m.ParentKind,
	}
}
