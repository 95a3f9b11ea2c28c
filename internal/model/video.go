// Package model defines database models
package model

type VideoStatus string

const (
	StatusUploading  VideoStatus = "uploading"
	StatusProcessing VideoStatus = "processing"
	StatusReady      VideoStatus = "ready"
	StatusError      VideoStatus = "error"
)

// Terminal reports whether no further lifecycle transition is allowed.
func (s VideoStatus) Terminal() bool {
	return s == StatusReady || s == StatusError
}

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityFriends Visibility = "friends"
	VisibilityPrivate Visibility = "private"
)

type DerivativeKind string

const (
	DerivativeDuet   DerivativeKind = "duet"
	DerivativeStitch DerivativeKind = "stitch"
)

type Video struct {
	ID     string      `gorm:"primaryKey" json:"id"`
	UserID string      `gorm:"index;not null" json:"user_id"`
	Status VideoStatus `gorm:"index;not null" json:"status"`

	// Provider linkage. UploadID never changes, AssetID may arrive late.
	UploadID   string `gorm:"uniqueIndex" json:"-"`
	AssetID    string `gorm:"index" json:"-"`
	PlaybackID string `json:"playback_id,omitempty"`

	// Only populated once the provider reports the asset as ready
	PlaybackURL   string  `json:"playback_url,omitempty"`
	ThumbnailURL  string  `json:"thumbnail_url,omitempty"`
	PreviewURL    string  `json:"preview_url,omitempty"`
	Duration      float64 `json:"duration"`
	AspectRatio   string  `json:"aspect_ratio,omitempty"`
	MaxResolution string  `json:"max_resolution,omitempty"`

	Caption       string         `json:"caption"`
	Tags          StringSlice    `gorm:"type:text" json:"tags"`
	Visibility    Visibility     `gorm:"default:public" json:"visibility"`
	AllowComments bool           `json:"allow_comments"`
	AllowDuet     bool           `json:"allow_duet"`
	AllowStitch   bool           `json:"allow_stitch"`
	ParentVideoID *string        `gorm:"index" json:"parent_video_id,omitempty"`
	ParentKind    DerivativeKind `json:"parent_kind,omitempty"`

	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`

	TrendingScore float64 `gorm:"type:double precision;index;default:0" json:"-"`
	CreatedAt     int64   `gorm:"autoCreateTime:milli;index" json:"created_at"` // unix millis
	UpdatedAt     int64   `gorm:"autoUpdateTime:milli" json:"updated_at"`
}
