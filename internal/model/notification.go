package model

const NotificationVideoPublished = "video_published"

// Notification rows are unique per (video, type) which makes a second
// insert for the same event fail instead of notifying the owner twice.
type Notification struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index;not null"`
	VideoID   string `gorm:"uniqueIndex:idx_notification_video_type;not null"`
	Type      string `gorm:"uniqueIndex:idx_notification_video_type;not null"`
	CreatedAt int64  `gorm:"autoCreateTime:milli"`
}
