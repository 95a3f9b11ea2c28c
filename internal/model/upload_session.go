package model

// UploadSession ties a provider upload slot to the video row created for
// it. Rows are written once and only ever looked up afterwards.
type UploadSession struct {
	ID        string `gorm:"primaryKey"` // Equals the provider's upload id
	VideoID   string `gorm:"uniqueIndex;not null"`
	UserID    string `gorm:"index;not null"`
	CreatedAt int64  `gorm:"autoCreateTime:milli"`
}
