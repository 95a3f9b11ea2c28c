package model

// Social edges are owned by other services. The feed only reads them.

type Like struct {
	UserID    string `gorm:"primaryKey"`
	VideoID   string `gorm:"primaryKey;index"`
	CreatedAt int64  `gorm:"autoCreateTime:milli"`
}

type Follow struct {
	FollowerID string `gorm:"primaryKey"`
	FolloweeID string `gorm:"primaryKey;index"`
	CreatedAt  int64  `gorm:"autoCreateTime:milli"`
}

type Block struct {
	BlockerID string `gorm:"primaryKey"`
	BlockedID string `gorm:"primaryKey;index"`
	CreatedAt int64  `gorm:"autoCreateTime:milli"`
}
