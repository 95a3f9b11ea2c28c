package model

type Campaign struct {
	ID       string `gorm:"primaryKey" json:"id"`
	Title    string `json:"title"`
	MediaURL string `json:"media_url"`
	ClickURL string `json:"click_url"`
	Active   bool   `gorm:"index" json:"active"`
	Weight   int    `gorm:"default:1" json:"-"`
}

type AdImpression struct {
	ID         string `gorm:"primaryKey" json:"id"`
	CampaignID string `gorm:"index;not null" json:"campaign_id"`
	CreatedAt  int64  `gorm:"autoCreateTime:milli" json:"created_at"`
}
