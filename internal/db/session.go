package db

import "time"

// BrowserSession backs the pp_session cookie.
type BrowserSession struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Flash     string    `gorm:"size:280"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// NameClaim records which pseudonym a browser session joined a room with.
type NameClaim struct {
	ID               uint      `gorm:"primaryKey"`
	BrowserSessionID string    `gorm:"size:64;not null;uniqueIndex:idx_claims_browser_session"`
	SessionSlug      string    `gorm:"size:64;not null;uniqueIndex:idx_claims_browser_session"`
	Name             string    `gorm:"size:64;not null"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}
