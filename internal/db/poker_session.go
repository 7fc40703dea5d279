package db

import "time"

type PokerSession struct {
	ID        uint      `gorm:"primaryKey"`
	Slug      string    `gorm:"size:64;uniqueIndex;not null"`
	JoinCode  string    `gorm:"size:12;uniqueIndex;not null"`
	Revealed  bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
