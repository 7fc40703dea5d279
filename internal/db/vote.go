package db

import "time"

type Vote struct {
	ID          uint      `gorm:"primaryKey"`
	SessionID   uint      `gorm:"index;not null;uniqueIndex:idx_votes_session_phase_participant"`
	Phase       string    `gorm:"size:64;not null;uniqueIndex:idx_votes_session_phase_participant"`
	Participant string    `gorm:"size:64;not null;uniqueIndex:idx_votes_session_phase_participant"`
	Value       float64   `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type AdminEstimate struct {
	ID        uint      `gorm:"primaryKey"`
	SessionID uint      `gorm:"index;not null;uniqueIndex:idx_admin_estimates_session_phase"`
	Phase     string    `gorm:"size:64;not null;uniqueIndex:idx_admin_estimates_session_phase"`
	Value     float64   `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
