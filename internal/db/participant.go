package db

import "time"

type Participant struct {
	ID        uint      `gorm:"primaryKey"`
	SessionID uint      `gorm:"index;not null;uniqueIndex:idx_participants_session_name"`
	Name      string    `gorm:"size:64;not null;uniqueIndex:idx_participants_session_name"`
	JoinedAt  time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

type ParticipantStatus struct {
	ID        uint      `gorm:"primaryKey"`
	SessionID uint      `gorm:"index;not null;uniqueIndex:idx_statuses_session_name"`
	Name      string    `gorm:"size:64;not null;uniqueIndex:idx_statuses_session_name"`
	Finished  bool      `gorm:"not null;default:false"`
	Modified  bool      `gorm:"not null;default:false"`
	UpdatedAt time.Time `gorm:"not null"`
}
