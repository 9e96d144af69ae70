package models

import "time"

type User struct {
	ID             uint   `gorm:"primaryKey"`
	Email          string `gorm:"uniqueIndex;size:255;not null"`
	FullName       string `gorm:"size:128;not null"`
	PasswordHash   string `gorm:"not null"`
	ProfilePicture string `gorm:"size:512"`
	Bio            string `gorm:"size:512"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Message struct {
	ID         uint   `gorm:"primaryKey"`
	SenderID   uint   `gorm:"index:idx_msg_sender;not null"`
	ReceiverID uint   `gorm:"index:idx_msg_receiver;not null"`
	Text       string `gorm:"type:text"`
	ImageURL   string `gorm:"size:512"`
	CreatedAt  time.Time
}

type RefreshToken struct {
	ID        uint       `gorm:"primaryKey"`
	UserID    uint       `gorm:"index;not null"`
	Token     string     `gorm:"uniqueIndex;size:128;not null"`
	ExpiresAt time.Time  `gorm:"index;not null"`
	RevokedAt *time.Time
	CreatedAt time.Time
}
