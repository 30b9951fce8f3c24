// Package models contains domain entities and persistence models for the location tracker
package models

import "time"

// User is the administrative account allowed to manage tracking links
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:255;not null;uniqueIndex:uk_users_username" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

// UserFilter represents filter criteria for user queries
type UserFilter struct {
	ID            *uint
	Username      *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
