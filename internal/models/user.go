package models

import "time"

// User is an admin account. ResetToken and ResetTokenExpiry are set and
// cleared together.
type User struct {
	ID               string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email            string     `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	PasswordHash     string     `json:"-" gorm:"type:varchar(255);not null"` // No json for security
	ResetToken       *string    `json:"-" gorm:"index;type:varchar(64)"`
	ResetTokenExpiry *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IssueReset attaches a reset token valid until expiry.
func (u *User) IssueReset(token string, expiry time.Time) {
	u.ResetToken = &token
	u.ResetTokenExpiry = &expiry
}

// ClearReset drops any pending reset token.
func (u *User) ClearReset() {
	u.ResetToken = nil
	u.ResetTokenExpiry = nil
}

// HasValidReset reports whether token matches the pending reset and has not
// expired at now.
func (u *User) HasValidReset(token string, now time.Time) bool {
	if u.ResetToken == nil || u.ResetTokenExpiry == nil || token == "" {
		return false
	}
	return *u.ResetToken == token && u.ResetTokenExpiry.After(now)
}
