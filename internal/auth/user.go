package auth

import "time"

// User is a registered account. The IsAdmin claim gates the authoring area
// and is also enforced store-side in the research service.
type User struct {
	ID           string `gorm:"primaryKey;size:36"`
	Email        string `gorm:"size:255;uniqueIndex:idx_users_email;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	IsAdmin      bool   `gorm:"not null;default:false"`
	CreatedAt    time.Time
}

// TableName defines the table name for the User model.
func (User) TableName() string {
	return "users"
}

// Session is a server-side login session addressed by an opaque token.
type Session struct {
	Token     string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"size:36;not null;index"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time
}

// TableName defines the table name for the Session model.
func (Session) TableName() string {
	return "sessions"
}

// Identity is the resolved caller identity handed to downstream components.
// A nil *Identity means "not signed in".
type Identity struct {
	UserID  string
	Email   string
	IsAdmin bool
}
