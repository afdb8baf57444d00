package storage

import "time"

// EventRecord is the durable trace of a room's lifetime. Live state never
// persists; these rows feed the admin dashboard only.
type EventRecord struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	RoomCode  string     `gorm:"size:10;index" json:"roomCode"`
	Name      string     `gorm:"size:255" json:"name"`
	HostName  string     `gorm:"size:255" json:"hostName"`
	Status    string     `gorm:"size:50;default:active" json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	EndedAt   *time.Time `json:"endedAt"`
}

const (
	EventStatusActive = "active"
	EventStatusEnded  = "ended"
)

// User is an account for the HTTP-facing auth/admin surface. The websocket
// session core never touches accounts.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Email        string     `gorm:"size:255;uniqueIndex" json:"email"`
	PasswordHash string     `gorm:"size:255" json:"-"`
	Name         string     `gorm:"size:255" json:"name"`
	Role         string     `gorm:"size:50;default:user" json:"role"`
	Company      string     `gorm:"size:255" json:"company,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperadmin = "superadmin"
)
