package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the public account record stored in PostgreSQL.
// Recovery data (encrypted email) lives in the user_recovery table.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	IsActive  bool      `json:"is_active"`
}
