// Package user holds the account entities owned by the gateway.
package user

import (
	"time"

	"github.com/google/uuid"
)

// User is a household member. Family is the tenant the user belongs to; it is
// stamped into every token the gateway issues.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	Family       string    `json:"family"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
