package types

import "time"

// User is the minimal profile this service needs; account management
// lives in a separate service.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}
