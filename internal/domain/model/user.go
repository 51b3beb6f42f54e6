package model

import "time"

// User is an account holder whose purchases accrue towards a membership tier.
type User struct {
	ID           int64
	Login        string
	PasswordHash string
	CreatedAt    time.Time
}
