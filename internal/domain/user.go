package domain

import "time"

// User is a person who can submit, own or receive incidents.
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
}
