package models

import "time"

// User is the remote identity record. PasswordHash is owned by the identity
// service and never serialized to clients. PushToken is mutated on its own
// so token churn never rewrites profile fields.
type User struct {
	ID           string
	DisplayName  string
	Email        string
	PasswordHash []byte
	Avatar       string
	AvatarKey    string
	PushToken    *string
	CreatedAt    time.Time
}
