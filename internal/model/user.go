package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// AuthProvider identifies the identity source of an account. It is fixed at
// creation; an account never migrates between providers.
type AuthProvider string

const (
	ProviderLocal    AuthProvider = "local"
	ProviderFacebook AuthProvider = "facebook"
	ProviderLine     AuthProvider = "line"
	ProviderGoogle   AuthProvider = "google"
	ProviderApple    AuthProvider = "apple"
)

// User represents a user account. PasswordHash is empty for social-only
// accounts. RefreshTokenHash and RefreshTokenIssuedAt together define the
// current refresh session; both are cleared on logout.
type User struct {
	ID                   bson.ObjectID `bson:"_id,omitempty"`
	Email                string        `bson:"email"`
	Username             string        `bson:"username,omitempty"`
	Name                 string        `bson:"name"`
	PasswordHash         string        `bson:"password_hash,omitempty"`
	Provider             AuthProvider  `bson:"provider"`
	ProviderID           string        `bson:"provider_id,omitempty"`
	RefreshTokenHash     string        `bson:"refresh_token_hash,omitempty"`
	RefreshTokenIssuedAt *time.Time    `bson:"refresh_token_issued_at,omitempty"`
	CreatedAt            time.Time     `bson:"created_at"`
	UpdatedAt            time.Time     `bson:"updated_at"`
}
