package domain

import "time"

// Account represents an identity record owned by the user store.
type Account struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TokenType discriminates access and refresh credentials inside signed claims.
type TokenType string

const (
	// TokenTypeAccess marks short-lived credentials authorizing API calls.
	TokenTypeAccess TokenType = "access"
	// TokenTypeRefresh marks longer-lived credentials used solely to mint new pairs.
	TokenTypeRefresh TokenType = "refresh"
)

// TokenPair bundles the credentials returned by login and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}
