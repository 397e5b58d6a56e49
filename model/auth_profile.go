package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TokenType string

const (
	TokenTypeBearer TokenType = "Bearer"
	TokenTypeBasic  TokenType = "Basic"
	TokenTypeAPIKey TokenType = "API-Key"
)

// DefaultTokenLifetimeSeconds applies when a profile leaves ExpiresInSeconds empty.
const DefaultTokenLifetimeSeconds = 3600

type AuthProfile struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string    `gorm:"index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name             string    `json:"name"`
	LoginURL         string    `json:"login_url"`
	LoginMethod      string    `json:"login_method" gorm:"default:'POST'"`
	LoginBody        StringMap `json:"login_body"`
	TokenPath        string    `json:"token_path"`
	TokenType        TokenType `json:"token_type" gorm:"default:'Bearer'"`
	HeaderName       string    `json:"header_name" gorm:"default:'Authorization'"`
	ExpiresInSeconds *int      `json:"expires_in_seconds"`
	SkipSSLVerify    bool      `json:"skip_ssl_verify"`
}

func (p *AuthProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// TokenLifetime returns the configured lifetime or the default.
func (p *AuthProfile) TokenLifetime() time.Duration {
	seconds := DefaultTokenLifetimeSeconds
	if p.ExpiresInSeconds != nil && *p.ExpiresInSeconds > 0 {
		seconds = *p.ExpiresInSeconds
	}
	return time.Duration(seconds) * time.Second
}

// TokenCacheEntry is what the token store keeps per auth profile.
type TokenCacheEntry struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
