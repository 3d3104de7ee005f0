package models

import "time"

// ClientMeta identifies the device behind an auth request.
type ClientMeta struct {
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// RefreshToken is a persisted login of one device. Rotation revokes the
// presented token and stores a fresh one.
type RefreshToken struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Token     string     `db:"token" json:"-"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	Revoked   bool       `db:"revoked" json:"revoked"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	IPAddress string     `db:"ip_address" json:"ip_address"`
	UserAgent string     `db:"user_agent" json:"user_agent"`
}

// NewRefreshToken binds an opaque token value to a user for ttl.
func NewRefreshToken(id, userID, value string, now time.Time, ttl time.Duration, meta ClientMeta) RefreshToken {
	return RefreshToken{
		ID:        id,
		UserID:    userID,
		Token:     value,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}
}

// Usable reports whether the token may still be exchanged at now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return t != nil && !t.Revoked && !now.After(t.ExpiresAt)
}
