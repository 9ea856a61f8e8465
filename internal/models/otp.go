package models

import (
	"time"

	"github.com/google/uuid"
)

type CodeChannel string

const (
	CodeChannelEmail CodeChannel = "email"
	CodeChannelPhone CodeChannel = "phone"
)

// OneTimeCode stores only the salted hash of a verification code. At most
// one unused, unexpired code per (user, channel) is valid at a time;
// issuing a new one invalidates the rest.
type OneTimeCode struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	UserID    uuid.UUID   `json:"user_id" db:"user_id"`
	Channel   CodeChannel `json:"channel" db:"channel"`
	CodeHash  string      `json:"-" db:"code_hash"`
	Salt      string      `json:"-" db:"salt"`
	ExpiresAt time.Time   `json:"expires_at" db:"expires_at"`
	Used      bool        `json:"used" db:"used"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}
