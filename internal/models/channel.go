package models

import (
	"time"

	"github.com/google/uuid"
)

type Channel string

const (
	ChannelWhatsApp  Channel = "whatsapp"
	ChannelMessenger Channel = "messenger"
	ChannelInstagram Channel = "instagram"
)

// Valid reports whether c is one of the three supported channels.
func (c Channel) Valid() bool {
	switch c {
	case ChannelWhatsApp, ChannelMessenger, ChannelInstagram:
		return true
	}
	return false
}

// ChannelAccount is a tenant-owned channel credential. (Channel, ExternalID)
// is globally unique: it is the primary key of the routing index.
type ChannelAccount struct {
	ID          uuid.UUID `json:"id" db:"id"`
	TenantID    uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Channel     Channel   `json:"channel" db:"channel"`
	ExternalID  string    `json:"external_id" db:"external_id"`
	AccessToken string    `json:"-" db:"access_token"`
	AppSecret   string    `json:"-" db:"app_secret"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
