package webhook

import (
	"encoding/json"

	"github.com/hamzaiqbal/crmconnect/internal/errs"
	"github.com/hamzaiqbal/crmconnect/internal/models"
)

// Event is the shared webhook envelope the platform posts for all three
// channels: an object discriminator over entries carrying either
// changes (whatsapp) or messaging items (messenger, instagram).
type Event struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID        string          `json:"id"`
	Time      int64           `json:"time,omitempty"`
	Changes   []Change        `json:"changes,omitempty"`
	Messaging []MessagingItem `json:"messaging,omitempty"`
}

type Change struct {
	Field string `json:"field,omitempty"`
	Value Value  `json:"value"`
}

type Value struct {
	MessagingProduct string       `json:"messaging_product,omitempty"`
	Metadata         Metadata     `json:"metadata,omitempty"`
	Messages         []WAMessage  `json:"messages,omitempty"`
	Statuses         []WAStatus   `json:"statuses,omitempty"`
	Contacts         []WAContact  `json:"contacts,omitempty"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number,omitempty"`
	PhoneNumberID      string `json:"phone_number_id,omitempty"`
}

type WAMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp,omitempty"`
	Type      string `json:"type,omitempty"`
	Text      struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
}

type WAStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type WAContact struct {
	WaID    string `json:"wa_id,omitempty"`
	Profile struct {
		Name string `json:"name,omitempty"`
	} `json:"profile,omitempty"`
}

type MessagingItem struct {
	// MessagingProduct is the secondary marker disambiguating Instagram
	// traffic relayed under the shared "page" object.
	MessagingProduct string `json:"messaging_product,omitempty"`
	Sender           Party  `json:"sender"`
	Recipient        Party  `json:"recipient"`
	Timestamp        int64  `json:"timestamp,omitempty"`
	Message          *struct {
		MID  string `json:"mid"`
		Text string `json:"text"`
	} `json:"message,omitempty"`
}

type Party struct {
	ID string `json:"id"`
}

// ParseEvent decodes the raw body. This is the only point where a webhook
// request may be rejected outright: everything after a successful parse
// is acknowledged.
func ParseEvent(raw []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, errs.ErrInvalidInput
	}
	return &ev, nil
}

// Classify maps the object discriminator to a channel. Messenger and
// Instagram share the "page" object: an entry whose messaging items carry
// the "instagram" product marker is Instagram, anything else under "page"
// is Messenger. Events arriving with a bare "instagram" object are
// accepted as Instagram directly.
func Classify(ev *Event) (models.Channel, error) {
	switch ev.Object {
	case "whatsapp_business_account":
		return models.ChannelWhatsApp, nil
	case "instagram":
		return models.ChannelInstagram, nil
	case "page":
		for _, e := range ev.Entry {
			for _, m := range e.Messaging {
				if m.MessagingProduct == "instagram" {
					return models.ChannelInstagram, nil
				}
			}
		}
		return models.ChannelMessenger, nil
	default:
		return "", errs.ErrUnknownEventType
	}
}

// RoutingKey extracts the channel-specific external identifier: the
// phone-number id for whatsapp, the page/account id for the others.
func RoutingKey(ch models.Channel, ev *Event) string {
	if len(ev.Entry) == 0 {
		return ""
	}
	first := ev.Entry[0]
	if ch == models.ChannelWhatsApp {
		if len(first.Changes) == 0 {
			return ""
		}
		return first.Changes[0].Value.Metadata.PhoneNumberID
	}
	return first.ID
}

// EventID extracts the platform-issued message identifier used for
// deduplication. Empty means the event carries none and dedup is skipped
// for that delivery.
func EventID(ch models.Channel, ev *Event) string {
	if len(ev.Entry) == 0 {
		return ""
	}
	first := ev.Entry[0]
	if ch == models.ChannelWhatsApp {
		if len(first.Changes) == 0 || len(first.Changes[0].Value.Messages) == 0 {
			return ""
		}
		return first.Changes[0].Value.Messages[0].ID
	}
	if len(first.Messaging) == 0 || first.Messaging[0].Message == nil {
		return ""
	}
	return first.Messaging[0].Message.MID
}

// senderAndText pulls the sender identifier and text body out of the
// first message-bearing item, if any.
func senderAndText(ch models.Channel, ev *Event) (sender, text string) {
	if len(ev.Entry) == 0 {
		return "", ""
	}
	first := ev.Entry[0]
	if ch == models.ChannelWhatsApp {
		if len(first.Changes) == 0 || len(first.Changes[0].Value.Messages) == 0 {
			return "", ""
		}
		msg := first.Changes[0].Value.Messages[0]
		return msg.From, msg.Text.Body
	}
	if len(first.Messaging) == 0 {
		return "", ""
	}
	item := first.Messaging[0]
	if item.Message == nil {
		return item.Sender.ID, ""
	}
	return item.Sender.ID, item.Message.Text
}
