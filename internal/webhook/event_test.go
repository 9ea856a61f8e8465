package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamzaiqbal/crmconnect/internal/errs"
	"github.com/hamzaiqbal/crmconnect/internal/models"
)

const waMessageJSON = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "waba-1",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "15550100", "phone_number_id": "phone-123"},
        "contacts": [{"wa_id": "15550111", "profile": {"name": "Dana"}}],
        "messages": [{"id": "wamid.1", "from": "15550111", "type": "text", "text": {"body": "hello"}}]
      }
    }]
  }]
}`

const waStatusJSON = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "waba-1",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"phone_number_id": "phone-123"},
        "statuses": [{"id": "wamid.9", "status": "delivered"}]
      }
    }]
  }]
}`

const messengerJSON = `{
  "object": "page",
  "entry": [{
    "id": "page-55",
    "messaging": [{
      "sender": {"id": "psid-7"},
      "recipient": {"id": "page-55"},
      "message": {"mid": "mid.42", "text": "hi there"}
    }]
  }]
}`

const instagramViaPageJSON = `{
  "object": "page",
  "entry": [{
    "id": "ig-88",
    "messaging": [{
      "messaging_product": "instagram",
      "sender": {"id": "igsid-3"},
      "recipient": {"id": "ig-88"},
      "message": {"mid": "mid.77", "text": "nice post"}
    }]
  }]
}`

const instagramDirectJSON = `{
  "object": "instagram",
  "entry": [{
    "id": "ig-88",
    "messaging": [{
      "sender": {"id": "igsid-3"},
      "recipient": {"id": "ig-88"},
      "message": {"mid": "mid.78", "text": "story reply"}
    }]
  }]
}`

func TestParseEventMalformed(t *testing.T) {
	_, err := ParseEvent([]byte(`{"object":`))
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want models.Channel
	}{
		{"whatsapp", waMessageJSON, models.ChannelWhatsApp},
		{"messenger page", messengerJSON, models.ChannelMessenger},
		{"instagram relayed under page", instagramViaPageJSON, models.ChannelInstagram},
		{"instagram direct object", instagramDirectJSON, models.ChannelInstagram},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := ParseEvent([]byte(tc.raw))
			require.NoError(t, err)
			ch, err := Classify(ev)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ch)
		})
	}
}

func TestClassifyUnknownObject(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"object": "permissions", "entry": []}`))
	require.NoError(t, err)
	_, err = Classify(ev)
	assert.ErrorIs(t, err, errs.ErrUnknownEventType)
}

func TestRoutingKey(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		ch   models.Channel
		want string
	}{
		{"whatsapp phone number id", waMessageJSON, models.ChannelWhatsApp, "phone-123"},
		{"messenger page id", messengerJSON, models.ChannelMessenger, "page-55"},
		{"instagram account id", instagramViaPageJSON, models.ChannelInstagram, "ig-88"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := ParseEvent([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, RoutingKey(tc.ch, ev))
		})
	}

	ev, err := ParseEvent([]byte(`{"object": "whatsapp_business_account", "entry": []}`))
	require.NoError(t, err)
	assert.Empty(t, RoutingKey(models.ChannelWhatsApp, ev))
}

func TestEventID(t *testing.T) {
	ev, err := ParseEvent([]byte(waMessageJSON))
	require.NoError(t, err)
	assert.Equal(t, "wamid.1", EventID(models.ChannelWhatsApp, ev))

	ev, err = ParseEvent([]byte(waStatusJSON))
	require.NoError(t, err)
	assert.Empty(t, EventID(models.ChannelWhatsApp, ev))

	ev, err = ParseEvent([]byte(messengerJSON))
	require.NoError(t, err)
	assert.Equal(t, "mid.42", EventID(models.ChannelMessenger, ev))
}

func TestSenderAndText(t *testing.T) {
	ev, err := ParseEvent([]byte(waMessageJSON))
	require.NoError(t, err)
	sender, text := senderAndText(models.ChannelWhatsApp, ev)
	assert.Equal(t, "15550111", sender)
	assert.Equal(t, "hello", text)

	ev, err = ParseEvent([]byte(messengerJSON))
	require.NoError(t, err)
	sender, text = senderAndText(models.ChannelMessenger, ev)
	assert.Equal(t, "psid-7", sender)
	assert.Equal(t, "hi there", text)
}
