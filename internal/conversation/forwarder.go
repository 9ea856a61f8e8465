package conversation

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Forwarder delivers normalized messages to the collaborator over HTTP,
// signing each body so the receiver can authenticate the source.
type Forwarder struct {
	client *resty.Client
	url    string
	secret string
}

func NewForwarder(url, secret string, timeout time.Duration) *Forwarder {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Forwarder{
		client: resty.New().SetTimeout(timeout).SetRetryCount(2),
		url:    url,
		secret: secret,
	}
}

func (f *Forwarder) Dispatch(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req := f.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Message-Signature", sign(body, f.secret)).
		SetBody(body)

	resp, err := req.Post(f.url)
	if err != nil {
		return fmt.Errorf("forward message: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("collaborator returned %d", resp.StatusCode())
	}
	return nil
}

func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
