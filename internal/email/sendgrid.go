package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/manny2375/2020realtorsblue-sub000/internal/httpclient"
)

// DefaultSendGridURL is the SendGrid v3 mail send endpoint.
const DefaultSendGridURL = "https://api.sendgrid.com/v3/mail/send"

// SendGridSender delivers mail through the SendGrid v3 API.
type SendGridSender struct {
	apiKey    string
	fromEmail string
	fromName  string
	url       string
	client    *http.Client
}

// NewSendGridSender creates a sender using the shared HTTP client defaults.
func NewSendGridSender(apiKey, fromEmail, fromName string) *SendGridSender {
	return &SendGridSender{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
		url:       DefaultSendGridURL,
		client:    httpclient.NewDefaultHTTPClient(),
	}
}

// NewSendGridSenderWithURL creates a sender pointed at a custom endpoint,
// used by tests against a local server.
func NewSendGridSenderWithURL(apiKey, fromEmail, fromName, url string, client *http.Client) *SendGridSender {
	if client == nil {
		client = httpclient.NewDefaultHTTPClient()
	}
	return &SendGridSender{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
		url:       url,
		client:    client,
	}
}

type sendGridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridPersonalization struct {
	To []sendGridAddress `json:"to"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridPayload struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendGridContent         `json:"content"`
}

// Send posts the message to the mail-send API. Sends are not retried; a
// failed send is recorded and surfaced to the caller.
func (s *SendGridSender) Send(ctx context.Context, msg *Message) (string, error) {
	payload := sendGridPayload{
		Personalizations: []sendGridPersonalization{
			{To: []sendGridAddress{{Email: msg.To, Name: msg.ToName}}},
		},
		From:    sendGridAddress{Email: s.fromEmail, Name: s.fromName},
		Subject: msg.Subject,
		Content: []sendGridContent{{Type: "text/plain", Value: msg.Text}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("mail send request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("mail send returned status %d: %s", resp.StatusCode, string(detail))
	}

	return resp.Header.Get("X-Message-Id"), nil
}
