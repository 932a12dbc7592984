package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stenolab/steno/pkg/domain/interfaces"
	"github.com/stenolab/steno/pkg/utils/safe"
)

const defaultEndpoint = "https://api.resend.com/emails"

// Resend delivers email through the Resend HTTP API
type Resend struct {
	endpoint   string
	apiKey     string
	sender     string
	httpClient *http.Client
}

var _ interfaces.Notifier = &Resend{}

type Option func(*Resend)

// WithEndpoint overrides the API endpoint, for tests
func WithEndpoint(endpoint string) Option {
	return func(r *Resend) {
		r.endpoint = endpoint
	}
}

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resend) {
		r.httpClient = client
	}
}

func NewResend(apiKey, sender string, opts ...Option) *Resend {
	r := &Resend{
		endpoint: defaultEndpoint,
		apiKey:   apiKey,
		sender:   sender,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type sendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

func (r *Resend) Send(ctx context.Context, recipient, subject, htmlBody string) error {
	if recipient == "" {
		return goerr.New("recipient is required")
	}

	payload, err := json.Marshal(sendRequest{
		From:    r.sender,
		To:      recipient,
		Subject: subject,
		HTML:    htmlBody,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to marshal email payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return goerr.Wrap(err, "failed to create email request")
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(err, "failed to send email", goerr.V("recipient", recipient))
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return goerr.New("email API returned an error",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(body)),
			goerr.V("recipient", recipient))
	}

	return nil
}
