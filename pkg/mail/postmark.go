package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// PostmarkSender delivers through the Postmark transactional email API.
type PostmarkSender struct {
	serverToken string
	from        string
	baseURL     string
	httpClient  *http.Client
}

// PostmarkOption customises a PostmarkSender.
type PostmarkOption func(*PostmarkSender)

// WithPostmarkHTTPClient swaps the HTTP client.
func WithPostmarkHTTPClient(c *http.Client) PostmarkOption {
	return func(s *PostmarkSender) {
		s.httpClient = c
	}
}

// NewPostmarkSender builds a Postmark sender. An empty baseURL uses the public API.
func NewPostmarkSender(serverToken, from, baseURL string, opts ...PostmarkOption) *PostmarkSender {
	if baseURL == "" {
		baseURL = "https://api.postmarkapp.com"
	}
	s := &PostmarkSender{
		serverToken: serverToken,
		from:        from,
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PostmarkSender) Name() string { return "postmark" }

type postmarkEmail struct {
	From          string `json:"From"`
	To            string `json:"To"`
	Subject       string `json:"Subject"`
	HtmlBody      string `json:"HtmlBody"`
	TextBody      string `json:"TextBody"`
	MessageStream string `json:"MessageStream"`
}

type postmarkResponse struct {
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
	MessageID string `json:"MessageID"`
}

func (s *PostmarkSender) Send(ctx context.Context, msg Message) (Result, error) {
	if s.serverToken == "" {
		return Result{}, fmt.Errorf("postmark sender not configured: missing server token")
	}

	rendered, err := Render(msg)
	if err != nil {
		return Result{}, err
	}

	body, err := json.Marshal(postmarkEmail{
		From:          s.from,
		To:            msg.To,
		Subject:       rendered.Subject,
		HtmlBody:      rendered.HTML,
		TextBody:      rendered.Text,
		MessageStream: "outbound",
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/email", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", s.serverToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return failed(fmt.Sprintf("send email: %v", err)), nil
	}
	defer resp.Body.Close()

	var out postmarkResponse
	_ = json.NewDecoder(resp.Body).Decode(&out)

	if resp.StatusCode >= 400 || out.ErrorCode != 0 {
		detail := fmt.Sprintf("postmark API error: status %d", resp.StatusCode)
		if out.Message != "" {
			detail += ": " + out.Message
		}
		return failed(detail), nil
	}

	return Result{Success: true, ProviderID: out.MessageID}, nil
}
