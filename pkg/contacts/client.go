// Package contacts reads the contact list of the marketing platform that
// owns the student roster.
package contacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/alumnos-crm-api/pkg/config"
)

// Contact is the subset of contact fields the roster import reads.
type Contact struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	ContactName string   `json:"contactName"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Phone       string   `json:"phone"`
	City        string   `json:"city"`
	Country     string   `json:"country"`
	Tags        []string `json:"tags"`
}

// DisplayName prefers contactName and falls back to first plus last name.
func (c Contact) DisplayName() string {
	if name := strings.TrimSpace(c.ContactName); name != "" {
		return name
	}
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// HasTag reports whether the contact carries tag, ignoring case.
func (c Contact) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if strings.EqualFold(strings.TrimSpace(t), tag) {
			return true
		}
	}
	return false
}

// HasTagContaining reports whether any tag contains marker, ignoring case.
func (c Contact) HasTagContaining(marker string) bool {
	if marker == "" {
		return false
	}
	marker = strings.ToLower(marker)
	for _, t := range c.Tags {
		if strings.Contains(strings.ToLower(t), marker) {
			return true
		}
	}
	return false
}

// Page is one page of contacts plus the cursor for the next one.
type Page struct {
	Contacts []Contact
	Next     string
}

type listResponse struct {
	Contacts []Contact `json:"contacts"`
	Meta     struct {
		StartAfterID string `json:"startAfterId"`
		StartAfter   int64  `json:"startAfter"`
		Total        int    `json:"total"`
	} `json:"meta"`
	Message string `json:"message"`
}

// Client pages through /contacts/ with cursor pagination.
type Client struct {
	baseURL    string
	apiKey     string
	locationID string
	version    string
	pageSize   int
	pageDelay  time.Duration
	httpClient *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient swaps the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// NewClient builds a client from the contacts configuration.
func NewClient(cfg config.ContactsConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		locationID: cfg.LocationID,
		version:    cfg.APIVersion,
		pageSize:   cfg.PageSize,
		pageDelay:  cfg.PageDelay,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	if c.pageSize <= 0 {
		c.pageSize = 100
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.locationID != ""
}

// ListPage fetches the page after cursor; an empty cursor starts at the beginning.
func (c *Client) ListPage(ctx context.Context, cursor string) (Page, error) {
	params := url.Values{}
	params.Set("locationId", c.locationID)
	params.Set("limit", strconv.Itoa(c.pageSize))
	if cursor != "" {
		params.Set("startAfterId", cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/contacts/?"+params.Encode(), nil)
	if err != nil {
		return Page{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Version", c.version)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("list contacts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Page{}, fmt.Errorf("contacts API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out listResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Page{}, fmt.Errorf("decode contacts: %w", err)
	}

	page := Page{Contacts: out.Contacts}
	if len(out.Contacts) > 0 && out.Meta.StartAfterID != "" && out.Meta.StartAfterID != cursor {
		page.Next = out.Meta.StartAfterID
	}
	return page, nil
}

// Each walks every page, pausing between pages, and calls fn per page.
// It stops at the first page error or fn error.
func (c *Client) Each(ctx context.Context, fn func(Page) error) error {
	if !c.Configured() {
		return fmt.Errorf("contacts client not configured")
	}

	cursor := ""
	for {
		page, err := c.ListPage(ctx, cursor)
		if err != nil {
			return err
		}
		if len(page.Contacts) == 0 {
			return nil
		}
		if err := fn(page); err != nil {
			return err
		}
		if page.Next == "" {
			return nil
		}
		cursor = page.Next

		if c.pageDelay > 0 {
			timer := time.NewTimer(c.pageDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
}
