package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ActiveCampaignSender stores the link on a contact custom field. An
// automation on the ActiveCampaign side sends the actual email when the field
// changes.
type ActiveCampaignSender struct {
	baseURL    string
	apiKey     string
	fieldID    string
	httpClient *http.Client
}

// NewActiveCampaignSender builds a sender for the account at baseURL.
func NewActiveCampaignSender(baseURL, apiKey, fieldID string) *ActiveCampaignSender {
	return &ActiveCampaignSender{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		fieldID:    fieldID,
		httpClient: http.DefaultClient,
	}
}

// WithHTTPClient swaps the HTTP client and returns the sender.
func (s *ActiveCampaignSender) WithHTTPClient(c *http.Client) *ActiveCampaignSender {
	s.httpClient = c
	return s
}

func (s *ActiveCampaignSender) Name() string { return "activecampaign" }

type acFieldValue struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type acContact struct {
	Email       string         `json:"email"`
	FirstName   string         `json:"firstName,omitempty"`
	FieldValues []acFieldValue `json:"fieldValues"`
}

type acSyncRequest struct {
	Contact acContact `json:"contact"`
}

type acSyncResponse struct {
	Contact struct {
		ID json.RawMessage `json:"id"`
	} `json:"contact"`
	Message string `json:"message"`
}

func (s *ActiveCampaignSender) Send(ctx context.Context, msg Message) (Result, error) {
	if s.apiKey == "" || s.fieldID == "" {
		return Result{}, fmt.Errorf("activecampaign sender not configured")
	}

	body, err := json.Marshal(acSyncRequest{Contact: acContact{
		Email:       msg.To,
		FirstName:   FirstName(msg.StudentName),
		FieldValues: []acFieldValue{{Field: s.fieldID, Value: msg.ReportURL}},
	}})
	if err != nil {
		return Result{}, fmt.Errorf("marshal contact: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/3/contact/sync", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Token", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return failed(fmt.Sprintf("sync contact: %v", err)), nil
	}
	defer resp.Body.Close()

	var out acSyncResponse
	_ = json.NewDecoder(resp.Body).Decode(&out)

	if resp.StatusCode >= 400 {
		detail := fmt.Sprintf("activecampaign API error: status %d", resp.StatusCode)
		if out.Message != "" {
			detail += ": " + out.Message
		}
		return failed(detail), nil
	}

	return Result{Success: true, ProviderID: rawID(out.Contact.ID)}, nil
}

// rawID accepts ids serialised either as strings or numbers.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return ""
}
