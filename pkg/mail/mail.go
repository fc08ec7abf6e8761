// Package mail delivers the weekly report link to a student through one of
// several email backends chosen at startup.
package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/alumnos-crm-api/pkg/config"
)

// Message is the content of one report invitation.
type Message struct {
	To          string
	StudentName string
	ReportURL   string
	ExpiresAt   time.Time
}

// Result reports the outcome of a delivery attempt. A failed delivery is a
// Result with Success false, not an error.
type Result struct {
	Success    bool   `json:"success"`
	Detail     string `json:"detail,omitempty"`
	ProviderID string `json:"provider_id,omitempty"`
}

// Sender delivers report invitations. Send returns an error only when the
// sender itself is misconfigured.
type Sender interface {
	Send(ctx context.Context, msg Message) (Result, error)
	Name() string
}

// NewSender picks the backend named by cfg.Provider.
func NewSender(cfg config.MailConfig, logger *zap.Logger) (Sender, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	from := FormatAddress(cfg.FromName, cfg.FromAddress)

	switch cfg.Provider {
	case "", config.MailProviderLog:
		return NewLogSender(logger), nil
	case config.MailProviderPostmark:
		if cfg.PostmarkServerToken == "" || cfg.FromAddress == "" {
			return nil, fmt.Errorf("postmark requires POSTMARK_SERVER_TOKEN and MAIL_FROM_ADDRESS")
		}
		return NewPostmarkSender(cfg.PostmarkServerToken, from, cfg.PostmarkBaseURL), nil
	case config.MailProviderActiveCampaign:
		if cfg.ActiveCampaignURL == "" || cfg.ActiveCampaignAPIKey == "" || cfg.ActiveCampaignFieldID == "" {
			return nil, fmt.Errorf("activecampaign requires ACTIVECAMPAIGN_URL, ACTIVECAMPAIGN_API_KEY and ACTIVECAMPAIGN_LINK_FIELD_ID")
		}
		return NewActiveCampaignSender(cfg.ActiveCampaignURL, cfg.ActiveCampaignAPIKey, cfg.ActiveCampaignFieldID), nil
	case config.MailProviderSMTP:
		if cfg.SMTPHost == "" || cfg.FromAddress == "" {
			return nil, fmt.Errorf("smtp requires SMTP_HOST and MAIL_FROM_ADDRESS")
		}
		return NewSMTPSender(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.FromAddress,
			FromName: cfg.FromName,
		}), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

// FormatAddress renders `Name <addr>` when a display name is set.
func FormatAddress(name, address string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return address
	}
	return fmt.Sprintf("%q <%s>", name, address)
}

func failed(detail string) Result {
	return Result{Success: false, Detail: detail}
}
