package clicks

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	maxUserAgentLength = 512
	maxReferrerLength  = 2048
	maxCampaignLength  = 200
)

// Campaign carries the UTM parameters of a redirect.
type Campaign struct {
	Source  string `json:"utm_source,omitempty"`
	Medium  string `json:"utm_medium,omitempty"`
	Name    string `json:"utm_campaign,omitempty"`
	Term    string `json:"utm_term,omitempty"`
	Content string `json:"utm_content,omitempty"`
}

// CampaignFromQuery reads utm_* parameters from a redirect query string.
func CampaignFromQuery(q url.Values) Campaign {
	return Campaign{
		Source:  truncate(strings.TrimSpace(q.Get("utm_source")), maxCampaignLength),
		Medium:  truncate(strings.TrimSpace(q.Get("utm_medium")), maxCampaignLength),
		Name:    truncate(strings.TrimSpace(q.Get("utm_campaign")), maxCampaignLength),
		Term:    truncate(strings.TrimSpace(q.Get("utm_term")), maxCampaignLength),
		Content: truncate(strings.TrimSpace(q.Get("utm_content")), maxCampaignLength),
	}
}

// ClickInput is one redirect to record. ID and ClickedAt are filled in when
// zero; callers that may retry set ID so redelivery stays idempotent.
type ClickInput struct {
	ID        uuid.UUID `json:"id"`
	LinkID    uuid.UUID `json:"link_id"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	Referrer  string    `json:"referrer"`
	Campaign  Campaign  `json:"campaign"`
	ClickedAt time.Time `json:"clicked_at"`
}

// Click is a recorded redirect.
type Click struct {
	ID         uuid.UUID  `json:"id"`
	LinkID     uuid.UUID  `json:"link_id"`
	OwnerID    *uuid.UUID `json:"owner_id,omitempty"`
	IPAddress  string     `json:"ip_address"`
	UserAgent  string     `json:"user_agent"`
	Referrer   string     `json:"referrer"`
	Country    *string    `json:"country"`
	City       *string    `json:"city"`
	Browser    string     `json:"browser"`
	OS         string     `json:"os"`
	DeviceType string     `json:"device_type"`
	IsBot      bool       `json:"is_bot"`
	IsUnique   bool       `json:"is_unique"`
	Campaign   Campaign   `json:"campaign"`
	ClickedAt  time.Time  `json:"clicked_at"`
}

// ClickResult reports the stored click. Duplicate is set when a click with
// the same id was already recorded and nothing changed.
type ClickResult struct {
	Click     Click
	Duplicate bool
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
