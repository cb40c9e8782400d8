package clicks

import (
	"strings"

	"github.com/mssola/useragent"
)

// Device types stored on clicks.
const (
	DeviceBot     = "bot"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceUnknown = "unknown"
)

// Classification is what a user agent says about the client.
type Classification struct {
	Browser    string
	OS         string
	DeviceType string
	IsBot      bool
}

// Classifier derives a Classification from a User-Agent header.
type Classifier interface {
	Classify(userAgent string) Classification
}

// lowercase substrings that mark automated clients mssola does not flag.
var botMarkers = []string{
	"bot", "crawl", "spider", "slurp", "curl/", "wget/", "python-requests",
	"python-urllib", "go-http-client", "headlesschrome", "phantomjs",
	"facebookexternalhit", "preview", "monitor", "httpclient", "okhttp",
}

// UAClassifier parses user agents with github.com/mssola/useragent.
type UAClassifier struct{}

// NewClassifier returns the default Classifier.
func NewClassifier() UAClassifier { return UAClassifier{} }

// Classify never fails. An empty header is an unknown device, not a bot.
func (UAClassifier) Classify(userAgent string) Classification {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return Classification{DeviceType: DeviceUnknown}
	}

	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	osName := ua.OSInfo().Name
	if osName == "" {
		osName = ua.OS()
	}

	c := Classification{Browser: browser, OS: osName}
	lower := strings.ToLower(userAgent)

	switch {
	case ua.Bot() || hasBotMarker(lower):
		c.IsBot = true
		c.DeviceType = DeviceBot
	case isTablet(lower):
		c.DeviceType = DeviceTablet
	case ua.Mobile():
		c.DeviceType = DeviceMobile
	case osName != "":
		c.DeviceType = DeviceDesktop
	default:
		c.DeviceType = DeviceUnknown
	}
	return c
}

func hasBotMarker(lowerUA string) bool {
	for _, m := range botMarkers {
		if strings.Contains(lowerUA, m) {
			return true
		}
	}
	return false
}

// Android tablets omit "mobile" from their user agent.
func isTablet(lowerUA string) bool {
	switch {
	case strings.Contains(lowerUA, "ipad"), strings.Contains(lowerUA, "tablet"):
		return true
	case strings.Contains(lowerUA, "android") && !strings.Contains(lowerUA, "mobile"):
		return true
	default:
		return false
	}
}
