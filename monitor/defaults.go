package monitor

import (
	"net/url"
	"strings"

	"api-monitor/model"
)

type MatchingAuthProfile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MatchReason string `json:"match_reason"`
}

type SmartDefaults struct {
	SuggestedName        string                `json:"suggested_name"`
	SuggestedMethod      model.MonitorMethod   `json:"suggested_method"`
	MatchingAuthProfiles []MatchingAuthProfile `json:"matching_auth_profiles"`
}

// GenerateSmartDefaults suggests monitor settings for rawURL.
func GenerateSmartDefaults(rawURL string, profiles []model.AuthProfile) SmartDefaults {
	return SmartDefaults{
		SuggestedName:        nameFromURL(rawURL),
		SuggestedMethod:      model.MethodGet, // health endpoints are GET in practice
		MatchingAuthProfiles: matchAuthProfiles(rawURL, profiles),
	}
}

// nameFromURL turns "https://api.example.com/health/" into "api.example.com/health".
func nameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	path := strings.TrimSuffix(strings.TrimPrefix(u.Path, "/"), "/")
	if path == "" {
		return u.Hostname()
	}
	return u.Hostname() + "/" + path
}

// baseDomain keeps the last two labels of a hostname.
func baseDomain(host string) string {
	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		return strings.Join(parts[len(parts)-2:], ".")
	}
	return host
}

func matchAuthProfiles(rawURL string, profiles []model.AuthProfile) []MatchingAuthProfile {
	matches := []MatchingAuthProfile{}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return matches
	}
	host := u.Hostname()
	base := baseDomain(host)

	for _, p := range profiles {
		login, err := url.Parse(p.LoginURL)
		if err != nil || login.Hostname() == "" {
			continue
		}
		switch {
		case login.Hostname() == host:
			matches = append(matches, MatchingAuthProfile{ID: p.ID, Name: p.Name, MatchReason: "Same hostname"})
		case baseDomain(login.Hostname()) == base:
			matches = append(matches, MatchingAuthProfile{ID: p.ID, Name: p.Name, MatchReason: "Same domain"})
		}
	}
	return matches
}
