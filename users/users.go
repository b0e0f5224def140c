package users

import (
	"fmt"
	"strings"
)

// SchemaVersion is bumped whenever Record changes shape, so that records
// written by an older build can be told apart in external session storage.
const SchemaVersion = 1

const ProviderGoogle = "google"

// Record is the user as the session layer knows it. No identity is minted
// here; Subject is the provider-issued identifier.
type Record struct {
	SchemaVersion int    `json:"schema_version"`
	Provider      string `json:"provider"`
	Subject       string `json:"sub"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name,omitempty"`
	GivenName     string `json:"given_name,omitempty"`
	FamilyName    string `json:"family_name,omitempty"`
	Picture       string `json:"picture,omitempty"`
	Locale        string `json:"locale,omitempty"`
	HostedDomain  string `json:"hd,omitempty"`
}

// GoogleProfile is the userinfo document returned by Google's OpenID
// Connect userinfo endpoint.
type GoogleProfile struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	Locale        string `json:"locale"`
	HostedDomain  string `json:"hd"`
}

// FromGoogleProfile maps a provider profile onto a Record. Fields the
// provider adds later are dropped here rather than leaking into sessions.
func FromGoogleProfile(p GoogleProfile) (Record, error) {
	sub := strings.TrimSpace(p.Sub)
	if sub == "" {
		return Record{}, fmt.Errorf("google profile has no subject")
	}

	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = strings.TrimSpace(p.GivenName + " " + p.FamilyName)
	}

	return Record{
		SchemaVersion: SchemaVersion,
		Provider:      ProviderGoogle,
		Subject:       sub,
		Email:         strings.ToLower(strings.TrimSpace(p.Email)),
		EmailVerified: p.EmailVerified,
		Name:          name,
		GivenName:     p.GivenName,
		FamilyName:    p.FamilyName,
		Picture:       p.Picture,
		Locale:        p.Locale,
		HostedDomain:  p.HostedDomain,
	}, nil
}

// DisplayName returns the best human readable label for the user.
func (r Record) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	if r.Email != "" {
		return r.Email
	}
	return r.Subject
}
