// Package profile models the caller attributes attached to a session.
// A Profile is an immutable snapshot taken once at session creation;
// absence of a field is an empty string, never a missing key, so prompt
// assembly can branch on each field explicitly.
package profile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is a fixed-shape caller record.
type Profile struct {
	Name              string `yaml:"name" json:"name,omitempty"`
	LastVisitDate     string `yaml:"last_visit_date" json:"last_visit_date,omitempty"`
	ProductsViewed    string `yaml:"products_viewed" json:"products_viewed,omitempty"`
	PreviousPurchases string `yaml:"previous_purchases" json:"previous_purchases,omitempty"`
	Interests         string `yaml:"interests" json:"interests,omitempty"`
	AgeGroup          string `yaml:"age_group" json:"age_group,omitempty"`
	DeviceUsage       string `yaml:"device_usage" json:"device_usage,omitempty"`
}

// Lookup resolves a caller profile for a call. Implementations stand in for
// a CRM integration; the call id and phone number are the only correlation
// keys the telephony leg provides.
type Lookup interface {
	Lookup(callID, phone string) (Profile, error)
}

// DefaultProfile is the demo record used when no CRM data is available.
func DefaultProfile() Profile {
	return Profile{
		Name:              "Michael",
		LastVisitDate:     "April 10, 2025",
		ProductsViewed:    "Smart Home Hub, Voice Assistant Speaker",
		PreviousPurchases: "Annual Premium Subscription (expired last month)",
		Interests:         "Home automation, Music streaming, Productivity apps",
		AgeGroup:          "30-45",
		DeviceUsage:       "Smartphone, Laptop, Smart TV",
	}
}

// StaticLookup returns the same profile for every caller.
type StaticLookup struct {
	Profile Profile
}

// NewStaticLookup builds a lookup that always answers with p.
// A zero-value p falls back to the demo record.
func NewStaticLookup(p Profile) *StaticLookup {
	if p == (Profile{}) {
		p = DefaultProfile()
	}
	return &StaticLookup{Profile: p}
}

func (l *StaticLookup) Lookup(callID, phone string) (Profile, error) {
	return l.Profile, nil
}

// FileLookup resolves profiles from a YAML file keyed by phone number.
//
// File shape:
//
//	"+15551234567":
//	  name: Dana
//	  interests: Smart lighting
type FileLookup struct {
	profiles map[string]Profile

	// Strict makes unknown phone numbers an error instead of falling back.
	Strict bool

	// Fallback is returned for unknown callers when Strict is false.
	Fallback Profile
}

// NewFileLookup loads the profile file at path.
func NewFileLookup(path string) (*FileLookup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}

	profiles := make(map[string]Profile)
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("parse profiles file %s: %w", path, err)
	}

	return &FileLookup{
		profiles: profiles,
		Fallback: DefaultProfile(),
	}, nil
}

func (l *FileLookup) Lookup(callID, phone string) (Profile, error) {
	if p, ok := l.profiles[phone]; ok {
		return p, nil
	}
	if l.Strict {
		return Profile{}, fmt.Errorf("no profile for caller %q (call %s)", phone, callID)
	}
	return l.Fallback, nil
}
