package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DispatchProfile tunes the dispatch engine. The holding window and entry
// lead differ between deployment profiles, so both are configuration rather
// than constants.
type DispatchProfile struct {
	EntryLeadMinutes     int `yaml:"entry_lead_minutes"`
	HoldingWindowMinutes int `yaml:"holding_window_minutes"`
	CooldownMinutes      int `yaml:"cooldown_minutes"`

	// Daily window (hours, local time) in which automatic signals fire
	ActiveWindowStartHour int `yaml:"active_window_start_hour"`
	ActiveWindowEndHour   int `yaml:"active_window_end_hour"`

	// Automatic signal attempts planned per active hour
	AutoSignalsMin int `yaml:"auto_signals_min"`
	AutoSignalsMax int `yaml:"auto_signals_max"`

	// Outcome announcements
	WinSticker   string   `yaml:"win_sticker"`
	LossMessages []string `yaml:"loss_messages"`
}

// DefaultProfile returns the canonical configuration
func DefaultProfile() DispatchProfile {
	return DispatchProfile{
		EntryLeadMinutes:      3,
		HoldingWindowMinutes:  6,
		CooldownMinutes:       12,
		ActiveWindowStartHour: 9,
		ActiveWindowEndHour:   23,
		AutoSignalsMin:        1,
		AutoSignalsMax:        4,
		LossMessages: []string{
			"Stopped out! Stick to the management plan.",
			"That one slipped away, on to the next.",
			"Loss taken, discipline kept. Back to work.",
			"Didn't respect the level. Next signal incoming.",
		},
	}
}

// LoadProfile reads the YAML profile at path over the defaults. A missing
// file is not an error; the defaults apply.
func LoadProfile(path string) (DispatchProfile, error) {
	profile := DefaultProfile()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("No dispatch profile at %s, using defaults", path)
			return profile, nil
		}
		return profile, fmt.Errorf("failed to read dispatch profile: %w", err)
	}

	if err := yaml.Unmarshal(data, &profile); err != nil {
		return profile, fmt.Errorf("failed to parse dispatch profile: %w", err)
	}
	if err := profile.Validate(); err != nil {
		return profile, err
	}

	log.Printf("Loaded dispatch profile from %s", path)
	return profile, nil
}

// Validate rejects profiles the engine cannot run with
func (p DispatchProfile) Validate() error {
	if p.EntryLeadMinutes < 0 || p.HoldingWindowMinutes <= 0 || p.CooldownMinutes < 0 {
		return fmt.Errorf("dispatch profile durations must be positive")
	}
	if p.ActiveWindowStartHour < 0 || p.ActiveWindowEndHour > 24 || p.ActiveWindowStartHour >= p.ActiveWindowEndHour {
		return fmt.Errorf("dispatch profile active window %d-%d is invalid", p.ActiveWindowStartHour, p.ActiveWindowEndHour)
	}
	if p.AutoSignalsMin < 1 || p.AutoSignalsMax < p.AutoSignalsMin {
		return fmt.Errorf("dispatch profile auto signal range %d-%d is invalid", p.AutoSignalsMin, p.AutoSignalsMax)
	}
	return nil
}

// EntryLead is the minimum distance to an entry announcement
func (p DispatchProfile) EntryLead() time.Duration {
	return time.Duration(p.EntryLeadMinutes) * time.Minute
}

// HoldingWindow is the duration between entry and exit price samples
func (p DispatchProfile) HoldingWindow() time.Duration {
	return time.Duration(p.HoldingWindowMinutes) * time.Minute
}

// Cooldown is the minimum interval between automatic signals
func (p DispatchProfile) Cooldown() time.Duration {
	return time.Duration(p.CooldownMinutes) * time.Minute
}
