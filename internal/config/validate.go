package config

import (
	"fmt"
	"strings"

	"homescout-engine/internal/domain"
)

// Validate checks the loaded config and collects every problem into one
// error. A bad config is fatal before any processing starts.
func Validate(cfg Config) error {
	var errs []string

	switch cfg.Mail.Provider {
	case "gmail":
		if cfg.Mail.Gmail.CredentialsFile == "" {
			errs = append(errs, "mail.gmail.credentials_file is required")
		}
		if cfg.Mail.Gmail.TokenFile == "" {
			errs = append(errs, "mail.gmail.token_file is required")
		}
	case "imap":
		if cfg.Mail.IMAP.Host == "" {
			errs = append(errs, "mail.imap.host is required")
		}
		if cfg.Mail.IMAP.Username == "" {
			errs = append(errs, "mail.imap.username is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("mail.provider must be gmail or imap, got %q", cfg.Mail.Provider))
	}

	if strings.TrimSpace(cfg.Mail.SubjectMarker) == "" {
		errs = append(errs, "mail.subject_marker is required")
	}
	if cfg.Mail.WindowDays < 1 {
		errs = append(errs, "mail.window_days must be >= 1")
	}

	if len(cfg.Constraints) == 0 {
		errs = append(errs, "constraints must have at least 1 entry")
	}
	for i, wc := range cfg.Constraints {
		if wc.Person == "" {
			errs = append(errs, fmt.Sprintf("constraints[%d].person is required", i))
		}
		if wc.TargetAddress == "" {
			errs = append(errs, fmt.Sprintf("constraints[%d].target_address is required", i))
		}
		if !domain.TransportMode(wc.Mode).Valid() {
			errs = append(errs, fmt.Sprintf("constraints[%d].mode must be BICYCLE, DRIVE, WALK or TRANSIT, got %q", i, wc.Mode))
		}
		if wc.MaxMinutes <= 0 {
			errs = append(errs, fmt.Sprintf("constraints[%d].max_minutes must be > 0", i))
		}
	}

	if cfg.Notify.Enabled {
		if cfg.Notify.From == "" {
			errs = append(errs, "notify.from is required when notify.enabled")
		}
		if len(cfg.Notify.Recipients) == 0 {
			errs = append(errs, "notify.recipients must have at least 1 entry when notify.enabled")
		}
		if cfg.Notify.SMTPHost == "" {
			errs = append(errs, "notify.smtp_host is required when notify.enabled")
		}
	}

	if cfg.Google.RequestsPerSecond <= 0 {
		errs = append(errs, "google.requests_per_second must be > 0")
	}
	if cfg.Scout.MaxParallelListings < 1 {
		errs = append(errs, "scout.max_parallel_listings must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
