// Package config loads and validates the YAML configuration file.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"homescout-engine/internal/domain"
)

type Constraint struct {
	Person        string `yaml:"person"`
	TargetName    string `yaml:"target_name"`
	TargetAddress string `yaml:"target_address"`
	Mode          string `yaml:"mode"`
	MaxMinutes    int    `yaml:"max_minutes"`
}

type Config struct {
	App struct {
		DataDir          string `yaml:"data_dir"`
		RunIntervalHours int    `yaml:"run_interval_hours"`
		DaemonSeconds    int    `yaml:"daemon_seconds"`
	} `yaml:"app"`

	Mail struct {
		Provider      string `yaml:"provider"` // gmail or imap
		SubjectMarker string `yaml:"subject_marker"`
		WindowDays    int    `yaml:"window_days"`

		Gmail struct {
			CredentialsFile string `yaml:"credentials_file"`
			TokenFile       string `yaml:"token_file"`
			DeliveredTo     string `yaml:"delivered_to"` // optional to: filter
		} `yaml:"gmail"`

		IMAP struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Username string `yaml:"username"`
			Mailbox  string `yaml:"mailbox"`
		} `yaml:"imap"`
	} `yaml:"mail"`

	Google struct {
		APIKeyEnv          string  `yaml:"api_key_env"` // env var holding the key; keyring fallback
		RequestsPerSecond  float64 `yaml:"requests_per_second"`
		Burst              int     `yaml:"burst"`
		CallTimeoutSeconds int     `yaml:"call_timeout_seconds"`
	} `yaml:"google"`

	Scout struct {
		MaxParallelListings int `yaml:"max_parallel_listings"`
	} `yaml:"scout"`

	Constraints []Constraint `yaml:"constraints"`

	Notify struct {
		Enabled    bool     `yaml:"enabled"`
		From       string   `yaml:"from"`
		Recipients []string `yaml:"recipients"`
		SMTPHost   string   `yaml:"smtp_host"`
		SMTPPort   int      `yaml:"smtp_port"`
	} `yaml:"notify"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.DataDir == "" {
		c.App.DataDir = "."
	}
	if c.App.RunIntervalHours == 0 {
		c.App.RunIntervalHours = 24
	}
	if c.Mail.Provider == "" {
		c.Mail.Provider = "gmail"
	}
	if c.Mail.WindowDays == 0 {
		c.Mail.WindowDays = 1
	}
	if c.Mail.IMAP.Port == 0 {
		c.Mail.IMAP.Port = 993
	}
	if c.Mail.IMAP.Mailbox == "" {
		c.Mail.IMAP.Mailbox = "INBOX"
	}
	if c.Google.APIKeyEnv == "" {
		c.Google.APIKeyEnv = "GOOGLE_HOUSE_HUNT_API_KEY"
	}
	if c.Google.RequestsPerSecond == 0 {
		c.Google.RequestsPerSecond = 2.0
	}
	if c.Google.Burst == 0 {
		c.Google.Burst = 4
	}
	if c.Google.CallTimeoutSeconds == 0 {
		c.Google.CallTimeoutSeconds = 20
	}
	if c.Scout.MaxParallelListings == 0 {
		c.Scout.MaxParallelListings = 4
	}
	if c.Notify.SMTPPort == 0 {
		c.Notify.SMTPPort = 587
	}
}

// RunInterval is the minimum gap between notified runs.
func (c Config) RunInterval() time.Duration {
	return time.Duration(c.App.RunIntervalHours) * time.Hour
}

func (c Config) CallTimeout() time.Duration {
	return time.Duration(c.Google.CallTimeoutSeconds) * time.Second
}

// DomainConstraints converts the YAML constraint block into the immutable
// set the evaluator runs against, preserving declaration order.
func (c Config) DomainConstraints() []domain.LocationConstraint {
	out := make([]domain.LocationConstraint, 0, len(c.Constraints))
	for _, wc := range c.Constraints {
		out = append(out, domain.LocationConstraint{
			PersonName:          wc.Person,
			TargetName:          wc.TargetName,
			TargetAddress:       wc.TargetAddress,
			TransportMode:       domain.TransportMode(wc.Mode),
			MaxTransportMinutes: wc.MaxMinutes,
		})
	}
	return out
}
