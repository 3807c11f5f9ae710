// Package config loads the scheduler's settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`

	AccessWindowMinutes int           `env:"ACCESS_WINDOW_MINUTES" envDefault:"30"`
	NotifyWindowMinutes int           `env:"NOTIFY_WINDOW_MINUTES" envDefault:"30"`
	GraceWindowMinutes  int           `env:"GRACE_WINDOW_MINUTES" envDefault:"60"`
	ReminderOffsets     []int         `env:"REMINDER_OFFSETS" envDefault:"4,3,2,1"`
	ReminderAnchorHour  int           `env:"REMINDER_ANCHOR_HOUR" envDefault:"9"`
	TransitionInterval  time.Duration `env:"TRANSITION_INTERVAL" envDefault:"60s"`

	SMTPHost         string `env:"SMTP_HOST,required"`
	SMTPPort         int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername     string `env:"SMTP_USERNAME"`
	SMTPPassword     string `env:"SMTP_PASSWORD"`
	SMTPFrom         string `env:"SMTP_FROM,required"`
	SMTPMaxPerSecond int    `env:"SMTP_MAX_PER_SECOND" envDefault:"10"`

	JoinTokenSecret string `env:"JOIN_TOKEN_SECRET,required"`
	JoinURL         string `env:"JOIN_URL" envDefault:"https://app.trialflow.example/join"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.AccessWindowMinutes < 0 || c.NotifyWindowMinutes < 0 || c.GraceWindowMinutes < 0 {
		return fmt.Errorf("config: window minutes must not be negative")
	}
	if c.ReminderAnchorHour < 0 || c.ReminderAnchorHour > 23 {
		return fmt.Errorf("config: reminder anchor hour %d out of range", c.ReminderAnchorHour)
	}
	if c.TransitionInterval < time.Second {
		return fmt.Errorf("config: transition interval %s too short", c.TransitionInterval)
	}
	for _, off := range c.ReminderOffsets {
		if off < 1 || off > 4 {
			return fmt.Errorf("config: reminder offset %d has no latch column", off)
		}
	}
	return nil
}
