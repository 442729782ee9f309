// Package config loads the tracker configuration from a YAML file with
// environment overrides for secrets. Every field has a default; a
// missing config file is not an error.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/reset"
)

// Duration parses YAML strings like "10m" into a time.Duration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the full tracker configuration.
type Config struct {
	HTB struct {
		APIURL string `yaml:"api_url"`
		Token  string `yaml:"token"`
	} `yaml:"htb"`

	Discord struct {
		WebhookURL string `yaml:"webhook_url"`
	} `yaml:"discord"`

	Goals struct {
		Machines   int `yaml:"machines"`
		Challenges int `yaml:"challenges"`
	} `yaml:"goals"`

	Poll struct {
		Interval Duration `yaml:"interval"`
	} `yaml:"poll"`

	Reset struct {
		// Weekday is the English weekday name, case-insensitive.
		Weekday string `yaml:"weekday"`
		// Time is the local trigger time-of-day, "HH:MM".
		Time string `yaml:"time"`
		// Timezone is an IANA zone name.
		Timezone string `yaml:"timezone"`
	} `yaml:"reset"`

	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
}

// Default returns the built-in configuration.
func Default() Config {
	var c Config
	c.HTB.APIURL = "https://labs.hackthebox.com"
	c.Goals.Machines = 1
	c.Goals.Challenges = 2
	c.Poll.Interval = Duration(10 * time.Minute)
	c.Reset.Weekday = "Saturday"
	c.Reset.Time = "21:00"
	c.Reset.Timezone = "Europe/Athens"
	c.Store.Path = "htb_data.json"
	return c
}

// Load reads the file at path over the defaults, then applies env
// overrides. A missing file is fine; a malformed one is not.
func Load(path string) (Config, error) {
	c := Default()

	raw, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return c, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err == nil {
		if err := yaml.Unmarshal(raw, &c); err != nil {
			return c, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if token := os.Getenv("HTB_API_TOKEN"); token != "" {
		c.HTB.Token = token
	}
	if url := os.Getenv("HTB_API_URL"); url != "" {
		c.HTB.APIURL = url
	}
	if webhook := os.Getenv("DISCORD_WEBHOOK_URL"); webhook != "" {
		c.Discord.WebhookURL = webhook
	}

	if err := c.validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c Config) validate() error {
	if c.Goals.Machines < 0 || c.Goals.Challenges < 0 {
		return fmt.Errorf("goals must be non-negative, got %d/%d", c.Goals.Machines, c.Goals.Challenges)
	}
	if time.Duration(c.Poll.Interval) < time.Minute {
		return fmt.Errorf("poll interval %s is below the 1m minimum", time.Duration(c.Poll.Interval))
	}
	if _, err := c.Schedule(); err != nil {
		return err
	}
	return nil
}

// GoalSet returns the weekly thresholds.
func (c Config) GoalSet() reset.Goals {
	return reset.Goals{Machines: c.Goals.Machines, Challenges: c.Goals.Challenges}
}

// Schedule resolves the reset trigger into a reset.Schedule.
func (c Config) Schedule() (reset.Schedule, error) {
	weekday, err := parseWeekday(c.Reset.Weekday)
	if err != nil {
		return reset.Schedule{}, err
	}

	var hour, minute int
	if _, err := fmt.Sscanf(c.Reset.Time, "%d:%d", &hour, &minute); err != nil {
		return reset.Schedule{}, fmt.Errorf("invalid reset time %q: %w", c.Reset.Time, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return reset.Schedule{}, fmt.Errorf("reset time %q out of range", c.Reset.Time)
	}

	loc, err := time.LoadLocation(c.Reset.Timezone)
	if err != nil {
		return reset.Schedule{}, fmt.Errorf("invalid reset timezone %q: %w", c.Reset.Timezone, err)
	}
	return reset.Schedule{Weekday: weekday, Hour: hour, Minute: minute, Location: loc}, nil
}

func parseWeekday(name string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), name) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid reset weekday %q", name)
}
