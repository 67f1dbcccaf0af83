package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/tgienger/worksphere/internal/logging"
)

// ValidationError describes one invalid configuration value
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects every problem found by Validate
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns nil when it is usable
func (c *Config) Validate() error {
	var errs ValidationErrors

	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{"api.base_url", c.API.BaseURL, "must be an absolute URL"})
	}
	if c.API.Timeout < 0 {
		errs = append(errs, ValidationError{"api.timeout", c.API.Timeout, "must not be negative"})
	}

	switch c.UI.Language {
	case "vi", "en":
	default:
		errs = append(errs, ValidationError{"ui.language", c.UI.Language, "must be vi or en"})
	}

	if !logging.ValidLevel(c.Logging.Level) {
		errs = append(errs, ValidationError{"logging.level", c.Logging.Level, "must be DEBUG, INFO, WARN or ERROR"})
	}

	if c.Server.Addr == "" {
		errs = append(errs, ValidationError{"server.addr", c.Server.Addr, "must not be empty"})
	}
	if c.Server.DBPath == "" {
		errs = append(errs, ValidationError{"server.db_path", c.Server.DBPath, "must not be empty"})
	}
	if c.Server.AutolockSchedule != "" {
		if _, err := cron.ParseStandard(c.Server.AutolockSchedule); err != nil {
			errs = append(errs, ValidationError{"server.autolock_schedule", c.Server.AutolockSchedule, err.Error()})
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
