package tooling

import (
	"fmt"
	"strings"
	"time"

	"github.com/harunnryd/minutes/internal/config"
	"github.com/harunnryd/minutes/internal/tool"
)

func resolveBuiltinOptions(cfg *config.Config) (tool.BuiltinOptions, error) {
	if cfg == nil {
		return tool.BuiltinOptions{}, fmt.Errorf("config cannot be nil")
	}

	location, err := resolveLocation(cfg.Tools.Timezone)
	if err != nil {
		return tool.BuiltinOptions{}, fmt.Errorf("parse tools.timezone: %w", err)
	}

	caldavTimeout, err := config.DurationOrDefault(cfg.Tools.CalDAV.Timeout, config.DefaultCalDAVTimeout)
	if err != nil {
		return tool.BuiltinOptions{}, fmt.Errorf("parse tools.caldav.timeout: %w", err)
	}
	calendarPath := strings.TrimSpace(cfg.Tools.CalDAV.CalendarPath)
	if calendarPath == "" {
		calendarPath = config.DefaultCalDAVCalendarPath
	}

	emailFrom := strings.TrimSpace(cfg.Tools.Email.From)
	if emailFrom == "" {
		emailFrom = config.DefaultEmailFrom
	}

	return tool.BuiltinOptions{
		Location: location,
		CalDAV: tool.CalDAVOptions{
			Endpoint:     strings.TrimSpace(cfg.Tools.CalDAV.Endpoint),
			Username:     cfg.Tools.CalDAV.Username,
			Password:     cfg.Tools.CalDAV.Password,
			CalendarPath: calendarPath,
			Timeout:      caldavTimeout,
		},
		EmailFrom: emailFrom,
	}, nil
}

func resolveLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
