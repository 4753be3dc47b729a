package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	toolcore "github.com/harunnryd/minutes/internal/tool"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
)

func init() {
	toolcore.RegisterBuiltin("create_calendar_invite", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		return NewCalendarInviteTool(options)
	})
}

const (
	calendarProductID  = "-//Meeting Agent//EN"
	googleCalendarBase = "https://calendar.google.com/calendar/render"
	googleDateLayout   = "20060102T150405"
	isoLocalLayout     = "2006-01-02T15:04:05"
)

var isoLayouts = []string{
	time.RFC3339,
	isoLocalLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// CalendarInviteTool renders an .ics invite and a Google Calendar link, and
// publishes the event to a CalDAV collection when one is configured.
type CalendarInviteTool struct {
	options toolcore.BuiltinOptions
	caldav  *caldav.Client
}

func NewCalendarInviteTool(options toolcore.BuiltinOptions) (*CalendarInviteTool, error) {
	t := &CalendarInviteTool{options: options}

	endpoint := strings.TrimSpace(options.CalDAV.Endpoint)
	if endpoint == "" {
		return t, nil
	}

	timeout := options.CalDAV.Timeout
	if timeout <= 0 {
		timeout = toolcore.DefaultCalDAVTimeout
	}
	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	var client webdav.HTTPClient = httpClient
	if options.CalDAV.Username != "" {
		client = webdav.HTTPClientWithBasicAuth(httpClient, options.CalDAV.Username, options.CalDAV.Password)
	}

	cd, err := caldav.NewClient(client, endpoint)
	if err != nil {
		return nil, fmt.Errorf("caldav client: %w", err)
	}
	t.caldav = cd
	return t, nil
}

func (t *CalendarInviteTool) Name() string {
	return "create_calendar_invite"
}

func (t *CalendarInviteTool) Description() string {
	return "Create a calendar invite (.ics file) for a scheduled event mentioned in the meeting"
}

func (t *CalendarInviteTool) ToolMetadata() toolcore.ToolMetadata {
	meta := toolcore.ToolMetadata{
		ResultType:   "calendar_invite",
		Capabilities: []string{"calendar.ics"},
		Risk:         toolcore.RiskLow,
	}
	if t.caldav != nil {
		meta.Capabilities = append(meta.Capabilities, "calendar.publish")
		meta.Risk = toolcore.RiskMedium
	}
	return meta
}

func (t *CalendarInviteTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"title": map[string]interface{}{
				"type":        "string",
				"description": "Title of the calendar event",
			},
			"description": map[string]interface{}{
				"type":        "string",
				"description": "Description/agenda for the event",
			},
			"start_time": map[string]interface{}{
				"type":        "string",
				"description": "Start time in ISO 8601 format (e.g. 2026-02-20T14:00:00)",
			},
			"end_time": map[string]interface{}{
				"type":        "string",
				"description": "End time in ISO 8601 format (e.g. 2026-02-20T15:00:00)",
			},
			"attendees": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "List of attendee names or emails",
			},
		},
		"required": []string{"title", "start_time", "end_time"},
	}
}

type calendarInviteArgs struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	Attendees   []string `json:"attendees"`
}

type eventDetails struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	Attendees   []string `json:"attendees"`
}

type caldavRef struct {
	Href string `json:"href"`
	ETag string `json:"etag,omitempty"`
}

type calendarInviteResult struct {
	Type              string       `json:"type"`
	ICSContent        string       `json:"ics_content"`
	GoogleCalendarURL string       `json:"google_calendar_url"`
	EventDetails      eventDetails `json:"event_details"`
	CalDAV            *caldavRef   `json:"caldav,omitempty"`
}

func (t *CalendarInviteTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var args calendarInviteArgs
	if err := json.Unmarshal(input, &args); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	now := t.options.Clock()
	start, end := t.eventWindow(args.StartTime, args.EndTime, now)
	uid := uuid.NewString()

	cal := buildCalendar(uid, args, start, end, now)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode ics: %w", err)
	}

	result := calendarInviteResult{
		Type:              "calendar_invite",
		ICSContent:        buf.String(),
		GoogleCalendarURL: googleCalendarURL(args.Title, args.Description, start, end),
		EventDetails: eventDetails{
			Title:       args.Title,
			Description: args.Description,
			StartTime:   start.Format(isoLocalLayout),
			EndTime:     end.Format(isoLocalLayout),
			Attendees:   nonNil(args.Attendees),
		},
	}

	if t.caldav != nil {
		ref, err := t.publish(ctx, uid, cal)
		if err != nil {
			return nil, err
		}
		result.CalDAV = ref
	}

	return json.Marshal(result)
}

// eventWindow parses both bounds; if either fails the event falls back to
// 09:00-10:00 today.
func (t *CalendarInviteTool) eventWindow(startRaw, endRaw string, now time.Time) (time.Time, time.Time) {
	loc := t.options.TimeLocation()
	start, errStart := parseISO(startRaw, loc)
	end, errEnd := parseISO(endRaw, loc)
	if errStart != nil || errEnd != nil {
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		return day.Add(9 * time.Hour), day.Add(10 * time.Hour)
	}
	if !end.After(start) {
		end = start.Add(time.Hour)
	}
	return start, end
}

func parseISO(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range isoLayouts {
		if ts, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return ts.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("not an ISO 8601 date-time: %q", raw)
}

func buildCalendar(uid string, args calendarInviteArgs, start, end, now time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, calendarProductID)
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, uid)
	event.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, end.UTC())
	event.Props.SetText(ical.PropSummary, args.Title)
	event.Props.SetText(ical.PropDescription, args.Description)

	for _, attendee := range args.Attendees {
		attendee = strings.TrimSpace(attendee)
		if attendee == "" {
			continue
		}
		prop := ical.NewProp(ical.PropAttendee)
		if strings.Contains(attendee, "@") {
			prop.Value = "mailto:" + attendee
		} else {
			prop.Params.Set(ical.ParamCommonName, attendee)
			prop.Value = attendee
		}
		event.Props.Add(prop)
	}

	cal.Children = append(cal.Children, event.Component)
	return cal
}

func googleCalendarURL(title, description string, start, end time.Time) string {
	dates := start.Format(googleDateLayout) + "/" + end.Format(googleDateLayout)
	return fmt.Sprintf("%s?action=TEMPLATE&text=%s&dates=%s&details=%s",
		googleCalendarBase, quote(title), dates, quote(description))
}

func quote(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func (t *CalendarInviteTool) publish(ctx context.Context, uid string, cal *ical.Calendar) (*caldavRef, error) {
	collection := t.options.CalDAV.CalendarPath
	if collection == "" {
		collection = "/"
	}
	objectPath := path.Join(collection, uid+".ics")

	obj, err := t.caldav.PutCalendarObject(ctx, objectPath, cal)
	if err != nil {
		return nil, fmt.Errorf("publish to calendar server: %w", err)
	}
	return &caldavRef{Href: obj.Path, ETag: obj.ETag}, nil
}
