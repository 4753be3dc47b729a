package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"

	toolcore "github.com/harunnryd/minutes/internal/tool"

	"github.com/emersion/go-message/mail"
)

func init() {
	toolcore.RegisterBuiltin("create_email_summary", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		return &EmailSummaryTool{options: options}, nil
	})
}

const defaultEmailFrom = "Meeting Agent <minutes@localhost>"

// EmailSummaryTool drafts a follow-up email. Nothing is sent; the draft is
// returned as plain text, HTML and a complete RFC 5322 message.
type EmailSummaryTool struct {
	options toolcore.BuiltinOptions
}

func (t *EmailSummaryTool) Name() string {
	return "create_email_summary"
}

func (t *EmailSummaryTool) Description() string {
	return "Draft a ready-to-send follow-up email summarizing the meeting"
}

func (t *EmailSummaryTool) ToolMetadata() toolcore.ToolMetadata {
	return toolcore.ToolMetadata{
		ResultType:   "email_summary",
		Capabilities: []string{"email.draft"},
		Risk:         toolcore.RiskLow,
	}
}

func (t *EmailSummaryTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"subject": map[string]interface{}{
				"type":        "string",
				"description": "Email subject line",
			},
			"body": map[string]interface{}{
				"type":        "string",
				"description": "Summary body in markdown",
			},
			"attendees": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Recipients (names or email addresses)",
			},
			"date": map[string]interface{}{
				"type":        "string",
				"description": "Date of the meeting",
			},
		},
		"required": []string{"subject", "body"},
	}
}

func (t *EmailSummaryTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	_ = ctx

	var args struct {
		Subject   string   `json:"subject"`
		Body      string   `json:"body"`
		Attendees []string `json:"attendees"`
		Date      string   `json:"date"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	now := t.options.Clock()
	date := orDefault(args.Date, now.Format(dateLayout))
	recipients := joinOr(args.Attendees, "Team")

	bodyPlain := fmt.Sprintf("Hi %s,\n\nHere is the summary from our meeting on %s:\n\n%s\n\nBest regards,\nMeeting Agent\n",
		recipients, date, markdownToPlain(args.Body))

	bodyFragment, err := renderHTML(args.Body)
	if err != nil {
		return nil, err
	}
	bodyHTML := fmt.Sprintf(`<div style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; color: #333;">
  <p>Hi %s,</p>
  <p>Here is the summary from our meeting on <strong>%s</strong>:</p>
  <hr style="border: none; border-top: 1px solid #e5e5e5; margin: 16px 0;" />
  <div style="line-height: 1.6;">%s</div>
  <hr style="border: none; border-top: 1px solid #e5e5e5; margin: 16px 0;" />
  <p style="color: #888; font-size: 12px;">Best regards,<br/>Meeting Agent</p>
</div>`, html.EscapeString(recipients), html.EscapeString(date), bodyFragment)

	eml, err := t.composeDraft(args.Subject, args.Attendees, bodyPlain, bodyHTML)
	if err != nil {
		return nil, err
	}

	return json.Marshal(map[string]interface{}{
		"type":       "email_summary",
		"subject":    args.Subject,
		"body_plain": bodyPlain,
		"body_html":  bodyHTML,
		"eml":        eml,
		"metadata": map[string]interface{}{
			"subject":   args.Subject,
			"date":      date,
			"attendees": nonNil(args.Attendees),
			"body":      args.Body,
		},
	})
}

// composeDraft builds a multipart/alternative message. Attendees given only
// by name have no address and are left off the To header.
func (t *EmailSummaryTool) composeDraft(subject string, attendees []string, plain, htmlBody string) (string, error) {
	var h mail.Header
	h.SetDate(t.options.Clock())
	if err := h.GenerateMessageID(); err != nil {
		return "", fmt.Errorf("generate message-id: %w", err)
	}
	h.SetSubject(subject)

	from, err := mail.ParseAddress(orDefault(t.options.EmailFrom, defaultEmailFrom))
	if err != nil {
		return "", fmt.Errorf("parse from address: %w", err)
	}
	h.SetAddressList("From", []*mail.Address{from})

	var to []*mail.Address
	for _, a := range attendees {
		if !strings.Contains(a, "@") {
			continue
		}
		if parsed, err := mail.ParseAddress(a); err == nil {
			to = append(to, parsed)
		}
	}
	if len(to) > 0 {
		h.SetAddressList("To", to)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return "", fmt.Errorf("create mail writer: %w", err)
	}
	tw, err := mw.CreateInline()
	if err != nil {
		return "", fmt.Errorf("create inline writer: %w", err)
	}

	for _, part := range []struct{ contentType, body string }{
		{"text/plain; charset=utf-8", plain},
		{"text/html; charset=utf-8", htmlBody},
	} {
		var ih mail.InlineHeader
		ih.Set("Content-Type", part.contentType)
		pw, err := tw.CreatePart(ih)
		if err != nil {
			return "", fmt.Errorf("create part: %w", err)
		}
		if _, err := io.WriteString(pw, part.body); err != nil {
			return "", fmt.Errorf("write part: %w", err)
		}
		if err := pw.Close(); err != nil {
			return "", fmt.Errorf("close part: %w", err)
		}
	}

	if err := tw.Close(); err != nil {
		return "", fmt.Errorf("close inline writer: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close mail writer: %w", err)
	}
	return buf.String(), nil
}
