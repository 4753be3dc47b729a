package meeting

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Artifact is a stored tool result rendered as a downloadable file.
type Artifact struct {
	Filename    string
	ContentType string
	Body        []byte
}

type artifactFormat struct {
	field       string
	ext         string
	contentType string
}

var artifactFormats = map[string]artifactFormat{
	"calendar_invite": {field: "ics_content", ext: ".ics", contentType: "text/calendar; charset=utf-8"},
	"report":          {field: "markdown", ext: ".md", contentType: "text/markdown; charset=utf-8"},
	"decision_record": {field: "markdown", ext: ".md", contentType: "text/markdown; charset=utf-8"},
	"action_items":    {field: "markdown", ext: ".md", contentType: "text/markdown; charset=utf-8"},
	"email_summary":   {field: "eml", ext: ".eml", contentType: "message/rfc822"},
}

// ResultArtifact renders result index of the record. Results without a
// document form, or whose document field is missing, download as JSON.
func (r *Record) ResultArtifact(index int) (*Artifact, error) {
	if index < 0 || index >= len(r.Results) {
		return nil, fmt.Errorf("result %d out of range (meeting has %d)", index, len(r.Results))
	}
	raw := r.Results[index]
	kind := ResultType(raw)
	base := fmt.Sprintf("%s-%d", r.ID, index)
	if kind != "" {
		base += "-" + strings.ReplaceAll(kind, "_", "-")
	}

	if format, ok := artifactFormats[kind]; ok {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err == nil {
			var body string
			if err := json.Unmarshal(fields[format.field], &body); err == nil && body != "" {
				return &Artifact{
					Filename:    base + format.ext,
					ContentType: format.contentType,
					Body:        []byte(body),
				}, nil
			}
		}
	}

	return &Artifact{
		Filename:    base + ".json",
		ContentType: "application/json",
		Body:        append([]byte(nil), raw...),
	}, nil
}
