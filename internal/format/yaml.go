package format

import (
	"encoding/json"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harunnryd/minutes/internal/meeting"
	"github.com/harunnryd/minutes/internal/tool"
)

type YAMLFormatter struct{}

type recordView struct {
	ID         string        `yaml:"id"`
	Title      string        `yaml:"title"`
	CreatedAt  time.Time     `yaml:"created_at"`
	Summary    string        `yaml:"summary"`
	Results    []interface{} `yaml:"results"`
	Transcript string        `yaml:"transcript"`
}

func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

func (f *YAMLFormatter) FormatMeetings(meetings []meeting.Summary) (string, error) {
	if meetings == nil {
		meetings = []meeting.Summary{}
	}
	return marshalYAML(meetings)
}

// FormatMeeting decodes stored results so they render as YAML mappings
// rather than raw JSON strings.
func (f *YAMLFormatter) FormatMeeting(r *meeting.Record) (string, error) {
	if r == nil {
		return "null", nil
	}

	results := make([]interface{}, 0, len(r.Results))
	for _, raw := range r.Results {
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			v = string(raw)
		}
		results = append(results, v)
	}

	return marshalYAML(recordView{
		ID:         r.ID,
		Title:      r.Title,
		CreatedAt:  r.CreatedAt,
		Summary:    r.Summary,
		Results:    results,
		Transcript: r.Transcript,
	})
}

func (f *YAMLFormatter) FormatTools(tools []tool.ToolDescriptor) (string, error) {
	type toolView struct {
		Name         string                 `yaml:"name"`
		Description  string                 `yaml:"description"`
		ResultType   string                 `yaml:"result_type,omitempty"`
		Risk         tool.RiskLevel         `yaml:"risk"`
		Capabilities []string               `yaml:"capabilities,omitempty"`
		Parameters   map[string]interface{} `yaml:"parameters,omitempty"`
	}
	views := make([]toolView, 0, len(tools))
	for _, t := range tools {
		views = append(views, toolView{
			Name:         t.Name,
			Description:  t.Description,
			ResultType:   t.Metadata.ResultType,
			Risk:         t.Metadata.Risk,
			Capabilities: t.Metadata.Capabilities,
			Parameters:   t.Parameters,
		})
	}
	return marshalYAML(views)
}

func marshalYAML(v interface{}) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
