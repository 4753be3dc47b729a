package format

import (
	"encoding/json"

	"github.com/harunnryd/minutes/internal/meeting"
	"github.com/harunnryd/minutes/internal/tool"
)

type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) FormatMeetings(meetings []meeting.Summary) (string, error) {
	if meetings == nil {
		meetings = []meeting.Summary{}
	}
	return indent(meetings)
}

func (f *JSONFormatter) FormatMeeting(r *meeting.Record) (string, error) {
	if r == nil {
		return "null", nil
	}
	return indent(r)
}

func (f *JSONFormatter) FormatTools(tools []tool.ToolDescriptor) (string, error) {
	if tools == nil {
		tools = []tool.ToolDescriptor{}
	}
	return indent(tools)
}

func indent(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
