package tool

import (
	"sort"
	"strings"

	"github.com/harunnryd/minutes/internal/model/contract"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ToolMetadata describes what a tool produces and touches. When ResultType
// is set, the executor rejects a successful payload tagged with any other
// type.
type ToolMetadata struct {
	ResultType   string    `json:"result_type,omitempty" yaml:"result_type,omitempty"`
	Capabilities []string  `json:"capabilities" yaml:"capabilities"`
	Risk         RiskLevel `json:"risk" yaml:"risk"`
}

type MetadataProvider interface {
	ToolMetadata() ToolMetadata
}

// ToolDescriptor is a tool's advertised schema together with its metadata.
type ToolDescriptor struct {
	contract.ToolDef `yaml:",inline"`
	Metadata         ToolMetadata `json:"metadata" yaml:"metadata"`
}

func metadataOf(t Tool) ToolMetadata {
	var meta ToolMetadata
	if provider, ok := t.(MetadataProvider); ok {
		meta = provider.ToolMetadata()
	}
	return meta.normalized()
}

// normalized lowercases and dedupes capabilities and treats an unknown risk
// as medium.
func (m ToolMetadata) normalized() ToolMetadata {
	risk := RiskLevel(strings.ToLower(strings.TrimSpace(string(m.Risk))))
	if risk != RiskLow && risk != RiskHigh {
		risk = RiskMedium
	}

	set := make(map[string]struct{}, len(m.Capabilities))
	for _, c := range m.Capabilities {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			set[c] = struct{}{}
		}
	}
	capabilities := make([]string, 0, len(set))
	for c := range set {
		capabilities = append(capabilities, c)
	}
	sort.Strings(capabilities)

	return ToolMetadata{
		ResultType:   strings.TrimSpace(m.ResultType),
		Capabilities: capabilities,
		Risk:         risk,
	}
}
