package types

// ScenarioSourceType identifies the kind of content a Scenario was built
// from.
type ScenarioSourceType string

const (
	ScenarioSourcePBL        ScenarioSourceType = "pbl"
	ScenarioSourceDiscovery  ScenarioSourceType = "discovery"
	ScenarioSourceAssessment ScenarioSourceType = "assessment"
)

func (t ScenarioSourceType) IsValid() bool {
	switch t {
	case ScenarioSourcePBL, ScenarioSourceDiscovery, ScenarioSourceAssessment:
		return true
	default:
		return false
	}
}

// ScenarioSourceRef points back at the content artifact a Scenario was
// ingested from.
type ScenarioSourceRef struct {
	Type     string         `json:"type"`
	SourceID string         `json:"sourceId,omitempty"`
	Path     string         `json:"path,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TaskTemplate is one step of a Scenario's blueprint, instantiated into a
// Task when a learner starts a Program.
type TaskTemplate struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Type        string         `json:"type"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Scenario is a reusable learning-content template. Created by content
// ingestion, read-only afterward except metadata edits; never deleted in
// normal operation.
type Scenario struct {
	Base
	SourceType    ScenarioSourceType `json:"sourceType"`
	SourceRef     ScenarioSourceRef  `json:"sourceRef"`
	Title         string             `json:"title"`
	Description   string             `json:"description,omitempty"`
	Objectives    []string           `json:"objectives,omitempty"`
	TaskTemplates []TaskTemplate     `json:"taskTemplates"`
	Metadata      map[string]any     `json:"metadata,omitempty"`
}
