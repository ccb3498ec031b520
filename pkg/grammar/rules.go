package grammar

// Definition is a grammar as decoded from a grammar file, before any
// pattern is compiled.
type Definition struct {
	Name           string                    `json:"name,omitempty" yaml:"name,omitempty" plist:"name,omitempty"`
	ScopeName      string                    `json:"scopeName" yaml:"scopeName" plist:"scopeName"`
	FileTypes      []string                  `json:"fileTypes,omitempty" yaml:"fileTypes,omitempty" plist:"fileTypes,omitempty"`
	FirstLineMatch string                    `json:"firstLineMatch,omitempty" yaml:"firstLineMatch,omitempty" plist:"firstLineMatch,omitempty"`
	Patterns       []RuleDefinition          `json:"patterns,omitempty" yaml:"patterns,omitempty" plist:"patterns,omitempty"`
	Repository     map[string]RuleDefinition `json:"repository,omitempty" yaml:"repository,omitempty" plist:"repository,omitempty"`
}

// RuleDefinition is one grammar rule as written in the grammar file.
type RuleDefinition struct {
	Name          string                       `json:"name,omitempty" yaml:"name,omitempty" plist:"name,omitempty"`
	ContentName   string                       `json:"contentName,omitempty" yaml:"contentName,omitempty" plist:"contentName,omitempty"`
	Include       string                       `json:"include,omitempty" yaml:"include,omitempty" plist:"include,omitempty"`
	Match         string                       `json:"match,omitempty" yaml:"match,omitempty" plist:"match,omitempty"`
	Begin         string                       `json:"begin,omitempty" yaml:"begin,omitempty" plist:"begin,omitempty"`
	End           string                       `json:"end,omitempty" yaml:"end,omitempty" plist:"end,omitempty"`
	Captures      map[string]CaptureDefinition `json:"captures,omitempty" yaml:"captures,omitempty" plist:"captures,omitempty"`
	BeginCaptures map[string]CaptureDefinition `json:"beginCaptures,omitempty" yaml:"beginCaptures,omitempty" plist:"beginCaptures,omitempty"`
	EndCaptures   map[string]CaptureDefinition `json:"endCaptures,omitempty" yaml:"endCaptures,omitempty" plist:"endCaptures,omitempty"`
	Patterns      []RuleDefinition             `json:"patterns,omitempty" yaml:"patterns,omitempty" plist:"patterns,omitempty"`
}

// CaptureDefinition names the scope of one capture group.
type CaptureDefinition struct {
	Name string `json:"name" yaml:"name" plist:"name"`
}
