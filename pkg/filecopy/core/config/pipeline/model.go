// Package pipeline defines the YAML description of a file copy pipeline and
// the resolver that locates it by resource name.
package pipeline

import (
	"io/fs"
	"time"
)

// Trigger modes.
const (
	// ModePoll polls the source every Interval until the pipeline is stopped.
	ModePoll = "poll"
	// ModeOnce polls the source a single time and completes.
	ModeOnce = "once"
)

// DefaultInterval is used when a poll trigger does not declare one.
const DefaultInterval = 5 * time.Second

// EmbeddedDefinitions is the filesystem holding the bundled pipeline definitions.
type EmbeddedDefinitions fs.FS

// Definition is the top-level structure of a pipeline definition file.
type Definition struct {
	// ID is the unique identifier of the pipeline.
	ID string `yaml:"id"`
	// Name is the logical name of the pipeline.
	Name string `yaml:"name,omitempty"`
	// Description is an optional description.
	Description string `yaml:"description,omitempty"`
	// Trigger controls when the source is polled.
	Trigger Trigger `yaml:"trigger"`
	// Source is the component producing files.
	Source ComponentRef `yaml:"source"`
	// Transformers are applied in order to every message.
	Transformers []ComponentRef `yaml:"transformers,omitempty"`
	// Sink is the component writing files.
	Sink ComponentRef `yaml:"sink"`
	// Listeners observe the run.
	Listeners []ComponentRef `yaml:"listeners,omitempty"`
}

// Trigger configures polling.
type Trigger struct {
	// Mode is "poll" (default) or "once".
	Mode string `yaml:"mode,omitempty"`
	// Interval is the delay between polls, e.g. "5s".
	Interval time.Duration `yaml:"interval,omitempty"`
	// MaxMessagesPerPoll caps the messages processed per poll. Zero means unlimited.
	MaxMessagesPerPoll int `yaml:"max_messages_per_poll,omitempty"`
}

// IsOnce reports whether the trigger polls a single time.
func (t Trigger) IsOnce() bool {
	return t.Mode == ModeOnce
}

// ComponentRef refers to a registered component.
type ComponentRef struct {
	// Ref is the reference name of the component.
	Ref string `yaml:"ref"`
	// Properties is an optional map of properties passed to the component builder.
	Properties map[string]string `yaml:"properties,omitempty"`
}
