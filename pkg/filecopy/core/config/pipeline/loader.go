package pipeline

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	config "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
	exception "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/exception"
	logger "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// ParseDefinition expands placeholders in data, decodes it and applies defaults.
// Every failure is a ConfigurationResolutionFailure for resource.
func ParseDefinition(resource string, data []byte, expander config.EnvironmentExpander) (*Definition, error) {
	if expander != nil {
		expanded, err := expander.Expand(data)
		if err != nil {
			return nil, exception.NewConfigurationResolutionFailure(resource, "Failed to expand pipeline definition", err)
		}
		data = expanded
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, exception.NewConfigurationResolutionFailure(resource, "Failed to parse pipeline definition", err)
	}
	if err := def.normalize(); err != nil {
		return nil, exception.NewConfigurationResolutionFailure(resource, err.Error(), nil)
	}
	logger.Debugf("Parsed pipeline definition '%s' from '%s'.", def.ID, resource)
	return &def, nil
}

// normalize validates the definition and fills in defaults.
func (d *Definition) normalize() error {
	if d.ID == "" {
		return fmt.Errorf("'id' is not defined in pipeline definition")
	}
	if d.Name == "" {
		d.Name = d.ID
	}
	if d.Source.Ref == "" {
		return fmt.Errorf("pipeline '%s' does not have 'source.ref' defined", d.ID)
	}
	if d.Sink.Ref == "" {
		return fmt.Errorf("pipeline '%s' does not have 'sink.ref' defined", d.ID)
	}
	for i, t := range d.Transformers {
		if t.Ref == "" {
			return fmt.Errorf("pipeline '%s' transformer #%d does not have 'ref' defined", d.ID, i+1)
		}
	}
	for i, l := range d.Listeners {
		if l.Ref == "" {
			return fmt.Errorf("pipeline '%s' listener #%d does not have 'ref' defined", d.ID, i+1)
		}
	}

	d.Trigger.Mode = strings.ToLower(strings.TrimSpace(d.Trigger.Mode))
	switch d.Trigger.Mode {
	case "":
		d.Trigger.Mode = ModePoll
	case ModePoll, ModeOnce:
	default:
		return fmt.Errorf("pipeline '%s' has unknown trigger mode '%s'", d.ID, d.Trigger.Mode)
	}
	if d.Trigger.Interval < 0 {
		return fmt.Errorf("pipeline '%s' trigger interval must be positive", d.ID)
	}
	if d.Trigger.Interval == 0 {
		d.Trigger.Interval = DefaultInterval
	}
	if d.Trigger.MaxMessagesPerPoll < 0 {
		return fmt.Errorf("pipeline '%s' max_messages_per_poll must not be negative", d.ID)
	}
	return nil
}
