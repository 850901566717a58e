// Package pipeline assembles a file copy pipeline from its definition and runs it.
package pipeline

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"

	storage "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/storage"
	config "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
	pipelinedef "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config/pipeline"
	directory "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/directory"
	repository "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/repository"
	metrics "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/metrics"
	port "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/port"
	logger "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// Dependencies are handed to every component builder.
type Dependencies struct {
	Cfg            *config.Config
	PipelineID     string
	Prepared       *directory.Prepared
	Storage        storage.StorageConnectionResolver
	History        repository.CopyHistoryRepository
	MetricRecorder metrics.MetricRecorder
	Tracer         metrics.Tracer
	// MaxMessagesPerPoll is the trigger's per-poll cap. Zero means unlimited.
	MaxMessagesPerPoll int
}

// SourceBuilder builds a Source from definition properties.
type SourceBuilder func(deps Dependencies, properties map[string]string) (port.Source, error)

// TransformerBuilder builds a Transformer from definition properties.
type TransformerBuilder func(deps Dependencies, properties map[string]string) (port.Transformer, error)

// SinkBuilder builds a Sink from definition properties.
type SinkBuilder func(deps Dependencies, properties map[string]string) (port.Sink, error)

// ListenerBuilder builds a PipelineListener from definition properties.
type ListenerBuilder func(deps Dependencies, properties map[string]string) (port.PipelineListener, error)

// Registry maps component reference names to their builders.
type Registry struct {
	mu           sync.RWMutex
	sources      map[string]SourceBuilder
	transformers map[string]TransformerBuilder
	sinks        map[string]SinkBuilder
	listeners    map[string]ListenerBuilder
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sources:      make(map[string]SourceBuilder),
		transformers: make(map[string]TransformerBuilder),
		sinks:        make(map[string]SinkBuilder),
		listeners:    make(map[string]ListenerBuilder),
	}
}

// RegisterSource registers a source builder under name. A later registration replaces an earlier one.
func (r *Registry) RegisterSource(name string, builder SourceBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[name] = builder
	logger.Debugf("Registry: registered source '%s'.", name)
}

// RegisterTransformer registers a transformer builder under name.
func (r *Registry) RegisterTransformer(name string, builder TransformerBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transformers[name] = builder
	logger.Debugf("Registry: registered transformer '%s'.", name)
}

// RegisterSink registers a sink builder under name.
func (r *Registry) RegisterSink(name string, builder SinkBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[name] = builder
	logger.Debugf("Registry: registered sink '%s'.", name)
}

// RegisterListener registers a listener builder under name.
func (r *Registry) RegisterListener(name string, builder ListenerBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners[name] = builder
	logger.Debugf("Registry: registered listener '%s'.", name)
}

// Refs returns the registered names per component kind, sorted.
func (r *Registry) Refs() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return map[string][]string{
		"source":      sortedKeys(r.sources),
		"transformer": sortedKeys(r.transformers),
		"sink":        sortedKeys(r.sinks),
		"listener":    sortedKeys(r.listeners),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Build constructs the components declared by def.
// On failure every component built so far that implements io.Closer is closed.
func (r *Registry) Build(def *pipelinedef.Definition, deps Dependencies) (*Pipeline, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	deps.PipelineID = def.ID
	deps.MaxMessagesPerPoll = def.Trigger.MaxMessagesPerPoll
	p := &Pipeline{
		id:             def.ID,
		name:           def.Name,
		trigger:        def.Trigger,
		metricRecorder: deps.MetricRecorder,
		tracer:         deps.Tracer,
	}
	if p.metricRecorder == nil {
		p.metricRecorder = metrics.NewNoOpMetricRecorder()
	}
	if p.tracer == nil {
		p.tracer = metrics.NewNoOpTracer()
	}

	fail := func(err error) (*Pipeline, error) {
		if closeErr := closeAll(p.closers()); closeErr != nil {
			logger.Warnf("Failed to close partially built pipeline '%s': %v", def.ID, closeErr)
		}
		return nil, err
	}

	sourceBuilder, ok := r.sources[def.Source.Ref]
	if !ok {
		return fail(fmt.Errorf("unknown source ref '%s'", def.Source.Ref))
	}
	source, err := sourceBuilder(deps, def.Source.Properties)
	if err != nil {
		return fail(fmt.Errorf("failed to build source '%s': %w", def.Source.Ref, err))
	}
	p.source = source

	for _, ref := range def.Transformers {
		builder, ok := r.transformers[ref.Ref]
		if !ok {
			return fail(fmt.Errorf("unknown transformer ref '%s'", ref.Ref))
		}
		t, err := builder(deps, ref.Properties)
		if err != nil {
			return fail(fmt.Errorf("failed to build transformer '%s': %w", ref.Ref, err))
		}
		p.transformers = append(p.transformers, t)
	}

	sinkBuilder, ok := r.sinks[def.Sink.Ref]
	if !ok {
		return fail(fmt.Errorf("unknown sink ref '%s'", def.Sink.Ref))
	}
	sink, err := sinkBuilder(deps, def.Sink.Properties)
	if err != nil {
		return fail(fmt.Errorf("failed to build sink '%s': %w", def.Sink.Ref, err))
	}
	p.sink = sink

	for _, ref := range def.Listeners {
		builder, ok := r.listeners[ref.Ref]
		if !ok {
			return fail(fmt.Errorf("unknown listener ref '%s'", ref.Ref))
		}
		l, err := builder(deps, ref.Properties)
		if err != nil {
			return fail(fmt.Errorf("failed to build listener '%s': %w", ref.Ref, err))
		}
		p.listeners = append(p.listeners, l)
	}
	return p, nil
}

func closeAll(closers []io.Closer) error {
	var result *multierror.Error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
