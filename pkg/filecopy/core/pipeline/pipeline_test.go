package pipeline_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	config "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
	pipelinedef "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config/pipeline"
	directory "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/directory"
	model "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
	pipeline "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/pipeline"
	port "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/port"
	exception "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/exception"
)

type staticSource struct {
	mu     sync.Mutex
	files  []string
	polls  int
	closed int
}

func (s *staticSource) Poll(ctx context.Context) ([]*model.FileMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls++
	var msgs []*model.FileMessage
	for _, f := range s.files {
		msgs = append(msgs, model.NewFileMessage("test", "", "input", f, 1, time.Unix(1, 0)))
	}
	s.files = nil
	return msgs, nil
}

func (s *staticSource) Ref() string { return "input" }

func (s *staticSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// ackingSource records the outcome the pipeline reports for every message.
type ackingSource struct {
	*staticSource
	acked  []string
	nacked []string
}

func (s *ackingSource) Ack(ctx context.Context, msg *model.FileMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acked = append(s.acked, msg.ObjectName)
}

func (s *ackingSource) Nack(ctx context.Context, msg *model.FileMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nacked = append(s.nacked, msg.ObjectName)
}

// blockingSink holds every write until release is closed, ignoring cancellation.
type blockingSink struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingSink) Write(ctx context.Context, msg *model.FileMessage) (*model.CopyRecord, error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return model.NewCopyRecord(msg, "output", model.CopyStatusCopied, nil), nil
}

type failingTransformer struct{ name string }

func (f failingTransformer) Transform(ctx context.Context, msg *model.FileMessage) (*model.FileMessage, error) {
	if msg.ObjectName == f.name {
		return nil, errors.New("corrupt")
	}
	return msg, nil
}

type mockSink struct{ mock.Mock }

func (m *mockSink) Write(ctx context.Context, msg *model.FileMessage) (*model.CopyRecord, error) {
	args := m.Called(ctx, msg)
	switch v := args.Get(0).(type) {
	case func(context.Context, *model.FileMessage) *model.CopyRecord:
		return v(ctx, msg), args.Error(1)
	case *model.CopyRecord:
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

type recordingListener struct {
	port.BaseListener
	mu     sync.Mutex
	before int
	after  []model.PipelineStatus
	polls  []int
	copied []string
	failed []error
}

func (l *recordingListener) BeforePipeline(ctx context.Context, stats *model.PipelineStats) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.before++
}

func (l *recordingListener) AfterPipeline(ctx context.Context, stats *model.PipelineStats) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.after = append(l.after, stats.Status)
}

func (l *recordingListener) OnPoll(ctx context.Context, pipelineID string, found int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.polls = append(l.polls, found)
}

func (l *recordingListener) OnMessageCopied(ctx context.Context, msg *model.FileMessage, rec *model.CopyRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.copied = append(l.copied, msg.ObjectName)
}

func (l *recordingListener) OnMessageFailed(ctx context.Context, msg *model.FileMessage, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failed = append(l.failed, err)
}

type fixture struct {
	source   *staticSource
	acking   *ackingSource
	blocking *blockingSink
	sink     *mockSink
	listener *recordingListener
	boot     *pipeline.DefaultBootstrapper
	cfg      *config.Config
}

func newFixture(t *testing.T, definitions fstest.MapFS) *fixture {
	t.Helper()
	f := &fixture{
		source:   &staticSource{files: []string{"a.bin", "bad.bin", "c.bin"}},
		sink:     &mockSink{},
		listener: &recordingListener{},
		cfg:      config.NewConfig(),
	}
	f.acking = &ackingSource{staticSource: f.source}
	f.blocking = &blockingSink{entered: make(chan struct{}), release: make(chan struct{})}
	registry := pipeline.NewRegistry()
	registry.RegisterSource("testSource", func(deps pipeline.Dependencies, props map[string]string) (port.Source, error) {
		return f.source, nil
	})
	registry.RegisterSource("ackingSource", func(deps pipeline.Dependencies, props map[string]string) (port.Source, error) {
		return f.acking, nil
	})
	registry.RegisterSink("blockingSink", func(deps pipeline.Dependencies, props map[string]string) (port.Sink, error) {
		return f.blocking, nil
	})
	registry.RegisterTransformer("rejectBad", func(deps pipeline.Dependencies, props map[string]string) (port.Transformer, error) {
		return failingTransformer{name: props["reject"]}, nil
	})
	registry.RegisterSink("testSink", func(deps pipeline.Dependencies, props map[string]string) (port.Sink, error) {
		return f.sink, nil
	})
	registry.RegisterListener("recording", func(deps pipeline.Dependencies, props map[string]string) (port.PipelineListener, error) {
		return f.listener, nil
	})

	f.boot = pipeline.NewBootstrapper(pipeline.BootstrapperParams{
		Cfg:      f.cfg,
		Resolver: pipelinedef.NewDefaultResourceResolver(definitions, nil, nil),
		Registry: registry,
	})
	return f
}

func prepare(t *testing.T) *directory.Prepared {
	t.Helper()
	root := t.TempDir()
	prepared, err := directory.NewFilesystemPreparer().Prepare(directory.Layout{Input: filepath.Join(root, "input"), Output: filepath.Join(root, "output")})
	require.NoError(t, err)
	return prepared
}

const onceDefinition = `
id: test
trigger: {mode: once}
source: {ref: testSource}
transformers:
  - {ref: rejectBad, properties: {reject: bad.bin}}
sink: {ref: testSink}
listeners:
  - {ref: recording}
`

func waitDone(t *testing.T, h *pipeline.Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not finish")
	}
}

func TestBootstrap_OnceMode(t *testing.T) {
	f := newFixture(t, fstest.MapFS{"once.yaml": {Data: []byte(onceDefinition)}})
	f.sink.On("Write", mock.Anything, mock.Anything).Return(func(ctx context.Context, msg *model.FileMessage) *model.CopyRecord {
		return model.NewCopyRecord(msg, "output", model.CopyStatusCopied, nil)
	}, nil)

	h, err := f.boot.Bootstrap(context.Background(), prepare(t), "once.yaml")
	require.NoError(t, err)
	assert.True(t, h.Once())
	waitDone(t, h)

	stats := h.Stats()
	assert.Equal(t, model.PipelineStatusCompleted, stats.Status)
	assert.Equal(t, int64(1), stats.Polls)
	assert.Equal(t, int64(2), stats.Copied)
	assert.Equal(t, int64(1), stats.Failed)
	assert.NoError(t, h.Err())

	assert.Equal(t, 1, f.listener.before)
	assert.Equal(t, []model.PipelineStatus{model.PipelineStatusCompleted}, f.listener.after)
	assert.Equal(t, []int{3}, f.listener.polls)
	assert.Equal(t, []string{"a.bin", "c.bin"}, f.listener.copied)
	require.Len(t, f.listener.failed, 1)
	var be *exception.BatchError
	require.ErrorAs(t, f.listener.failed[0], &be)
	assert.Equal(t, "transformer", be.Module)
	assert.True(t, be.IsSkippable())

	require.NoError(t, h.Stop(context.Background()))
	require.NoError(t, h.Stop(context.Background()))
	assert.Equal(t, 1, f.source.closed, "components are closed exactly once")
	assert.Len(t, f.listener.after, 1)
	f.sink.AssertNumberOfCalls(t, "Write", 2)
}

func TestBootstrap_PollModeStops(t *testing.T) {
	def := "id: test\ntrigger: {interval: 10ms}\nsource: {ref: testSource}\nsink: {ref: testSink}\nlisteners: [{ref: recording}]\n"
	f := newFixture(t, fstest.MapFS{"poll.yaml": {Data: []byte(def)}})
	f.sink.On("Write", mock.Anything, mock.Anything).Return(&model.CopyRecord{Status: model.CopyStatusSkipped}, nil)

	h, err := f.boot.Bootstrap(context.Background(), prepare(t), "poll.yaml")
	require.NoError(t, err)
	assert.False(t, h.Once())

	assert.Eventually(t, func() bool { return h.Stats().Polls >= 3 }, 5*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.Stop(ctx))
	waitDone(t, h)
	stats := h.Stats()
	assert.Equal(t, model.PipelineStatusStopped, stats.Status)
	assert.Equal(t, int64(3), stats.Skipped)
	assert.Equal(t, []model.PipelineStatus{model.PipelineStatusStopped}, f.listener.after)
}

func TestBootstrap_MaxMessagesPerPoll(t *testing.T) {
	def := "id: test\ntrigger: {mode: once, max_messages_per_poll: 1}\nsource: {ref: testSource}\nsink: {ref: testSink}\n"
	f := newFixture(t, fstest.MapFS{"max.yaml": {Data: []byte(def)}})
	f.sink.On("Write", mock.Anything, mock.Anything).Return(&model.CopyRecord{Status: model.CopyStatusCopied, Size: 1}, nil)

	h, err := f.boot.Bootstrap(context.Background(), prepare(t), "max.yaml")
	require.NoError(t, err)
	waitDone(t, h)
	assert.Equal(t, int64(1), h.Stats().Copied)
	assert.Equal(t, int64(1), h.Stats().BytesCopied)
}

func TestBootstrap_ReportsMessageOutcomesToSource(t *testing.T) {
	def := `
id: test
trigger: {mode: once, max_messages_per_poll: 2}
source: {ref: ackingSource}
transformers:
  - {ref: rejectBad, properties: {reject: bad.bin}}
sink: {ref: testSink}
`
	f := newFixture(t, fstest.MapFS{"ack.yaml": {Data: []byte(def)}})
	f.sink.On("Write", mock.Anything, mock.Anything).Return(func(ctx context.Context, msg *model.FileMessage) *model.CopyRecord {
		return model.NewCopyRecord(msg, "output", model.CopyStatusCopied, nil)
	}, nil)

	h, err := f.boot.Bootstrap(context.Background(), prepare(t), "ack.yaml")
	require.NoError(t, err)
	waitDone(t, h)

	f.source.mu.Lock()
	defer f.source.mu.Unlock()
	assert.Equal(t, []string{"a.bin"}, f.acking.acked)
	assert.ElementsMatch(t, []string{"bad.bin", "c.bin"}, f.acking.nacked, "failed and truncated messages are released")
}

func TestBootstrap_MaxMessagesPerPollReachesBuilders(t *testing.T) {
	def := "id: test\ntrigger: {mode: once, max_messages_per_poll: 7}\nsource: {ref: capturing}\nsink: {ref: testSink}\n"
	f := newFixture(t, fstest.MapFS{"cap.yaml": {Data: []byte(def)}})
	registry := pipeline.NewRegistry()
	var got int
	registry.RegisterSource("capturing", func(deps pipeline.Dependencies, props map[string]string) (port.Source, error) {
		got = deps.MaxMessagesPerPoll
		return &staticSource{}, nil
	})
	registry.RegisterSink("testSink", func(deps pipeline.Dependencies, props map[string]string) (port.Sink, error) {
		return f.sink, nil
	})
	boot := pipeline.NewBootstrapper(pipeline.BootstrapperParams{
		Cfg:      f.cfg,
		Resolver: pipelinedef.NewDefaultResourceResolver(fstest.MapFS{"cap.yaml": {Data: []byte(def)}}, nil, nil),
		Registry: registry,
	})

	h, err := boot.Bootstrap(context.Background(), prepare(t), "cap.yaml")
	require.NoError(t, err)
	waitDone(t, h)
	assert.Equal(t, 7, got)
}

func TestHandle_StopTimeoutDefersClose(t *testing.T) {
	def := "id: test\ntrigger: {interval: 10ms}\nsource: {ref: testSource}\nsink: {ref: blockingSink}\n"
	f := newFixture(t, fstest.MapFS{"block.yaml": {Data: []byte(def)}})

	h, err := f.boot.Bootstrap(context.Background(), prepare(t), "block.yaml")
	require.NoError(t, err)
	select {
	case <-f.blocking.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("sink was never called")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = h.Stop(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	f.source.mu.Lock()
	closed := f.source.closed
	f.source.mu.Unlock()
	assert.Equal(t, 0, closed, "components stay open while a write is in flight")

	close(f.blocking.release)
	waitDone(t, h)
	assert.Eventually(t, func() bool {
		f.source.mu.Lock()
		defer f.source.mu.Unlock()
		return f.source.closed == 1
	}, 5*time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, h.Stop(context.Background()), context.DeadlineExceeded)
}

func TestBootstrap_ForcedOnce(t *testing.T) {
	def := "id: test\nsource: {ref: testSource}\nsink: {ref: testSink}\n"
	f := newFixture(t, fstest.MapFS{"poll.yaml": {Data: []byte(def)}})
	f.cfg.FileCopy.Pipeline.Once = true
	f.sink.On("Write", mock.Anything, mock.Anything).Return(&model.CopyRecord{Status: model.CopyStatusCopied}, nil)

	h, err := f.boot.Bootstrap(context.Background(), prepare(t), "poll.yaml")
	require.NoError(t, err)
	assert.True(t, h.Once())
	waitDone(t, h)
	assert.Equal(t, model.PipelineStatusCompleted, h.Stats().Status)
}

func TestBootstrap_RefusesUnpreparedDirectories(t *testing.T) {
	f := newFixture(t, fstest.MapFS{"once.yaml": {Data: []byte(onceDefinition)}})

	h, err := f.boot.Bootstrap(context.Background(), nil, "once.yaml")
	assert.Nil(t, h)
	require.Error(t, err)
	assert.True(t, exception.IsFatal(err))
	assert.Equal(t, 0, f.source.polls)
}

func TestBootstrap_MissingConfiguration(t *testing.T) {
	f := newFixture(t, fstest.MapFS{})

	h, err := f.boot.Bootstrap(context.Background(), prepare(t), "does-not-exist.yaml")
	assert.Nil(t, h)
	assert.True(t, exception.IsConfigurationResolutionFailure(err))
	assert.Equal(t, 0, f.source.polls)
}

func TestBootstrap_UnknownRefClosesBuiltComponents(t *testing.T) {
	def := "id: test\nsource: {ref: testSource}\nsink: {ref: noSuchSink}\n"
	f := newFixture(t, fstest.MapFS{"bad.yaml": {Data: []byte(def)}})

	h, err := f.boot.Bootstrap(context.Background(), prepare(t), "bad.yaml")
	assert.Nil(t, h)
	require.Error(t, err)
	assert.True(t, exception.IsConfigurationResolutionFailure(err))
	assert.Contains(t, err.Error(), "noSuchSink")
	assert.Equal(t, 1, f.source.closed)
	assert.Equal(t, 0, f.source.polls)
}

func TestRegistry_Refs(t *testing.T) {
	registry := pipeline.NewRegistry()
	registry.RegisterSink("b", nil)
	registry.RegisterSink("a", nil)
	assert.Equal(t, []string{"a", "b"}, registry.Refs()["sink"])
	assert.Empty(t, registry.Refs()["source"])
}
