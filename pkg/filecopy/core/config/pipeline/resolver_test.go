package pipeline_test

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
	pipeline "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config/pipeline"
	exception "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/exception"
)

const binaryDefinition = `
id: filecopy-binary
trigger:
  interval: 2s
source:
  ref: directorySource
  properties:
    storage_ref: input
transformers:
  - ref: fileToBytes
sink:
  ref: storageSink
  properties:
    storage_ref: output
`

func TestResolve_EmbeddedFirst(t *testing.T) {
	embedded := fstest.MapFS{
		"pipelines/filecopy-binary.yaml": {Data: []byte(binaryDefinition)},
	}
	r := pipeline.NewDefaultResourceResolver(embedded, nil, config.NewOsEnvironmentExpander())

	def, err := r.Resolve("filecopy-binary.yaml")
	require.NoError(t, err)
	assert.Equal(t, "filecopy-binary", def.ID)
	assert.Equal(t, "filecopy-binary", def.Name)
	assert.Equal(t, pipeline.ModePoll, def.Trigger.Mode)
	assert.Equal(t, 2*time.Second, def.Trigger.Interval)
	assert.Equal(t, "input", def.Source.Properties["storage_ref"])
	require.Len(t, def.Transformers, 1)
	assert.Equal(t, "fileToBytes", def.Transformers[0].Ref)
}

func TestResolve_SearchPathThenLiteralPath(t *testing.T) {
	dir := t.TempDir()
	onceDef := "id: from-disk\ntrigger: {mode: once}\nsource: {ref: directorySource}\nsink: {ref: storageSink}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte(onceDef), 0o644))

	r := pipeline.NewDefaultResourceResolver(nil, []string{dir}, nil)
	def, err := r.Resolve("custom.yaml")
	require.NoError(t, err)
	assert.Equal(t, "from-disk", def.ID)
	assert.True(t, def.Trigger.IsOnce())
	assert.Equal(t, pipeline.DefaultInterval, def.Trigger.Interval)

	r = pipeline.NewDefaultResourceResolver(nil, nil, nil)
	def, err = r.Resolve(filepath.Join(dir, "custom.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "from-disk", def.ID)
}

func TestResolve_Failures(t *testing.T) {
	embedded := fstest.MapFS{
		"broken.yaml":     {Data: []byte("id: [unterminated")},
		"no-sink.yaml":    {Data: []byte("id: x\nsource: {ref: directorySource}\n")},
		"bad-mode.yaml":   {Data: []byte("id: x\ntrigger: {mode: watch}\nsource: {ref: a}\nsink: {ref: b}\n")},
		"bad-max.yaml":    {Data: []byte("id: x\ntrigger: {max_messages_per_poll: -1}\nsource: {ref: a}\nsink: {ref: b}\n")},
		"neg-period.yaml": {Data: []byte("id: x\ntrigger: {interval: -1s}\nsource: {ref: a}\nsink: {ref: b}\n")},
	}
	r := pipeline.NewDefaultResourceResolver(embedded, nil, nil)

	for _, resource := range []string{"", "missing.yaml", "broken.yaml", "no-sink.yaml", "bad-mode.yaml", "bad-max.yaml", "neg-period.yaml"} {
		t.Run(resource, func(t *testing.T) {
			def, err := r.Resolve(resource)
			assert.Nil(t, def)
			require.Error(t, err)
			assert.True(t, exception.IsConfigurationResolutionFailure(err), "unexpected error: %v", err)
			assert.True(t, exception.IsFatal(err))
		})
	}
}

func TestParseDefinition_ExpandsPlaceholders(t *testing.T) {
	t.Setenv("FILECOPY_TEST_OUTPUT_REF", "archive")
	data := []byte("id: x\nsource: {ref: a}\nsink: {ref: b, properties: {storage_ref: \"${FILECOPY_TEST_OUTPUT_REF}\"}}\n")

	def, err := pipeline.ParseDefinition("inline", data, config.NewOsEnvironmentExpander())
	require.NoError(t, err)
	assert.Equal(t, "archive", def.Sink.Properties["storage_ref"])
}

func TestParseDefinition_KeepsLiteralDollarInProperties(t *testing.T) {
	data := []byte("id: x\nsource: {ref: a, properties: {pattern: \"report$1.bin\", prefix: \"$incoming\"}}\nsink: {ref: b}\n")

	def, err := pipeline.ParseDefinition("inline", data, config.NewOsEnvironmentExpander())
	require.NoError(t, err)
	assert.Equal(t, "report$1.bin", def.Source.Properties["pattern"])
	assert.Equal(t, "$incoming", def.Source.Properties["prefix"])
}
