package configbinder_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/configbinder"
)

type sinkProps struct {
	StorageRef     string        `yaml:"storage_ref"`
	DeleteSource   bool          `yaml:"delete_source"`
	MaxMessages    int           `yaml:"max_messages_per_poll"`
	Interval       time.Duration `yaml:"interval"`
	Patterns       []string      `yaml:"patterns"`
	FileExistsMode string        `yaml:"file_exists_mode"`
}

func TestBindProperties_WeaklyTyped(t *testing.T) {
	var props sinkProps
	err := configbinder.BindProperties(map[string]string{
		"storage_ref":           "output",
		"delete_source":         "true",
		"max_messages_per_poll": "25",
		"interval":              "750ms",
		"patterns":              "*.bin,*.txt",
	}, &props)
	require.NoError(t, err)

	assert.Equal(t, "output", props.StorageRef)
	assert.True(t, props.DeleteSource)
	assert.Equal(t, 25, props.MaxMessages)
	assert.Equal(t, 750*time.Millisecond, props.Interval)
	assert.Equal(t, []string{"*.bin", "*.txt"}, props.Patterns)
	assert.Empty(t, props.FileExistsMode)
}

func TestBindProperties_EmptyKeepsDefaults(t *testing.T) {
	props := sinkProps{FileExistsMode: "REPLACE"}
	require.NoError(t, configbinder.BindProperties(nil, &props))
	assert.Equal(t, "REPLACE", props.FileExistsMode)
}

func TestBindProperties_InvalidValue(t *testing.T) {
	var props sinkProps
	err := configbinder.BindProperties(map[string]string{"max_messages_per_poll": "many"}, &props)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sinkProps")
}

func TestBindMap(t *testing.T) {
	var props sinkProps
	err := configbinder.BindMap(map[string]interface{}{
		"storage_ref":   "archive",
		"delete_source": false,
		"interval":      "2s",
	}, &props)
	require.NoError(t, err)
	assert.Equal(t, "archive", props.StorageRef)
	assert.Equal(t, 2*time.Second, props.Interval)
}
