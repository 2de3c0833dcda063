package fat16_test

import (
	"testing"

	"github.com/dargueta/fat16"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenModeString(t *testing.T) {
	assert.Equal(t, "read", fat16.OpenModeRead.String())
	assert.Equal(t, "write", fat16.OpenModeWrite.String())
	assert.Equal(t, "append", fat16.OpenModeAppend.String())
	assert.Equal(t, "OpenMode(7)", fat16.OpenMode(7).String())
}

func TestOpenModeCanWrite(t *testing.T) {
	assert.False(t, fat16.OpenModeRead.CanWrite())
	assert.True(t, fat16.OpenModeWrite.CanWrite())
	assert.True(t, fat16.OpenModeAppend.CanWrite())
	assert.False(t, fat16.OpenMode(-1).Valid())
}

func TestParseOpenMode(t *testing.T) {
	for input, expected := range map[string]fat16.OpenMode{
		"r": fat16.OpenModeRead, "write": fat16.OpenModeWrite, "a": fat16.OpenModeAppend,
	} {
		mode, err := fat16.ParseOpenMode(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, mode, input)
	}

	_, err := fat16.ParseOpenMode("rw")
	assert.ErrorIs(t, err, fat16.ErrInvalidName)
}
