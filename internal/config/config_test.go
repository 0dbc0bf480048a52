package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	c := Default()
	c.Backend = "gpiod"
	c.Pin = "gpiochip0:12"
	c.StatusInv = "GPIO13"
	c.Timing.Unit = 31
	c.Calibrate = Calibrate{Enabled: true, Min: 20, Max: 40, MaxStep: 1}
	c.Frames = []string{"000010 000100 ffffff", ""}
	require.NoError(t, Save(path, c))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestLoad_Partial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pin: GPIO18\nfps: 60\ntiming:\n  unit: 30\n"), 0644))
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "GPIO18", c.Pin)
	assert.Equal(t, 60, c.FPS)
	assert.Equal(t, uint32(30), c.Timing.Unit)
	// Unset fields stay zero so they do not override flags.
	assert.Empty(t, c.Clock)
	assert.Zero(t, c.Timing.Reset)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, os.IsNotExist(err))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fps: [1, 2"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}
