package config_test

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/runx/internal/config"
	"github.com/slok/runx/internal/model"
)

func TestLoadFS(t *testing.T) {
	tests := map[string]struct {
		yaml        string
		expDefaults config.Defaults
		expErr      bool
	}{
		"A full configuration should load every field": {
			yaml: `
timeout: 5m
encoding: cp437
valid_exit_codes: [0, 1, 2]
live_output: true
history: true
`,
			expDefaults: config.Defaults{
				Timeout:        5 * time.Minute,
				Encoding:       "cp437",
				ValidExitCodes: []int{0, 1, 2},
				LiveOutput:     true,
				History:        true,
			},
		},

		"An empty configuration should keep history enabled by default": {
			yaml:        ``,
			expDefaults: config.Defaults{History: true},
		},

		"History can be disabled explicitly": {
			yaml:        `history: false`,
			expDefaults: config.Defaults{History: false},
		},

		"A sub-second timeout should be parsed as a duration": {
			yaml:        `timeout: 1500ms`,
			expDefaults: config.Defaults{Timeout: 1500 * time.Millisecond, History: true},
		},

		"An unparseable timeout should fail": {
			yaml:   `timeout: nope`,
			expErr: true,
		},

		"A negative timeout should fail": {
			yaml:   `timeout: -3s`,
			expErr: true,
		},

		"Broken YAML should fail": {
			yaml:   `timeout: [`,
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			fsys := fstest.MapFS{
				"config.yml": &fstest.MapFile{Data: []byte(test.yaml)},
			}

			got, err := config.LoadFS(fsys, "config.yml")

			if test.expErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.expDefaults, got)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	got, err := config.Load("/definitely/not/here/config.yml")

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrNotFound)
	// Missing file still yields usable defaults.
	assert.Equal(t, config.Defaults{History: true}, got)
}
