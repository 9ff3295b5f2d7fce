// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreLogger(t *testing.T) {
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})
}

func TestInitJSON(t *testing.T) {
	restoreLogger(t)
	var buf bytes.Buffer

	closer, err := Init(Options{Level: "debug", Format: "json", Console: &buf})
	require.NoError(t, err)
	defer closer.Close()

	log.Debug().Str("request_id", "abc").Msg("hello")
	assert.Contains(t, buf.String(), `"request_id":"abc"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestInitLevelFilters(t *testing.T) {
	restoreLogger(t)
	var buf bytes.Buffer

	closer, err := Init(Options{Level: "warn", Format: "json", Console: &buf})
	require.NoError(t, err)
	defer closer.Close()

	log.Info().Msg("dropped")
	log.Warn().Msg("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

func TestInitQuietWritesOnlyToFile(t *testing.T) {
	restoreLogger(t)
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "scribe.log")

	closer, err := Init(Options{Level: "info", Quiet: true, File: path, Console: &buf})
	require.NoError(t, err)

	log.Info().Msg("to file")
	require.NoError(t, closer.Close())

	assert.Zero(t, buf.Len())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, lvl)

	lvl, err = ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
