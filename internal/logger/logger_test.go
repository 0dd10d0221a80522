package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/workspace-access/internal/config"
)

func TestSetup_Level(t *testing.T) {
	closer, err := Setup(config.LoggingConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	closer, err = Setup(config.LoggingConfig{Level: "bogus", Format: "json"})
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestSetup_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")

	closer, err := Setup(config.LoggingConfig{Level: "info", Format: "json", File: path})
	require.NoError(t, err)

	log.Info().Str("component", "test").Msg("hello")
	require.NoError(t, closer.Close())

	matches, err := filepath.Glob(path + ".*")
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"test"`)
}
