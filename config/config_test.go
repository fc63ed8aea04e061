package config

import (
	"os"
	"path/filepath"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foomo/teamdirectory/fetch"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teamdirectory.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
baseURL: https://example.com/team_members
concurrency: 4
render:
  sanitize: true
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/team_members", cfg.BaseURL)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.True(t, cfg.Render.Sanitize)
	// untouched keys keep their defaults
	assert.Equal(t, "members.json", cfg.ManifestName)
	require.NoError(t, cfg.Validate())

	_, isHTTP := cfg.Source(nil).(*fetch.HTTPSource)
	assert.True(t, isHTTP)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.BaseURL = "ftp://example.com"
	cfg.ManifestName = "../members.json"
	cfg.DocumentExt = "md"
	cfg.Concurrency = -1
	cfg.MCPEndpoint = "mcp"
	cfg.CareersEmail = "careers at atlas"

	err := cfg.Validate()
	require.Error(t, err)

	errs, ok := err.(validation.Errors)
	require.True(t, ok)
	for _, field := range []string{"BaseURL", "ManifestName", "DocumentExt", "Concurrency", "MCPEndpoint", "CareersEmail"} {
		assert.Contains(t, errs, field)
	}
}

func TestValidateRequiresASource(t *testing.T) {
	cfg := Default()
	cfg.ContentDir = ""
	require.Error(t, cfg.Validate())

	cfg.BaseURL = "http://localhost:8080/team_members"
	require.NoError(t, cfg.Validate())
}

func TestSourceDefaultsToDirectory(t *testing.T) {
	_, isFS := Default().Source(nil).(*fetch.FSSource)
	assert.True(t, isFS)
}
