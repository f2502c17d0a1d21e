package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sauerbraten/linkshortener"
	"github.com/sauerbraten/linkshortener/internal/config"
)

func TestParseFlags(t *testing.T) {
	f, err := parseFlags([]string{"-data", "links.txt", "-base", "http://sho.rt/", "-http", ":5656", "-no-menu"})
	require.NoError(t, err)

	cfg, err := config.Load("")
	require.NoError(t, err)
	f.apply(cfg)

	assert.Equal(t, "links.txt", cfg.Storage.Path)
	assert.Equal(t, "http://sho.rt/", cfg.BaseURL)
	assert.Equal(t, ":5656", cfg.HTTPServer.Addr)
	assert.Equal(t, config.BackendText, cfg.Storage.Backend)
	assert.True(t, f.noMenu)

	_, err = parseFlags([]string{"-unknown"})
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	t.Run("menu session is saved on exit", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "url_mappings.txt")
		var out bytes.Buffer

		err := run(context.Background(), []string{"-data", path}, strings.NewReader("1\nhttps://example.com/a\n5\n"), &out)

		require.NoError(t, err)
		assert.Contains(t, out.String(), "Mappings saved successfully!\n")
		assert.Contains(t, out.String(), "Exiting... Goodbye!\n")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, keyOf("https://example.com/a")+",https://example.com/a\n", string(data))
	})

	t.Run("existing mappings are loaded", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "url_mappings.txt")
		require.NoError(t, os.WriteFile(path, []byte("0000abcd,https://example.com/old\nbroken line\n"), 0o644))
		var out bytes.Buffer

		err := run(context.Background(), []string{"-data", path}, strings.NewReader("2\n0000abcd\n5\n"), &out)

		require.NoError(t, err)
		assert.Contains(t, out.String(), "Original URL: https://example.com/old\n")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "0000abcd,https://example.com/old\n", string(data))
	})

	t.Run("sqlite backend", func(t *testing.T) {
		dsn := "file:" + filepath.Join(t.TempDir(), "links.sqlite")
		var out bytes.Buffer

		err := run(context.Background(), []string{"-backend", "sqlite", "-dsn", dsn}, strings.NewReader("1\nhttps://example.com/a\n5\n"), &out)
		require.NoError(t, err)

		snap, err := linkshortener.NewSQLiteSnapshot(dsn)
		require.NoError(t, err)
		defer snap.Close()

		s := linkshortener.NewStore()
		require.NoError(t, snap.Load(s))
		assert.Equal(t, []linkshortener.Entry{{Key: keyOf("https://example.com/a"), LongURL: "https://example.com/a"}}, s.Entries())
	})

	t.Run("failed save is not fatal", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "url_mappings.txt")
		var out bytes.Buffer

		err := run(context.Background(), []string{"-data", path, "-no-menu"}, strings.NewReader(""), &out)

		assert.NoError(t, err)
		assert.Contains(t, out.String(), "Error saving mappings: ")
	})

	t.Run("invalid backend", func(t *testing.T) {
		err := run(context.Background(), []string{"-backend", "postgres", "-no-menu"}, strings.NewReader(""), &bytes.Buffer{})
		assert.Error(t, err)
	})
}
