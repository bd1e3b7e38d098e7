// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "luckyapi-api-key", "  sk-abc123  \n")
				return dir
			},
			want: map[string]string{
				"luckyapi-api-key": "sk-abc123",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files and dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "luckyapi-api-key", "sk-real")
				writeFile(t, dir, "empty-key", "   \n\t  ")
				writeFile(t, dir, ".gitkeep", "")
				return dir
			},
			want: map[string]string{
				"luckyapi-api-key": "sk-real",
			},
		},
		{
			name: "skips subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "luckyapi-api-key", "sk-123")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{
				"luckyapi-api-key": "sk-123",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAPIKey(t *testing.T) {
	t.Run("environment wins", func(t *testing.T) {
		t.Setenv(EnvAuthToken, "env-token")
		got := APIKey(map[string]string{APIKeyName: "file-token"})
		assert.Equal(t, "env-token", got)
	})

	t.Run("falls back to secrets file", func(t *testing.T) {
		t.Setenv(EnvAuthToken, "")
		got := APIKey(map[string]string{APIKeyName: "file-token"})
		assert.Equal(t, "file-token", got)
	})

	t.Run("empty when neither set", func(t *testing.T) {
		t.Setenv(EnvAuthToken, "   ")
		assert.Empty(t, APIKey(nil))
	})
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
