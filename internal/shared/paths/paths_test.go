package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	base := t.TempDir()
	t.Setenv(EnvHome, base)

	userHome, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare name goes under home", "formfill-session.yaml", filepath.Join(base, "formfill-session.yaml")},
		{"nested name", "keys/formfill.db", filepath.Join(base, "keys", "formfill.db")},
		{"absolute kept", "/var/lib/formfill.db", "/var/lib/formfill.db"},
		{"explicit relative kept", "./local.yaml", "local.yaml"},
		{"parent relative kept", "../up.yaml", "../up.yaml"},
		{"tilde expands", "~/session.yaml", filepath.Join(userHome, "session.yaml")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = Resolve("")
	assert.Error(t, err)
}

func TestHomeDefaultsToUserConfigDir(t *testing.T) {
	t.Setenv(EnvHome, "")
	base, err := os.UserConfigDir()
	if err != nil {
		t.Skip("no user config directory")
	}

	home, err := Home()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, AppDir), home)
}
