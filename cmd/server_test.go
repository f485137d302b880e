package cmd

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{"PORT", "SERVER_PORT", "SERVER_HOST", "CONTENT_ROOT", "LOG_LEVEL", "LOG_FORMAT", "LOG_OUTPUT"} {
		t.Setenv(env, "")
	}
}

func TestApplyArgs(t *testing.T) {
	root := t.TempDir()

	testCases := []struct {
		name      string
		args      []string
		port      int
		root      string
		expectErr bool
	}{
		{"引数なし", nil, 0, "", false},
		{"ポートのみ", []string{"8080"}, 8080, "", false},
		{"ルートのみ", []string{root}, 0, root, false},
		{"ポートとルート", []string{"8080", root}, 8080, root, false},
		{"ルートとポート", []string{root, "9090"}, 9090, root, false},
		{"ポートが2つ", []string{"1", "2"}, 0, "", true},
		{"ルートが2つ", []string{root, root}, 0, "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := viper.New()
			err := applyArgs(v, tc.args)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.port, v.GetInt("server.port"))
			assert.Equal(t, tc.root, v.GetString("content.root"))
		})
	}
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	t.Setenv("PORT", "7000")

	command := NewServerCommand()
	require.NoError(t, command.ParseFlags([]string{"--port", "8081", "--root", root, "--log-level", "debug"}))

	v := viper.New()
	require.NoError(t, bindFlags(v, command.Flags()))
	cfg, err := loadConfig(v, nil)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, root, cfg.Content.Root)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestEnvironmentWithoutFlags(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	t.Setenv("PORT", "7000")
	t.Setenv("CONTENT_ROOT", root)

	command := NewServerCommand()
	require.NoError(t, command.ParseFlags(nil))

	v := viper.New()
	require.NoError(t, bindFlags(v, command.Flags()))
	cfg, err := loadConfig(v, nil)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, root, cfg.Content.Root)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestArgsOverrideFlags(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()

	command := NewServerCommand()
	require.NoError(t, command.ParseFlags([]string{"--port", "8081"}))

	v := viper.New()
	require.NoError(t, bindFlags(v, command.Flags()))
	cfg, err := loadConfig(v, []string{"4000", root})
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, root, cfg.Content.Root)
}

func TestCommandFailsOnMissingRoot(t *testing.T) {
	clearEnv(t)

	command := NewServerCommand()
	command.SetArgs([]string{t.TempDir() + "/missing"})

	assert.Error(t, command.Execute())
}

func TestCommandRejectsTooManyArgs(t *testing.T) {
	command := NewServerCommand()
	command.SetArgs([]string{"1", "2", "3"})

	assert.Error(t, command.Execute())
}
