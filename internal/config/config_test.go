package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hwgauge/internal/config"
	"hwgauge/internal/errors"
)

// isolate keeps the search path away from the real user and system dirs.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "hwgauge.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := config.Load("test", nil, nil)
	require.NoError(t, err)

	d := config.Default()
	assert.Equal(t, d.Link, cfg.Link)
	assert.Equal(t, d.Sample, cfg.Sample)
	assert.Equal(t, d.Render, cfg.Render)
	assert.Equal(t, 0x1209, cfg.Link.VID)
	assert.Equal(t, 115200, cfg.Link.Baud)
	assert.Equal(t, time.Second, cfg.Sample.Interval)
	assert.Equal(t, 15, cfg.Render.FPS)
	assert.Empty(t, cfg.File)
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, `
[link]
port = "/dev/ttyACM3"
retry = "5s"

[sample]
interval = "500ms"
day_start = 7
day_end = 19

[render]
fps = 30

[log]
verbose = true
`)

	cfg, err := config.Load("test", []string{"--config", path}, nil)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "/dev/ttyACM3", cfg.Link.Port)
	assert.Equal(t, 5*time.Second, cfg.Link.Retry)
	assert.Equal(t, 500*time.Millisecond, cfg.Sample.Interval)
	assert.Equal(t, 7, cfg.Sample.DayStart)
	assert.Equal(t, 19, cfg.Sample.DayEnd)
	assert.Equal(t, 30, cfg.Render.FPS)
	assert.True(t, cfg.Log.Verbose)
}

func TestLoadSearchPath(t *testing.T) {
	dir := isolate(t)
	sub := filepath.Join(dir, config.Name)
	require.NoError(t, os.MkdirAll(sub, 0o755))
	writeConfig(t, sub, "[link]\nbaud = 9600\n")

	cfg, err := config.Load("test", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 9600, cfg.Link.Baud)
}

func TestFlagsOverrideFileAndEnv(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, "[sample]\ninterval = \"3s\"\n[link]\nport = \"from-file\"\n")
	t.Setenv("HWGAUGE_LINK_PORT", "from-env")

	cfg, err := config.Load("test", []string{"--config", path, "--interval", "2s"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Sample.Interval)
	assert.Equal(t, "from-env", cfg.Link.Port)

	cfg, err = config.Load("test", []string{"--config", path, "--port", "from-flag"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.Link.Port)
	assert.Equal(t, 3*time.Second, cfg.Sample.Interval)
}

func TestLoadExtraFlags(t *testing.T) {
	isolate(t)

	var demo bool
	cfg, err := config.Load("test", []string{"--demo", "--debug"}, func(fs *pflag.FlagSet) {
		fs.BoolVar(&demo, "demo", false, "")
	})
	require.NoError(t, err)
	assert.True(t, demo)
	assert.True(t, cfg.Log.Debug)
}

func TestLoadErrors(t *testing.T) {
	dir := isolate(t)

	_, err := config.Load("test", []string{"--no-such-flag"}, nil)
	assert.True(t, errors.HasCode(err, errors.ErrBindFlags))

	_, err = config.Load("test", []string{"--config", filepath.Join(dir, "missing.toml")}, nil)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))

	bad := writeConfig(t, dir, "This is not a valid TOML file")
	_, err = config.Load("test", []string{"--config", bad}, nil)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		code   errors.ErrorCode
	}{
		{"interval", func(c *config.Config) { c.Sample.Interval = 0 }, errors.ErrInvalidInterval},
		{"retry", func(c *config.Config) { c.Link.Retry = -time.Second }, errors.ErrInvalidInterval},
		{"baud", func(c *config.Config) { c.Link.Baud = 0 }, errors.ErrInvalidConfig},
		{"vid", func(c *config.Config) { c.Link.VID = 0x10000 }, errors.ErrInvalidConfig},
		{"hours order", func(c *config.Config) { c.Sample.DayStart, c.Sample.DayEnd = 20, 6 }, errors.ErrInvalidHours},
		{"hours range", func(c *config.Config) { c.Sample.DayEnd = 25 }, errors.ErrInvalidHours},
		{"fps", func(c *config.Config) { c.Render.FPS = 0 }, errors.ErrInvalidRender},
		{"fall rate", func(c *config.Config) { c.Render.FallRate = 0 }, errors.ErrInvalidRender},
		{"blank before no data", func(c *config.Config) { c.Render.BlankAfter = time.Second }, errors.ErrInvalidRender},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, tc.code, errors.CodeOf(err))
		})
	}

	d := config.Default()
	assert.NoError(t, d.Validate())
}

func TestRenderKernel(t *testing.T) {
	k := config.Default().Render.Kernel()
	assert.Equal(t, 15, k.Render.FPS)
	assert.Equal(t, 25, k.Render.FallRate)
	assert.Equal(t, 2*time.Second, k.Render.HoldFor)
	assert.Equal(t, 2*time.Second, k.NoDataAfter)
	assert.Equal(t, 30*time.Second, k.BlankAfter)
}
