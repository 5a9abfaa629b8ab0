package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("data", "", "")
	fs.String("helpers", "", "")
	fs.BoolP("verbose", "v", false, "")
	fs.Uint64("max-steps", 0, "")
	fs.String("accumulator", "", "")
	fs.Duration("watch-debounce", 0, "")
	fs.Int("jobs", 0, "")
	fs.StringP("output", "o", "", "")
	return fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	ResetConfig()

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, Default().Delimiters, cfg.Delimiters)
	assert.Equal(t, DefaultAccumulator, cfg.Accumulator)
	assert.Equal(t, DefaultWatchDebounce, cfg.WatchDebounce)
	assert.Equal(t, DefaultJobs, cfg.Jobs)
	assert.Zero(t, cfg.MaxSteps)
	assert.Empty(t, cfg.Data)
	assert.False(t, cfg.Verbose)
	assert.Empty(t, GetConfigFileUsed())
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tempy.yaml"), `
delimiters:
  inline_start: "[["
  inline_end: "]]"
max_steps: 5000
data: vars/site.yaml
watch_debounce: 250ms
globals:
  site: docs
`)
	sub := filepath.Join(dir, "pages", "blog")
	require.NoError(t, os.MkdirAll(sub, 0o750))
	t.Chdir(sub)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "[[", cfg.Delimiters.InlineStart)
	assert.Equal(t, "]]", cfg.Delimiters.InlineEnd)
	assert.Equal(t, "<%", cfg.Delimiters.BlockStart, "unset keys keep defaults")
	assert.Equal(t, uint64(5000), cfg.MaxSteps)
	assert.Equal(t, 250*time.Millisecond, cfg.WatchDebounce)
	assert.Equal(t, map[string]any{"site": "docs"}, cfg.Globals)

	root, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	gotRoot, err := filepath.EvalSymlinks(cfg.ProjectRoot)
	require.NoError(t, err)
	assert.Equal(t, root, gotRoot)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, "vars", "site.yaml"), cfg.Data)
	assert.Contains(t, GetConfigFileUsed(), "tempy.yaml")
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, filepath.Join(dir, "custom.yml"), "max_steps: 10\njobs: 2\naccumulator: file_acc\n")

	t.Setenv("TEMPY_MAX_STEPS", "20")
	t.Setenv("TEMPY_JOBS", "3")
	t.Setenv("TEMPY_DELIMITERS__TRIM", "~")

	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"--jobs", "4", "-v", "-o", "out.txt"}))

	cfg, err := LoadConfig("custom.yml", flags)
	require.NoError(t, err)

	assert.Equal(t, "file_acc", cfg.Accumulator, "file beats defaults")
	assert.Equal(t, uint64(20), cfg.MaxSteps, "env beats file")
	assert.Equal(t, 4, cfg.Jobs, "flag beats env")
	assert.Equal(t, "~", cfg.Delimiters.Trim, "double underscore nests")
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_PathFlagsAreRelativeToWorkingDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tempy.yaml"), "data: from-config.yaml\nhelpers: star\n")
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(sub, 0o750))
	t.Chdir(sub)

	cfg, err := LoadConfig("", newFlags())
	require.NoError(t, err)
	root, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	configRoot, err := filepath.EvalSymlinks(cfg.ProjectRoot)
	require.NoError(t, err)
	assert.Equal(t, root, configRoot)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, "star"), cfg.Helpers)

	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"--data", "local.json", "--helpers", "lib"}))

	cfg, err = LoadConfig("", flags)
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "local.json"), cfg.Data)
	assert.Equal(t, filepath.Join(wd, "lib"), cfg.Helpers)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{"malformed yaml", "delimiters: [", "error reading config file"},
		{"same start markers", "delimiters:\n  inline_start: \"<%\"\n", "must differ from block_start"},
		{"bad accumulator", "accumulator: \"1x\"\n", "accumulator"},
		{"negative jobs", "jobs: -1\n", "jobs must not be negative"},
		{"bad global name", "globals:\n  not-valid: 1\n", "not a valid identifier"},
		{"bad duration", "watch_debounce: soon\n", "unable to decode config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Chdir(dir)
			writeFile(t, filepath.Join(dir, "tempy.yaml"), tt.content)

			_, err := LoadConfig("", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}

	t.Run("missing explicit file", func(t *testing.T) {
		t.Chdir(t.TempDir())
		_, err := LoadConfig("nope.yaml", nil)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestParseSet(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantName  string
		wantValue any
		wantErr   bool
	}{
		{name: "string", input: "name=World", wantName: "name", wantValue: "World"},
		{name: "int", input: "n=3", wantName: "n", wantValue: 3},
		{name: "bool", input: "debug=true", wantName: "debug", wantValue: true},
		{name: "list", input: "tags=[a, b]", wantName: "tags", wantValue: []any{"a", "b"}},
		{name: "empty value", input: "x=", wantName: "x", wantValue: ""},
		{name: "value with equals", input: "q=a=b", wantName: "q", wantValue: "a=b"},
		{name: "unparseable kept as string", input: "s=[oops", wantName: "s", wantValue: "[oops"},
		{name: "missing equals", input: "name", wantErr: true},
		{name: "invalid name", input: "a-b=1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, value, err := ParseSet(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAssignment)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestConfig_Bindings(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data.json")
	writeFile(t, data, `{"name": "World", "items": [1, 2], "nested": {"k": "v"}}`)

	cfg := Default()
	cfg.Data = data

	bindings, err := cfg.Bindings([]string{"name=Override", "extra=1"})
	require.NoError(t, err)
	assert.Equal(t, "Override", bindings["name"])
	assert.Equal(t, []any{1, 2}, bindings["items"])
	assert.Equal(t, map[string]any{"k": "v"}, bindings["nested"])
	assert.Equal(t, 1, bindings["extra"])

	_, err = cfg.Bindings([]string{"broken"})
	assert.ErrorIs(t, err, ErrInvalidAssignment)

	cfg.Data = filepath.Join(dir, "missing.yaml")
	_, err = cfg.Bindings(nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadData_Errors(t *testing.T) {
	dir := t.TempDir()

	list := filepath.Join(dir, "list.yaml")
	writeFile(t, list, "- a\n- b\n")
	_, err := LoadData(list)
	assert.Error(t, err)

	badKey := filepath.Join(dir, "bad.yaml")
	writeFile(t, badKey, "not valid: 1\n")
	_, err = LoadData(badKey)
	assert.ErrorContains(t, err, "not a valid identifier")
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, Default(), GetConfig(ctx))
	assert.NotNil(t, GetLogger(ctx))

	cfg := Default()
	cfg.Jobs = 1
	assert.Same(t, cfg, GetConfig(WithConfig(ctx, cfg)))
}
