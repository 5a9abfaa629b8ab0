package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/tempy/internal/cli/testutil"
	logtest "github.com/leapstack-labs/tempy/internal/testutil"
	"github.com/leapstack-labs/tempy/pkg/tempy"
)

func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestNewInspectCommand(t *testing.T) {
	cmd := NewInspectCommand()

	assert.Equal(t, "inspect [TEMPLATE]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("source"), "flag %q should exist", "source")
}

func TestNewCheckCommand(t *testing.T) {
	cmd := NewCheckCommand()

	assert.Equal(t, "check TEMPLATE...", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("run"), "flag %q should exist", "run")
}

func TestNewREPLCommand(t *testing.T) {
	cmd := NewREPLCommand()

	assert.Equal(t, "repl", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
}

func TestInspect_Table(t *testing.T) {
	path := testutil.WriteTemplate(t, t.TempDir(), "page.tpl", "Hi {{name}}\n<% x = 1 %>")

	out, _, err := execute(t, NewInspectCommand(), "", path)
	require.NoError(t, err)

	testutil.AssertNoANSI(t, out)
	for _, want := range []string{"KIND", "INDENT", "POSITION", "literal", "expression", "statement", `"Hi "`, `"name"`, `"x = 1"`, "2:1", "(4 instructions)"} {
		assert.Contains(t, out, want)
	}
}

func TestInspect_SourceFromStdin(t *testing.T) {
	out, _, err := execute(t, NewInspectCommand(), "a{{b}}", "--source")
	require.NoError(t, err)
	assert.Equal(t, "_tempy_out = []\n_tempy_out.append(\"a\")\n_tempy_out.append(str((b)))\n_tempy_out = \"\".join(_tempy_out)\n", out)
}

func TestInspect_Empty(t *testing.T) {
	out, _, err := execute(t, NewInspectCommand(), "", "-")
	require.NoError(t, err)
	assert.Equal(t, "(0 instructions)\n", out)
}

func TestInspect_Errors(t *testing.T) {
	_, _, err := execute(t, NewInspectCommand(), "{{ open", "-")
	assert.ErrorIs(t, err, tempy.ErrUnterminatedCodeBlock)
	assert.Contains(t, err.Error(), StdinName)

	_, _, err = execute(t, NewInspectCommand(), "", "a", "b")
	var usage *UsageError
	assert.ErrorAs(t, err, &usage)

	_, _, err = execute(t, NewInspectCommand(), "", filepath.Join(t.TempDir(), "missing.tpl"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	good := testutil.WriteTemplate(t, dir, "good.tpl", "{{1 + 1}}")
	divide := testutil.WriteTemplate(t, dir, "divide.tpl", "{{1 // 0}}")
	undefined := testutil.WriteTemplate(t, dir, "undefined.tpl", "{{nope}}")
	open := testutil.WriteTemplate(t, dir, "open.tpl", "<% x = 1")

	tests := []struct {
		name       string
		args       []string
		wantFailed int
		wantOK     []string
		wantFail   []string
	}{
		{
			name:       "static",
			args:       []string{good, divide, undefined, open},
			wantFailed: 2,
			wantOK:     []string{good, divide},
			wantFail:   []string{undefined, open},
		},
		{
			name:       "run",
			args:       []string{"--run", good, divide, undefined, open},
			wantFailed: 3,
			wantOK:     []string{good},
			wantFail:   []string{divide, undefined, open},
		},
		{
			name:   "all good",
			args:   []string{good},
			wantOK: []string{good},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, NewCheckCommand(), "", tt.args...)

			for _, p := range tt.wantOK {
				assert.Contains(t, out, "ok   "+p)
			}
			for _, p := range tt.wantFail {
				assert.Contains(t, out, "FAIL "+p)
			}

			if tt.wantFailed == 0 {
				assert.NoError(t, err)
				return
			}
			var cerr *CheckError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.wantFailed, cerr.Failed)
			assert.Equal(t, len(tt.wantOK)+len(tt.wantFail), cerr.Total)
			assert.ErrorIs(t, err, tempy.ErrUndefinedName)
			assert.ErrorIs(t, err, tempy.ErrUnterminatedCodeBlock)
		})
	}
}

func TestCheck_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.tpl")
	out, _, err := execute(t, NewCheckCommand(), "", missing)
	assert.Contains(t, out, "FAIL "+missing)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, _, err = execute(t, NewCheckCommand(), "")
	var usage *UsageError
	assert.ErrorAs(t, err, &usage, "at least one template is required")
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteTemplate(t, dir, "page.tpl", "v1")
	other := filepath.Join(dir, "other.tpl")

	w, err := NewWatcher(path, 20*time.Millisecond, logtest.NewTestLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func() { changes <- struct{}{} })
	}()

	require.NoError(t, os.WriteFile(other, []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte("v3"), 0o600))

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
