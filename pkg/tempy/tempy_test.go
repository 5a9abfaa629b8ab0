package tempy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/tempy/internal/testutil"
)

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithLogger(testutil.NewTestLogger(t))}, opts...)
	e, err := New(opts...)
	require.NoError(t, err)
	return e
}

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		bindings map[string]any
		want     string
	}{
		{"round trip", "Hello {{name}}!", map[string]any{"name": "World"}, "Hello World!"},
		{"expression", "{{1 + 1}}", nil, "2"},
		{"inline control flow", "{{for x in range(10):}}{{x}} {{end}}", nil, "0 1 2 3 4 5 6 7 8 9 "},
		{"block code", "<%x = 42%>x is {{x}}", nil, "x is 42"},
		{"escaping", `\<%x = 42%>`, nil, "<%x = 42%>"},
		{"trim both sides", "{{ for x in range(10): -}}\n    {{x}}\n{{-end}}", nil, "0123456789"},
		{"disambiguation", "{{1 if True else 2}}", nil, "1"},
		{"trim before region", "a   \n  {{- 1}}", nil, "a1"},
		{"trim after region", "{{1 -}}  \n\t b", nil, "1b"},
		{
			"multi-line block",
			"<%\nitems = [\"a\", \"b\"]\nfor i, it in enumerate(items):\n    items[i] = it.upper()\n%>{{\", \".join(items)}}",
			nil,
			"A, B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.src, tt.bindings)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_Errors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		sentinel error
	}{
		{"unterminated inline region", "Hello {{name", ErrUnterminatedCodeBlock},
		{"unterminated block region", "<% x = 1", ErrUnterminatedCodeBlock},
		{"undefined name", "{{missing}}", ErrUndefinedName},
		{"invalid code", "{{ 1 + }}", ErrInvalidEmbeddedCode},
		{"runtime failure", "{{ [][1] }}", ErrExecution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.src, nil)
			require.Error(t, err)
			assert.Empty(t, got)
			assert.True(t, errors.Is(err, tt.sentinel), "got %T: %v", err, err)
		})
	}
}

func TestRender_UnterminatedPosition(t *testing.T) {
	_, err := Render("line one\n  {{ x", nil, WithFilename("page.tpl"))
	require.Error(t, err)

	var uerr *UnterminatedCodeBlockError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "}}", uerr.Marker)
	assert.Equal(t, 11, uerr.Offset)
	assert.Contains(t, err.Error(), `missing "}}"`)
}

func TestRender_UnboundNameOnUntakenBranch(t *testing.T) {
	got, err := Render("{{if False:}}{{missing}}{{end}}ok", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)

	_, err = Render("{{if True:}}{{missing}}{{end}}ok", nil)
	assert.ErrorIs(t, err, ErrUndefinedName)
}

func TestRender_InvalidUTF8Literal(t *testing.T) {
	got, err := Render("caf\xe9 {{n}}", map[string]any{"n": 1})
	require.NoError(t, err)
	assert.Equal(t, "caf\xe9 1", got)
}

func TestRender_InvalidBinding(t *testing.T) {
	_, err := Render("{{x}}", map[string]any{"x": make(chan int)})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestEngine_Parse(t *testing.T) {
	e := newEngine(t, WithFilename("a.tpl"))

	prog, err := e.Parse("a{{b}}<% c = 1 %>")
	require.NoError(t, err)
	assert.Equal(t, "a.tpl", prog.File)
	require.Len(t, prog.Instructions, 3)
	assert.Equal(t, "literal", prog.Instructions[0].Kind.String())
	assert.Equal(t, "expression", prog.Instructions[1].Kind.String())
	assert.Equal(t, "statement", prog.Instructions[2].Kind.String())

	again, err := e.Parse("a{{b}}<% c = 1 %>")
	require.NoError(t, err)
	assert.Equal(t, prog.Instructions, again.Instructions)
}

func TestEngine_Source(t *testing.T) {
	src, err := newEngine(t).Source("a{{b}}")
	require.NoError(t, err)
	assert.Equal(t, "_tempy_out = []\n_tempy_out.append(\"a\")\n_tempy_out.append(str((b)))\n_tempy_out = \"\".join(_tempy_out)\n", src)
}

func TestEngine_Check(t *testing.T) {
	e := newEngine(t)
	assert.NoError(t, e.Check("{{ x // 0 }}", map[string]any{"x": 1}))
	assert.ErrorIs(t, e.Check("{{ x }}", nil), ErrUndefinedName)
	assert.ErrorIs(t, e.Check("{{ x", nil), ErrUnterminatedCodeBlock)
}

func TestEngine_Exec(t *testing.T) {
	res, err := newEngine(t).Exec(context.Background(), "<% n = 2\nnames = ['a', 'b'] %>{{n}}", nil)
	require.NoError(t, err)
	assert.Equal(t, "2", res.Output)
	assert.Equal(t, int64(2), res.Vars["n"])
	assert.Equal(t, []any{"a", "b"}, res.Vars["names"])
}

func TestEngine_Globals(t *testing.T) {
	e := newEngine(t, WithGlobals(map[string]any{"site": "docs"}))
	got, err := e.Render(context.Background(), "{{site}}:{{page}}", map[string]any{"page": "intro"})
	require.NoError(t, err)
	assert.Equal(t, "docs:intro", got)
}

func TestEngine_MaxSteps(t *testing.T) {
	e := newEngine(t, WithMaxSteps(500))
	_, err := e.Render(context.Background(), "<%\nwhile True:\n    pass\n%>", nil)
	assert.ErrorIs(t, err, ErrExecution)
}

func TestEngine_Delimiters(t *testing.T) {
	e := newEngine(t, WithDelimiters(Delimiters{InlineStart: "[[", InlineEnd: "]]"}))
	assert.Equal(t, "[[", e.Delimiters().InlineStart)
	assert.Equal(t, "<%", e.Delimiters().BlockStart)

	got, err := e.Render(context.Background(), "[[x]] {{x}}", map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, "1 {{x}}", got)
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"same start markers", WithDelimiters(Delimiters{InlineStart: "<%"})},
		{"invalid accumulator", WithAccumulator("not an identifier")},
		{"unsupported global", WithGlobals(map[string]any{"c": make(chan int)})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(tt.opt)
			require.Error(t, err)
			assert.Nil(t, e)
		})
	}
}

func TestCompile(t *testing.T) {
	tpl, err := Compile("Dear {{title}} {{name}},",
		WithName("letter"),
		WithParams("name", "title"),
		WithDefaults("Dr."),
	)
	require.NoError(t, err)
	assert.Equal(t, "letter", tpl.Name())
	assert.Contains(t, tpl.Source(), "def letter(name, title=")
	assert.Len(t, tpl.Program().Instructions, 5)

	got, err := tpl.Call([]any{"Who"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Dear Dr. Who,", got)

	got, err = tpl.Call(nil, map[string]any{"name": "Watson", "title": "Mr."})
	require.NoError(t, err)
	assert.Equal(t, "Dear Mr. Watson,", got)
}

func TestCompile_VarArgsAndKwArgs(t *testing.T) {
	tpl, err := Compile("{{for a in args:}}{{a}};{{end}}{{kw.get('sep', '-')}}",
		WithVarArgs("args"),
		WithKwArgs("kw"),
	)
	require.NoError(t, err)
	assert.Equal(t, "template", tpl.Name())

	got, err := tpl.Call([]any{1, 2}, map[string]any{"sep": "|"})
	require.NoError(t, err)
	assert.Equal(t, "1;2;|", got)
}

func TestCompile_Errors(t *testing.T) {
	tpl, err := Compile("{{a}}{{missing}}", WithParams("a"))
	require.NoError(t, err, "names resolve when called")
	_, err = tpl.Call([]any{1}, nil)
	assert.ErrorIs(t, err, ErrUndefinedName)

	_, err = Compile("x", WithParams("a", "a"))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Compile("{{x")
	assert.ErrorIs(t, err, ErrUnterminatedCodeBlock)
}

func TestTemplate_CallContextCanceled(t *testing.T) {
	tpl, err := Compile("{{1}}")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tpl.CallContext(ctx, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTemplate_ConcurrentCalls(t *testing.T) {
	tpl, err := Compile("{{n * 2}}", WithParams("n"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			got, err := tpl.Call([]any{n}, nil)
			if assert.NoError(t, err) {
				assert.Equal(t, fmt.Sprint(n*2), got)
			}
		}(i)
	}
	wg.Wait()
}

func TestEngine_RenderAll(t *testing.T) {
	e := newEngine(t)
	files := []File{
		{Name: "a.tpl", Source: "A{{v}}"},
		{Name: "b.tpl", Source: "B{{"},
		{Name: "c.tpl", Source: "C{{v + 1}}"},
		{Name: "d.tpl", Source: "{{nope}}"},
	}

	results := e.RenderAll(context.Background(), files, map[string]any{"v": 1}, 2)
	require.Len(t, results, 4)

	assert.Equal(t, FileResult{Name: "a.tpl", Output: "A1"}, results[0])
	assert.Equal(t, "b.tpl", results[1].Name)
	assert.ErrorIs(t, results[1].Err, ErrUnterminatedCodeBlock)
	assert.Equal(t, FileResult{Name: "c.tpl", Output: "C2"}, results[2])
	assert.Equal(t, "d.tpl", results[3].Name)
	assert.ErrorIs(t, results[3].Err, ErrUndefinedName)
	assert.Contains(t, results[3].Err.Error(), "d.tpl:1:1")
}

func TestEngine_ConcurrentRender(t *testing.T) {
	e := newEngine(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			got, err := e.Render(context.Background(), "{{for i in range(n):}}x{{end}}", map[string]any{"n": n})
			if assert.NoError(t, err) {
				assert.Len(t, got, n)
			}
		}(i)
	}
	wg.Wait()
}
