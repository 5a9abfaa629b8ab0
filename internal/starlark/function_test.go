package starlark

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluator_Compile(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		sig    Signature
		args   []any
		kwargs map[string]any
		want   string
	}{
		{
			name:   "keyword argument",
			src:    "Hello {{name}}",
			sig:    Signature{Params: []string{"name"}},
			kwargs: map[string]any{"name": "Ann"},
			want:   "Hello Ann",
		},
		{
			name: "positional argument",
			src:  "Hello {{name}}",
			sig:  Signature{Params: []string{"name"}},
			args: []any{"Bob"},
			want: "Hello Bob",
		},
		{
			name: "default applies to last parameter",
			src:  "{{a + b}}",
			sig:  Signature{Params: []string{"a", "b"}, Defaults: []any{2}},
			args: []any{1},
			want: "3",
		},
		{
			name: "default overridden",
			src:  "{{a + b}}",
			sig:  Signature{Params: []string{"a", "b"}, Defaults: []any{2}},
			args: []any{1, 10},
			want: "11",
		},
		{
			name: "list default",
			src:  "{{len(xs)}}",
			sig:  Signature{Params: []string{"xs"}, Defaults: []any{[]any{1, 2}}},
			want: "2",
		},
		{
			name:   "varargs and kwargs",
			src:    "{{len(args)}}:{{sorted(kw.keys())}}",
			sig:    Signature{VarArgs: "args", KwArgs: "kw"},
			args:   []any{1, 2},
			kwargs: map[string]any{"y": 2, "x": 1},
			want:   `2:["x", "y"]`,
		},
		{
			name: "loop with locals",
			src:  "{{for i in range(n):}}<% sq = i * i %>{{sq}} {{end}}",
			sig:  Signature{Params: []string{"n"}},
			args: []any{4},
			want: "0 1 4 9 ",
		},
		{
			name: "no parameters",
			src:  "static",
			want: "static",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, err := newEvaluator(t).Compile(parse(t, tt.src), tt.sig)
			require.NoError(t, err)

			got, err := fn.Call(context.Background(), tt.args, tt.kwargs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFunction_NameAndSource(t *testing.T) {
	fn, err := newEvaluator(t).Compile(parse(t, "Hi {{who}}"), Signature{
		Name:     "greet",
		Params:   []string{"who"},
		Defaults: []any{"you"},
	})
	require.NoError(t, err)

	assert.Equal(t, "greet", fn.Name())
	assert.Equal(t, "def greet(who=_tempy_out_default_0):\n"+
		"  _tempy_out = []\n"+
		"  _tempy_out.append(\"Hi \")\n"+
		"  _tempy_out.append(str((who)))\n"+
		"  return \"\".join(_tempy_out)\n", fn.Source())

	got, err := fn.Call(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hi you", got)
}

func TestEvaluator_CompileErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		sig      Signature
		sentinel error
	}{
		{"invalid code", "{{ 1 + }}", Signature{}, ErrInvalidEmbeddedCode},
		{"invalid name", "x", Signature{Name: "1abc"}, ErrInvalidArgument},
		{"keyword as name", "x", Signature{Name: "for"}, ErrInvalidArgument},
		{"invalid parameter", "x", Signature{Params: []string{"a-b"}}, ErrInvalidArgument},
		{"duplicate parameter", "x", Signature{Params: []string{"a", "a"}}, ErrInvalidArgument},
		{"varargs duplicates parameter", "x", Signature{Params: []string{"a"}, VarArgs: "a"}, ErrInvalidArgument},
		{"too many defaults", "x", Signature{Params: []string{"a"}, Defaults: []any{1, 2}}, ErrInvalidArgument},
		{"unsupported default", "x", Signature{Params: []string{"a"}, Defaults: []any{struct{}{}}}, ErrInvalidArgument},
		{"accumulator is a parameter", "x", Signature{Params: []string{DefaultAccumulator}}, ErrInvalidArgument},
		{"accumulator is the name", "x", Signature{Name: "out", Accumulator: "out"}, ErrInvalidArgument},
		{
			"parameter is a placeholder",
			"x",
			Signature{Params: []string{DefaultAccumulator + "_default_0", "b"}, Defaults: []any{1}},
			ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, err := newEvaluator(t).Compile(parse(t, tt.src), tt.sig)
			require.Error(t, err)
			assert.Nil(t, fn)
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestFunction_CallErrors(t *testing.T) {
	fn, err := newEvaluator(t).Compile(parse(t, "{{ 10 // d }}"), Signature{Params: []string{"d"}})
	require.NoError(t, err)

	_, err = fn.Call(context.Background(), []any{0}, nil)
	assert.ErrorIs(t, err, ErrExecution)

	_, err = fn.Call(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrExecution, "missing argument")

	_, err = fn.Call(context.Background(), []any{make(chan int)}, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestFunction_UndefinedNameAtCall(t *testing.T) {
	ev := newEvaluator(t)

	fn, err := ev.Compile(parse(t, "{{a}}{{if a:}}{{missing}}{{end}}"), Signature{Params: []string{"a"}})
	require.NoError(t, err)

	got, err := fn.Call(context.Background(), []any{false}, nil)
	require.NoError(t, err)
	assert.Equal(t, "False", got)

	_, err = fn.Call(context.Background(), []any{true}, nil)
	var uerr *UndefinedNameError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "missing", uerr.Name)
	assert.Equal(t, 1, uerr.Pos.Line)
	assert.Equal(t, 15, uerr.Pos.Column)

	fn, err = ev.Compile(parse(t, "<% total = 1 %>{{totl}}"), Signature{})
	require.NoError(t, err)
	_, err = fn.Call(context.Background(), nil, nil)
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, " (did you mean total?)", uerr.Hint)
}

func TestFunction_ConcurrentCalls(t *testing.T) {
	fn, err := newEvaluator(t).Compile(parse(t, "{{for i in range(n):}}{{i}}{{end}}"), Signature{Params: []string{"n"}})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			want := ""
			for j := 0; j < n; j++ {
				want += fmt.Sprint(j)
			}
			got, err := fn.Call(context.Background(), []any{n}, nil)
			if assert.NoError(t, err) {
				assert.Equal(t, want, got)
			}
		}(i % 7)
	}
	wg.Wait()
}
