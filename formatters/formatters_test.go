package formatters

import (
	"errors"
	"testing"
	"time"

	tether "github.com/goliatone/go-tether"
	"github.com/goliatone/go-tether/observe"
)

func TestArithmetic(t *testing.T) {
	reg := Default()
	cases := []struct {
		name  string
		fn    string
		value any
		args  []any
		want  any
	}{
		{name: "plus ints", fn: "plus", value: 5, args: []any{3}, want: 8},
		{name: "plus numeric text", fn: "plus", value: "5", args: []any{3}, want: 8},
		{name: "plus fraction", fn: "plus", value: 1, args: []any{0.5}, want: 1.5},
		{name: "minus", fn: "minus", value: 10, args: []any{4}, want: 6},
		{name: "times", fn: "times", value: 8, args: []any{2}, want: 16},
		{name: "times float text", fn: "times", value: " 2.5 ", args: []any{"2"}, want: 5},
		{name: "divide", fn: "divide", value: 9, args: []any{2}, want: 4.5},
		{name: "no argument", fn: "plus", value: "x", want: "x"},
		{name: "bool operand", fn: "plus", value: true, args: []any{1}, want: 2},
		{name: "int64 operand", fn: "times", value: int64(3), args: []any{uint8(3)}, want: 9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := reg.Call(tc.fn, tc.value, tc.args...)
			if err != nil {
				t.Fatalf("call: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v (%T), got %v (%T)", tc.want, tc.want, got, got)
			}
		})
	}
}

func TestArithmeticErrors(t *testing.T) {
	reg := Default()
	if _, err := reg.Call("plus", "abc", 1); !errors.Is(err, ErrNotNumeric) {
		t.Fatalf("expected ErrNotNumeric, got %v", err)
	}
	if _, err := reg.Call("times", 1, "NaN"); !errors.Is(err, ErrNotNumeric) {
		t.Fatalf("expected NaN to be rejected, got %v", err)
	}
	if _, err := reg.Call("plus", []any{1}, 1); !errors.Is(err, ErrNotNumeric) {
		t.Fatalf("expected slice to be rejected, got %v", err)
	}
	if _, err := reg.Call("divide", 1, 0); err == nil {
		t.Fatalf("expected divide by zero to fail")
	}
}

func TestTextFormatters(t *testing.T) {
	reg := Default()
	cases := []struct {
		name  string
		fn    string
		value any
		args  []any
		want  any
	}{
		{name: "upper", fn: "upper", value: "ann", want: "ANN"},
		{name: "lower", fn: "lower", value: "ANN", want: "ann"},
		{name: "prefix", fn: "prefix", value: 5, args: []any{"$"}, want: "$5"},
		{name: "suffix", fn: "suffix", value: 5, args: []any{"%"}, want: "5%"},
		{name: "default nil", fn: "default", value: nil, args: []any{"n/a"}, want: "n/a"},
		{name: "default empty", fn: "default", value: "", args: []any{"n/a"}, want: "n/a"},
		{name: "default kept", fn: "default", value: 0, args: []any{"n/a"}, want: 0},
		{name: "not", fn: "not", value: "", want: true},
		{name: "eq numeric", fn: "eq", value: "2", args: []any{2}, want: true},
		{name: "eq text", fn: "eq", value: "a", args: []any{"b"}, want: false},
		{name: "length text", fn: "length", value: "héllo", want: 5},
		{name: "length list", fn: "length", value: observe.NewList(1, 2, 3), want: 3},
		{name: "length object", fn: "length", value: observe.NewObject(map[string]any{"a": 1}), want: 1},
		{name: "length nil", fn: "length", value: nil, want: 0},
		{name: "number", fn: "number", value: "42", want: 42},
		{name: "number blank", fn: "number", value: " ", want: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := reg.Call(tc.fn, tc.value, tc.args...)
			if err != nil {
				t.Fatalf("call: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v (%T), got %v (%T)", tc.want, tc.want, got, got)
			}
		})
	}
}

func TestDate(t *testing.T) {
	moment := time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)
	cases := []struct {
		name  string
		value any
		args  []any
		want  string
	}{
		{name: "time", value: moment, args: []any{"2006-01-02"}, want: "2024-03-09"},
		{name: "pointer", value: &moment, args: []any{"15:04"}, want: "14:30"},
		{name: "rfc3339 text", value: "2024-03-09T14:30:00Z", args: []any{"Jan 2"}, want: "Mar 9"},
		{name: "unix seconds", value: moment.Unix(), want: "2024-03-09T14:30:00Z"},
		{name: "nil", value: nil, want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Date(tc.value, tc.args...)
			if err != nil {
				t.Fatalf("date: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %v", tc.want, got)
			}
		})
	}
	if _, err := Date("yesterday"); err == nil {
		t.Fatalf("expected unparseable text to fail")
	}
}

func TestRegisterReportsDuplicates(t *testing.T) {
	reg := Default()
	if err := Register(reg); err == nil {
		t.Fatalf("expected duplicates to be reported")
	}
	if !reg.Has("plus") || !reg.Has("date") {
		t.Fatalf("expected stock formatters to be registered")
	}
}

func TestPipelineThroughView(t *testing.T) {
	text := tether.RoutineBinder(func(ctx *tether.Context, value any) {
		tether.SetTextContent(ctx.Node, tether.Stringify(value))
	})
	cases := []struct {
		src  string
		want string
	}{
		{src: `<span rv-text="n | plus 3 | times 2"></span>`, want: `<span>16</span>`},
		{src: `<span rv-text="'5' | plus 3"></span>`, want: `<span>8</span>`},
		{src: `<span rv-text="missing | default 'none' | upper"></span>`, want: `<span>NONE</span>`},
		{src: `<span rv-text="price | times rate | prefix '$'"></span>`, want: `<span>$7.5</span>`},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			root, err := tether.ParseFragment(tc.src)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			models := observe.FromMap(map[string]any{"n": 5, "price": 3, "rate": 2.5})
			_, err = tether.Bind(tether.Children(root), models,
				tether.WithBinder("text", text),
				tether.WithFormatters(Default()),
				tether.WithLogger(tether.NopLogger()),
			)
			if err != nil {
				t.Fatalf("bind: %v", err)
			}
			if got := tether.RenderString(root); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestDefaultValueAndRegistry(t *testing.T) {
	got, err := DefaultValue(nil, "fallback")
	if err != nil || got != "fallback" {
		t.Fatalf("expected fallback, got %v (%v)", got, err)
	}
	if got, _ := DefaultValue("kept", "fallback"); got != "kept" {
		t.Fatalf("expected kept, got %v", got)
	}
	if !Default().Has("default") {
		t.Fatalf("expected default formatter in the stock registry")
	}
}
