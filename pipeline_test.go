package tether

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseArgument(t *testing.T) {
	cases := []struct {
		token string
		want  Argument
	}{
		{token: `'hi there'`, want: Argument{Literal: true, Value: "hi there"}},
		{token: `"x"`, want: Argument{Literal: true, Value: "x"}},
		{token: "true", want: Argument{Literal: true, Value: true}},
		{token: "false", want: Argument{Literal: true, Value: false}},
		{token: "null", want: Argument{Literal: true}},
		{token: "undefined", want: Argument{Literal: true}},
		{token: "", want: Argument{Literal: true}},
		{token: "42", want: Argument{Literal: true, Value: 42}},
		{token: "-1.5", want: Argument{Literal: true, Value: -1.5}},
		{token: "user.name", want: Argument{Keypath: "user.name"}},
		{token: "NaN", want: Argument{Keypath: "NaN"}},
	}

	for _, tc := range cases {
		t.Run(tc.token, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, ParseArgument(tc.token)); diff != "" {
				t.Fatalf("unexpected argument (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseDirective(t *testing.T) {
	directive, err := ParseDirective(`total < price qty | times rate | prefix '$ ' | default "n/a"`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if directive.Keypath != "total" || directive.Target.Literal {
		t.Fatalf("unexpected target %+v", directive.Target)
	}
	if diff := cmp.Diff([]string{"price", "qty"}, directive.Dependencies); diff != "" {
		t.Fatalf("unexpected dependencies (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"times", "prefix", "default"}, directive.FormatterNames()); diff != "" {
		t.Fatalf("unexpected formatters (-want +got):\n%s", diff)
	}
	want := [][]Argument{
		{{Keypath: "rate"}},
		{{Literal: true, Value: "$ "}},
		{{Literal: true, Value: "n/a"}},
	}
	for i, call := range directive.Formatters {
		if diff := cmp.Diff(want[i], call.Args); diff != "" {
			t.Fatalf("formatter %d args (-want +got):\n%s", i, diff)
		}
	}
}

func TestParseDirectiveQuotedPipe(t *testing.T) {
	directive, err := ParseDirective(`'a | b' | upper`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !directive.Target.Literal || directive.Target.Value != "a | b" {
		t.Fatalf("unexpected target %+v", directive.Target)
	}
	if len(directive.Formatters) != 1 {
		t.Fatalf("expected one formatter, got %d", len(directive.Formatters))
	}
}

func TestParseDirectiveMalformed(t *testing.T) {
	cases := map[string]string{
		"empty formatter":       "name | ",
		"empty middle stage":    "name || upper",
		"empty dependency list": "name <",
		"keypath whitespace":    "user name",
		"unterminated quote":    "'open",
		"unterminated argument": "name | prefix 'x",
		"quoted formatter name": "name | 'upper'",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseDirective(src); !errors.Is(err, ErrMalformedDirective) {
				t.Fatalf("expected malformed directive for %q, got %v", src, err)
			}
		})
	}
}

func TestParseTemplate(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []TemplateToken
	}{
		{
			name: "plain text",
			text: "hello",
			want: []TemplateToken{{Value: "hello"}},
		},
		{
			name: "mixed",
			text: "Hi { user.name }!",
			want: []TemplateToken{
				{Value: "Hi "},
				{Binding: true, Value: "user.name"},
				{Value: "!"},
			},
		},
		{
			name: "adjacent bindings",
			text: "{a}{b | upper}",
			want: []TemplateToken{
				{Binding: true, Value: "a"},
				{Binding: true, Value: "b | upper"},
			},
		},
		{
			name: "unclosed delimiter",
			text: "a {b} {c",
			want: []TemplateToken{
				{Value: "a "},
				{Binding: true, Value: "b"},
				{Value: " {c"},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseTemplate(tc.text, "{", "}")
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("unexpected tokens (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseTemplateCustomDelimiters(t *testing.T) {
	got := ParseTemplate("<< a >> {b}", "<<", ">>")
	want := []TemplateToken{
		{Binding: true, Value: "a"},
		{Value: " {b}"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected tokens (-want +got):\n%s", diff)
	}
}
