package tether

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseConfigOverridesDefaults(t *testing.T) {
	cfg, err := ParseConfig(`
prefix = "data"
open_delimiter = "{{"
close_delimiter = "}}"
preload = false
log_level = "warn"
`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := DefaultConfig()
	want.Prefix = "data"
	want.OpenDelimiter = "{{"
	want.CloseDelimiter = "}}"
	want.Preload = false
	want.LogLevel = "warn"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("unexpected config (-want +got):\n%s", diff)
	}
}

func TestParseConfigEmptyKeepsDefaults(t *testing.T) {
	cfg, err := ParseConfig("")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Fatalf("unexpected config (-want +got):\n%s", diff)
	}
}

func TestParseConfigRejectsInvalid(t *testing.T) {
	cases := map[string]struct {
		src  string
		want string
	}{
		"unknown key":       {src: `bogus = 1`, want: "unknown key"},
		"empty prefix":      {src: `prefix = ""`, want: "prefix must not be empty"},
		"prefix whitespace": {src: `prefix = "r v"`, want: "not a valid attribute name"},
		"same delimiters":   {src: "open_delimiter = \"|\"\nclose_delimiter = \"|\"", want: "delimiters must differ"},
		"root interface":    {src: `root_interface = "::"`, want: "single character"},
		"log level":         {src: `log_level = "loud"`, want: "log level"},
		"syntax":            {src: `prefix = `, want: "parse config"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig(tc.src)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tether.toml")
	if err := os.WriteFile(path, []byte("root_interface = \":\"\nstrip_attributes = false\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RootInterface != ':' || cfg.StripAttributes {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected missing file to fail")
	}
}

func TestConfigOptionsBuildView(t *testing.T) {
	cfg, err := ParseConfig("prefix = \"data\"\nstrip_attributes = false\nlog_level = \"error\"")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	root, models := mustFragment(t, `<p data-text="name"></p>`, map[string]any{"name": "Ann"})
	mustBind(t, root, models, cfg.Options()...)

	if got := RenderString(root); got != `<p data-text="name">Ann</p>` {
		t.Fatalf("unexpected render %q", got)
	}
}

func TestConfigExpressionFormatters(t *testing.T) {
	cfg, err := ParseConfig(`
[formatters.cents]
read = "value * 100"
publish = "value / 100"

[formatters.greet]
engine = "cel"
read = "'hi ' + string(value)"
`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := map[string]ExpressionConfig{
		"cents": {Read: "value * 100", Publish: "value / 100"},
		"greet": {Engine: "cel", Read: "'hi ' + string(value)"},
	}
	if diff := cmp.Diff(want, cfg.Expressions); diff != "" {
		t.Fatalf("unexpected expressions (-want +got):\n%s", diff)
	}

	root, models := mustFragment(t, `<p rv-text="price | cents"></p><b rv-text="name | greet"></b>`, map[string]any{
		"price": 3,
		"name":  "ann",
	})
	mustBind(t, root, models, cfg.Options()...)
	if got := RenderString(root); got != `<p>300</p><b>hi ann</b>` {
		t.Fatalf("unexpected render %q", got)
	}
}

func TestConfigExpressionFormattersReject(t *testing.T) {
	cases := map[string]struct {
		src  string
		want string
	}{
		"unknown engine": {src: "[formatters.x]\nengine = \"lua\"\nread = \"value\"", want: "unknown engine"},
		"no expressions": {src: "[formatters.x]\nengine = \"expr\"", want: "needs a read or publish"},
		"bad expression": {src: "[formatters.x]\nread = \"value *\"", want: `formatter "x"`},
		"unknown field":  {src: "[formatters.x]\nread = \"value\"\nwrite = \"value\"", want: "unknown key"},
	}
	if !JSEvaluatorAvailable() {
		cases["js without build tag"] = struct {
			src  string
			want string
		}{src: "[formatters.x]\nengine = \"js\"\nread = \"value\"", want: "evaluator not configured"}
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig(tc.src)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}
