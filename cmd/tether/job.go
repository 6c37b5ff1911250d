package main

import (
	"fmt"
	"os"
	"strings"

	tether "github.com/goliatone/go-tether"
	"github.com/goliatone/go-tether/binders"
	"github.com/goliatone/go-tether/formatters"
	"github.com/goliatone/go-tether/internal/hydrate"
	"github.com/goliatone/go-tether/observe"
	"golang.org/x/net/html"
)

// jobFlags are the flag values shared by every subcommand that binds a
// template.
type jobFlags struct {
	Model  string
	Config string
	Prefix string
}

// job is a template paired with its model and view configuration.
type job struct {
	source string
	models *observe.Object
	config tether.Config
}

func loadJob(templatePath string, flags jobFlags) (*job, error) {
	raw, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("could not read template %q: %w", templatePath, err)
	}

	config := tether.DefaultConfig()
	if flags.Config != "" {
		if config, err = tether.LoadConfig(flags.Config); err != nil {
			return nil, err
		}
	}
	if flags.Prefix != "" {
		config.Prefix = flags.Prefix
		if err := config.Validate(); err != nil {
			return nil, err
		}
	}

	models, err := hydrate.NewDecoder(hydrate.WithUseNumber()).DecodeFiles(splitList(flags.Model)...)
	if err != nil {
		return nil, err
	}
	return &job{source: string(raw), models: models, config: config}, nil
}

// bind parses the template and binds it against the job model with the
// stock binders and formatters.
func (j *job) bind() (*html.Node, *tether.View, error) {
	root, err := tether.ParseFragment(j.source)
	if err != nil {
		return nil, nil, err
	}
	opts := append([]tether.Option{
		tether.WithBinders(binders.Default()),
		tether.WithFormatters(formatters.Default()),
	}, j.config.Options()...)
	view, err := tether.Bind(tether.Children(root), j.models, opts...)
	if err != nil {
		return nil, nil, err
	}
	return root, view, nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
