package main

import (
	"fmt"
	"io"

	tether "github.com/goliatone/go-tether"
	"github.com/scott-cotton/cli"
)

type renderConfig struct {
	*cli.Command
	Model  string `cli:"name=model aliases=m desc='comma separated model files, later files override earlier ones'"`
	Config string `cli:"name=config aliases=c desc='TOML view configuration file'"`
	Prefix string `cli:"name=prefix desc='directive attribute prefix, overrides the config file'"`
}

// RenderCommand returns the render subcommand.
func RenderCommand() *cli.Command {
	cfg := &renderConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Command, "render").
		WithSynopsis("render <template> [--model files] - Bind a template and print the result").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func (cfg *renderConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: usage: tether render <template> [--model files]", cli.ErrUsage)
	}
	j, err := loadJob(args[0], jobFlags{Model: cfg.Model, Config: cfg.Config, Prefix: cfg.Prefix})
	if err != nil {
		return err
	}
	return render(cc.Out, j)
}

func render(w io.Writer, j *job) error {
	root, view, err := j.bind()
	if err != nil {
		return err
	}
	defer view.Dispose()

	if err := tether.Render(w, root); err != nil {
		return fmt.Errorf("error writing output: %w", err)
	}
	_, err = io.WriteString(w, "\n")
	return err
}
