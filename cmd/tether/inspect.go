package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	tether "github.com/goliatone/go-tether"
	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"
)

type inspectConfig struct {
	*cli.Command
	Model  string `cli:"name=model aliases=m desc='comma separated model files, later files override earlier ones'"`
	Config string `cli:"name=config aliases=c desc='TOML view configuration file'"`
	Prefix string `cli:"name=prefix desc='directive attribute prefix, overrides the config file'"`
	Color  bool   `cli:"name=color desc='force colored output'"`
}

// InspectCommand returns the inspect subcommand.
func InspectCommand() *cli.Command {
	cfg := &inspectConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Command, "inspect").
		WithSynopsis("inspect <template> [--model files] - List bindings and model keypaths").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func (cfg *inspectConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: usage: tether inspect <template> [--model files]", cli.ErrUsage)
	}
	j, err := loadJob(args[0], jobFlags{Model: cfg.Model, Config: cfg.Config, Prefix: cfg.Prefix})
	if err != nil {
		return err
	}
	return inspect(cc.Out, j, newPalette(cfg.Color || isTerminal(cc.Out)))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

type palette struct {
	header  func(string, ...any) string
	binder  func(string, ...any) string
	keypath func(string, ...any) string
	warn    func(string, ...any) string
}

func newPalette(colored bool) palette {
	if !colored {
		return palette{header: fmt.Sprintf, binder: fmt.Sprintf, keypath: fmt.Sprintf, warn: fmt.Sprintf}
	}
	paint := func(attrs ...color.Attribute) func(string, ...any) string {
		c := color.New(attrs...)
		c.EnableColor()
		return c.SprintfFunc()
	}
	return palette{
		header:  paint(color.Bold),
		binder:  paint(color.FgCyan),
		keypath: paint(color.FgGreen),
		warn:    paint(color.FgYellow),
	}
}

func inspect(w io.Writer, j *job, p palette) error {
	_, view, err := j.bind()
	if err != nil {
		return err
	}
	defer view.Dispose()

	fmt.Fprintln(w, p.header("Bindings:"))
	for _, binding := range view.Bindings() {
		line := fmt.Sprintf("  %5d  %s %s", binding.Priority(), p.binder("%-12s", binding.BinderName()), p.keypath("%s", binding.Keypath()))
		if names := binding.Context().Formatters; len(names) > 0 {
			line += " | " + strings.Join(names, " | ")
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, p.header("Model:"))
	for _, field := range tether.DescribeModel(view.Models()) {
		fmt.Fprintf(w, "  %s %s\n", p.keypath("%s", field.Keypath), field.Type)
	}

	unresolved := view.Unresolved()
	if len(unresolved) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, p.warn("Unresolved:"))
	for _, binding := range unresolved {
		fmt.Fprintf(w, "  %s (%s)\n", p.warn("%s", binding.Keypath()), binding.BinderName())
	}
	return nil
}
