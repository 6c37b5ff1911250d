package main

import "github.com/scott-cotton/cli"

const usageText = `tether - bind HTML templates to data models

Usage:
  tether render <template> [--model files] [--config file] [--prefix p]
  tether inspect <template> [--model files] [--config file] [--prefix p]

Models are JSON or YAML files, picked by extension. Several files may be
given comma separated; later files override earlier ones key by key.

Examples:
  tether render page.html --model data.json
  tether render page.html --model base.yaml,local.json --config tether.toml
  tether inspect page.html --model data.json`

// Root returns the root command for tether.
func Root() *cli.Command {
	return cli.NewCommand("tether").
		WithSynopsis("tether - bind HTML templates to data models").
		WithDescription(usageText).
		WithSubs(
			RenderCommand(),
			InspectCommand(),
		)
}
