package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/scott-cotton/cli"
)

func main() {
	initLogger()
	cli.MainContext(context.Background(), Root())
}

func initLogger() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Str("app", "tether").Logger().Level(zerolog.WarnLevel)
}
