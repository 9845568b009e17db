package main

import (
	"fmt"
	"os"

	"github.com/danmuck/wlcore/internal/config"
	"github.com/danmuck/wlcore/internal/logging"
	"github.com/danmuck/wlcore/internal/logs"
	"github.com/spf13/pflag"
)

const defaultPath = "cmd/wlcored/config.toml"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "configgen: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	set := pflag.NewFlagSet("configgen", pflag.ContinueOnError)
	kind := set.String("kind", "server", "template kind: server|xwayland")
	output := set.String("output", defaultPath, "output path for config template")
	validate := set.Bool("validate", false, "validate an existing config file")
	input := set.String("input", defaultPath, "config path for validation")
	force := set.Bool("force", false, "overwrite existing config file")
	if err := set.Parse(args); err != nil {
		return err
	}
	logging.ConfigureRuntime()

	if *validate {
		if _, err := config.LoadServerConfig(*input); err != nil {
			return err
		}
		logs.Infof("configgen validated config=%s", *input)
		return nil
	}

	if err := config.WriteTemplate(*output, *kind, *force); err != nil {
		return err
	}
	logs.Infof("configgen wrote kind=%s config=%s", *kind, *output)
	return nil
}
