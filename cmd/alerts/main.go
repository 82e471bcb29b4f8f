// cmd/alerts - запуск одного цикла уведомлений вручную или из cron.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"edu-alerts-backend/internal/app"
	"edu-alerts-backend/internal/config"
	"edu-alerts-backend/internal/logging"

	"github.com/DavidGamba/go-getoptions"
)

// commandLineOptionValues represents the values of the command-line options that were passed on the command line when
// this tool was invoked.
type commandLineOptionValues struct {
	Config     string
	PurgeOnly  bool
	Suppressed bool
}

func parseCommandLine() *commandLineOptionValues {
	optionValues := &commandLineOptionValues{}
	opt := getoptions.New()

	// Define the command-line options.
	opt.Bool("help", false, opt.Alias("h", "?"))
	opt.StringVar(&optionValues.Config, "config", os.Getenv("CONFIG_PATH"),
		opt.Alias("c"),
		opt.Description("the path to the configuration file"))
	opt.BoolVar(&optionValues.PurgeOnly, "purge-only", false,
		opt.Description("only delete notifications whose deadline has passed"))
	opt.BoolVar(&optionValues.Suppressed, "suppressed", false,
		opt.Description("only delete old notifications hidden by every recipient"))

	// Parse the command line, handling requests for help and usage errors.
	_, err := opt.Parse(os.Args[1:])
	if opt.Called("help") {
		fmt.Fprint(os.Stderr, opt.Help())
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n\n", err)
		fmt.Fprint(os.Stderr, opt.Help(getoptions.HelpSynopsis))
		os.Exit(1)
	}
	if optionValues.PurgeOnly && optionValues.Suppressed {
		fmt.Fprintln(os.Stderr, "Error: --purge-only and --suppressed are mutually exclusive")
		os.Exit(1)
	}

	return optionValues
}

func main() {
	optionValues := parseCommandLine()

	cfg := config.LoadFile(optionValues.Config)
	logging.Init(cfg.LogLevel, cfg.Environment)
	log := logging.For("alerts-cli")

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx := context.Background()
	container, err := app.Build(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("unable to open stores")
	}
	defer container.Close()

	var result interface{}
	switch {
	case optionValues.PurgeOnly:
		purged, err := container.Reaper.PurgeExpired(ctx)
		if err != nil {
			log.WithError(err).Fatal("purge failed")
		}
		result = map[string]int64{"purged": purged}

	case optionValues.Suppressed:
		deleted, err := container.Scheduler.PurgeSuppressed(ctx)
		if err != nil {
			log.WithError(err).Fatal("suppressed purge failed")
		}
		result = map[string]int64{"deleted_count": deleted}

	default:
		cycle, err := container.Scheduler.Trigger(ctx)
		if err != nil {
			log.WithError(err).Fatal("alert cycle failed")
		}
		result = cycle
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.WithError(err).Fatal("unable to print the result")
	}
}
