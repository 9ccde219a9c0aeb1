package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/costbook/reconciler/internal/jobs"
	"github.com/costbook/reconciler/internal/ledger"
	"github.com/costbook/reconciler/internal/models"
	"github.com/costbook/reconciler/internal/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `usage: reconciler <command> [flags]

Commands:
  dedup-installments  remove duplicated installment entries
  dedup-templates     remove duplicated templates and their installments
  regenerate          rebuild all installments of one template
  correct-dates       move matching entries into a target month
  relabel-sector      overwrite the sector of matching entries
  serve               start the HTTP job trigger API

All job commands run in dry-run mode unless -execute is set.
`

func main() {
	// Load .env file for local development, ignore errors when there is none
	_ = godotenv.Load()

	// gin uses debug as the default mode, we use release for
	// security reasons
	ginMode, ok := os.LookupEnv("GIN_MODE")
	if !ok {
		gin.SetMode("release")
	} else {
		gin.SetMode(ginMode)
	}

	// Log format can be explicitly set.
	// If it is not set, it defaults to human readable for development
	// and JSON for release
	logFormat, ok := os.LookupEnv("LOG_FORMAT")
	output := io.Writer(os.Stdout)
	if (!ok && gin.IsDebugging()) || (ok && logFormat == "human") {
		output = zerolog.ConsoleWriter{Out: os.Stdout}
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if gin.IsDebugging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(output).With().Timestamp().Logger()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	// Create data directory for the sqlite database
	if _, ok := os.LookupEnv("DB_HOST"); !ok {
		dataDir := filepath.Join(".", "data")
		err := os.MkdirAll(dataDir, os.ModePerm)
		if err != nil {
			log.Fatal().Msg(err.Error())
		}
	}

	err := models.Connect("data/gorm.db")
	if err != nil {
		log.Fatal().Msg(err.Error())
	}

	client := ledger.NewGormClient(models.DB)

	err = run(os.Args[1], os.Args[2:], client)
	if err != nil {
		log.Error().Msg(err.Error())
		os.Exit(1)
	}
}

// run dispatches to the subcommand. The returned error is a fetch failure or
// a usage problem; per-row write failures are part of the report instead.
func run(command string, args []string, client ledger.Client) error {
	flags := flag.NewFlagSet(command, flag.ExitOnError)
	execute := flags.Bool("execute", false, "apply the computed delta instead of previewing it")
	debug := flags.Bool("debug", false, "dump the candidate rows before computation")

	ctx := context.Background()

	switch command {
	case "dedup-installments":
		if err := flags.Parse(args); err != nil {
			return err
		}

		report, err := jobs.New(client, jobs.Options{Execute: *execute, Debug: *debug}).DeduplicateInstallments(ctx)
		if err != nil {
			return err
		}
		return printReport(report)

	case "dedup-templates":
		if err := flags.Parse(args); err != nil {
			return err
		}

		report, err := jobs.New(client, jobs.Options{Execute: *execute, Debug: *debug}).DeduplicateTemplates(ctx)
		if err != nil {
			return err
		}
		return printReport(report)

	case "regenerate":
		template := flags.String("template", "", "ID of the template to regenerate")
		if err := flags.Parse(args); err != nil {
			return err
		}

		templateID, err := uuid.Parse(*template)
		if err != nil {
			return fmt.Errorf("-template must be a valid UUID: %w", err)
		}

		report, err := jobs.New(client, jobs.Options{Execute: *execute, Debug: *debug}).Regenerate(ctx, templateID)
		if err != nil {
			return err
		}
		return printReport(report)

	case "correct-dates":
		match := flags.String("match", "", "glob pattern for the entry descriptions to move")
		year := flags.Int("year", 0, "target year")
		month := flags.Int("month", 0, "target month (1-12)")
		if err := flags.Parse(args); err != nil {
			return err
		}

		if *match == "" {
			return fmt.Errorf("-match must not be empty")
		}
		if *month < 1 || *month > 12 {
			return fmt.Errorf("-month must be between 1 and 12")
		}

		report, err := jobs.New(client, jobs.Options{Execute: *execute, Debug: *debug}).CorrectDates(ctx, *match, *year, time.Month(*month))
		if err != nil {
			return err
		}
		return printReport(report)

	case "relabel-sector":
		match := flags.String("match", "", "glob pattern for the entry descriptions to relabel")
		sector := flags.String("sector", "", "sector to set")
		if err := flags.Parse(args); err != nil {
			return err
		}

		if *match == "" {
			return fmt.Errorf("-match must not be empty")
		}
		if *sector == "" {
			return fmt.Errorf("-sector must not be empty")
		}

		report, err := jobs.New(client, jobs.Options{Execute: *execute, Debug: *debug}).RelabelSector(ctx, *match, *sector)
		if err != nil {
			return err
		}
		return printReport(report)

	case "serve":
		if err := flags.Parse(args); err != nil {
			return err
		}

		r, err := router.Router(client)
		if err != nil {
			return err
		}
		return r.Run()

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

// printReport writes the job report to stdout so that dry-run output can be
// inspected and piped.
func printReport(report jobs.Report) error {
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))
	return nil
}
