package dump

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/skyportal/dump/bundle"
	"github.com/skyportal/dump/config"
	"github.com/skyportal/dump/log"
	"github.com/skyportal/dump/telemetry"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/codes"
)

// Defaults of the event command's detection filters.
const (
	DefaultLocalizationCumprob = 0.95
	DefaultNumberDetections    = 2
)

func Commands() []*cli.Command {
	return []*cli.Command{
		SourcesCommand(),
		EventCommand(),
		InstrumentsCommand(),
		AllocationsCommand(),
		FollowupsCommand(),
		ObservationsCommand(),
		AnalysisCommand(),
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "url",
			Usage: "SkyPortal instance to export from",
		},
		&cli.StringFlag{
			Name:  "token",
			Usage: "SkyPortal API token",
		},
		&cli.BoolFlag{
			Name:  "whitelisted",
			Usage: "skip rate limit pauses; the caller's address is exempt",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to a config.yaml with run parameters",
		},
		&cli.StringFlag{
			Name:    "directory",
			Aliases: []string{"d"},
			Usage:   "run directory (default: results/<stamp>)",
		},
		&cli.IntFlag{
			Name:  "num-per-page",
			Usage: "page size of paginated requests",
			Value: 100,
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "log debug messages",
		},
		&cli.StringFlag{
			Name:  "tracing",
			Usage: "trace catalog requests (off, file, otlp)",
			Value: "off",
		},
		&cli.StringFlag{
			Name:  "blob-driver",
			Usage: "where the bundle is written (fs, s3, memory)",
			Value: "fs",
		},
		&cli.StringFlag{
			Name:  "s3-bucket",
			Usage: "bucket of the s3 blob driver",
		},
		&cli.StringFlag{
			Name:  "s3-region",
			Usage: "region of the s3 blob driver",
		},
		&cli.StringFlag{
			Name:  "s3-endpoint",
			Usage: "endpoint of an S3 compatible store",
		},
		&cli.BoolFlag{
			Name:  "s3-path-style",
			Usage: "use path style bucket addressing",
		},
	}
}

func stringFlag(name, usage string) cli.Flag {
	return &cli.StringFlag{Name: name, Usage: usage}
}

func intFlag(name, usage string) cli.Flag {
	return &cli.IntFlag{Name: name, Usage: usage}
}

func withFlags(flags ...cli.Flag) []cli.Flag {
	return append(commonFlags(), flags...)
}

func SourcesCommand() *cli.Command {
	return &cli.Command{
		Name:   "sources",
		Usage:  "export sources, photometry, groups, instruments and telescopes",
		Action: runSources,
		Flags: withFlags(
			stringFlag("start-date", "only sources saved after this date"),
			stringFlag("end-date", "only sources saved before this date"),
			stringFlag("localization-dateobs", "only sources inside a localization of this event"),
			stringFlag("localization-name", "localization of --localization-dateobs"),
		),
	}
}

func EventCommand() *cli.Command {
	return &cli.Command{
		Name:   "event",
		Usage:  "export the sources of a sky event localization and the localization itself",
		Action: runEvent,
		Flags: withFlags(
			stringFlag("localization-dateobs", "dateobs of the event"),
			stringFlag("localization-name", "name of the localization"),
			stringFlag("start-date", "first detection after this date"),
			stringFlag("end-date", "last detection before this date"),
			&cli.FloatFlag{
				Name:  "localization-cumprob",
				Usage: "cumulative probability of the credible region",
			},
			intFlag("number-detections", "minimum number of detections"),
		),
	}
}

func InstrumentsCommand() *cli.Command {
	return &cli.Command{
		Name:   "instruments",
		Usage:  "export telescopes, instruments and their allocations",
		Action: runInstruments,
		Flags:  withFlags(),
	}
}

func AllocationsCommand() *cli.Command {
	return &cli.Command{
		Name:   "allocations",
		Usage:  "export the allocations of one instrument",
		Action: runAllocations,
		Flags: withFlags(
			intFlag("instrument-id", "instrument to export allocations of"),
		),
	}
}

func FollowupsCommand() *cli.Command {
	return &cli.Command{
		Name:   "followups",
		Usage:  "export follow-up requests, or an instrument's schedule",
		Action: runFollowups,
		Flags: withFlags(
			intFlag("instrument-id", "download this instrument's schedule instead"),
			stringFlag("source-id", "only requests for this source"),
			stringFlag("start-date", "only requests created after this date"),
			stringFlag("end-date", "only requests created before this date"),
			stringFlag("output-format", "schedule format (csv, pdf, png)"),
		),
	}
}

func ObservationsCommand() *cli.Command {
	return &cli.Command{
		Name:   "observations",
		Usage:  "retrieve an allocation's executed observations from the external archive",
		Action: runObservations,
		Flags: withFlags(
			intFlag("allocation-id", "allocation to retrieve observations of"),
			stringFlag("start-date", "start of the observation window"),
			stringFlag("end-date", "end of the observation window"),
		),
	}
}

func AnalysisCommand() *cli.Command {
	return &cli.Command{
		Name:   "analysis",
		Usage:  "start an analysis service on a source",
		Action: runAnalysis,
		Flags: withFlags(
			stringFlag("source-id", "source to analyse"),
			stringFlag("service", "name of the analysis service"),
		),
	}
}

// LoadConfig builds the run configuration. Flags override the --config
// file, which overrides the environment and its defaults.
func LoadConfig(ctx context.Context, cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}

	if path := cmd.String("config"); path != "" {
		f, err := config.ReadFile(path)
		if err != nil {
			return nil, err
		}
		f.Apply(cfg)
	}

	applyFlags(cmd, cfg)
	return cfg, nil
}

func applyFlags(cmd *cli.Command, cfg *config.Config) {
	str := func(name string, dst *string) {
		if cmd.IsSet(name) {
			*dst = cmd.String(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if cmd.IsSet(name) {
			*dst = cmd.Bool(name)
		}
	}
	optInt := func(name string, dst **int) {
		if cmd.IsSet(name) {
			v := cmd.Int(name)
			*dst = &v
		}
	}

	str("url", &cfg.SkyPortal.URL)
	str("token", &cfg.SkyPortal.Token)
	boolean("whitelisted", &cfg.SkyPortal.Whitelisted)
	str("directory", &cfg.Directory)
	boolean("verbose", &cfg.Verbose)
	str("tracing", &cfg.Tracing)
	if cmd.IsSet("num-per-page") {
		cfg.NumPerPage = cmd.Int("num-per-page")
	}

	str("blob-driver", &cfg.Blob.Driver)
	str("s3-bucket", &cfg.Blob.S3.Bucket)
	str("s3-region", &cfg.Blob.S3.Region)
	str("s3-endpoint", &cfg.Blob.S3.Endpoint)
	boolean("s3-path-style", &cfg.Blob.S3.PathStyle)

	q := &cfg.Query
	str("localization-dateobs", &q.LocalizationDateobs)
	str("localization-name", &q.LocalizationName)
	str("start-date", &q.StartDate)
	str("end-date", &q.EndDate)
	str("source-id", &q.SourceID)
	str("service", &q.Service)
	str("output-format", &q.OutputFormat)
	if cmd.IsSet("localization-cumprob") {
		v := cmd.Float("localization-cumprob")
		q.LocalizationCumprob = &v
	}
	optInt("number-detections", &q.NumberDetections)
	optInt("instrument-id", &q.InstrumentID)
	optInt("allocation-id", &q.AllocationID)
}

func runLogger(ctx context.Context, cfg *config.Config) *slog.Logger {
	if cfg.Verbose {
		return log.NewWithOptions("skydump", log.Options{Verbose: true})
	}
	return log.FromContext(ctx)
}

// prepare loads the configuration and checks the command's required
// parameters before anything touches the network.
func prepare(ctx context.Context, cmd *cli.Command, required ...string) (*config.Config, *slog.Logger, error) {
	cfg, err := LoadConfig(ctx, cmd)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Require(required...); err != nil {
		return nil, nil, err
	}
	return cfg, log.SubLogger(runLogger(ctx, cfg), cmd.Name), nil
}

type pipeline func(*Exporter, context.Context) (*bundle.Document, error)

// Export runs one pipeline into a fresh run directory and saves whatever
// it produced, even when it failed part way.
func Export(ctx context.Context, cfg *config.Config, logger *slog.Logger, stamp string, run pipeline) error {
	mode, err := telemetry.ParseTraceMode(cfg.Tracing)
	if err != nil {
		return err
	}
	store, err := OpenStore(ctx, cfg, stamp)
	if err != nil {
		return err
	}
	tracing, err := telemetry.NewTracing(ctx, mode, versioninfo.Short())
	if err != nil {
		return err
	}

	e := NewExporter(cfg, store, telemetry.New(), logger)
	logger.Info("exporting", "url", cfg.SkyPortal.URL, "driver", store.Driver(), "whitelisted", cfg.SkyPortal.Whitelisted)

	start := time.Now()
	runCtx, span := tracing.Tracer().Start(ctx, "export")
	doc, runErr := run(e, runCtx)
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "export incomplete")
	}
	span.End()

	saveErr := e.Save(ctx, doc)
	traceErr := tracing.Finish(ctx, store)
	logger.Info("export finished", "took", time.Since(start).Round(time.Millisecond), "pauses", e.pacer.Pauses(), "ok", runErr == nil && saveErr == nil)
	return errors.Join(runErr, saveErr, traceErr)
}

func runSources(ctx context.Context, cmd *cli.Command) error {
	cfg, l, err := prepare(ctx, cmd, config.ParamURL, config.ParamToken)
	if err != nil {
		return err
	}
	return Export(ctx, cfg, l, RandomStamp(), (*Exporter).Sources)
}

func runEvent(ctx context.Context, cmd *cli.Command) error {
	cfg, err := LoadConfig(ctx, cmd)
	if err != nil {
		return err
	}
	q := &cfg.Query
	if q.LocalizationCumprob == nil {
		v := DefaultLocalizationCumprob
		q.LocalizationCumprob = &v
	}
	if q.NumberDetections == nil {
		v := DefaultNumberDetections
		q.NumberDetections = &v
	}
	if err := cfg.Require(
		config.ParamLocalizationDateobs,
		config.ParamLocalizationName,
		config.ParamStartDate,
		config.ParamEndDate,
		config.ParamLocalizationCumprob,
		config.ParamNumberDetections,
		config.ParamURL,
		config.ParamToken,
	); err != nil {
		return err
	}
	l := log.SubLogger(runLogger(ctx, cfg), cmd.Name)
	return Export(ctx, cfg, l, q.LocalizationDateobs, (*Exporter).Event)
}

func runInstruments(ctx context.Context, cmd *cli.Command) error {
	cfg, l, err := prepare(ctx, cmd, config.ParamURL, config.ParamToken)
	if err != nil {
		return err
	}
	return Export(ctx, cfg, l, TimeStamp(time.Now()), (*Exporter).Instruments)
}

func runAllocations(ctx context.Context, cmd *cli.Command) error {
	cfg, l, err := prepare(ctx, cmd, config.ParamInstrumentID, config.ParamURL, config.ParamToken)
	if err != nil {
		return err
	}
	return Export(ctx, cfg, l, TimeStamp(time.Now()), (*Exporter).Allocations)
}

func runFollowups(ctx context.Context, cmd *cli.Command) error {
	cfg, l, err := prepare(ctx, cmd, config.ParamURL, config.ParamToken)
	if err != nil {
		return err
	}
	return Export(ctx, cfg, l, TimeStamp(time.Now()), (*Exporter).Followups)
}

func runObservations(ctx context.Context, cmd *cli.Command) error {
	cfg, l, err := prepare(ctx, cmd,
		config.ParamAllocationID,
		config.ParamStartDate,
		config.ParamEndDate,
		config.ParamURL,
		config.ParamToken,
	)
	if err != nil {
		return err
	}
	return NewExporter(cfg, nil, nil, l).Observations(ctx)
}

func runAnalysis(ctx context.Context, cmd *cli.Command) error {
	cfg, l, err := prepare(ctx, cmd, config.ParamSourceID, config.ParamService, config.ParamURL, config.ParamToken)
	if err != nil {
		return err
	}
	return NewExporter(cfg, nil, nil, l).Analysis(ctx)
}
