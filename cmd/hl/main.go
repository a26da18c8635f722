package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/hl/internal/blockidx"
	"github.com/standardbeagle/hl/internal/config"
	"github.com/standardbeagle/hl/internal/diag"
	"github.com/standardbeagle/hl/internal/errz"
	"github.com/standardbeagle/hl/internal/format"
	"github.com/standardbeagle/hl/internal/input"
	"github.com/standardbeagle/hl/internal/pipeline"
	"github.com/standardbeagle/hl/internal/segment"
	"github.com/standardbeagle/hl/internal/sortmerge"
	"github.com/standardbeagle/hl/internal/style"
	"github.com/standardbeagle/hl/internal/tsfmt"
	"github.com/standardbeagle/hl/internal/types"
)

var Version = "0.1.0"

// loadSettingsWithOverrides loads the optional KDL config file and applies
// CLI flag overrides on top of it.
func loadSettingsWithOverrides(c *cli.Context) (config.Settings, error) {
	s, err := config.LoadKDLFile(c.String("config"), config.Default())
	if err != nil {
		return s, err
	}
	if c.IsSet("concurrency") {
		s.Concurrency = c.Int("concurrency")
	}
	if c.IsSet("buffer-size") {
		size, err := config.ParseSize("buffer-size", c.String("buffer-size"))
		if err != nil {
			return s, err
		}
		s.BufferSize = size
		s.MaxMessageSize = size
	}
	if c.IsSet("max-message-size") {
		size, err := config.ParseSize("max-message-size", c.String("max-message-size"))
		if err != nil {
			return s, err
		}
		s.MaxMessageSize = size
	}
	if c.IsSet("time-format") {
		s.TimeFormat = c.String("time-format")
	}
	if c.IsSet("time-zone") {
		s.TimeZone = c.String("time-zone")
	}
	if c.IsSet("theme") {
		s.ThemeName = c.String("theme")
	}
	if c.Bool("no-color") {
		s.NoColor = true
	}
	if c.IsSet("cache-dir") {
		s.CacheDir = c.String("cache-dir")
	}
	if c.IsSet("level") {
		s.MinLevel = c.String("level")
	}
	if c.IsSet("since") {
		s.Since = c.String("since")
	}
	if c.IsSet("until") {
		s.Until = c.String("until")
	}
	if c.Bool("hide-empty-fields") {
		s.HideEmptyFields = true
	}
	s.Include = append(s.Include, c.StringSlice("include")...)
	s.Exclude = append(s.Exclude, c.StringSlice("hide")...)
	if c.Bool("unix-timestamp") {
		s.Parser.NeedUnixTimestamp = true
	}
	return s, nil
}

func main() {
	app := &cli.App{
		Name:                   "hl",
		Usage:                  "Readable, colorized rendering of JSON log streams",
		Version:                Version,
		ArgsUsage:              "[file ...]",
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Config file path",
				Value: ".hl.kdl",
			},
			&cli.BoolFlag{
				Name:    "sort",
				Aliases: []string{"s"},
				Usage:   "Merge records from all inputs in timestamp order",
			},
			&cli.StringSliceFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Input file ('-' for stdin, .gz inflated transparently); may repeat",
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Aliases: []string{"c"},
				Usage:   "Worker count (0 = CPU count)",
			},
			&cli.StringFlag{
				Name:  "buffer-size",
				Usage: "Segment buffer size (bytes, or with K/M/G suffix)",
			},
			&cli.StringFlag{
				Name:  "max-message-size",
				Usage: "Maximum single-message size (bytes, or with K/M/G suffix)",
			},
			&cli.StringFlag{
				Name:    "time-format",
				Aliases: []string{"t"},
				Usage:   "Output time format (strftime-like)",
			},
			&cli.StringFlag{
				Name:  "time-zone",
				Usage: "Output time zone (Local, UTC, or an IANA name)",
			},
			&cli.StringFlag{
				Name:  "theme",
				Usage: "Color theme name",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable ANSI styling",
			},
			&cli.StringFlag{
				Name:  "cache-dir",
				Usage: "Index cache directory",
			},
			&cli.StringFlag{
				Name:    "level",
				Aliases: []string{"l"},
				Usage:   "Minimum level to show (debug, info, warning, error)",
			},
			&cli.StringFlag{
				Name:  "since",
				Usage: "Show only records at or after this time (RFC-3339 or epoch)",
			},
			&cli.StringFlag{
				Name:  "until",
				Usage: "Show only records at or before this time (RFC-3339 or epoch)",
			},
			&cli.BoolFlag{
				Name:    "hide-empty-fields",
				Aliases: []string{"e"},
				Usage:   "Hide fields whose value is empty, null, {} or []",
			},
			&cli.StringSliceFlag{
				Name:    "include",
				Aliases: []string{"i"},
				Usage:   "Show only the named fields (dotted paths, * wildcards)",
			},
			&cli.StringSliceFlag{
				Name:    "hide",
				Aliases: []string{"x"},
				Usage:   "Hide the named fields (dotted paths, * wildcards)",
			},
			&cli.BoolFlag{
				Name:  "unix-timestamp",
				Usage: "Resolve timestamps to unix (sec,nsec) eagerly while parsing",
			},
			&cli.BoolFlag{
				Name:   "debug",
				Usage:  "Diagnostic output on stderr",
				Hidden: true,
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "hl: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	diag.SetEnabled(c.Bool("debug"))

	settings, err := loadSettingsWithOverrides(c)
	if err != nil {
		return err
	}

	minLevel, err := settings.ParsedMinLevel()
	if err != nil {
		return err
	}

	timeRange, err := settings.ParsedTimeRange()
	if err != nil {
		return err
	}

	tsFormatter, err := tsfmt.Compile(settings.TimeFormat, settings.TimeZone)
	if err != nil {
		return err
	}

	theme, err := resolveTheme(settings)
	if err != nil {
		return err
	}

	fastPath := settings.TimeFormat == config.DefaultTimeFormat && settings.TimeZone == "UTC"
	fieldFilter := format.BuildFilter(settings.Include, settings.Exclude)
	if len(settings.Include) == 0 && len(settings.Exclude) == 0 {
		fieldFilter = nil
	}
	formatter := format.New(theme, tsFormatter, fastPath, settings.HideEmptyFields, fieldFilter)

	paths := c.StringSlice("file")
	paths = append(paths, c.Args().Slice()...)
	if len(paths) == 0 {
		paths = []string{input.StdinName}
	}

	if c.Bool("sort") {
		return runSort(paths, settings, minLevel, timeRange, formatter)
	}
	return runCat(paths, settings, minLevel, timeRange, formatter)
}

func resolveTheme(settings config.Settings) (*style.Theme, error) {
	if settings.NoColor {
		return style.NoneTheme(), nil
	}
	return style.LookupTheme(settings.ThemeName)
}

func runCat(paths []string, settings config.Settings, minLevel types.Level, timeRange types.TimeRange, formatter *format.Formatter) error {
	var inputs []*input.Input
	defer func() {
		var errs []error
		for _, in := range inputs {
			errs = append(errs, in.Close())
		}
		if merr := errz.NewMultiError(errs); merr != nil {
			diag.Printf("closing inputs: %v", merr)
		}
	}()
	for _, p := range paths {
		in, err := input.Open(p)
		if err != nil {
			return err
		}
		inputs = append(inputs, in)
	}
	return pipeline.Cat(os.Stdout, inputs, pipeline.Options{
		Concurrency: settings.ResolvedConcurrency(),
		BufferSize:  settings.BufferSize,
		Parser:      settings.Parser,
		MinLevel:    minLevel,
		TimeRange:   timeRange,
		Formatter:   formatter,
	})
}

func runSort(paths []string, settings config.Settings, minLevel types.Level, timeRange types.TimeRange, formatter *format.Formatter) error {
	pool := segment.NewPool(settings.BufferSize, settings.ResolvedConcurrency()*2+2)
	indexer := blockidx.NewIndexer(pool, settings.BufferSize, settings.ResolvedConcurrency(), settings.Parser)
	cache := blockidx.NewCache(settings.CacheDir, settings.BufferSize, settings.MaxMessageSize, settings.Parser)

	var sources []*input.SortSource
	defer func() {
		for _, src := range sources {
			src.Seekable.Close()
		}
	}()

	var merged []*sortmerge.Input
	for _, p := range paths {
		src, err := input.OpenSortSource(p, input.DefaultReplayOptions())
		if err != nil {
			return err
		}
		sources = append(sources, src)
		idx, err := blockidx.IndexSource(indexer, cache, src)
		if err != nil {
			return err
		}
		merged = append(merged, &sortmerge.Input{
			Name:   src.Name,
			Reader: src.Seekable,
			Index:  idx,
		})
	}

	return sortmerge.Sort(os.Stdout, merged, sortmerge.Options{
		Concurrency: settings.ResolvedConcurrency(),
		Parser:      settings.Parser,
		MinLevel:    minLevel,
		TimeRange:   timeRange,
		Formatter:   formatter,
	})
}
