package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rxtech-lab/argo-structure/internal/datasource"
	"github.com/urfave/cli/v3"
)

func dataFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "data",
			Aliases:  []string{"d"},
			Usage:    "Path to a parquet or CSV file with time, symbol, open, high, low, close, volume columns",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "symbol",
			Aliases: []string{"s"},
			Usage:   "Symbol to analyze. Defaults to the config symbol, or the only symbol in the file",
		},
		&cli.TimestampFlag{
			Name:  "start",
			Usage: "Start date in `YYYY-MM-DD` format",
			Config: cli.TimestampConfig{
				Layouts: []string{"2006-01-02", "2006-01-02T15:04:05Z07:00"},
			},
		},
		&cli.TimestampFlag{
			Name:  "end",
			Usage: "End date in `YYYY-MM-DD` format",
			Config: cli.TimestampConfig{
				Layouts: []string{"2006-01-02", "2006-01-02T15:04:05Z07:00"},
			},
		},
		&cli.StringFlag{
			Name:    "interval",
			Aliases: []string{"i"},
			Usage:   fmt.Sprintf("Resample the file to this interval (e.g., %s, %s, %s)", datasource.Interval5m, datasource.Interval1h, datasource.Interval1d),
		},
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "structure",
		Usage: "Decompose bar history into strokes, segments, pivots and buy/sell points",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML analysis config. Defaults are used when omitted",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Log every pipeline update",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "analyze",
				Usage: "Analyze a bar file in one batch and optionally export the results to parquet",
				Flags: append(dataFlags(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Directory for the exported parquet files",
					},
				),
				Action: analyzeAction,
			},
			{
				Name:  "replay",
				Usage: "Feed a bar file to the analyzer in batches, the way a live feed would",
				Flags: append(dataFlags(),
					&cli.IntFlag{
						Name:    "batch",
						Aliases: []string{"b"},
						Usage:   "Number of bars per update",
						Value:   1,
					},
					&cli.StringFlag{
						Name:  "resume",
						Usage: "Restore this snapshot before replaying",
					},
					&cli.StringFlag{
						Name:  "state",
						Usage: "Write a snapshot to this path after replaying",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Directory for the exported parquet files",
					},
				),
				Action: replayAction,
			},
			{
				Name:  "schema",
				Usage: "Write the config JSON schema and a sample config",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory",
						Value:   "config",
					},
				},
				Action: schemaAction,
			},
			{
				Name:  "serve",
				Usage: "Serve an analysis over HTTP",
				Flags: append(dataFlags(),
					&cli.StringFlag{
						Name:    "address",
						Aliases: []string{"a"},
						Usage:   "Listen address",
						Value:   ":8080",
					},
				),
				Action: serveAction,
			},
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render(err.Error()))
		os.Exit(1)
	}
}
