// Command cyphercore loads a YAML graph fixture into the in-memory
// reference backend and runs a single Cypher query against it, printing
// the column header and rows to stdout. It is not a REPL or a product
// surface (both remain non-goals, SPEC_FULL.md §3/§5.8); it exists as a
// runnable proof that Parser -> Analyser -> Planner -> Executor compose
// end to end, in the style of the teacher's cmd/scaf/*.go subcommand
// wiring (github.com/urfave/cli/v3).
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/jakewins/cyphercore/engine"
	"github.com/jakewins/cyphercore/graph/memory"
)

func main() {
	app := &cli.Command{
		Name:  "cyphercore",
		Usage: "run one Cypher query against a YAML graph fixture",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "fixture",
				Usage:    "path to a YAML graph fixture (nodes/rels)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a YAML engine config file (optional)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging of parse/plan lifecycle events",
			},
		},
		ArgsUsage: "<query>",
		Action:    run,
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 1 {
		return fmt.Errorf("usage: cyphercore --fixture=<path> \"<query>\"")
	}
	query := cmd.Args().Get(0)

	backend, _, err := memory.LoadFixture(ctx, cmd.String("fixture"))
	if err != nil {
		return fmt.Errorf("loading fixture: %w", err)
	}

	cfg := engine.DefaultConfig()
	if path := cmd.String("config"); path != "" {
		cfg, err = engine.LoadConfig(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	}

	log := zap.NewNop()
	if cmd.Bool("debug") {
		var err error
		log, err = zap.NewDevelopment()
		if err != nil {
			return err
		}
	}
	defer log.Sync()

	eng := engine.New(backend, engine.WithConfig(cfg), engine.WithLogger(log))

	stream, err := eng.Query(ctx, query, nil)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer stream.Close()

	fmt.Println(strings.Join(stream.Columns(), "\t"))
	for {
		row, err := stream.Next()
		if engine.IsDone(err) {
			break
		}
		if err != nil {
			return fmt.Errorf("executing query: %w", err)
		}
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = v.String()
		}
		fmt.Println(strings.Join(cells, "\t"))
	}
	return nil
}
