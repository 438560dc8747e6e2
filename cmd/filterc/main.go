// Command filterc compiles a listing query string into its predicate tree
// and the SQL the repositories would run for it.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/bisicus/segreteriacanti-api/internal/api"
	"github.com/bisicus/segreteriacanti-api/internal/filter"
	"github.com/bisicus/segreteriacanti-api/internal/repository"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "filterc",
		Usage:     "Compile archive filters into a predicate tree and SQL",
		ArgsUsage: "<query string>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "entity",
				Aliases: []string{"e"},
				Usage:   "entity to filter: song, author, recording, event, deed, moment, translation",
				Value:   "song",
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "reject unknown filter keys",
			},
			&cli.BoolFlag{
				Name:  "keys",
				Usage: "list the filter keys of the entity and exit",
			},
		},
		Writer: out,
		Action: func(c *cli.Context) error {
			return run(c, out)
		},
	}
}

type output struct {
	Entity string       `json:"entity"`
	Where  *filter.Tree `json:"where"`
	SQL    string       `json:"sql"`
	Args   []any        `json:"args"`
}

func run(c *cli.Context, out io.Writer) error {
	entity := strings.ToLower(strings.TrimSpace(c.String("entity")))
	set, ok := filter.SetFor(entity)
	if !ok {
		return fmt.Errorf("unknown entity %q", entity)
	}

	if c.Bool("keys") {
		for _, k := range set.Keys() {
			fmt.Fprintln(out, k)
		}
		return nil
	}

	values, err := url.ParseQuery(strings.TrimPrefix(c.Args().First(), "?"))
	if err != nil {
		return fmt.Errorf("invalid query string: %w", err)
	}

	cfg := filter.DefaultConfig()
	cfg.Strict = c.Bool("strict")
	tree, err := filter.New(cfg).Assemble(set, filter.FromQuery(values, api.ReservedKeys...))
	if err != nil {
		return err
	}

	sql, args, err := repository.CompileWhere(entity, tree)
	if err != nil {
		return err
	}
	if args == nil {
		args = []any{}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(output{Entity: entity, Where: tree, SQL: sql, Args: args})
}
