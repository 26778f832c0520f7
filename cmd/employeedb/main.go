package main

import (
	"io"
	"os"

	"github.com/jessevdk/go-flags"

	"employeedb/internal/config"
)

// baseOptions are accepted by every mode.
type baseOptions struct {
	Config   string           `long:"config" short:"c" description:"Path to employeedb.yaml. Searched for when unset"`
	Database string           `long:"db" env:"EMPLOYEEDB_DB" description:"SQLite database path, overriding the config file"`
	Log      config.LogConfig `group:"Logging" namespace:"log" env-namespace:"LOG"`
}

type cli struct {
	opts baseOptions
	out  io.Writer
}

func newParser(c *cli) *flags.Parser {
	var parser = flags.NewParser(&c.opts, flags.Default)
	parser.LongDescription = `
employeedb maintains a directory of employees in a local SQLite database.
Each mode may be selected by name or by its number, e.g. "employeedb 3"
lists the directory.`

	mustAddCmd(parser.Command, "create-table", "1", "Create the employees table", `
Creates the employees table and its unique (full name, birth date) index.
Running it again is a no-op.`, &cmdCreateTable{cli: c})

	mustAddCmd(parser.Command, "add", "2", "Add one employee", `
Adds a single employee:

  employeedb add Smith John Carlson 1990-05-15 Male

Everything before the birth date is the full name. An employee with the
same full name and birth date is kept as first written.`, &cmdAdd{cli: c})

	mustAddCmd(parser.Command, "list", "3", "List unique employees sorted by name", `
Lists one row per (full name, birth date), sorted by full name, with the
age of each employee as of today.`, &cmdList{cli: c})

	mustAddCmd(parser.Command, "fill", "4", "Bulk insert generated employees", `
Generates employees with surnames cycling through A to Z and inserts them
in batches, followed by a set of male employees whose surname starts
with F.`, &cmdFill{cli: c})

	mustAddCmd(parser.Command, "filter", "5", "Time the gender and name prefix query", `
Runs the configured filter (male employees whose name starts with "F" by
default) and reports the first rows, the total and the elapsed time.`, &cmdFilter{cli: c})

	mustAddCmd(parser.Command, "optimize", "6", "Index the filter query and compare timings", `
Times the filter query, creates the (gender, full name) index and times
the query again.`, &cmdOptimize{cli: c})

	mustAddCmd(parser.Command, "export", "7", "Export filtered employees as gzip JSON lines", `
Writes the filtered employees with their ages as gzip-compressed JSON
lines and reports the compression ratio.`, &cmdExport{cli: c})

	mustAddCmd(parser.Command, "compress", "8", "Rebuild the compressed employee table", `
Stores the filtered employees in a table keyed by (full name, birth date)
whose payload is a compressed JSON document, then compares reads against
the main table.`, &cmdCompress{cli: c})

	mustAddCmd(parser.Command, "init-config", "", "Write the effective configuration", `
Writes the configuration in effect, after defaults and flag overrides, as
YAML. The default destination is the user config directory
($XDG_CONFIG_HOME/employeedb/config.yaml or ~/.config/employeedb/config.yaml).
An existing file is only replaced with --force.`, &cmdInitConfig{cli: c})

	return parser
}

var _ = []flags.Commander{
	(*cmdCreateTable)(nil), (*cmdAdd)(nil), (*cmdList)(nil), (*cmdFill)(nil),
	(*cmdFilter)(nil), (*cmdOptimize)(nil), (*cmdExport)(nil), (*cmdCompress)(nil),
	(*cmdInitConfig)(nil),
}

func mustAddCmd(cmd *flags.Command, name, alias, short, long string, data interface{}) *flags.Command {
	cmd, err := cmd.AddCommand(name, short, long, data)
	if err != nil {
		panic(err)
	}
	if alias != "" {
		cmd.Aliases = []string{alias}
	}
	return cmd
}

func main() {
	var parser = newParser(&cli{out: os.Stdout})

	if _, err := parser.Parse(); err != nil {
		if flagErr, ok := err.(*flags.Error); ok && flagErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
