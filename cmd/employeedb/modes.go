package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"employeedb/internal/generator"
	"employeedb/internal/service"
)

const (
	filterSampleRows   = 10
	restoredSampleRows = 5
)

type cmdCreateTable struct {
	cli *cli
}

func (cmd *cmdCreateTable) Execute([]string) error {
	ctx, a, err := cmd.cli.startup()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.svc.CreateTable(ctx); err != nil {
		return errors.WithMessage(err, "creating employees table")
	}
	fmt.Fprintf(cmd.cli.out, "Table employees is ready in %s\n", a.cfg.Database.Path)
	return nil
}

type cmdAdd struct {
	cli *cli

	Args struct {
		Fields []string `positional-arg-name:"FULL-NAME BIRTH-DATE GENDER" required:"3"`
	} `positional-args:"true"`
}

// splitAddArgs treats the last two fields as birth date and gender and
// joins the rest into the full name.
func splitAddArgs(fields []string) (name, birthDate, gender string, err error) {
	if len(fields) < 3 {
		return "", "", "", errors.Errorf("expected <full name> <YYYY-MM-DD> <gender>, got %d arguments", len(fields))
	}
	n := len(fields)
	return strings.Join(fields[:n-2], " "), fields[n-2], fields[n-1], nil
}

func (cmd *cmdAdd) Execute([]string) error {
	name, birthDate, gender, err := splitAddArgs(cmd.Args.Fields)
	if err != nil {
		return err
	}

	ctx, a, err := cmd.cli.startup()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.svc.CreateTable(ctx); err != nil {
		return err
	}
	e, inserted, err := a.svc.CreateEmployee(ctx, name, birthDate, gender)
	if err != nil {
		return err
	}

	if inserted {
		fmt.Fprintf(cmd.cli.out, "Saved %s, born %s, %s\n", e.FullName, e.BirthDateString(), e.Gender)
	} else {
		fmt.Fprintf(cmd.cli.out, "Already exists: %s, born %s\n", e.FullName, e.BirthDateString())
	}
	return nil
}

type cmdList struct {
	cli *cli
}

func (cmd *cmdList) Execute([]string) error {
	ctx, a, err := cmd.cli.startup()
	if err != nil {
		return err
	}
	defer a.Close()

	views, err := a.svc.ListEmployees(ctx)
	if err != nil {
		return errors.WithMessage(err, "listing employees")
	}

	table := newTable(cmd.cli, "Full Name", "Birth Date", "Gender", "Age")
	for _, v := range views {
		table.Append([]string{v.FullName, v.BirthDateString(), v.Gender.String(), fmt.Sprint(v.Age)})
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.cli.out, "Total: %s employees\n", humanize.Comma(int64(len(views))))
	return nil
}

type cmdFill struct {
	cli *cli

	Primary int    `long:"primary" description:"Generated rows to insert. Defaults to ingest.primary_rows"`
	Special int    `long:"special" description:"Male rows with an F surname to insert afterwards. Defaults to ingest.special_rows"`
	Seed    uint64 `long:"seed" description:"Generator seed. Defaults to ingest.seed"`
}

func (cmd *cmdFill) Execute([]string) error {
	ctx, a, err := cmd.cli.startup()
	if err != nil {
		return err
	}
	defer a.Close()

	primary, special, seed := a.cfg.Ingest.PrimaryRows, a.cfg.Ingest.SpecialRows, a.cfg.Ingest.Seed
	if cmd.Primary > 0 {
		primary = cmd.Primary
	}
	if cmd.Special > 0 {
		special = cmd.Special
	}
	if cmd.Seed != 0 {
		seed = cmd.Seed
	}

	if err := a.svc.CreateTable(ctx); err != nil {
		return err
	}
	result, err := a.svc.BulkFill(ctx, generator.New(seed), primary, special)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.cli.out, "Inserted %s generated employees\n", humanize.Comma(result.Primary))
	fmt.Fprintf(cmd.cli.out, "Inserted %s male employees with an F surname\n", humanize.Comma(result.Special))
	fmt.Fprintf(cmd.cli.out, "Took %s\n", result.Duration.Round(time.Millisecond))
	return nil
}

type cmdFilter struct {
	cli *cli
}

func (cmd *cmdFilter) Execute([]string) error {
	ctx, a, err := cmd.cli.startup()
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.svc.RunFilter(ctx)
	if err != nil {
		return errors.WithMessage(err, "running filter")
	}

	table := newTable(cmd.cli, "Full Name", "Birth Date", "Gender")
	for _, e := range result.Employees[:min(filterSampleRows, len(result.Employees))] {
		table.Append([]string{e.FullName, e.BirthDateString(), e.Gender.String()})
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.cli.out, "Filter %s matched %s employees in %s\n",
		a.svc.Filter(), humanize.Comma(int64(len(result.Employees))), result.Duration)
	return nil
}

type cmdOptimize struct {
	cli *cli
}

func (cmd *cmdOptimize) Execute([]string) error {
	ctx, a, err := cmd.cli.startup()
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.svc.Optimize(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.cli.out, "Before index: %s (%d rows)\n", result.Before.Duration, len(result.Before.Employees))
	fmt.Fprintf(cmd.cli.out, "After index:  %s (%d rows)\n", result.After.Duration, len(result.After.Employees))
	fmt.Fprintf(cmd.cli.out, "Improvement:  %s\n", result.Improvement())
	for _, step := range result.Plan {
		fmt.Fprintf(cmd.cli.out, "Plan: %s\n", step)
	}
	return nil
}

type cmdExport struct {
	cli *cli

	Args struct {
		Path string `positional-arg-name:"PATH" description:"Output file. Defaults to compression.export_path"`
	} `positional-args:"true"`
}

func (cmd *cmdExport) Execute([]string) error {
	ctx, a, err := cmd.cli.startup()
	if err != nil {
		return err
	}
	defer a.Close()

	path := cmd.Args.Path
	if path == "" {
		path = a.cfg.Compression.ExportPath
	}

	result, err := a.svc.Export(ctx, afero.NewOsFs(), path)
	if errors.Is(err, service.ErrNoEmployees) {
		fmt.Fprintf(cmd.cli.out, "No employees match filter %s, nothing exported\n", a.svc.Filter())
		return nil
	} else if err != nil {
		return err
	}

	fmt.Fprintf(cmd.cli.out, "Exported %s employees to %s\n", humanize.Comma(int64(result.Records)), result.Path)
	fmt.Fprintf(cmd.cli.out, "Plain %s, compressed %s, saved %.1f%%\n",
		humanize.Bytes(uint64(result.PlainBytes)), humanize.Bytes(uint64(result.CompressedBytes)), result.SavedPercent())
	return nil
}

type cmdCompress struct {
	cli *cli
}

func (cmd *cmdCompress) Execute([]string) error {
	ctx, a, err := cmd.cli.startup()
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.svc.RefreshCompressed(ctx)
	if errors.Is(err, service.ErrNoEmployees) {
		fmt.Fprintf(cmd.cli.out, "No employees match filter %s, nothing compressed\n", a.svc.Filter())
		return nil
	} else if err != nil {
		return err
	}

	fmt.Fprintf(cmd.cli.out, "Stored %s compressed rows using %s\n",
		humanize.Comma(result.Stats.Rows), a.codec.Compression())
	fmt.Fprintf(cmd.cli.out, "Plain %s, compressed %s, saved %.1f%%\n",
		humanize.Bytes(uint64(result.PlainBytes)), humanize.Bytes(uint64(result.Stats.PayloadBytes)), result.SavedPercent())
	fmt.Fprintf(cmd.cli.out, "Main table query: %s\n", result.MainDuration)
	fmt.Fprintf(cmd.cli.out, "Compressed query and decode: %s\n", result.CompressedDuration)

	table := newTable(cmd.cli, "Full Name", "Birth Date", "Gender", "Age")
	for _, p := range result.Restored[:min(restoredSampleRows, len(result.Restored))] {
		table.Append([]string{p.FullName, p.BirthDate, p.Gender, fmt.Sprint(p.Age)})
	}
	return table.Render()
}

func newTable(c *cli, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(c.out)
	table.Header(header)
	return table
}
