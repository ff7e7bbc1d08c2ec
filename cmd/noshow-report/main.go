package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/synaptica-ai/noshow/pkg/common/config"
	"github.com/synaptica-ai/noshow/pkg/common/logger"
)

var CLI struct {
	Version  kong.VersionFlag
	Insights string `help:"Insight thresholds YAML file." type:"path" env:"INSIGHTS_CONFIG"`
	Verbose  bool   `help:"Log to stderr." short:"v"`

	Report    ReportCmd    `cmd:"" help:"Print KPIs, breakdowns and insights for an export." default:"withargs"`
	Export    ExportCmd    `cmd:"" help:"Write the normalized records as CSV or parquet."`
	Warehouse WarehouseCmd `cmd:"" help:"Bulk load the normalized records into PostgreSQL."`
	Token     TokenCmd     `cmd:"" help:"Issue a signed API token."`
}

// Context carries what every subcommand needs.
type Context struct {
	Config       *config.Config
	InsightsPath string
	Out          io.Writer
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("noshow-report"),
		kong.Description("Appointment no-show analytics from the command line"),
		kong.UsageOnError(),
		kong.Vars{"version": "v0.1.0"},
	)

	if CLI.Verbose {
		logger.SetOutput(os.Stderr)
	} else {
		logger.SetOutput(io.Discard)
	}

	err := ctx.Run(&Context{
		Config:       config.Load(),
		InsightsPath: CLI.Insights,
		Out:          os.Stdout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
