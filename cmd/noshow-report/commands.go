package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/synaptica-ai/noshow/pkg/analytics/cohort"
	"github.com/synaptica-ai/noshow/pkg/analytics/dsl"
	"github.com/synaptica-ai/noshow/pkg/analytics/insights"
	"github.com/synaptica-ai/noshow/pkg/common/models"
	"github.com/synaptica-ai/noshow/pkg/export"
	"github.com/synaptica-ai/noshow/pkg/gateway/auth"
	"github.com/synaptica-ai/noshow/pkg/normalizer"
	"github.com/synaptica-ai/noshow/pkg/pipeline"
)

// FilterFlags select a slice of the dataset; unset flags mean "All".
type FilterFlags struct {
	AgeGroup string `help:"Age group to keep, e.g. 30-39." name:"age-group"`
	SMS      string `help:"Reminder value to keep (0 or 1)." name:"sms"`
	Week     string `help:"Week start (YYYY-MM-DD) to keep." name:"week"`
}

func (f FilterFlags) FilterSet() models.FilterSet {
	return models.FilterSet{AgeGroup: f.AgeGroup, SMSReceived: f.SMS, Week: f.Week}.Normalized()
}

type ReportCmd struct {
	File  string `arg:"" help:"Delimited appointment export." type:"existingfile"`
	Query string `help:"View query, e.g. \"SELECT kpis, insights WHERE sms_received = 1\"." short:"q"`
	JSON  bool   `help:"Print the result as JSON."`
	FilterFlags `embed:""`
}

func (c *ReportCmd) Run(ctx *Context) error {
	engine, summary, err := loadFile(ctx, c.File)
	if err != nil {
		return err
	}
	svc := cohort.NewService(engine)

	var result models.ViewResult
	if c.Query != "" {
		result, err = svc.Execute(context.Background(), models.ViewQuery{ID: "cli", DSL: c.Query})
	} else {
		var view models.DashboardView
		view, err = svc.View(context.Background(), c.FilterSet())
		result = cohort.Project(view, dsl.Query{SelectFields: []string{dsl.SectionEverything}})
	}
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{"dataset": summary, "result": result})
	}
	renderReport(ctx.Out, summary, result)
	return nil
}

type ExportCmd struct {
	File   string `arg:"" help:"Delimited appointment export." type:"existingfile"`
	Output string `help:"Destination file; the extension picks the format unless --format is set." short:"o" required:""`
	Format string `help:"csv or parquet."`
	FilterFlags `embed:""`
}

func (c *ExportCmd) Run(ctx *Context) error {
	engine, _, err := loadFile(ctx, c.File)
	if err != nil {
		return err
	}
	format := c.Format
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(c.Output)), ".")
	}

	out, err := os.Create(c.Output)
	if err != nil {
		return err
	}
	defer out.Close()

	svc := cohort.NewService(engine)
	switch format {
	case "parquet":
		n, err := svc.ExportParquet(context.Background(), c.FilterSet(), out)
		if err != nil {
			return err
		}
		fmt.Fprintf(ctx.Out, "%s %d records to %s\n", okStyle.Render("wrote"), n, c.Output)
	case "csv":
		if err := svc.Export(context.Background(), c.FilterSet(), out); err != nil {
			return err
		}
		fmt.Fprintf(ctx.Out, "%s %s\n", okStyle.Render("wrote"), c.Output)
	default:
		return fmt.Errorf("cannot infer export format from %q; pass --format", c.Output)
	}
	return out.Close()
}

type WarehouseCmd struct {
	File string `arg:"" help:"Delimited appointment export." type:"existingfile"`
	URL  string `help:"PostgreSQL connection string." env:"WAREHOUSE_URL"`
}

func (c *WarehouseCmd) Run(ctx *Context) error {
	connStr := c.URL
	if connStr == "" {
		connStr = ctx.Config.WarehouseURL
	}
	if connStr == "" {
		return errors.New("no warehouse connection string; set --url or WAREHOUSE_URL")
	}

	engine, summary, err := loadFile(ctx, c.File)
	if err != nil {
		return err
	}

	bg := context.Background()
	loader, err := export.NewWarehouseLoader(bg, connStr)
	if err != nil {
		return err
	}
	defer loader.Close()

	if err := loader.EnsureSchema(bg); err != nil {
		return err
	}
	n, err := loader.Load(bg, summary.ID, engine.Records(models.DefaultFilters()))
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "%s %d rows as dataset %s\n", okStyle.Render("copied"), n, summary.ID)
	return nil
}

type TokenCmd struct {
	Subject string `help:"Token subject." required:""`
	Role    string `help:"Role claim." default:"analyst" enum:"admin,analyst,viewer"`
	Email   string `help:"Email claim."`
}

func (c *TokenCmd) Run(ctx *Context) error {
	cfg := ctx.Config
	manager, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL)
	if err != nil {
		return fmt.Errorf("JWT_SECRET: %w", err)
	}
	token, err := manager.IssueToken(auth.Principal{Subject: c.Subject, Email: c.Email, Role: c.Role})
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, token)
	return nil
}

func loadFile(ctx *Context, path string) (*pipeline.Engine, models.DatasetSummary, error) {
	cfg, err := insights.LoadConfig(ctx.InsightsPath)
	if err != nil {
		return nil, models.DatasetSummary{}, fmt.Errorf("insights config: %w", err)
	}
	engine := pipeline.NewEngine(insights.NewGenerator(cfg))

	f, err := os.Open(path)
	if err != nil {
		return nil, models.DatasetSummary{}, err
	}
	defer f.Close()

	summary, err := normalizer.NewService(nil, engine).Load(context.Background(), filepath.Base(path), f)
	if err != nil {
		return nil, models.DatasetSummary{}, err
	}
	return engine, summary, nil
}
