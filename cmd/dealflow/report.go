package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/neomorfeo/dealflow/internal/adapter/fsm"
	oteladapter "github.com/neomorfeo/dealflow/internal/adapter/otel"
	"github.com/neomorfeo/dealflow/internal/adapter/sqlite"
	"github.com/neomorfeo/dealflow/internal/app"
	"github.com/neomorfeo/dealflow/internal/config"
	"github.com/neomorfeo/dealflow/internal/domain"
)

// openReportRepo opens the configured database for one-shot reports with the
// configured busy timeout. Reports never seed stages.
func openReportRepo(cfg *config.Config) (*sqlite.Repository, error) {
	db, err := oteladapter.OpenDB(cfg.Database.Path, cfg.Database.BusyTimeoutMS)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	repo, err := sqlite.NewFromDB(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("database: %w", err)
	}
	return repo, nil
}

func reportCmd(use, short string, loadConfig func() (*config.Config, error),
	render func(ctx context.Context, svc *app.PipelineService, tw table.Writer) error,
) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			repo, err := openReportRepo(cfg)
			if err != nil {
				return err
			}
			defer repo.Close()
			svc := app.NewPipelineService(repo, fsm.New(), app.WithLogger(zap.NewNop()))

			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			if err := render(cmd.Context(), svc, tw); err != nil {
				return err
			}
			tw.Render()
			return nil
		},
	}
}

func stagesCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return reportCmd("stages", "List pipeline stages", loadConfig,
		func(ctx context.Context, svc *app.PipelineService, tw table.Writer) error {
			stages, err := svc.ListStages(ctx)
			if err != nil {
				return err
			}
			tw.AppendHeader(table.Row{"ID", "Name", "Position", "Probability", "Rotting Days", "Kind"})
			for _, s := range stages {
				tw.AppendRow(table.Row{s.ID, s.Name, s.Position, s.WinProbability, s.RottingDays, stageKind(s)})
			}
			return nil
		})
}

func dealsCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var status string

	cmd := reportCmd("deals", "List deals with their staleness", loadConfig,
		func(ctx context.Context, svc *app.PipelineService, tw table.Writer) error {
			var filter domain.ListFilter
			if status != "" {
				s := domain.Status(status)
				filter.Status = &s
			}
			deals, err := svc.ListDeals(ctx, filter)
			if err != nil {
				return err
			}
			tw.AppendHeader(table.Row{"ID", "Title", "Stage", "Status", "Value", "Weighted", "Rotting"})
			for _, d := range deals {
				tw.AppendRow(table.Row{
					d.ID, d.Title, d.StageID, d.Status,
					d.Value.StringFixed(2), d.WeightedValue().StringFixed(2), d.Rotting,
				})
			}
			return nil
		})
	cmd.Flags().StringVar(&status, "status", "", "filter by status (open, won, lost)")
	return cmd
}

func forecastCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return reportCmd("forecast", "Summarize the open pipeline per stage", loadConfig,
		func(ctx context.Context, svc *app.PipelineService, tw table.Writer) error {
			f, err := svc.Forecast(ctx)
			if err != nil {
				return err
			}
			tw.AppendHeader(table.Row{"Stage", "Probability", "Deals", "Total", "Weighted", "Rotting"})
			for _, row := range f.Stages {
				tw.AppendRow(table.Row{
					row.Stage.Name,
					strconv.Itoa(row.Stage.WinProbability) + "%",
					row.Count,
					row.Total.StringFixed(2),
					row.Weighted.StringFixed(2),
					row.Rotting[domain.RottingRotting] + row.Rotting[domain.RottingCritical],
				})
			}
			tw.AppendFooter(table.Row{"Total", "", f.DealCount, f.Total.StringFixed(2), f.Weighted.StringFixed(2), ""})
			return nil
		})
}

func stageKind(s domain.Stage) string {
	switch {
	case s.IsWon:
		return "won"
	case s.IsLost:
		return "lost"
	default:
		return "open"
	}
}
