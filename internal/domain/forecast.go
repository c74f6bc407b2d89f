package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StageTotal sums the value of the open deals sitting in stageID.
func StageTotal(deals []Deal, stageID string) decimal.Decimal {
	total := decimal.Zero
	for _, d := range deals {
		if d.Status == StatusOpen && d.StageID == stageID {
			total = total.Add(d.Value)
		}
	}
	return total
}

// PipelineTotal sums the value of every open deal.
func PipelineTotal(deals []Deal) decimal.Decimal {
	total := decimal.Zero
	for _, d := range deals {
		if d.Status == StatusOpen {
			total = total.Add(d.Value)
		}
	}
	return total
}

// WeightedPipelineValue sums value * win probability over open deals. Each
// deal contributes with the probability it captured on stage entry, not the
// stage's current setting.
func WeightedPipelineValue(deals []Deal) decimal.Decimal {
	total := decimal.Zero
	for _, d := range deals {
		if d.Status == StatusOpen {
			total = total.Add(d.WeightedValue())
		}
	}
	return total
}

// StageForecast is the per-stage row of a forecast.
type StageForecast struct {
	Stage    Stage
	Count    int
	Total    decimal.Decimal
	Weighted decimal.Decimal
	// Rotting counts deals per staleness level, indexed by RottingLevel.
	Rotting [4]int
}

// Forecast is a pipeline summary derived from one snapshot of stages and deals.
type Forecast struct {
	Stages      []StageForecast
	DealCount   int
	Total       decimal.Decimal
	Weighted    decimal.Decimal
	GeneratedAt time.Time
}

// BuildForecast aggregates open deals per open stage. Stages are reported in
// the order given; terminal stages are skipped.
func BuildForecast(stages []Stage, deals []Deal, now time.Time) Forecast {
	byStage := make(map[string]int, len(stages))
	f := Forecast{
		Total:       PipelineTotal(deals),
		Weighted:    WeightedPipelineValue(deals),
		GeneratedAt: now,
	}
	for _, s := range stages {
		if s.IsTerminal() {
			continue
		}
		byStage[s.ID] = len(f.Stages)
		f.Stages = append(f.Stages, StageForecast{
			Stage:    s,
			Total:    decimal.Zero,
			Weighted: decimal.Zero,
		})
	}
	for _, d := range deals {
		if d.Status != StatusOpen {
			continue
		}
		i, ok := byStage[d.StageID]
		if !ok {
			continue
		}
		row := &f.Stages[i]
		row.Count++
		row.Total = row.Total.Add(d.Value)
		row.Weighted = row.Weighted.Add(d.WeightedValue())
		row.Rotting[Rotting(d, row.Stage, now)]++
		f.DealCount++
	}
	return f
}
