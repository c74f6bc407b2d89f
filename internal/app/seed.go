package app

import "github.com/neomorfeo/dealflow/internal/domain"

// DefaultStages is the funnel installed when no stage file is configured.
func DefaultStages() []domain.Stage {
	return []domain.Stage{
		{Name: "Lead", Color: "#94a3b8", WinProbability: 10, RottingDays: 14},
		{Name: "Qualified", Color: "#60a5fa", WinProbability: 25, RottingDays: 14},
		{Name: "Proposal", Color: "#a78bfa", WinProbability: 50, RottingDays: 10},
		{Name: "Negotiation", Color: "#f59e0b", WinProbability: 75, RottingDays: 7},
		{Name: "Won", Color: "#22c55e", IsWon: true},
		{Name: "Lost", Color: "#ef4444", IsLost: true},
	}
}
