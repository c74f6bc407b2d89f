package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/neomorfeo/dealflow/internal/domain"
)

// stageFile is the YAML layout of a stage seed file:
//
//	stages:
//	  - name: Lead
//	    color: "#94a3b8"
//	    win_probability: 10
//	    rotting_days: 14
//	  - name: Won
//	    is_won: true
type stageFile struct {
	Stages []struct {
		Name           string `yaml:"name"`
		Color          string `yaml:"color"`
		WinProbability int    `yaml:"win_probability"`
		RottingDays    int    `yaml:"rotting_days"`
		IsWon          bool   `yaml:"is_won"`
		IsLost         bool   `yaml:"is_lost"`
	} `yaml:"stages"`
}

// LoadStages reads a stage seed file. Open stages keep file order.
func LoadStages(path string) ([]domain.Stage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stages file: %w", err)
	}
	return ParseStages(data)
}

// ParseStages decodes stage seed YAML and validates each entry.
func ParseStages(data []byte) ([]domain.Stage, error) {
	var f stageFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse stages: %w", err)
	}
	if len(f.Stages) == 0 {
		return nil, &domain.ConfigurationError{Reason: "stages file lists no stages"}
	}

	stages := make([]domain.Stage, len(f.Stages))
	for i, s := range f.Stages {
		stages[i] = domain.Stage{
			Name:           s.Name,
			Color:          s.Color,
			WinProbability: s.WinProbability,
			RottingDays:    s.RottingDays,
			IsWon:          s.IsWon,
			IsLost:         s.IsLost,
		}
		if err := stages[i].Validate(); err != nil {
			return nil, fmt.Errorf("stage %d: %w", i+1, err)
		}
	}
	return stages, nil
}
