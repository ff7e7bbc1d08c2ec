package insights

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/synaptica-ai/noshow/pkg/common/models"
	"gopkg.in/yaml.v3"
)

// AgeRange selects age-group labels by their leading integer, inclusive.
type AgeRange struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

func (r AgeRange) Contains(n int) bool {
	return n >= r.Min && n <= r.Max
}

type Config struct {
	SimilarBand       float64             `yaml:"similar_band" json:"similar_band"`
	ElevatedThreshold float64             `yaml:"elevated_threshold" json:"elevated_threshold"`
	ImprovedThreshold float64             `yaml:"improved_threshold" json:"improved_threshold"`
	MinBinSupport     int                 `yaml:"min_bin_support" json:"min_bin_support"`
	CohortGap         float64             `yaml:"cohort_gap" json:"cohort_gap"`
	Younger           AgeRange            `yaml:"younger" json:"younger"`
	Older             AgeRange            `yaml:"older" json:"older"`
	Annotations       []models.Annotation `yaml:"annotations" json:"annotations"`
}

func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultConfig(), err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, err
	}
	if cfg.Younger.Max < cfg.Younger.Min || cfg.Older.Max < cfg.Older.Min {
		return Config{}, errors.New("age ranges must have min <= max")
	}
	if cfg.MinBinSupport < 0 {
		return Config{}, errors.New("min_bin_support must not be negative")
	}
	return cfg, nil
}

func DefaultConfig() Config {
	return Config{
		SimilarBand:       1,
		ElevatedThreshold: 3,
		ImprovedThreshold: 3,
		MinBinSupport:     50,
		CohortGap:         2,
		Younger:           AgeRange{Min: 10, Max: 39},
		Older:             AgeRange{Min: 50, Max: 200},
	}
}
