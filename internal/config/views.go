package config

import (
	"fmt"
	"time"
)

type ViewsConfig struct {
	Detail       ViewConfig    `yaml:"detail" env-prefix:"DETAIL_"`
	List         ViewConfig    `yaml:"list" env-prefix:"LIST_"`
	Analytics    ViewConfig    `yaml:"analytics" env-prefix:"ANALYTICS_"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" env-default:"5s"`
	HistoryLimit int           `yaml:"history_limit" env-default:"20"`
	// DetailHistory is how many readings the detail view keeps for display.
	DetailHistory int `yaml:"detail_history" env-default:"10"`
}

type ViewConfig struct {
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
}

func DefaultViews() ViewsConfig {
	return ViewsConfig{
		Detail:        ViewConfig{Interval: 2 * time.Second},
		List:          ViewConfig{Interval: 3 * time.Second},
		Analytics:     ViewConfig{Interval: 5 * time.Second},
		FetchTimeout:  5 * time.Second,
		HistoryLimit:  20,
		DetailHistory: 10,
	}
}

// Validate fills unset intervals with their defaults and rejects negative
// ones.
func (v *ViewsConfig) Validate() error {
	defaults := DefaultViews()

	for name, pair := range map[string]struct {
		got *ViewConfig
		def ViewConfig
	}{
		"detail":    {&v.Detail, defaults.Detail},
		"list":      {&v.List, defaults.List},
		"analytics": {&v.Analytics, defaults.Analytics},
	} {
		if pair.got.Interval < 0 {
			return fmt.Errorf("views.%s.interval must be positive", name)
		}
		if pair.got.Interval == 0 {
			pair.got.Interval = pair.def.Interval
		}
	}

	if v.FetchTimeout < 0 {
		return fmt.Errorf("views.fetch_timeout must not be negative")
	}
	if v.HistoryLimit < 0 {
		return fmt.Errorf("views.history_limit must not be negative")
	}
	return nil
}
