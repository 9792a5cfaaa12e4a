package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"gopkg.in/yaml.v3"

	"market_intel/internal/domain"
)

type location struct {
	Name   string  `yaml:"name" validate:"required"`
	Lat    float64 `yaml:"lat" validate:"gte=-90,lte=90"`
	Lon    float64 `yaml:"lon" validate:"gte=-180,lte=180"`
	Radius int     `yaml:"radius" validate:"omitempty,min=1,max=40000"`
}

type locationsFile struct {
	Locations []location `yaml:"locations" validate:"required,min=1,dive"`
}

type batchResult struct {
	Name     string                 `json:"name"`
	Analysis *domain.MarketAnalysis `json:"analysis,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

type marketAnalyzer interface {
	Analyze(ctx context.Context, lat, lon float64, radius int) (domain.MarketAnalysis, error)
}

func loadLocations(path string) ([]location, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read locations: %w", err)
	}
	var f locationsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse locations %s: %w", path, err)
	}
	if err := validator.New().Struct(f); err != nil {
		return nil, fmt.Errorf("invalid locations %s: %w", path, err)
	}
	return f.Locations, nil
}

// analyzeAll runs at most workers analyses at a time. Results keep the
// input order; a failed location never stops the others.
func analyzeAll(ctx context.Context, m marketAnalyzer, locs []location, workers int) []batchResult {
	if workers <= 0 {
		workers = 1
	}
	results := make([]batchResult, len(locs))
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup

	for i, loc := range locs {
		results[i].Name = loc.Name

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(locs); j++ {
				results[j] = batchResult{Name: locs[j].Name, Error: err.Error()}
			}
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			a, err := m.Analyze(ctx, loc.Lat, loc.Lon, loc.Radius)
			if err != nil {
				log.Warn().Str("location", loc.Name).Err(err).Msg("analysis failed")
				results[i].Error = err.Error()
				return
			}
			log.Info().
				Str("location", loc.Name).
				Int("score", a.OpportunityScore).
				Str("saturation", string(a.MarketSaturation)).
				Str("data", a.DataSource).
				Msg("analysis ok")
			results[i].Analysis = &a
		}()
	}

	wg.Wait()
	return results
}

func countFailed(rs []batchResult) int {
	n := 0
	for _, r := range rs {
		if r.Error != "" {
			n++
		}
	}
	return n
}
