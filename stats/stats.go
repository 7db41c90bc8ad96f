// Package stats summarizes samples of search measurements, such as the
// node counts of many benchmark searches.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	Epsilon = 1e-6
)

func FuzzyEqual(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

// Sample holds every pushed value. Benchmarks push a few hundred values at
// most, so nothing is streamed.
type Sample struct {
	vals   []float64
	sorted bool
}

func (s *Sample) Push(val float64) {
	s.vals = append(s.vals, val)
	s.sorted = false
}

func (s *Sample) N() int {
	return len(s.vals)
}

func (s *Sample) Mean() float64 {
	if len(s.vals) == 0 {
		return 0
	}
	return stat.Mean(s.vals, nil)
}

// Stdev is the sample standard deviation; it is 0 with fewer than two values.
func (s *Sample) Stdev() float64 {
	if len(s.vals) < 2 {
		return 0
	}
	_, std := stat.MeanStdDev(s.vals, nil)
	return std
}

func (s *Sample) StandardError() float64 {
	if len(s.vals) < 2 {
		return 0
	}
	return stat.StdErr(s.Stdev(), float64(len(s.vals)))
}

// Quantile returns the empirical p-quantile.
func (s *Sample) Quantile(p float64) float64 {
	if len(s.vals) == 0 {
		return 0
	}
	if !s.sorted {
		sort.Float64s(s.vals)
		s.sorted = true
	}
	return stat.Quantile(p, stat.Empirical, s.vals, nil)
}

func (s *Sample) Min() float64 {
	if len(s.vals) == 0 {
		return 0
	}
	return floats.Min(s.vals)
}

func (s *Sample) Max() float64 {
	if len(s.vals) == 0 {
		return 0
	}
	return floats.Max(s.vals)
}

// ConfidenceInterval returns the half-width of the two-tailed interval
// around the mean, for a confidence given in percent.
func (s *Sample) ConfidenceInterval(confidence float64) float64 {
	return ZVal(confidence) * s.StandardError()
}

type Summary struct {
	N      int     `yaml:"n"`
	Mean   float64 `yaml:"mean"`
	Stdev  float64 `yaml:"stdev"`
	Median float64 `yaml:"median"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
	CI95   float64 `yaml:"ci95"`
}

func (s *Sample) Summarize() Summary {
	return Summary{
		N:      s.N(),
		Mean:   s.Mean(),
		Stdev:  s.Stdev(),
		Median: s.Quantile(0.5),
		Min:    s.Min(),
		Max:    s.Max(),
		CI95:   s.ConfidenceInterval(95),
	}
}
