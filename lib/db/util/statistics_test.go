package util

import (
	"math"
	"testing"
)

func TestNewStats(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   Stats
	}{
		{"empty", nil, Stats{}},
		{"single", []float64{4}, Stats{Count: 1, Min: 4, Max: 4, Mean: 4, MinMaxRatio: 1}},
		{"spread", []float64{2, 4, 4, 4, 5, 5, 7, 9}, Stats{Count: 8, StdDeviation: 2, Min: 2, Max: 9, Mean: 5, MinMaxRatio: 2.0 / 9.0}},
		{"zero max", []float64{0, 0}, Stats{Count: 2, MinMaxRatio: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewStats(tt.values)
			if got.Count != tt.want.Count || got.Min != tt.want.Min || got.Max != tt.want.Max {
				t.Errorf("NewStats(%v) = %+v, want %+v", tt.values, got, tt.want)
			}
			if math.Abs(got.Mean-tt.want.Mean) > 1e-9 ||
				math.Abs(got.StdDeviation-tt.want.StdDeviation) > 1e-9 ||
				math.Abs(got.MinMaxRatio-tt.want.MinMaxRatio) > 1e-9 {
				t.Errorf("NewStats(%v) = %+v, want %+v", tt.values, got, tt.want)
			}
		})
	}
}

func TestIntStats(t *testing.T) {
	got := IntStats([]int{3, 5})
	if got.Mean != 4 || got.Min != 3 || got.Max != 5 || got.Count != 2 {
		t.Errorf("IntStats = %+v", got)
	}
}

func TestHashString(t *testing.T) {
	if HashString("shard-a", 0) == HashString("shard-b", 0) {
		t.Error("expected different hashes for different strings")
	}
	if HashString("shard-a", 0) != HashString("shard-a", 0) {
		t.Error("expected stable hash")
	}
	if HashString("shard-a", 0) == HashString("shard-a", 1) {
		t.Error("expected the seed to change the hash")
	}
}
