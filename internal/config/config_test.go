package config

import (
	"testing"
)

func TestDefault_Values(t *testing.T) {
	c := Default()
	if c == nil {
		t.Fatal("Default() returned nil")
	}
	if c.MaxWorkers < 1 {
		t.Errorf("MaxWorkers = %v, want >= 1", c.MaxWorkers)
	}
	if c.DefaultScenarios != 10000 {
		t.Errorf("DefaultScenarios = %v, want 10000", c.DefaultScenarios)
	}
	if c.SensitivityMaxScenarios != 1000 {
		t.Errorf("SensitivityMaxScenarios = %v, want 1000", c.SensitivityMaxScenarios)
	}
	if c.HistogramBins != 50 {
		t.Errorf("HistogramBins = %v, want 50", c.HistogramBins)
	}
	if c.StreamingCellLimit <= 0 {
		t.Errorf("StreamingCellLimit = %v, want > 0", c.StreamingCellLimit)
	}
	if c.RequestTimeoutSeconds != 120 {
		t.Errorf("RequestTimeoutSeconds = %v, want 120", c.RequestTimeoutSeconds)
	}
}
