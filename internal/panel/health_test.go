package panel

import "testing"

func TestClassifyHealth(t *testing.T) {
	tests := []struct {
		score float64
		want  Health
	}{
		{0, HealthUnhealthy},
		{45, HealthUnhealthy},
		{60, HealthUnhealthy},
		{60.0001, HealthDegraded},
		{70, HealthDegraded},
		{80, HealthDegraded},
		{80.0001, HealthHealthy},
		{100, HealthHealthy},
		{-5, HealthUnhealthy},
	}

	for _, tt := range tests {
		if got := ClassifyHealth(tt.score); got != tt.want {
			t.Errorf("ClassifyHealth(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestTimeframe(t *testing.T) {
	for _, s := range []string{"1h", "24h", "7d", "30d"} {
		tf, err := ParseTimeframe(s)
		if err != nil {
			t.Errorf("ParseTimeframe(%q): %v", s, err)
		}
		if string(tf) != s {
			t.Errorf("ParseTimeframe(%q) = %q", s, tf)
		}
	}
	for _, s := range []string{"", "1d", "2h", "1H"} {
		if _, err := ParseTimeframe(s); err == nil {
			t.Errorf("ParseTimeframe(%q) expected error", s)
		}
	}

	opts := TimeframeOptions()
	wantLabels := []string{"Last Hour", "24 Hours", "7 Days", "30 Days"}
	if len(opts) != len(wantLabels) {
		t.Fatalf("len(TimeframeOptions()) = %d, want %d", len(opts), len(wantLabels))
	}
	for i, o := range opts {
		if o.Label != wantLabels[i] {
			t.Errorf("option %d label = %q, want %q", i, o.Label, wantLabels[i])
		}
	}

	if Timeframe7d.Duration().Hours() != 168 {
		t.Errorf("7d duration = %v", Timeframe7d.Duration())
	}
	if DefaultTimeframe != Timeframe1h {
		t.Errorf("DefaultTimeframe = %s, want 1h", DefaultTimeframe)
	}
}
