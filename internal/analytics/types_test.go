package analytics

import "testing"

func TestSeverityForHours(t *testing.T) {
	h := func(v float64) *float64 { return &v }
	cases := []struct {
		hours *float64
		want  BottleneckSeverity
	}{
		{nil, SeverityMedium},
		{h(100), SeverityCritical},
		{h(48), SeverityHigh},
		{h(12), SeverityMedium},
		{h(1), SeverityLow},
	}
	for _, c := range cases {
		if got := severityForHours(c.hours); got != c.want {
			t.Fatalf("severityForHours(%v) = %v, want %v", c.hours, got, c.want)
		}
	}
}

func TestInsightRankScore(t *testing.T) {
	i := Insight{ImpactScore: 0.8, Confidence: 0.5}
	if got := i.RankScore(); got != 0.4 {
		t.Fatalf("expected rank score 0.4, got %v", got)
	}
}
