package internaldefs

import (
	"strings"
	"testing"

	"github.com/MrEthical07/authclient"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seen := map[authclient.MetricID]bool{}
	names := map[string]bool{}
	for _, def := range CounterDefs {
		if seen[def.ID] || names[def.Name] {
			t.Fatalf("duplicate definition %+v", def)
		}
		if !strings.HasPrefix(def.Name, "authclient_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("bad counter name %q", def.Name)
		}
		seen[def.ID] = true
		names[def.Name] = true
	}
	for id := authclient.MetricID(0); id < authclient.MetricIDCount; id++ {
		if id == authclient.MetricRequestLatency {
			continue
		}
		if !seen[id] {
			t.Fatalf("metric %d has no counter definition", id)
		}
	}
}

func TestBuckets(t *testing.T) {
	if len(HistogramBounds) != len(HistogramBoundSuffix) {
		t.Fatal("bounds and suffixes disagree")
	}
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("cumulative = %v, want %v", got, want)
	}
}
