package pricefeed

import "testing"

func TestTrackerLastWriteWins(t *testing.T) {
	tr := NewTracker()

	if got := tr.Latest(); got != (Sample{}) {
		t.Fatalf("Latest() before update = %+v; want zero sample", got)
	}

	tr.Update(Sample{TimeT: 100, Price: 12.5})
	tr.Update(Sample{TimeT: 101, Price: 12.7})

	got := tr.Latest()
	if got.TimeT != 101 || got.Price != 12.7 {
		t.Fatalf("Latest() = %+v; want {101 12.7}", got)
	}
}

func TestSampleValid(t *testing.T) {
	cases := []struct {
		sample Sample
		want   bool
	}{
		{Sample{TimeT: 100, Price: 10}, true},
		{Sample{TimeT: 0, Price: 10}, false},
		{Sample{TimeT: 100, Price: 0}, false},
		{Sample{TimeT: -1, Price: 10}, false},
		{Sample{}, false},
	}

	for _, tc := range cases {
		if got := tc.sample.Valid(); got != tc.want {
			t.Fatalf("Valid(%+v) = %v; want %v", tc.sample, got, tc.want)
		}
	}
}
