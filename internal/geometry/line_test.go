package geometry

import "testing"

func TestThrough(t *testing.T) {
	a := Point{TimeT: 0, Price: 10}
	b := Point{TimeT: 100, Price: 20}

	line := Through(a, b)
	if line.Slope != 0.1 {
		t.Fatalf("Through() slope = %v; want 0.1", line.Slope)
	}
	if line.Intercept != 10 {
		t.Fatalf("Through() intercept = %v; want 10", line.Intercept)
	}
	if got := line.ValueAt(50); got != 15 {
		t.Fatalf("ValueAt(50) = %v; want 15", got)
	}
}

func TestClassify(t *testing.T) {
	line := Through(Point{TimeT: 0, Price: 10}, Point{TimeT: 100, Price: 20})

	cases := []struct {
		name  string
		query Point
		want  Position
	}{
		{"above", Point{TimeT: 50, Price: 15.1}, PositionAbove},
		{"below", Point{TimeT: 50, Price: 14.9}, PositionBelow},
		{"exactly on line is above", Point{TimeT: 50, Price: 15}, PositionAbove},
		{"beyond last anchor", Point{TimeT: 200, Price: 29}, PositionBelow},
		{"before first anchor", Point{TimeT: -100, Price: 1}, PositionAbove},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := line.Classify(tc.query); got != tc.want {
				t.Fatalf("Classify(%+v) = %v; want %v", tc.query, got, tc.want)
			}
		})
	}
}

func TestThroughNegativeSlope(t *testing.T) {
	line := Through(Point{TimeT: 10, Price: 50}, Point{TimeT: 20, Price: 30})
	if line.Slope != -2 {
		t.Fatalf("Through() slope = %v; want -2", line.Slope)
	}
	if got := line.ValueAt(15); got != 40 {
		t.Fatalf("ValueAt(15) = %v; want 40", got)
	}
	if got := line.Classify(Point{TimeT: 15, Price: 39.999}); got != PositionBelow {
		t.Fatalf("Classify() = %v; want %v", got, PositionBelow)
	}
}
