package points

import "testing"

func TestCompute(t *testing.T) {
	tests := []struct {
		name  string
		total float64
		want  int64
	}{
		{name: "zero total", total: 0, want: 0},
		{name: "below one point", total: 9, want: 0},
		{name: "exactly one point", total: 10, want: 1},
		{name: "rounds down", total: 25, want: 2},
		{name: "rounds down fractional", total: 37, want: 3},
		{name: "large total", total: 1099.99, want: 109},
		{name: "negative total", total: -15, want: -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compute(tt.total); got != tt.want {
				t.Fatalf("Compute(%v) = %d, want %d", tt.total, got, tt.want)
			}
		})
	}
}
