package shard

import "testing"

// Golden routing values. These pin the hash so a refactor cannot silently
// remap identifiers away from their historical shards.
func TestRoute_Golden(t *testing.T) {
	tests := []struct {
		id   string
		n    int
		want int
	}{
		{"SEC042", 3, 1},
		{"SEC001", 3, 0},
		{"000001.SZ", 3, 1},
		{"600000.SH", 3, 0},
		{"399006.SZ", 3, 0},
		{"600519.SH", 3, 0},
		{"000858.SZ", 3, 0},
		{"SEC042", 5, 2},
		{"000001.SZ", 5, 3},
	}
	for _, tt := range tests {
		if got := Route(tt.id, tt.n); got != tt.want {
			t.Errorf("Route(%q, %d) = %d, want %d", tt.id, tt.n, got, tt.want)
		}
	}
}

func TestRoute_Stable(t *testing.T) {
	for _, id := range []string{"600000.SH", "000001.SZ", "SEC042", "x"} {
		first := Route(id, 3)
		for i := 0; i < 100; i++ {
			if got := Route(id, 3); got != first {
				t.Fatalf("Route(%q, 3) changed between calls: %d then %d", id, first, got)
			}
		}
	}
}

func TestRoute_Bounds(t *testing.T) {
	ids := []string{"600000.SH", "000001.SZ", "300750.SZ", "688981.SH", "SEC042"}
	for _, n := range []int{1, 2, 3, 7} {
		for _, id := range ids {
			got := Route(id, n)
			if got < 0 || got >= n {
				t.Errorf("Route(%q, %d) = %d, out of range", id, n, got)
			}
		}
	}
}
