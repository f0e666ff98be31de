package vector

import (
	"math"
	"testing"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0.0},
		{"empty", nil, nil, 0.0},
		{"zero magnitude", []float32{0, 0}, []float32{1, 1}, 0.0},
		{"scaled copies", []float32{1, 2, 3}, []float32{2, 4, 6}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize(nil); got != nil {
		t.Errorf("Normalize(nil) = %v, want nil", got)
	}
	if got := Normalize([]float32{0, 0}); got != nil {
		t.Errorf("Normalize(zero) = %v, want nil", got)
	}

	n := Normalize([]float32{3, 4})
	var sum float64
	for _, x := range n {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Errorf("normalized magnitude^2 = %v, want 1", sum)
	}
}

func TestTopK(t *testing.T) {
	items := []Scored[string]{
		{Item: "a", Score: 0.3},
		{Item: "b", Score: 0.9},
		{Item: "c", Score: 0.5},
		{Item: "d", Score: 0.7},
	}

	top := TopK(items, 2)
	if len(top) != 2 {
		t.Fatalf("TopK returned %d items, want 2", len(top))
	}
	if top[0].Item != "b" || top[1].Item != "d" {
		t.Errorf("TopK order = %v, %v; want b, d", top[0].Item, top[1].Item)
	}

	all := TopK(items, 10)
	if len(all) != 4 {
		t.Fatalf("TopK with k > n returned %d items, want 4", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Score > all[i-1].Score {
			t.Errorf("TopK not descending at index %d", i)
		}
	}

	if got := TopK(items, 0); got != nil {
		t.Errorf("TopK(k=0) = %v, want nil", got)
	}
}
