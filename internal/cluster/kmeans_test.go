package cluster

import (
	"reflect"
	"testing"
)

func TestChooseK(t *testing.T) {
	tests := []struct {
		items int
		want  int
	}{
		{0, 0},
		{1, 1},
		{2, 2},
		{5, 2},
		{9, 2},
		{10, 2},
		{25, 5},
		{50, 10},
		{500, 10},
	}
	for _, tt := range tests {
		if got := ChooseK(tt.items); got != tt.want {
			t.Errorf("ChooseK(%d) = %d, want %d", tt.items, got, tt.want)
		}
	}
}

// twoBlobs is an embedding with two well-separated groups.
func twoBlobs() [][]float64 {
	return [][]float64{
		{0, 0}, {0.1, 0}, {0, 0.1}, {0.1, 0.1},
		{10, 10}, {10.1, 10}, {10, 10.1}, {10.1, 10.1},
	}
}

func TestAssignSeparatesBlobs(t *testing.T) {
	labels := Assign(twoBlobs(), 2, 42)
	if len(labels) != 8 {
		t.Fatalf("labels length = %d, want 8", len(labels))
	}
	for i, l := range labels {
		if l < 0 || l >= 2 {
			t.Fatalf("label[%d] = %d, out of range [0,2)", i, l)
		}
	}
	for i := 1; i < 4; i++ {
		if labels[i] != labels[0] {
			t.Errorf("first blob split across clusters: %v", labels)
		}
	}
	for i := 5; i < 8; i++ {
		if labels[i] != labels[4] {
			t.Errorf("second blob split across clusters: %v", labels)
		}
	}
	if labels[0] == labels[4] {
		t.Errorf("both blobs in the same cluster: %v", labels)
	}
}

func TestAssignDeterministicForSeed(t *testing.T) {
	embedding := twoBlobs()
	a := Assign(embedding, 2, 42)
	b := Assign(embedding, 2, 42)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("same seed produced different labels: %v vs %v", a, b)
	}
}

func TestAssignClampsK(t *testing.T) {
	embedding := [][]float64{{0, 0}, {1, 1}}
	labels := Assign(embedding, 10, 42)
	if len(labels) != 2 {
		t.Fatalf("labels length = %d, want 2", len(labels))
	}
	for i, l := range labels {
		if l < 0 || l >= 2 {
			t.Errorf("label[%d] = %d, out of range after clamping", i, l)
		}
	}
}

func TestAssignEmpty(t *testing.T) {
	if labels := Assign(nil, 3, 42); labels != nil {
		t.Errorf("Assign(nil) = %v, want nil", labels)
	}
}
