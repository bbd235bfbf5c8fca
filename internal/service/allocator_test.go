package service

import (
	"errors"
	"testing"
)

func TestAllocateSplit(t *testing.T) {
	tests := []struct {
		name            string
		availableNew    int
		availableReview int
		total           int
		ratio           float64
		wantNew         int
		wantReview      int
		wantMessage     bool
	}{
		{
			name:         "plenty of both",
			availableNew: 100, availableReview: 100,
			total: 20, ratio: 0.7,
			wantNew: 6, wantReview: 14,
		},
		{
			name:         "ratio floor goes to review",
			availableNew: 100, availableReview: 100,
			total: 15, ratio: 0.7, // floor(10.5) = 10
			wantNew: 5, wantReview: 10,
		},
		{
			name:         "all reviews",
			availableNew: 100, availableReview: 100,
			total: 10, ratio: 1.0,
			wantNew: 0, wantReview: 10,
		},
		{
			name:         "all new",
			availableNew: 100, availableReview: 100,
			total: 10, ratio: 0.0,
			wantNew: 10, wantReview: 0,
		},
		{
			name:         "review shortfall backfilled from new",
			availableNew: 100, availableReview: 3,
			total: 20, ratio: 0.7,
			wantNew: 17, wantReview: 3,
		},
		{
			name:         "new shortfall backfilled from review",
			availableNew: 2, availableReview: 100,
			total: 20, ratio: 0.7,
			wantNew: 2, wantReview: 18,
		},
		{
			name:         "both short",
			availableNew: 3, availableReview: 4,
			total: 20, ratio: 0.7,
			wantNew: 3, wantReview: 4,
			wantMessage: true,
		},
		{
			name:         "nothing available",
			availableNew: 0, availableReview: 0,
			total: 10, ratio: 0.5,
			wantNew: 0, wantReview: 0,
			wantMessage: true,
		},
		{
			name:         "zero requested",
			availableNew: 10, availableReview: 10,
			total: 0, ratio: 0.5,
			wantNew: 0, wantReview: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alloc, err := Allocate(tt.availableNew, tt.availableReview, tt.total, tt.ratio)
			if err != nil {
				t.Fatalf("Allocate: %v", err)
			}
			if alloc.NewCount != tt.wantNew || alloc.ReviewCount != tt.wantReview {
				t.Errorf("allocation = (%d new, %d review), want (%d, %d)",
					alloc.NewCount, alloc.ReviewCount, tt.wantNew, tt.wantReview)
			}
			if (alloc.Message != "") != tt.wantMessage {
				t.Errorf("message = %q, wantMessage = %v", alloc.Message, tt.wantMessage)
			}
			if alloc.Total() > tt.total {
				t.Errorf("allocated %d cards, more than the %d requested", alloc.Total(), tt.total)
			}
		})
	}
}

func TestAllocateConservation(t *testing.T) {
	// Whenever supply covers the request, exactly totalRequested cards are
	// allocated, regardless of the split.
	for ratio := 0.0; ratio <= 1.0; ratio += 0.1 {
		alloc, err := Allocate(50, 50, 30, ratio)
		if err != nil {
			t.Fatalf("ratio %.1f: %v", ratio, err)
		}
		if alloc.Total() != 30 {
			t.Errorf("ratio %.1f: allocated %d, want 30", ratio, alloc.Total())
		}
		if alloc.Message != "" {
			t.Errorf("ratio %.1f: unexpected message %q", ratio, alloc.Message)
		}
	}
}

func TestAllocateDeterministic(t *testing.T) {
	a, err := Allocate(7, 4, 20, 0.7)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		b, err := Allocate(7, 4, 20, 0.7)
		if err != nil {
			t.Fatal(err)
		}
		if a != b {
			t.Fatalf("run %d: allocation %+v differs from %+v", i, b, a)
		}
	}
}

func TestAllocateValidation(t *testing.T) {
	tests := []struct {
		name            string
		availableNew    int
		availableReview int
		total           int
		ratio           float64
	}{
		{"negative total", 10, 10, -1, 0.5},
		{"negative new availability", -1, 10, 10, 0.5},
		{"negative review availability", 10, -1, 10, 0.5},
		{"ratio below zero", 10, 10, 10, -0.01},
		{"ratio above one", 10, 10, 10, 1.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Allocate(tt.availableNew, tt.availableReview, tt.total, tt.ratio)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}
