package prof

import (
	"errors"
	"testing"

	"github.com/ardnew/softxhci/pkg"
)

func TestParseProfile(t *testing.T) {
	tests := []struct {
		in       string
		expected Profile
		snapshot bool
		wantErr  bool
	}{
		{"cpu", ProfileCPU, false, false},
		{" Heap ", ProfileHeap, true, false},
		{"allocs", ProfileAllocs, true, false},
		{"goroutine", ProfileGoroutine, true, false},
		{"BLOCK", ProfileBlock, true, false},
		{"mutex", ProfileMutex, true, false},
		{"threadcreate", "", false, true},
		{"", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProfile(tt.in)
			if tt.wantErr {
				if !errors.Is(err, pkg.ErrInvalidParameter) {
					t.Fatalf("ParseProfile(%q) error = %v, want ErrInvalidParameter", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseProfile(%q) error = %v", tt.in, err)
			}
			if got != tt.expected {
				t.Errorf("ParseProfile(%q) = %q, want %q", tt.in, got, tt.expected)
			}
			if got.Snapshot() != tt.snapshot {
				t.Errorf("%q.Snapshot() = %v, want %v", got, got.Snapshot(), tt.snapshot)
			}
			if got.String() != string(tt.expected) {
				t.Errorf("String() = %q", got.String())
			}
		})
	}
}
