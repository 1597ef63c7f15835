//go:build profile

package prof

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardnew/softxhci/pkg"
)

func TestStartCPU(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpu.prof")

	if err := StartCPU(path); err != nil {
		t.Fatalf("StartCPU() error = %v", err)
	}
	if !CPUActive() {
		t.Error("CPUActive() = false after StartCPU")
	}

	err := StartCPUWriter(&bytes.Buffer{})
	if !errors.Is(err, pkg.ErrInvalidState) {
		t.Errorf("second StartCPU error = %v, want ErrInvalidState", err)
	}

	StopCPU()
	if CPUActive() {
		t.Error("CPUActive() = true after StopCPU")
	}
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		t.Errorf("profile file: %v, %v", fi, err)
	}

	// stopping twice is harmless
	StopCPU()
}

func TestStartCPU_InvalidPath(t *testing.T) {
	if err := StartCPU("/nonexistent/directory/cpu.prof"); err == nil {
		StopCPU()
		t.Fatal("StartCPU() error = nil")
	}
	if CPUActive() {
		t.Error("CPUActive() = true after failed start")
	}
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()

	for _, p := range []Profile{ProfileHeap, ProfileAllocs, ProfileGoroutine, ProfileBlock, ProfileMutex} {
		t.Run(p.String(), func(t *testing.T) {
			path := filepath.Join(dir, p.String()+".prof")
			if err := Write(p, path); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
				t.Errorf("profile file: %v, %v", fi, err)
			}
		})
	}
}

func TestWrite_RejectsCPU(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTo(ProfileCPU, &buf); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("WriteTo(cpu) error = %v, want ErrInvalidParameter", err)
	}
	if err := Write(ProfileCPU, filepath.Join(t.TempDir(), "cpu.prof")); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("Write(cpu) error = %v, want ErrInvalidParameter", err)
	}
}
