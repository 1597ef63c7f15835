//go:build profile

package prof

import (
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"sync"

	"github.com/efficientgo/core/errors"

	"github.com/ardnew/softxhci/pkg"
)

// Enabled reports whether profile capture is compiled in.
const Enabled = true

var (
	cpuMutex sync.Mutex
	cpuFile  *os.File
	cpuOn    bool
)

// StartCPU starts a CPU profile written to path. It fails with
// [pkg.ErrInvalidState] while another CPU profile is running.
func StartCPU(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "cpu profile")
	}
	if err := startCPU(f); err != nil {
		f.Close()
		return err
	}
	cpuFile = f
	return nil
}

// StartCPUWriter starts a CPU profile written to w.
func StartCPUWriter(w io.Writer) error {
	return startCPU(w)
}

func startCPU(w io.Writer) error {
	cpuMutex.Lock()
	defer cpuMutex.Unlock()

	if cpuOn {
		return errors.Wrap(pkg.ErrInvalidState, "cpu profile already running")
	}
	if err := pprof.StartCPUProfile(w); err != nil {
		return errors.Wrap(err, "cpu profile")
	}
	cpuOn = true
	pkg.LogDebug(pkg.ComponentManager, "cpu profile started")
	return nil
}

// StopCPU stops the running CPU profile and closes its file. It does
// nothing when no profile is running.
func StopCPU() {
	cpuMutex.Lock()
	defer cpuMutex.Unlock()

	if !cpuOn {
		return
	}
	pprof.StopCPUProfile()
	if cpuFile != nil {
		cpuFile.Close()
		cpuFile = nil
	}
	cpuOn = false
	pkg.LogDebug(pkg.ComponentManager, "cpu profile stopped")
}

// CPUActive reports whether a CPU profile is running.
func CPUActive() bool {
	cpuMutex.Lock()
	defer cpuMutex.Unlock()
	return cpuOn
}

// Write writes a snapshot profile to path.
func Write(p Profile, path string) error {
	if !p.Snapshot() {
		return errors.Wrapf(pkg.ErrInvalidParameter, "%s is not a snapshot profile", p)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "%s profile", p)
	}
	defer f.Close()
	return WriteTo(p, f)
}

// WriteTo writes a snapshot profile to w in pprof's binary format.
func WriteTo(p Profile, w io.Writer) error {
	if !p.Snapshot() {
		return errors.Wrapf(pkg.ErrInvalidParameter, "%s is not a snapshot profile", p)
	}
	if err := pprof.Lookup(string(p)).WriteTo(w, 0); err != nil {
		return errors.Wrapf(err, "%s profile", p)
	}
	return nil
}

// SetBlockProfileRate sets the block profile sampling rate in nanoseconds
// blocked per sample. Zero disables it.
func SetBlockProfileRate(rate int) { runtime.SetBlockProfileRate(rate) }

// SetMutexProfileFraction samples 1/rate mutex contention events. Zero
// disables it.
func SetMutexProfileFraction(rate int) { runtime.SetMutexProfileFraction(rate) }
