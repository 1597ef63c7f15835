// Package prof captures pprof profiles of a bring-up run.
//
// Capture is compiled in only with the "profile" build tag:
//
//	go build -tags profile ./examples/usbprobe
//
// Without the tag every capture function is a no-op and [Enabled] is
// false, so callers may leave profiling hooks in place.
//
// A CPU profile covers the span between [StartCPU] and [StopCPU]. Other
// profiles are point-in-time snapshots written by [Write] or [WriteTo]:
//
//	if err := prof.StartCPU("bringup.prof"); err != nil {
//		return err
//	}
//	defer prof.StopCPU()
//	err := mgr.Init(ctx)
//	prof.Write(prof.ProfileHeap, "heap.prof")
//
// Register polling spends its time blocked in the retry helper, so a
// block profile is often more telling than a CPU profile; enable it with
// [SetBlockProfileRate].
package prof
