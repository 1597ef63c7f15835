package prof

import (
	"strings"

	"github.com/efficientgo/core/errors"

	"github.com/ardnew/softxhci/pkg"
)

// Profile names a pprof profile.
type Profile string

// Supported profiles.
const (
	ProfileCPU       Profile = "cpu"
	ProfileHeap      Profile = "heap"
	ProfileAllocs    Profile = "allocs"
	ProfileGoroutine Profile = "goroutine"
	ProfileBlock     Profile = "block"
	ProfileMutex     Profile = "mutex"
)

// String returns the pprof name of the profile.
func (p Profile) String() string { return string(p) }

// Snapshot reports whether the profile is captured at a single point in
// time rather than over a span.
func (p Profile) Snapshot() bool {
	switch p {
	case ProfileHeap, ProfileAllocs, ProfileGoroutine, ProfileBlock, ProfileMutex:
		return true
	default:
		return false
	}
}

// ParseProfile returns the profile named s.
func ParseProfile(s string) (Profile, error) {
	p := Profile(strings.ToLower(strings.TrimSpace(s)))
	if p == ProfileCPU || p.Snapshot() {
		return p, nil
	}
	return "", errors.Wrapf(pkg.ErrInvalidParameter, "unknown profile %q", s)
}
