//go:build !linux

package pcie

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/ardnew/softxhci/mmio"
)

// SysfsAccess is unavailable on this platform and reports no fabric.
type SysfsAccess struct {
	log logr.Logger
}

// NewSysfsAccess returns an accessor that finds nothing.
func NewSysfsAccess(log logr.Logger) (*SysfsAccess, error) {
	log.V(1).Info("NOT SUPPORTED OS")
	return &SysfsAccess{log: log}, nil
}

// NewSysfsAccessWithMount returns an accessor that finds nothing.
func NewSysfsAccessWithMount(log logr.Logger, _ string) (*SysfsAccess, error) {
	return NewSysfsAccess(log)
}

// Setup implements [ConfigAccessor].
func (s *SysfsAccess) Setup(context.Context) (bool, error) {
	s.log.V(1).Info("NOT SUPPORTED OS")
	return false, nil
}

// Read32 implements [ConfigAccessor].
func (s *SysfsAccess) Read32(Address, uint8) uint32 { return mmio.AllOnes }

// Write32 implements [ConfigAccessor].
func (s *SysfsAccess) Write32(Address, uint8, uint32) {}

// Policy implements [ConfigAccessor].
func (s *SysfsAccess) Policy() ScanPolicy { return ScanPolicy{} }
