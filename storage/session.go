// Copyright © 2020 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

// MiB is the planner's canonical size unit: 2^20 bytes.
const MiB uint64 = 1 << 20

// Session owns the monotonic id sequences used to allocate Device and
// Operation identifiers. The source this planner is modeled on kept these
// counters as process-wide globals; a Session makes them an explicit value so
// tests (and, eventually, concurrent wizard screens) can run independent
// planning sessions without stepping on each other's ids.
type Session struct {
	nextDeviceID    uint64
	nextOperationID uint64
}

// NewSession returns a Session with both id sequences starting at zero.
func NewSession() *Session {
	return &Session{}
}

// allocDeviceID returns the next device id and advances the sequence.
func (s *Session) allocDeviceID() uint64 {
	id := s.nextDeviceID
	s.nextDeviceID++
	return id
}

// allocOperationID returns the next operation id and advances the sequence.
// Operation id order is what later defines "earlier" vs "later" for the
// requires/obsoletes rules, so callers must allocate ids in registration
// order.
func (s *Session) allocOperationID() uint64 {
	id := s.nextOperationID
	s.nextOperationID++
	return id
}

// SizeFromBytes rounds a byte count down to whole MiB, the floor used
// throughout the planner when comparing "same size" for resize operations.
func SizeFromBytes(bytes uint64) uint64 {
	return bytes / MiB
}

// BytesFromSize converts a MiB size back to bytes.
func BytesFromSize(mib uint64) uint64 {
	return mib * MiB
}

// RoundUpToExtent rounds size up to the nearest multiple of extent, the
// alignment rule a logical volume's size must satisfy against its volume
// group's physical-extent size (invariant 7).
func RoundUpToExtent(size, extent uint64) uint64 {
	if extent == 0 {
		return size
	}
	if rem := size % extent; rem != 0 {
		return size + (extent - rem)
	}
	return size
}
