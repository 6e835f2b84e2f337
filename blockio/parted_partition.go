// Copyright © 2020 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package blockio

// PartedPartition hold partition information
// Number 0 and FileSystem "free" are free spaces
type PartedPartition struct {
	Number     uint64 // partition number 0 indicates free space
	Start      uint64 // starting byte location
	End        uint64 // ending byte location
	Size       uint64 // size in bytes
	FileSystem string // file system Type
	Name       string // partition name
	Flags      string // flags for partition
}

// Clone creates a copies a PartedPartition
func (part *PartedPartition) Clone() *PartedPartition {
	clone := &PartedPartition{
		Number:     part.Number,
		Start:      part.Start,
		End:        part.End,
		Size:       part.Size,
		FileSystem: part.FileSystem,
		Name:       part.Name,
		Flags:      part.Flags,
	}

	return clone
}

