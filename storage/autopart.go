// Copyright © 2020 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import (
	"github.com/clearlinux/storage-planner/errors"
)

// AutoPartChoice selects one of the four auto-partitioning strategies
// offered by the installer wizard (spec §4.8).
type AutoPartChoice string

// The four supported auto-partitioner choices.
const (
	ChoiceClearAll       AutoPartChoice = "clear-all"
	ChoiceClearLinuxOnly AutoPartChoice = "clear-linux-only"
	ChoiceUseFreeSpace   AutoPartChoice = "use-free-space"
	ChoiceShrinkExisting AutoPartChoice = "shrink-existing"
)

// LayoutRequest is one entry in the data-driven default layout the
// auto-partitioner carves after destroys/shrinks run (spec §4.8): a small
// boot partition, a root filesystem, and swap, mirroring the teacher's
// AddBootStandardPartition/AddSwapStandardPartition/AddRootStandardPartition
// trio but expressed as planner requests instead of direct BlockDevice
// mutation.
type LayoutRequest struct {
	MountPoint string
	Kind       FormatKind
	MinSize    uint64 // MiB
	MaxSize    uint64 // MiB; with Grow, 0 means "consume remaining free space"
	Grow       bool
	Bootable   bool
}

// bootSizeMiB and swapSizeMiB mirror the teacher's bootSize/swapSize
// constants (150MB/256MB, converted from decimal MB to MiB floor).
const (
	bootSizeMiB = 143
	swapSizeMiB = 244
)

// DefaultLayout is the standard boot+root+swap layout request list used when
// the auto-partitioner isn't given an explicit one.
func DefaultLayout() []LayoutRequest {
	return []LayoutRequest{
		{MountPoint: "/boot", Kind: FormatVfat, MinSize: bootSizeMiB, MaxSize: bootSizeMiB, Bootable: true},
		{MountPoint: "", Kind: FormatSwap, MinSize: swapSizeMiB, MaxSize: swapSizeMiB},
		{MountPoint: "/", Kind: FormatExt4, MinSize: 1024, Grow: true},
	}
}

// AutoPartitioner translates an AutoPartChoice plus a set of selected disks
// into operation registrations against a tree (spec §4.8).
type AutoPartitioner struct {
	session *Session
	tree    *DeviceTree
	layout  []LayoutRequest
}

// NewAutoPartitioner returns an AutoPartitioner bound to tree using
// DefaultLayout. Call SetLayout to override the default boot/root/swap
// request list.
func NewAutoPartitioner(session *Session, tree *DeviceTree) *AutoPartitioner {
	return &AutoPartitioner{session: session, tree: tree, layout: DefaultLayout()}
}

// SetLayout overrides the default layout request list.
func (a *AutoPartitioner) SetLayout(layout []LayoutRequest) {
	a.layout = layout
}

// Plan registers every operation needed to realize choice over disks and
// returns the sorted, ready-to-execute operation sequence.
func (a *AutoPartitioner) Plan(choice AutoPartChoice, disks []*Device) ([]*Operation, error) {
	for _, d := range disks {
		if d.Kind != DeviceDisk {
			return nil, errors.KindErrorf(errors.KindInvalidArgument, "%q is not a disk", d.Name)
		}
	}

	switch choice {
	case ChoiceClearAll:
		if err := a.clearAll(disks, nil); err != nil {
			return nil, err
		}
	case ChoiceClearLinuxOnly:
		if err := a.clearAll(disks, linuxNativeOnly); err != nil {
			return nil, err
		}
	case ChoiceUseFreeSpace:
		// no destroys; the standard layout is carved from existing free
		// extents by registerLayout below.
	case ChoiceShrinkExisting:
		return nil, errors.KindErrorf(errors.KindInvalidArgument, "shrink-existing requires ShrinkAndPlan, not Plan")
	default:
		return nil, errors.KindErrorf(errors.KindInvalidArgument, "unknown auto-partition choice %q", choice)
	}

	if len(disks) == 0 {
		return nil, errors.KindErrorf(errors.KindInvalidArgument, "auto-partitioner requires at least one selected disk")
	}
	if err := a.registerLayout(disks[0]); err != nil {
		return nil, err
	}

	return a.tree.ProcessOperations()
}

// ShrinkAndPlan implements the shrink-existing choice: shrinks part's format
// then the partition itself to newSize, then carves the default layout from
// the space freed on part's disk.
func (a *AutoPartitioner) ShrinkAndPlan(part *Device, newSize uint64) ([]*Operation, error) {
	if part.Kind != DevicePartition {
		return nil, errors.KindErrorf(errors.KindInvalidArgument, "%q is not a partition", part.Name)
	}
	if len(part.Parents) != 1 || part.Parents[0].Kind != DeviceDisk {
		return nil, errors.KindErrorf(errors.KindInvalidArgument, "%q has no disk parent", part.Name)
	}
	disk := part.Parents[0]

	resizeFormat, err := NewOperationResizeFormat(a.session, part, newSize)
	if err != nil {
		return nil, err
	}
	if err := a.tree.AddOperation(resizeFormat); err != nil {
		return nil, err
	}

	oldSize := part.TargetSize

	resizeDevice, err := NewOperationResizeDevice(a.session, part, newSize)
	if err != nil {
		return nil, err
	}
	if err := a.tree.AddOperation(resizeDevice); err != nil {
		return nil, err
	}

	if oldSize > newSize {
		start := newSize
		if part.Part.Parted != nil {
			start = part.Part.Parted.StartMiB + newSize
		}
		disk.Disk.FreeExtents = append(disk.Disk.FreeExtents, &PartedPartition{
			StartMiB: start,
			SizeMiB:  oldSize - newSize,
		})
	}

	if err := a.registerLayout(disk); err != nil {
		return nil, err
	}

	return a.tree.ProcessOperations()
}

func linuxNativeOnly(d *Device) bool {
	return d.Format != nil && d.Format.LinuxNative()
}

// clearAll registers Destroy Device (and its format) for every partition of
// every disk in disks, leaves first, optionally filtered by keep (nil means
// "destroy everything").
func (a *AutoPartitioner) clearAll(disks []*Device, keep func(*Device) bool) error {
	for _, disk := range disks {
		parts := a.partitionsOf(disk)
		// Destroy the highest-numbered partitions first so earlier
		// destroys never leave a non-leaf target for a later one.
		for i := len(parts) - 1; i >= 0; i-- {
			part := parts[i]
			if keep != nil && !keep(part) {
				continue
			}
			// Destroying a leaf can turn its parent (e.g. a VG) into a
			// leaf, so repeat until nothing depends on part.
			for leaves := a.leavesOf(part); len(leaves) > 0; leaves = a.leavesOf(part) {
				for _, leaf := range leaves {
					if err := a.destroyDeviceAndFormat(leaf); err != nil {
						return err
					}
				}
			}
			if err := a.destroyDeviceAndFormat(part); err != nil {
				return err
			}
		}
	}
	return nil
}

// partitionsOf returns every Partition device in the tree whose sole parent
// is disk, ordered by partition number ascending.
func (a *AutoPartitioner) partitionsOf(disk *Device) []*Device {
	var parts []*Device
	for _, d := range a.tree.Devices() {
		if d.Kind == DevicePartition && len(d.Parents) == 1 && d.Parents[0] == disk {
			parts = append(parts, d)
		}
	}
	for i := 1; i < len(parts); i++ {
		for j := i; j > 0 && parts[j].Part.Number < parts[j-1].Part.Number; j-- {
			parts[j], parts[j-1] = parts[j-1], parts[j]
		}
	}
	return parts
}

// leavesOf returns every device in the tree that transitively depends on d
// and is a leaf, used to clear dependents (e.g. an LVM VG riding on a
// partition) before the partition itself can be destroyed.
func (a *AutoPartitioner) leavesOf(d *Device) []*Device {
	var out []*Device
	for _, other := range a.tree.Devices() {
		if other != d && other.DependsOn(d) && other.IsLeaf() {
			out = append(out, other)
		}
	}
	return out
}

func (a *AutoPartitioner) destroyDeviceAndFormat(d *Device) error {
	if !d.Format.IsNull() {
		if err := a.tree.AddOperation(NewOperationDestroyFormat(a.session, d)); err != nil {
			return err
		}
	}
	return a.tree.AddOperation(NewOperationDestroyDevice(a.session, d))
}

// registerLayout carves a.layout's requests into new partitions on disk,
// drawing each one from disk.Disk.FreeExtents (the real parted free-extent
// view seeded by SeedTree or freed by ShrinkAndPlan -- SUPPLEMENTED
// FEATURES #1), then registers the corresponding Create Device / Create
// Format operations.
func (a *AutoPartitioner) registerLayout(disk *Device) error {
	nextNumber := 1
	for _, existing := range a.partitionsOf(disk) {
		if existing.Part.Number >= nextNumber {
			nextNumber = existing.Part.Number + 1
		}
	}

	for _, req := range a.layout {
		extent := a.takeFreeExtent(disk, req.MinSize)
		if extent == nil {
			return errors.KindErrorf(errors.KindDeviceTreeError,
				"disk %q has no free extent with %d MiB for %q", disk.Name, req.MinSize, req.MountPoint)
		}

		size := req.MinSize
		if req.Grow && req.MaxSize == 0 {
			// consume the whole remaining extent, not just the minimum
			size = extent.SizeMiB
		}

		placed := a.consumeFreeExtent(disk, extent, size)
		placed.Number = nextNumber

		part, err := NewPartition(a.session, partitionName(disk, nextNumber), disk, false, size,
			PartitionData{Number: nextNumber, Type: PartitionNormal, Parted: placed})
		if err != nil {
			return err
		}
		nextNumber++

		createPart, err := NewOperationCreateDevice(a.session, part)
		if err != nil {
			return err
		}
		if err := a.tree.AddOperation(createPart); err != nil {
			return err
		}

		format, err := NewFormat(req.Kind, part.Path(), false)
		if err != nil {
			return err
		}
		format.MountPoint = req.MountPoint
		format.TargetSize = size
		if req.Bootable {
			format.SetBootable(true)
		}

		if err := a.tree.AddOperation(NewOperationCreateFormat(a.session, part, format)); err != nil {
			return err
		}
	}

	return nil
}

// takeFreeExtent returns the first extent on disk with at least minSize MiB
// available (first-fit), or nil if none fits.
func (a *AutoPartitioner) takeFreeExtent(disk *Device, minSize uint64) *PartedPartition {
	for _, extent := range disk.Disk.FreeExtents {
		if extent.SizeMiB >= minSize {
			return extent
		}
	}
	return nil
}

// consumeFreeExtent carves a used-MiB chunk off the front of extent,
// shrinking or removing it from disk.Disk.FreeExtents, and returns a new
// PartedPartition describing the carved chunk's placement.
func (a *AutoPartitioner) consumeFreeExtent(disk *Device, extent *PartedPartition, used uint64) *PartedPartition {
	placed := &PartedPartition{StartMiB: extent.StartMiB, SizeMiB: used}

	extent.StartMiB += used
	extent.SizeMiB -= used
	if extent.SizeMiB == 0 {
		kept := disk.Disk.FreeExtents[:0]
		for _, e := range disk.Disk.FreeExtents {
			if e != extent {
				kept = append(kept, e)
			}
		}
		disk.Disk.FreeExtents = kept
	}

	return placed
}

func partitionName(disk *Device, number int) string {
	return disk.Name + partitionSuffix(number)
}

func partitionSuffix(number int) string {
	digits := [...]byte{'0', '1', '2', '3', '4', '5', '6', '7', '8', '9'}
	if number < 10 {
		return string(digits[number])
	}
	// two-digit partition numbers (nvme-style disks use a "p" infix
	// handled by the execute-time driver, not the planner).
	return string(digits[number/10]) + string(digits[number%10])
}
