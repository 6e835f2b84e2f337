// Copyright © 2020 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import (
	"fmt"

	"github.com/clearlinux/storage-planner/errors"
)

// DeviceKind tags the variant a Device carries (spec §3). Kind-specific
// payload lives in the *Data fields below and kind-specific behavior
// dispatches on this tag rather than through a class hierarchy.
type DeviceKind int

const (
	// DeviceDisk is a raw disk
	DeviceDisk DeviceKind = iota
	// DevicePartition is a disk partition
	DevicePartition
	// DeviceRaidArray is a software RAID array
	DeviceRaidArray
	// DeviceVolumeGroup is an LVM volume group
	DeviceVolumeGroup
	// DeviceLogicalVolume is an LVM logical volume
	DeviceLogicalVolume
	// DeviceMapperNode is a bare device-mapper node (e.g. a LUKS mapping)
	DeviceMapperNode
	// DeviceFileBacked is a file-backed loop device
	DeviceFileBacked
	// DeviceNoDev is a degenerate device with no backing node
	DeviceNoDev
)

func (k DeviceKind) String() string {
	switch k {
	case DeviceDisk:
		return "disk"
	case DevicePartition:
		return "partition"
	case DeviceRaidArray:
		return "raid array"
	case DeviceVolumeGroup:
		return "volume group"
	case DeviceLogicalVolume:
		return "logical volume"
	case DeviceMapperNode:
		return "device-mapper node"
	case DeviceFileBacked:
		return "file-backed device"
	case DeviceNoDev:
		return "no-dev"
	default:
		return "unknown"
	}
}

// PartitionType distinguishes the three DOS/MBR partition roles. GPT
// partitions are always Normal.
type PartitionType int

const (
	// PartitionNormal is a primary/standalone partition
	PartitionNormal PartitionType = iota
	// PartitionExtended is an MBR extended partition container
	PartitionExtended
	// PartitionLogical is an MBR logical partition inside an extended one
	PartitionLogical
)

// DiskData carries Disk-kind attributes.
type DiskData struct {
	Model        string
	Serial       string
	Vendor       string
	Bus          string
	MediaPresent bool
	SectorSize   uint64

	// FreeExtents is the disk's unallocated extent list: probed at seed
	// time (probe.go) from the real parted geometry and consumed by
	// AutoPartitioner.registerLayout when it carves new partitions.
	FreeExtents []*PartedPartition
}

// PartitionData carries Partition-kind attributes.
type PartitionData struct {
	Number int // 1-based partition number
	Type   PartitionType
	Boot   bool
	LBA    bool
	Parted *PartedPartition // start/size on disk, see geometry.go
}

// RaidArrayData carries RaidArray-kind attributes.
type RaidArrayData struct {
	Level       string // "0", "1", "5", "6", "10", ...
	Minor       int
	MemberCount int
	TotalCount  int
	SpareCount  int
}

// VolumeGroupData carries VolumeGroup-kind attributes.
type VolumeGroupData struct {
	ExtentSize uint64 // MiB
}

// LogicalVolumeData carries LogicalVolume-kind attributes.
type LogicalVolumeData struct {
	Stripes        int
	LogSize        uint64 // MiB
	SnapshotSpace  uint64 // MiB
	SinglePV       bool
	SinglePVDevice *Device // set once a fitting PV is chosen, see NewLogicalVolume
}

// Device is a node in the storage graph (spec §3).
type Device struct {
	id      uint64
	Name    string
	Kind    DeviceKind
	Exists  bool
	Parents []*Device // ordered, forms a DAG, never cyclic
	kids    int       // live child reference count; leaf iff kids == 0

	CurrentSize uint64 // MiB
	TargetSize  uint64 // MiB
	Active      bool   // device is set up / open on the host
	Format      *Format

	Disk *DiskData
	Part *PartitionData
	Raid *RaidArrayData
	VG   *VolumeGroupData
	LV   *LogicalVolumeData
}

// ID returns the device's monotonically unique id.
func (d *Device) ID() uint64 { return d.id }

// IsLeaf reports whether d has no children, i.e. no other device in the tree
// lists it as a parent (invariant 1: kids mirrors that count exactly).
func (d *Device) IsLeaf() bool { return d.kids == 0 }

func (d *Device) addChild() { d.kids++ }

func (d *Device) removeChild() {
	if d.kids > 0 {
		d.kids--
	}
}

// Kids returns the live child reference count.
func (d *Device) Kids() int { return d.kids }

// DependsOn reports whether dep is a transitive ancestor of d through
// Parents -- the predicate requires()/obsoletes() rules call "dependsOn".
func (d *Device) DependsOn(dep *Device) bool {
	for _, p := range d.Parents {
		if p == dep {
			return true
		}
		if p.DependsOn(dep) {
			return true
		}
	}
	return false
}

// Path returns the device's /dev path, used as the format's DevicePath.
func (d *Device) Path() string {
	return "/dev/" + d.Name
}

func (d *Device) String() string {
	exist := "non-existent"
	if d.Exists {
		exist = "existing"
	}
	return fmt.Sprintf("%s %dMiB %s %s (id %d)", exist, d.TargetSize, d.Kind, d.Name, d.id)
}

// newDevice allocates a device id from session and records Parents. It does
// not add the device to any tree or touch the parents' child-reference
// counters; DeviceTree.AddDevice does both (C4).
func newDevice(session *Session, name string, kind DeviceKind, exists bool, parents []*Device) *Device {
	d := &Device{
		id:      session.allocDeviceID(),
		Name:    name,
		Kind:    kind,
		Exists:  exists,
		Parents: parents,
		Format:  NullFormat(),
	}
	return d
}

// NewDisk constructs a Disk device. Disks always exist (spec §3).
func NewDisk(session *Session, name string, size uint64, data DiskData) *Device {
	d := newDevice(session, name, DeviceDisk, true, nil)
	d.CurrentSize = size
	d.TargetSize = size
	d.Active = true
	d.Disk = &data
	return d
}

// NewPartition constructs a Partition device with disk as its sole parent.
func NewPartition(session *Session, name string, disk *Device, exists bool, size uint64, data PartitionData) (*Device, error) {
	if disk.Kind != DeviceDisk {
		return nil, errors.KindErrorf(errors.KindInvalidArgument, "partition %q parent %q is not a disk", name, disk.Name)
	}
	d := newDevice(session, name, DevicePartition, exists, []*Device{disk})
	d.CurrentSize = size
	d.TargetSize = size
	d.Part = &data
	return d, nil
}

// NewRaidArray constructs a RaidArray device over the given member devices.
func NewRaidArray(session *Session, name string, members []*Device, exists bool, size uint64, data RaidArrayData) *Device {
	data.MemberCount = len(members)
	data.TotalCount = len(members)
	d := newDevice(session, name, DeviceRaidArray, exists, members)
	d.CurrentSize = size
	d.TargetSize = size
	d.Raid = &data
	return d
}

// NewVolumeGroup constructs a VolumeGroup device over PV-formatted parents.
func NewVolumeGroup(session *Session, name string, pvs []*Device, exists bool, size uint64, data VolumeGroupData) *Device {
	d := newDevice(session, name, DeviceVolumeGroup, exists, pvs)
	d.CurrentSize = size
	d.TargetSize = size
	d.VG = &data
	return d
}

// FreeSpace returns a volume group's unallocated extent space: VG size minus
// the sum of its logical volumes' (size*stripes + logSize) -- invariant 6.
// lvs must be the tree's current children of vg.
func (vg *Device) FreeSpace(lvs []*Device) (uint64, error) {
	if vg.Kind != DeviceVolumeGroup {
		return 0, errors.KindErrorf(errors.KindInvalidArgument, "%q is not a volume group", vg.Name)
	}
	var used uint64
	for _, lv := range lvs {
		if lv.LV == nil {
			continue
		}
		stripes := uint64(lv.LV.Stripes)
		if stripes == 0 {
			stripes = 1
		}
		used += lv.TargetSize*stripes + lv.LV.LogSize
	}
	if used > vg.TargetSize {
		return 0, nil
	}
	return vg.TargetSize - used, nil
}

// NewLogicalVolume constructs a LogicalVolume device with vg as its sole
// parent. If singlePV is requested, at least one PV parent of vg must have
// capacity >= size (invariant 8), checked against pvs.
func NewLogicalVolume(session *Session, name string, vg *Device, pvs []*Device, exists bool, size uint64, data LogicalVolumeData) (*Device, error) {
	if vg.Kind != DeviceVolumeGroup {
		return nil, errors.KindErrorf(errors.KindInvalidArgument, "logical volume %q parent %q is not a volume group", name, vg.Name)
	}

	if data.SinglePV {
		var fit *Device
		for _, pv := range pvs {
			if pv.TargetSize >= size {
				fit = pv
				break
			}
		}
		if fit == nil {
			return nil, errors.KindErrorf(errors.KindSinglePVError,
				"no physical volume in volume group %q has %d MiB available for single-PV logical volume %q",
				vg.Name, size, name)
		}
		data.SinglePVDevice = fit
	}

	d := newDevice(session, name, DeviceLogicalVolume, exists, []*Device{vg})
	d.CurrentSize = size
	d.TargetSize = size
	d.LV = &data
	return d, nil
}

// NewDeviceMapperNode constructs a bare device-mapper node device (e.g. a
// LUKS mapping) over a single parent.
func NewDeviceMapperNode(session *Session, name string, parent *Device, exists bool, size uint64) *Device {
	d := newDevice(session, name, DeviceMapperNode, exists, []*Device{parent})
	d.CurrentSize = size
	d.TargetSize = size
	return d
}

// NewFileBackedDevice constructs a loop/file-backed device with no parents.
func NewFileBackedDevice(session *Session, name string, exists bool, size uint64) *Device {
	d := newDevice(session, name, DeviceFileBacked, exists, nil)
	d.CurrentSize = size
	d.TargetSize = size
	return d
}

// NewNoDevDevice constructs a degenerate device with no backing node (e.g.
// tmpfs, used only to anchor a mountpoint/format pair).
func NewNoDevDevice(session *Session, name string, exists bool) *Device {
	return newDevice(session, name, DeviceNoDev, exists, nil)
}
