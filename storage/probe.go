// Copyright © 2020 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import (
	"github.com/clearlinux/storage-planner/blockio"
	"github.com/clearlinux/storage-planner/errors"
	"github.com/clearlinux/storage-planner/log"
)

// SeedTree walks a prober-supplied blockio.BlockDevice forest (already
// populated by lsblk, see blockio.ListBlockDevices)
// and populates tree with existing devices linked in parent-before-child
// order, trusting the seed as spec §6.1 requires.
func SeedTree(session *Session, tree *DeviceTree, disks []*blockio.BlockDevice) error {
	for _, bd := range disks {
		if bd.Type != blockio.BlockDeviceTypeDisk && bd.Type != blockio.BlockDeviceTypeLoop {
			return errors.KindErrorf(errors.KindInvalidArgument, "seed root %q is not a disk", bd.Name)
		}
		if _, err := seedDisk(session, tree, bd); err != nil {
			return err
		}
	}
	return nil
}

func seedDisk(session *Session, tree *DeviceTree, bd *blockio.BlockDevice) (*Device, error) {
	d := NewDisk(session, bd.Name, SizeFromBytes(bd.Size), DiskData{
		Model:  bd.Model,
		Serial: bd.Serial,
	})
	d.Disk.FreeExtents = freeExtentsFromPartTable(bd.PartTable)
	if err := tree.AddDevice(d); err != nil {
		return nil, err
	}
	if err := attachFormat(d, bd); err != nil {
		return nil, err
	}

	for i, child := range bd.Children {
		part, err := seedChild(session, tree, d, child, i+1)
		if err != nil {
			return nil, err
		}
		if part != nil {
			part.Part.Parted = partedExtentFromPartTable(bd.PartTable, part.Part.Number)
		}
	}
	return d, nil
}

// freeExtentsFromPartTable translates a probed disk's parted free-space
// entries (Number 0 or FileSystem "free", see blockio.PartedPartition) into
// the planner's own MiB-scale PartedPartition view (SUPPLEMENTED FEATURES
// #1: free-extent carving).
func freeExtentsFromPartTable(table []*blockio.PartedPartition) []*PartedPartition {
	var out []*PartedPartition
	for _, pt := range table {
		if pt.Number != 0 && pt.FileSystem != "free" {
			continue
		}
		out = append(out, &PartedPartition{StartMiB: SizeFromBytes(pt.Start), SizeMiB: SizeFromBytes(pt.Size)})
	}
	return out
}

// partedExtentFromPartTable finds the used extent matching number, or nil
// if the prober never reported one (e.g. an unpartitioned disk).
func partedExtentFromPartTable(table []*blockio.PartedPartition, number int) *PartedPartition {
	for _, pt := range table {
		if int(pt.Number) == number {
			return &PartedPartition{Number: number, StartMiB: SizeFromBytes(pt.Start), SizeMiB: SizeFromBytes(pt.Size)}
		}
	}
	return nil
}

func seedChild(session *Session, tree *DeviceTree, disk *Device, bd *blockio.BlockDevice, number int) (*Device, error) {
	if bd.Type != blockio.BlockDeviceTypePart && bd.Type != blockio.BlockDeviceTypeCrypt {
		log.Debug("skipping seed of %q: unsupported block device type for planner seeding", bd.Name)
		return nil, nil
	}

	part, err := NewPartition(session, bd.Name, disk, true, SizeFromBytes(bd.Size), PartitionData{Number: number, Type: PartitionNormal})
	if err != nil {
		return nil, err
	}
	if err := tree.AddDevice(part); err != nil {
		return nil, err
	}
	if err := attachFormat(part, bd); err != nil {
		return nil, err
	}
	return part, nil
}

// attachFormat installs a Format on d derived from bd.FsType, when
// recognized. An unrecognized or empty fstype leaves d.Format as the null
// format -- not every probed device carries a format the planner knows
// about (e.g. a bare partition table).
func attachFormat(d *Device, bd *blockio.BlockDevice) error {
	if bd.FsType == "" {
		return nil
	}
	kind, err := FormatKindByName(bd.FsType)
	if err != nil {
		log.Debug("device %q: unrecognized format kind %q, leaving unformatted in the planner's view", bd.Name, bd.FsType)
		return nil
	}

	f, err := NewFormat(kind, d.Path(), true)
	if err != nil {
		return err
	}
	f.UUID = bd.UUID
	f.MountPoint = bd.MountPoint
	f.CurrentSize = d.CurrentSize
	f.TargetSize = d.CurrentSize
	d.Format = f
	return nil
}
