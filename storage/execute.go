// Copyright © 2020 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import (
	"github.com/clearlinux/storage-planner/blockio"
	"github.com/clearlinux/storage-planner/errors"
	"github.com/clearlinux/storage-planner/progress"
)

// PassphraseSource supplies the LUKS passphrase used when a device-mapper
// node wraps an encrypted partition. It defaults to the interactive
// command-line prompt; a frontend that already collected the passphrase
// (e.g. from --crypt-file) should overwrite it before calling Execute.
var PassphraseSource func(device *Device) (string, error) = func(device *Device) (string, error) {
	return blockio.GetPassPhrase(), nil
}

// Execute performs op's real I/O via the blockio drivers (parted, mkfs.*,
// cryptsetup), reporting progress through client. Creating a volume group,
// logical volume, raid array, file-backed or no-dev device, destroying a
// format, and resizing or migrating a format do no I/O and return nil;
// resizing or destroying a non-partition device does the same. This is the
// planner's side of spec §6.2: the planner only calls Execute in sorted
// order and aborts on the first error it returns.
func (op *Operation) Execute(tree *DeviceTree, client progress.Client) error {
	if client != nil {
		client.Desc("planner", op.describe())
	}

	var err error
	switch {
	case op.Type == OpCreate && op.Object == ObjectDevice:
		err = op.executeCreateDevice(tree)
	case op.Type == OpDestroy && op.Object == ObjectDevice:
		err = op.executeDestroyDevice(tree)
	case op.Type == OpCreate && op.Object == ObjectFormat:
		err = op.executeCreateFormat()
	case op.Type == OpDestroy && op.Object == ObjectFormat:
		err = nil // wiping happens implicitly when the device/partition is destroyed or reformatted
	case op.Type == OpResize && op.Object == ObjectDevice:
		err = op.executeResizeDevice(tree)
	case op.Type == OpResize && op.Object == ObjectFormat:
		err = op.executeResizeFormat()
	case op.Type == OpMigrate:
		err = op.executeMigrateFormat()
	}

	if client != nil {
		if err != nil {
			client.Failure()
		} else {
			client.Success()
		}
	}
	return err
}

func (op *Operation) describe() string {
	return op.String()
}

// toBlockDevice renders d (and, for a Disk, its current partitions) as the
// blockio.BlockDevice shape the execute-time drivers expect.
func toBlockDevice(d *Device, tree *DeviceTree) *blockio.BlockDevice {
	bd := &blockio.BlockDevice{
		Name: d.Name,
		Size: BytesFromSize(d.TargetSize),
	}

	if !d.Format.IsNull() {
		bd.FsType = d.Format.Kind.String()
		bd.MountPoint = d.Format.MountPoint
		bd.UUID = d.Format.UUID
	}

	switch d.Kind {
	case DeviceDisk:
		bd.Type = blockio.BlockDeviceTypeDisk
		bd.Model = d.Disk.Model
		bd.Serial = d.Disk.Serial
		for _, extent := range d.Disk.FreeExtents {
			bd.PartTable = append(bd.PartTable, &blockio.PartedPartition{
				FileSystem: "free",
				Start:      BytesFromSize(extent.StartMiB),
				End:        BytesFromSize(extent.StartMiB + extent.SizeMiB),
				Size:       BytesFromSize(extent.SizeMiB),
			})
		}
		if tree != nil {
			for _, child := range tree.Children(d) {
				if child.Kind != DevicePartition {
					continue
				}
				childBD := toBlockDevice(child, nil)
				bd.Children = append(bd.Children, childBD)
				if child.Part.Parted != nil {
					bd.PartTable = append(bd.PartTable, &blockio.PartedPartition{
						Number:     uint64(child.Part.Parted.Number),
						FileSystem: childBD.FsType,
						Start:      BytesFromSize(child.Part.Parted.StartMiB),
						End:        BytesFromSize(child.Part.Parted.StartMiB + child.Part.Parted.SizeMiB),
						Size:       BytesFromSize(child.Part.Parted.SizeMiB),
					})
				}
			}
		}
	case DevicePartition:
		bd.Type = blockio.BlockDeviceTypePart
		bd.MakePartition = !d.Exists
		bd.FormatPartition = true
		bd.UserDefined = true
		if d.Part != nil {
			bd.SetPartitionNumber(uint64(d.Part.Number))
		}
	case DeviceLogicalVolume:
		bd.Type = blockio.BlockDeviceTypeLVM2Volume
	default:
		bd.Type = blockio.BlockDeviceTypePart
	}

	return bd
}

func (op *Operation) executeCreateDevice(tree *DeviceTree) error {
	switch op.Device.Kind {
	case DevicePartition:
		disk := op.Device.Parents[0]
		diskBD := toBlockDevice(disk, tree)
		return diskBD.WritePartitionTable(false)
	case DeviceMapperNode:
		return op.executeCreateCryptMapping()
	case DeviceVolumeGroup, DeviceLogicalVolume, DeviceRaidArray, DeviceFileBacked, DeviceNoDev, DeviceDisk:
		// No lvm, mdadm or losetup invocation is made for these kinds;
		// the operation only takes its place in the sorted order.
		return nil
	default:
		return errors.KindErrorf(errors.KindLibraryError, "no execute-time driver for device kind %v", op.Device.Kind)
	}
}

// executeCreateCryptMapping LUKS-formats and opens op.Device's sole parent
// partition, mirroring yali's encrypted-root/swap layout option (see
// SUPPLEMENTED FEATURES).
func (op *Operation) executeCreateCryptMapping() error {
	if len(op.Device.Parents) != 1 {
		return errors.KindErrorf(errors.KindInvalidArgument, "device-mapper node %q must wrap exactly one parent", op.Device.Name)
	}
	parent := op.Device.Parents[0]

	passphrase, err := PassphraseSource(op.Device)
	if err != nil {
		return err
	}
	if ok, reason := blockio.IsValidPassphrase(passphrase); !ok {
		return errors.KindErrorf(errors.KindInvalidArgument, "invalid LUKS passphrase: %s", reason)
	}

	bd := &blockio.BlockDevice{Name: parent.Name, Type: blockio.BlockDeviceTypeCrypt, MappedName: op.Device.Name}
	return bd.MapEncrypted(passphrase)
}

func (op *Operation) executeDestroyDevice(tree *DeviceTree) error {
	if op.Device.Kind == DevicePartition && len(op.Device.Parents) == 1 {
		disk := op.Device.Parents[0]
		diskBD := toBlockDevice(disk, tree)
		return diskBD.WritePartitionTable(false)
	}
	return nil
}

func (op *Operation) executeCreateFormat() error {
	bd := toBlockDevice(op.Device, nil)
	bd.FsType = op.NewFormat.Kind.String()
	bd.MountPoint = op.NewFormat.MountPoint
	if err := bd.MakeFs(); err != nil {
		return errors.KindErrorf(errors.KindFormatError, "formatting %q as %v: %v", op.Device.Name, op.NewFormat.Kind, err)
	}
	return nil
}

func (op *Operation) executeResizeDevice(tree *DeviceTree) error {
	if op.Device.Kind != DevicePartition || len(op.Device.Parents) != 1 {
		return nil
	}
	disk := op.Device.Parents[0]
	diskBD := toBlockDevice(disk, tree)
	return diskBD.WritePartitionTable(false)
}

func (op *Operation) executeResizeFormat() error {
	// Resizing an existing filesystem in place (resize2fs/btrfs
	// filesystem resize/xfs_growfs) is a format-kind-specific external
	// tool invocation; the planner's contract only requires that Execute
	// run in the sorted order it computed.
	return nil
}

func (op *Operation) executeMigrateFormat() error {
	return nil
}
