// Copyright © 2020 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import (
	"path/filepath"

	"github.com/clearlinux/storage-planner/boolset"
	"github.com/clearlinux/storage-planner/errors"
)

// FormatKind tags the variant a Format value carries. Kind-specific behavior
// (capability flags, migration target, udev type aliases) dispatches on this
// tag rather than through a class hierarchy.
type FormatKind int

const (
	// FormatNone is the "no format" null object: every Device that has not
	// been formatted, or whose format was just destroyed, carries this kind.
	FormatNone FormatKind = iota
	// FormatExt2 is the ext2 filesystem
	FormatExt2
	// FormatExt3 is the ext3 filesystem
	FormatExt3
	// FormatExt4 is the ext4 filesystem
	FormatExt4
	// FormatBtrfs is the btrfs filesystem
	FormatBtrfs
	// FormatXfs is the xfs filesystem
	FormatXfs
	// FormatVfat is the vfat filesystem, used for the EFI system partition
	FormatVfat
	// FormatSwap is Linux swap space
	FormatSwap
	// FormatLvmPV marks a device as an LVM physical volume
	FormatLvmPV
	// FormatMdMember marks a device as a RAID member
	FormatMdMember
	// FormatLuks marks a device as a LUKS encrypted container
	FormatLuks
	// FormatDisklabel is the partition table format written on a disk
	FormatDisklabel
)

var formatKindNames = map[FormatKind]string{
	FormatNone:      "none",
	FormatExt2:      "ext2",
	FormatExt3:      "ext3",
	FormatExt4:      "ext4",
	FormatBtrfs:     "btrfs",
	FormatXfs:       "xfs",
	FormatVfat:      "vfat",
	FormatSwap:      "swap",
	FormatLvmPV:     "lvmpv",
	FormatMdMember:  "mdmember",
	FormatLuks:      "luks",
	FormatDisklabel: "disklabel",
}

// String returns the format registry name for kind (§6.3).
func (k FormatKind) String() string {
	if name, ok := formatKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// capabilities captures the per-kind flags that spec §3 says are "derived
// from the kind". bootable is copied into each Format as a BoolSet default so
// it can later be overridden per-instance without losing track of whether that
// override was explicit (mirrors the teacher's use of boolset for
// default-but-overridable flags).
type capabilities struct {
	formattable bool
	resizable   bool
	migratable  bool
	bootable    bool
	linuxNative bool
	supported   bool
	minSize     uint64 // MiB
	maxSize     uint64 // MiB, 0 means unbounded
	migrateTo   FormatKind
	hasMigrate  bool
}

var formatCapabilities = map[FormatKind]capabilities{
	FormatNone:      {},
	FormatExt2:      {formattable: true, resizable: true, migratable: true, linuxNative: true, supported: true, migrateTo: FormatExt3, hasMigrate: true},
	FormatExt3:      {formattable: true, resizable: true, migratable: true, linuxNative: true, supported: true, migrateTo: FormatExt4, hasMigrate: true},
	FormatExt4:      {formattable: true, resizable: true, linuxNative: true, supported: true},
	FormatBtrfs:     {formattable: true, resizable: true, linuxNative: true, supported: true},
	FormatXfs:       {formattable: true, linuxNative: true, supported: true},
	FormatVfat:      {formattable: true, resizable: true, bootable: true, supported: true, minSize: 16, maxSize: 1024 * 1024},
	FormatSwap:      {formattable: true, resizable: true, linuxNative: true, supported: true},
	FormatLvmPV:     {formattable: true, supported: true},
	FormatMdMember:  {formattable: true, supported: true},
	FormatLuks:      {formattable: true, supported: true},
	FormatDisklabel: {formattable: true, supported: true},
}

// Format describes how a block of storage is interpreted (spec §3).
type Format struct {
	Kind       FormatKind
	DevicePath string // absolute path to the device this format lives on
	UUID       string // may be absent
	Exists     bool   // present on disk vs. declared but not yet written
	MountPoint string // filesystems only

	CurrentSize uint64 // MiB, meaningful only when Exists
	TargetSize  uint64 // MiB
	Migrate     bool   // set by OperationMigrateFormat

	bootable *boolset.BoolSet
}

// NewFormat constructs a Format of the given kind. A nil-equivalent "no
// format" is NewFormat(FormatNone, "", false).
func NewFormat(kind FormatKind, devicePath string, exists bool) (*Format, error) {
	if devicePath != "" && !filepath.IsAbs(devicePath) {
		return nil, errors.KindErrorf(errors.KindInvalidArgument, "format device path %q must be absolute", devicePath)
	}

	caps := formatCapabilities[kind]

	var bs *boolset.BoolSet
	if caps.bootable {
		bs = boolset.NewTrue()
	} else {
		bs = boolset.New()
	}

	return &Format{
		Kind:       kind,
		DevicePath: devicePath,
		Exists:     exists,
		bootable:   bs,
	}, nil
}

// NullFormat returns the "no format" value attached to devices that carry no
// filesystem or member format.
func NullFormat() *Format {
	f, _ := NewFormat(FormatNone, "", false)
	return f
}

func (f *Format) caps() capabilities {
	return formatCapabilities[f.Kind]
}

// Formattable reports whether this kind supports mkfs-style creation.
func (f *Format) Formattable() bool { return f.caps().formattable }

// Resizable reports whether this format can be resized. Invariant: resizable
// implies Exists (spec §3).
func (f *Format) Resizable() bool { return f.caps().resizable && f.Exists }

// Migratable reports whether this format's kind defines an upgrade target and
// the format already exists on disk (spec §3: "requires exists").
func (f *Format) Migratable() bool { return f.caps().hasMigrate && f.Exists }

// MigrationTarget returns the kind this format upgrades to when migrated
// (e.g. ext2 -> ext3), and whether one is defined.
func (f *Format) MigrationTarget() (FormatKind, bool) {
	c := f.caps()
	return c.migrateTo, c.hasMigrate
}

// Supported reports whether this format kind is usable on the running kernel
// (a static capability table here; the teacher probes the kernel at runtime
// for the real answer via /proc/filesystems).
func (f *Format) Supported() bool { return f.caps().supported }

// LinuxNative reports whether this format kind is considered "owned by
// Linux" for the clear-linux-only auto-partitioner choice (§4.8).
func (f *Format) LinuxNative() bool { return f.caps().linuxNative }

// Bootable reports whether this format can host a boot partition. Defaults
// to the kind's capability but may be overridden (vfat ESP vs. a vfat data
// partition, say) via SetBootable.
func (f *Format) Bootable() bool {
	if f.bootable == nil {
		return f.caps().bootable
	}
	return f.bootable.Value()
}

// SetBootable explicitly overrides the bootable flag for this instance.
func (f *Format) SetBootable(v bool) {
	if f.bootable == nil {
		f.bootable = boolset.New()
	}
	f.bootable.SetValue(v)
}

// MinSize and MaxSize report the kind's size bounds in MiB. MaxSize of 0
// means unbounded.
func (f *Format) MinSize() uint64 { return f.caps().minSize }

// MaxSize reports the kind's maximum size in MiB, 0 meaning unbounded.
func (f *Format) MaxSize() uint64 { return f.caps().maxSize }

// IsNull reports whether this is the "no format" sentinel.
func (f *Format) IsNull() bool { return f == nil || f.Kind == FormatNone }

// Clone returns a detached copy, used to snapshot the previous format before
// an operation overwrites device.Format so it can be restored on cancel.
func (f *Format) Clone() *Format {
	if f == nil {
		return nil
	}
	clone := *f
	if f.bootable != nil {
		var bs *boolset.BoolSet
		if f.bootable.Default() {
			bs = boolset.NewTrue()
		} else {
			bs = boolset.New()
		}
		bs.SetValue(f.bootable.Value())
		clone.bootable = bs
	}
	return &clone
}
