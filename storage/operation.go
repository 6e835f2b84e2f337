// Copyright © 2020 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import (
	"github.com/clearlinux/storage-planner/errors"
)

// OperationType is the verb half of an operation's (type, object) pair.
type OperationType int

const (
	// OpCreate schedules creation of a device or format
	OpCreate OperationType = iota
	// OpDestroy schedules destruction of a device or format
	OpDestroy
	// OpResize schedules a size change on a device or format
	OpResize
	// OpMigrate schedules an in-place format upgrade (Format only)
	OpMigrate
)

func (t OperationType) String() string {
	switch t {
	case OpCreate:
		return "create"
	case OpDestroy:
		return "destroy"
	case OpResize:
		return "resize"
	case OpMigrate:
		return "migrate"
	default:
		return "unknown"
	}
}

// OperationObject is the noun half of an operation's (type, object) pair.
type OperationObject int

const (
	// ObjectDevice targets a Device
	ObjectDevice OperationObject = iota
	// ObjectFormat targets a Device's Format
	ObjectFormat
)

func (o OperationObject) String() string {
	if o == ObjectFormat {
		return "format"
	}
	return "device"
}

// Direction classifies a Resize operation, used by the sorter's
// destructive/constructive phase split (spec §4.6).
type Direction int

const (
	// DirectionNone applies to non-resize operations
	DirectionNone Direction = iota
	// DirectionGrow is a resize that increases size -- constructive phase
	DirectionGrow
	// DirectionShrink is a resize that decreases size -- destructive phase
	DirectionShrink
)

// Operation is an immutable (type, object) pair targeting a device, carrying
// whatever payload that pair needs and a saved snapshot so registration's
// eager mutation (spec §4.1) can be reversed by Cancel.
type Operation struct {
	id        uint64
	Type      OperationType
	Object    OperationObject
	Device    *Device
	Direction Direction

	// NewSize is meaningful for Resize operations (MiB).
	NewSize uint64

	// NewFormat is the format installed by a Create Format operation.
	NewFormat *Format

	// savedFormat is the pre-operation format snapshot, restored on cancel,
	// for Create Format / Destroy Format.
	savedFormat *Format
	// savedSize holds the pre-operation size for Resize Device / Resize
	// Format, restored on cancel.
	savedSize uint64
	// savedMigrate holds the pre-operation Migrate flag for Migrate Format.
	savedMigrate bool

	registered bool
}

// ID returns the operation's monotonic id. Ids are allocated at construction
// and order AddOperation calls for the obsoletes/requires tie-breakers.
func (op *Operation) ID() uint64 { return op.id }

// IsRegistered reports whether this operation is currently live in a tree's
// pending list.
func (op *Operation) IsRegistered() bool { return op.registered }

// String renders a short human-readable description, e.g. "resize device sda2".
func (op *Operation) String() string {
	return op.Type.String() + " " + op.Object.String() + " " + op.Device.Name
}

// NewOperationCreateDevice constructs a Create Device operation. Fails if
// device already exists (§4.3): a device probed off real hardware can never
// be "created" by the planner.
func NewOperationCreateDevice(session *Session, device *Device) (*Operation, error) {
	if device.Exists {
		return nil, errors.KindErrorf(errors.KindInvalidArgument, "device %q already exists, cannot schedule creation", device.Name)
	}
	return &Operation{id: session.allocOperationID(), Type: OpCreate, Object: ObjectDevice, Device: device}, nil
}

// NewOperationDestroyDevice constructs a Destroy Device operation. The
// constructor itself never fails (§4.3); registration may still reject a
// non-leaf target.
func NewOperationDestroyDevice(session *Session, device *Device) *Operation {
	return &Operation{id: session.allocOperationID(), Type: OpDestroy, Object: ObjectDevice, Device: device}
}

// resizableDeviceKind reports whether kind can ever be the target of a
// Resize Device operation, independent of whether a given instance exists.
// A volume group's size is a derived property of its physical volumes and
// a raid array's is fixed by its members and level, so neither kind is ever
// resizable -- mirrored from the original installer's device model, where
// only Partition, LogicalVolume and FileBacked devices set _resizable=True.
func resizableDeviceKind(kind DeviceKind) bool {
	switch kind {
	case DevicePartition, DeviceLogicalVolume, DeviceFileBacked:
		return true
	default:
		return false
	}
}

// NewOperationResizeDevice constructs a Resize Device operation to newSize.
// Fails if device's kind is never resizable, if it doesn't exist, or if
// newSize equals the current size by MiB floor (§4.3).
func NewOperationResizeDevice(session *Session, device *Device, newSize uint64) (*Operation, error) {
	if !resizableDeviceKind(device.Kind) {
		return nil, errors.KindErrorf(errors.KindInvalidArgument, "%v %q is not a resizable device kind", device.Kind, device.Name)
	}
	if !device.Exists {
		return nil, errors.KindErrorf(errors.KindInvalidArgument, "device %q does not exist, cannot resize", device.Name)
	}
	if newSize == device.TargetSize {
		return nil, errors.KindErrorf(errors.KindInvalidArgument, "device %q is already %d MiB", device.Name, newSize)
	}
	dir := DirectionGrow
	if newSize < device.TargetSize {
		dir = DirectionShrink
	}
	return &Operation{id: session.allocOperationID(), Type: OpResize, Object: ObjectDevice, Device: device, Direction: dir, NewSize: newSize}, nil
}

// NewOperationCreateFormat constructs a Create Format operation, installing
// format on device and saving the previous one for Cancel. The constructor
// never fails (§4.3).
func NewOperationCreateFormat(session *Session, device *Device, format *Format) *Operation {
	return &Operation{id: session.allocOperationID(), Type: OpCreate, Object: ObjectFormat, Device: device, NewFormat: format, savedFormat: device.Format.Clone()}
}

// NewOperationDestroyFormat constructs a Destroy Format operation, replacing
// device.Format with NullFormat and saving the previous one. Never fails.
func NewOperationDestroyFormat(session *Session, device *Device) *Operation {
	return &Operation{id: session.allocOperationID(), Type: OpDestroy, Object: ObjectFormat, Device: device, savedFormat: device.Format.Clone()}
}

// NewOperationResizeFormat constructs a Resize Format operation to newSize.
// Fails if the format is not resizable, does not exist, or newSize equals
// the current size (§4.3).
func NewOperationResizeFormat(session *Session, device *Device, newSize uint64) (*Operation, error) {
	f := device.Format
	if !f.Resizable() {
		return nil, errors.KindErrorf(errors.KindInvalidArgument, "format on %q is not resizable", device.Name)
	}
	if newSize == f.TargetSize {
		return nil, errors.KindErrorf(errors.KindInvalidArgument, "format on %q is already %d MiB", device.Name, newSize)
	}
	dir := DirectionGrow
	if newSize < f.TargetSize {
		dir = DirectionShrink
	}
	return &Operation{id: session.allocOperationID(), Type: OpResize, Object: ObjectFormat, Device: device, Direction: dir, NewSize: newSize, savedSize: f.TargetSize}, nil
}

// NewOperationMigrateFormat constructs a Migrate Format operation. Fails if
// the format kind has no migration target or does not exist (§4.3). Treated
// as a (constructive) Resize for sorting purposes per §4.4.
func NewOperationMigrateFormat(session *Session, device *Device) (*Operation, error) {
	f := device.Format
	if !f.Migratable() {
		return nil, errors.KindErrorf(errors.KindInvalidArgument, "format on %q is not migratable", device.Name)
	}
	return &Operation{id: session.allocOperationID(), Type: OpMigrate, Object: ObjectFormat, Device: device, Direction: DirectionGrow, savedMigrate: f.Migrate}, nil
}

// isDestructivePhase reports whether op belongs in the sorter's destructive
// phase (§4.6): Destroy Format, Destroy Device, and Shrink resizes.
func (op *Operation) isDestructivePhase() bool {
	if op.Type == OpDestroy {
		return true
	}
	if op.Type == OpResize && op.Direction == DirectionShrink {
		return true
	}
	return false
}
