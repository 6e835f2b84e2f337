// Copyright © 2020 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

// Requires reports whether op must execute strictly after other, i.e.
// "other must execute strictly before op" (spec §4.4). The rule set is
// dispatched per op's (type, object) pair.
func (op *Operation) Requires(other *Operation) bool {
	if op == other {
		return false
	}

	switch {
	case op.Type == OpCreate && op.Object == ObjectDevice:
		return op.createDeviceRequires(other)
	case op.Type == OpDestroy && op.Object == ObjectDevice:
		return op.destroyDeviceRequires(other)
	case op.Type == OpResize && op.Object == ObjectDevice:
		return op.resizeDeviceRequires(other)
	case op.Type == OpResize && op.Object == ObjectFormat:
		return op.resizeFormatRequires(other)
	case op.Type == OpCreate && op.Object == ObjectFormat:
		return op.createFormatRequires(other)
	case op.Type == OpDestroy && op.Object == ObjectFormat:
		return op.destroyFormatRequires(other)
	case op.Type == OpMigrate:
		// Treated as Resize for sorting (§4.4): same rules as a Grow.
		return op.resizeFormatRequires(other)
	default:
		return false
	}
}

// createDeviceRequires implements §4.4 "Create Device A".
func (op *Operation) createDeviceRequires(other *Operation) bool {
	// (i) A.device transitively depends on B.device through parents
	if op.Device.DependsOn(other.Device) {
		return true
	}

	if other.Type != OpCreate || other.Object != ObjectDevice {
		return false
	}

	// (ii) both are Create Device on two partitions of the same disk and
	// A's partition number > B's (create partitions low-to-high).
	if op.Device.Kind == DevicePartition && other.Device.Kind == DevicePartition &&
		samePartitionDisk(op.Device, other.Device) {
		return op.Device.Part.Number > other.Device.Part.Number
	}

	// (iii) both are Create Device on two LVs in the same VG where B is
	// single-PV-pinned and A is not (pinned volumes are placed first).
	if op.Device.Kind == DeviceLogicalVolume && other.Device.Kind == DeviceLogicalVolume &&
		sameVolumeGroup(op.Device, other.Device) {
		return other.Device.LV.SinglePV && !op.Device.LV.SinglePV
	}

	return false
}

// destroyDeviceRequires implements §4.4 "Destroy Device A".
func (op *Operation) destroyDeviceRequires(other *Operation) bool {
	// (i) B.device depends on A.device and B is a Destroy (children before parents).
	if other.Type == OpDestroy && other.Object == ObjectDevice && other.Device.DependsOn(op.Device) {
		return true
	}

	// (ii) both are Destroy Device on partitions of the same disk and A's
	// number < B's (destroy high-to-low).
	if other.Type == OpDestroy && other.Object == ObjectDevice &&
		op.Device.Kind == DevicePartition && other.Device.Kind == DevicePartition &&
		samePartitionDisk(op.Device, other.Device) {
		return op.Device.Part.Number < other.Device.Part.Number
	}

	// (iii) B is Destroy Format on the same device (format removed before its device).
	if other.Type == OpDestroy && other.Object == ObjectFormat && other.Device == op.Device {
		return true
	}

	return false
}

// resizeDeviceRequires implements §4.4 "Resize Device A".
func (op *Operation) resizeDeviceRequires(other *Operation) bool {
	if other.Type != OpResize {
		return false
	}

	// (i) B is a Format resize on the same device and both are Shrink.
	if other.Object == ObjectFormat && other.Device == op.Device &&
		op.Direction == DirectionShrink && other.Direction == DirectionShrink {
		return true
	}

	// (ii) B is Grow and A.device depends on B.device (grow container before content).
	if other.Direction == DirectionGrow && op.Device.DependsOn(other.Device) {
		return true
	}

	// (iii) B is Shrink and B.device depends on A.device (shrink content before container).
	if other.Direction == DirectionShrink && other.Device.DependsOn(op.Device) {
		return true
	}

	return false
}

// resizeFormatRequires implements §4.4 "Resize Format A" (and Migrate Format,
// which reuses this rule set as a Grow, see Requires).
func (op *Operation) resizeFormatRequires(other *Operation) bool {
	if other.Type != OpResize {
		return false
	}

	// (i) B is Device resize on the same device and both are Grow.
	if other.Object == ObjectDevice && other.Device == op.Device &&
		op.Direction == DirectionGrow && other.Direction == DirectionGrow {
		return true
	}

	// (ii) B is Shrink and B.device depends on A.device.
	if other.Direction == DirectionShrink && other.Device.DependsOn(op.Device) {
		return true
	}

	// (iii) B is Grow and A.device depends on B.device.
	if other.Direction == DirectionGrow && op.Device.DependsOn(other.Device) {
		return true
	}

	return false
}

// createFormatRequires implements §4.4 "Create Format A".
func (op *Operation) createFormatRequires(other *Operation) bool {
	// (i) A.device depends on B.device and B is not a Destroy Device.
	if op.Device.DependsOn(other.Device) && !(other.Type == OpDestroy && other.Object == ObjectDevice) {
		return true
	}

	// (ii) B is a Create or Resize Device on the same device.
	if other.Object == ObjectDevice && other.Device == op.Device &&
		(other.Type == OpCreate || other.Type == OpResize) {
		return true
	}

	return false
}

// destroyFormatRequires implements §4.4 "Destroy Format A".
func (op *Operation) destroyFormatRequires(other *Operation) bool {
	return other.Type == OpDestroy && other.Device.DependsOn(op.Device)
}

func samePartitionDisk(a, b *Device) bool {
	if len(a.Parents) != 1 || len(b.Parents) != 1 {
		return false
	}
	return a.Parents[0] == b.Parents[0]
}

func sameVolumeGroup(a, b *Device) bool {
	if len(a.Parents) != 1 || len(b.Parents) != 1 {
		return false
	}
	return a.Parents[0] == b.Parents[0]
}
