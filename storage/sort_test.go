// Copyright © 2020 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import (
	"testing"

	"github.com/clearlinux/storage-planner/errors"
)

func indexOf(ops []*Operation, pred func(*Operation) bool) int {
	for i, op := range ops {
		if pred(op) {
			return i
		}
	}
	return -1
}

// TestLVMDependency is scenario 4 (spec §8).
func TestLVMDependency(t *testing.T) {
	session := NewSession()
	tree := NewDeviceTree(session)

	sda := newTestDisk(t, session, tree, "sda", 1_000_000)
	sdb := newTestDisk(t, session, tree, "sdb", 1_000_000)
	sda2 := mustPartition(t, session, sda, "sda2", 2, 200_000)
	sdb1 := mustPartition(t, session, sdb, "sdb1", 1, 200_000)

	reg := func(op *Operation, err error) *Operation {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
		if err := tree.AddOperation(op); err != nil {
			t.Fatal(err)
		}
		return op
	}

	reg(NewOperationCreateDevice(session, sda2))
	pvFmt1, _ := NewFormat(FormatLvmPV, sda2.Path(), false)
	regFormat(t, tree, session, sda2, pvFmt1)

	reg(NewOperationCreateDevice(session, sdb1))
	pvFmt2, _ := NewFormat(FormatLvmPV, sdb1.Path(), false)
	regFormat(t, tree, session, sdb1, pvFmt2)

	vg := NewVolumeGroup(session, "VolGroup", []*Device{sda2, sdb1}, false, 380_000, VolumeGroupData{ExtentSize: 4})
	reg(NewOperationCreateDevice(session, vg))

	lvRoot, err := NewLogicalVolume(session, "lv_root", vg, []*Device{sda2, sdb1}, false, 150_000, LogicalVolumeData{})
	if err != nil {
		t.Fatal(err)
	}
	reg(NewOperationCreateDevice(session, lvRoot))
	rootFmt, _ := NewFormat(FormatExt4, lvRoot.Path(), false)
	regFormat(t, tree, session, lvRoot, rootFmt)

	lvSwap, err := NewLogicalVolume(session, "lv_swap", vg, []*Device{sda2, sdb1}, false, 16_000, LogicalVolumeData{})
	if err != nil {
		t.Fatal(err)
	}
	reg(NewOperationCreateDevice(session, lvSwap))
	swapFmt, _ := NewFormat(FormatSwap, lvSwap.Path(), false)
	regFormat(t, tree, session, lvSwap, swapFmt)

	sorted, err := tree.ProcessOperations()
	if err != nil {
		t.Fatalf("ProcessOperations: %v", err)
	}

	pos := func(device *Device, typ OperationType, obj OperationObject) int {
		return indexOf(sorted, func(op *Operation) bool {
			return op.Device == device && op.Type == typ && op.Object == obj
		})
	}

	createSda2 := pos(sda2, OpCreate, ObjectDevice)
	formatSda2 := pos(sda2, OpCreate, ObjectFormat)
	createSdb1 := pos(sdb1, OpCreate, ObjectDevice)
	formatSdb1 := pos(sdb1, OpCreate, ObjectFormat)
	createVG := pos(vg, OpCreate, ObjectDevice)
	createLVRoot := pos(lvRoot, OpCreate, ObjectDevice)
	createLVSwap := pos(lvSwap, OpCreate, ObjectDevice)
	formatLVRoot := pos(lvRoot, OpCreate, ObjectFormat)
	formatLVSwap := pos(lvSwap, OpCreate, ObjectFormat)

	for _, pair := range [][2]int{
		{createSda2, createVG}, {formatSda2, createVG},
		{createSdb1, createVG}, {formatSdb1, createVG},
		{createVG, createLVRoot}, {createVG, createLVSwap},
		{createLVRoot, formatLVRoot}, {createLVSwap, formatLVSwap},
	} {
		if pair[0] >= pair[1] {
			t.Errorf("expected position %d before %d, got %d and %d", pair[0], pair[1], pair[0], pair[1])
		}
	}
}

func regFormat(t *testing.T, tree *DeviceTree, session *Session, device *Device, format *Format) *Operation {
	t.Helper()
	op := NewOperationCreateFormat(session, device, format)
	if err := tree.AddOperation(op); err != nil {
		t.Fatal(err)
	}
	return op
}

// TestShrinkThenGrow is scenario 5 (spec §8).
func TestShrinkThenGrow(t *testing.T) {
	session := NewSession()
	tree := NewDeviceTree(session)

	sda := newTestDisk(t, session, tree, "sda", 1_000_000)
	vg := NewVolumeGroup(session, "vg", []*Device{sda}, true, 500_000, VolumeGroupData{ExtentSize: 4})
	if err := tree.AddDevice(vg); err != nil {
		t.Fatal(err)
	}
	lv, err := NewLogicalVolume(session, "lv", vg, []*Device{sda}, true, 100_000, LogicalVolumeData{})
	if err != nil {
		t.Fatal(err)
	}
	f, err := NewFormat(FormatExt4, lv.Path(), true)
	if err != nil {
		t.Fatal(err)
	}
	f.TargetSize = 100_000
	f.CurrentSize = 100_000
	lv.Format = f
	if err := tree.AddDevice(lv); err != nil {
		t.Fatal(err)
	}

	resizeFormatShrink, err := NewOperationResizeFormat(session, lv, 80_000)
	if err != nil {
		t.Fatal(err)
	}
	if err := tree.AddOperation(resizeFormatShrink); err != nil {
		t.Fatal(err)
	}
	resizeDeviceShrink, err := NewOperationResizeDevice(session, lv, 80_000)
	if err != nil {
		t.Fatal(err)
	}
	if err := tree.AddOperation(resizeDeviceShrink); err != nil {
		t.Fatal(err)
	}

	if !resizeDeviceShrink.Requires(resizeFormatShrink) {
		t.Error("expected ResizeDevice(shrink).Requires(ResizeFormat(shrink)) == true")
	}
	if resizeFormatShrink.Requires(resizeDeviceShrink) {
		t.Error("expected the reverse to be false")
	}

	// Growing back past the original size (spec §8 scenario 5's second
	// half): the operator changes their mind before executing, registering
	// a grow pair on top of the still-pending shrink pair.
	resizeDeviceGrow, err := NewOperationResizeDevice(session, lv, 120_000)
	if err != nil {
		t.Fatal(err)
	}
	if err := tree.AddOperation(resizeDeviceGrow); err != nil {
		t.Fatal(err)
	}
	resizeFormatGrow, err := NewOperationResizeFormat(session, lv, 120_000)
	if err != nil {
		t.Fatal(err)
	}
	if err := tree.AddOperation(resizeFormatGrow); err != nil {
		t.Fatal(err)
	}

	if !resizeFormatGrow.Requires(resizeDeviceGrow) {
		t.Error("expected ResizeFormat(grow).Requires(ResizeDevice(grow)) == true: grow the partition before the filesystem")
	}
	if resizeDeviceGrow.Requires(resizeFormatGrow) {
		t.Error("expected the reverse to be false")
	}

	if !resizeDeviceGrow.Obsoletes(resizeDeviceShrink) {
		t.Error("expected the later-registered grow device resize to obsolete the earlier shrink")
	}
	if !resizeFormatGrow.Obsoletes(resizeFormatShrink) {
		t.Error("expected the later-registered grow format resize to obsolete the earlier shrink")
	}

	sorted, err := tree.ProcessOperations()
	if err != nil {
		t.Fatalf("ProcessOperations: %v", err)
	}
	if indexOf(sorted, func(op *Operation) bool { return op == resizeDeviceShrink }) >= 0 {
		t.Error("expected the shrink device resize to be pruned once obsoleted by the grow")
	}
	if indexOf(sorted, func(op *Operation) bool { return op == resizeFormatShrink }) >= 0 {
		t.Error("expected the shrink format resize to be pruned once obsoleted by the grow")
	}

	growDevicePos := indexOf(sorted, func(op *Operation) bool { return op == resizeDeviceGrow })
	growFormatPos := indexOf(sorted, func(op *Operation) bool { return op == resizeFormatGrow })
	if growDevicePos < 0 || growFormatPos < 0 {
		t.Fatal("expected both grow operations to survive pruning")
	}
	if growDevicePos >= growFormatPos {
		t.Errorf("expected the device to grow (position %d) before the format grows (position %d)", growDevicePos, growFormatPos)
	}
}

// TestCyclicFailure is scenario 6 (spec §8).
func TestCyclicFailure(t *testing.T) {
	session := NewSession()
	tree := NewDeviceTree(session)
	disk := newTestDisk(t, session, tree, "sda", 1_000_000)

	a, err := NewPartition(session, "a", disk, true, 10_000, PartitionData{Number: 1})
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewPartition(session, "b", disk, true, 10_000, PartitionData{Number: 2})
	if err != nil {
		t.Fatal(err)
	}
	opA := NewOperationDestroyDevice(session, a)
	opB := NewOperationDestroyDevice(session, b)

	_, err = topoSort([]*Operation{opA, opB}, []edge{{parent: opA, child: opB}, {parent: opB, child: opA}})
	if err == nil {
		t.Fatal("expected cyclic graph error")
	}
	if !errors.IsKind(err, errors.KindCyclicGraph) {
		t.Errorf("expected cyclic-graph error kind, got %v", err)
	}
}
