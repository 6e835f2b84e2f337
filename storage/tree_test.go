// Copyright © 2020 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import "testing"

func newTestDisk(t *testing.T, session *Session, tree *DeviceTree, name string, size uint64) *Device {
	t.Helper()
	d := NewDisk(session, name, size, DiskData{Model: "test"})
	if err := tree.AddDevice(d); err != nil {
		t.Fatalf("AddDevice(%s): %v", name, err)
	}
	return d
}

func mustPartition(t *testing.T, session *Session, disk *Device, name string, number int, size uint64) *Device {
	t.Helper()
	part, err := NewPartition(session, name, disk, false, size, PartitionData{Number: number})
	if err != nil {
		t.Fatalf("NewPartition(%s): %v", name, err)
	}
	return part
}

// TestPartitionOrdering is scenario 1 (spec §8): on a fresh disk, creation
// sorts low-to-high partition number, destruction sorts high-to-low.
func TestPartitionOrdering(t *testing.T) {
	session := NewSession()
	tree := NewDeviceTree(session)
	disk := newTestDisk(t, session, tree, "sda", 1_000_000)

	sda1 := mustPartition(t, session, disk, "sda1", 1, 10_000)
	sda2 := mustPartition(t, session, disk, "sda2", 2, 10_000)
	sda3 := mustPartition(t, session, disk, "sda3", 3, 10_000)

	var ops []*Operation
	for _, p := range []*Device{sda1, sda2, sda3} {
		op, err := NewOperationCreateDevice(session, p)
		if err != nil {
			t.Fatalf("NewOperationCreateDevice: %v", err)
		}
		if err := tree.AddOperation(op); err != nil {
			t.Fatalf("AddOperation: %v", err)
		}
		ops = append(ops, op)
	}

	sorted, err := tree.ProcessOperations()
	if err != nil {
		t.Fatalf("ProcessOperations: %v", err)
	}
	if len(sorted) != 3 {
		t.Fatalf("expected 3 operations, got %d", len(sorted))
	}
	for i, op := range sorted {
		if op.Device.Name != ops[i].Device.Name {
			t.Errorf("position %d: expected %s, got %s", i, ops[i].Device.Name, op.Device.Name)
		}
	}

	// Now destroy all three -- must sort high-to-low.
	session2 := NewSession()
	tree2 := NewDeviceTree(session2)
	disk2 := newTestDisk(t, session2, tree2, "sda", 1_000_000)
	p1 := mustPartition(t, session2, disk2, "sda1", 1, 10_000)
	p2 := mustPartition(t, session2, disk2, "sda2", 2, 10_000)
	p3 := mustPartition(t, session2, disk2, "sda3", 3, 10_000)
	for _, p := range []*Device{p1, p2, p3} {
		if err := tree2.AddDevice(p); err != nil {
			t.Fatalf("seed AddDevice: %v", err)
		}
	}

	for _, p := range []*Device{p1, p2, p3} {
		op := NewOperationDestroyDevice(session2, p)
		if err := tree2.AddOperation(op); err != nil {
			t.Fatalf("AddOperation destroy %s: %v", p.Name, err)
		}
	}

	destroySorted, err := tree2.ProcessOperations()
	if err != nil {
		t.Fatalf("ProcessOperations destroy: %v", err)
	}
	want := []string{"sda3", "sda2", "sda1"}
	if len(destroySorted) != 3 {
		t.Fatalf("expected 3 destroy operations, got %d", len(destroySorted))
	}
	for i, op := range destroySorted {
		if op.Device.Name != want[i] {
			t.Errorf("destroy position %d: expected %s, got %s", i, want[i], op.Device.Name)
		}
	}
}

// TestObsoletedResize is scenario 2 (spec §8).
func TestObsoletedResize(t *testing.T) {
	session := NewSession()
	tree := NewDeviceTree(session)
	disk := newTestDisk(t, session, tree, "sda", 1_000_000)
	lvRoot, err := NewPartition(session, "lv_root", disk, true, 160_000, PartitionData{Number: 1})
	if err != nil {
		t.Fatalf("NewPartition: %v", err)
	}
	f, err := NewFormat(FormatExt4, "/dev/lv_root", true)
	if err != nil {
		t.Fatalf("NewFormat: %v", err)
	}
	f.TargetSize = 160_000
	f.CurrentSize = 160_000
	lvRoot.Format = f
	if err := tree.AddDevice(lvRoot); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}

	op1, err := NewOperationResizeFormat(session, lvRoot, 155_000)
	if err != nil {
		t.Fatalf("NewOperationResizeFormat 1: %v", err)
	}
	if err := tree.AddOperation(op1); err != nil {
		t.Fatalf("AddOperation 1: %v", err)
	}

	op2, err := NewOperationResizeFormat(session, lvRoot, 150_000)
	if err != nil {
		t.Fatalf("NewOperationResizeFormat 2: %v", err)
	}
	if err := tree.AddOperation(op2); err != nil {
		t.Fatalf("AddOperation 2: %v", err)
	}

	if got := len(tree.Pending()); got != 2 {
		t.Fatalf("expected 2 pending before prune, got %d", got)
	}

	tree.PruneOperations()

	remaining := tree.FindOperations(OperationFilter{Device: lvRoot})
	if len(remaining) != 1 {
		t.Fatalf("expected exactly 1 surviving operation, got %d", len(remaining))
	}
	if remaining[0].NewSize != 150_000 {
		t.Errorf("expected surviving resize to target 150000, got %d", remaining[0].NewSize)
	}
}

// TestCreateDestroyCycle is scenario 3 (spec §8).
func TestCreateDestroyCycle(t *testing.T) {
	session := NewSession()
	tree := NewDeviceTree(session)

	sda := newTestDisk(t, session, tree, "sda", 1_000_000)
	sda3 := mustPartition(t, session, sda, "sda3", 3, 100_000)
	opCreateSda3, err := NewOperationCreateDevice(session, sda3)
	if err != nil {
		t.Fatal(err)
	}
	if err := tree.AddOperation(opCreateSda3); err != nil {
		t.Fatal(err)
	}

	sdb := newTestDisk(t, session, tree, "sdb", 1_000_000)
	sdb1 := mustPartition(t, session, sdb, "sdb1", 1, 40_000)

	opCreateSdb1, err := NewOperationCreateDevice(session, sdb1)
	if err != nil {
		t.Fatal(err)
	}
	if err := tree.AddOperation(opCreateSdb1); err != nil {
		t.Fatal(err)
	}

	mdFormat, err := NewFormat(FormatMdMember, sdb1.Path(), false)
	if err != nil {
		t.Fatal(err)
	}
	opFormatSdb1 := NewOperationCreateFormat(session, sdb1, mdFormat)
	if err := tree.AddOperation(opFormatSdb1); err != nil {
		t.Fatal(err)
	}

	md0 := NewRaidArray(session, "md0", []*Device{sda3, sdb1}, false, 140_000, RaidArrayData{Level: "1"})
	opCreateMd0, err := NewOperationCreateDevice(session, md0)
	if err != nil {
		t.Fatal(err)
	}
	if err := tree.AddOperation(opCreateMd0); err != nil {
		t.Fatal(err)
	}

	md0Format, err := NewFormat(FormatExt4, md0.Path(), false)
	if err != nil {
		t.Fatal(err)
	}
	opFormatMd0 := NewOperationCreateFormat(session, md0, md0Format)
	if err := tree.AddOperation(opFormatMd0); err != nil {
		t.Fatal(err)
	}

	if err := tree.AddOperation(NewOperationDestroyFormat(session, md0)); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddOperation(NewOperationDestroyDevice(session, md0)); err != nil {
		t.Fatal(err)
	}
	// md0's destroy above removed it from the tree's child-reference count,
	// so sda3 and sdb1 are leaves again and may now be scheduled for
	// destruction themselves.
	if err := tree.AddOperation(NewOperationDestroyDevice(session, sdb1)); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddOperation(NewOperationDestroyDevice(session, sda3)); err != nil {
		t.Fatal(err)
	}

	tree.PruneOperations()

	if got := len(tree.Pending()); got != 0 {
		t.Fatalf("expected 0 operations after prune, got %d", got)
	}
	if _, ok := tree.GetDeviceByID(sda3.ID()); ok {
		t.Error("sda3 should be absent from the tree after prune")
	}
	if _, ok := tree.GetDeviceByID(sdb1.ID()); ok {
		t.Error("sdb1 should be absent from the tree after prune")
	}
}
