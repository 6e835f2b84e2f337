// Copyright © 2020 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import "testing"

// TestNewOperationResizeDeviceRejectsVolumeGroup mirrors the original
// installer's operation_test.py: a volume group is never a resizable
// device kind, so constructing a resize against one must fail regardless
// of whether it exists.
func TestNewOperationResizeDeviceRejectsVolumeGroup(t *testing.T) {
	session := NewSession()
	pv := NewDisk(session, "sda", 10240, DiskData{})
	vg := NewVolumeGroup(session, "vg0", []*Device{pv}, true, 4096, VolumeGroupData{})

	if _, err := NewOperationResizeDevice(session, vg, vg.TargetSize+32); err == nil {
		t.Fatal("expected error resizing a volume group, which is never a resizable device kind")
	}
}

func TestNewOperationResizeDeviceRejectsRaidArray(t *testing.T) {
	session := NewSession()
	pv1 := NewDisk(session, "sda", 10240, DiskData{})
	pv2 := NewDisk(session, "sdb", 10240, DiskData{})
	raid := NewRaidArray(session, "md0", []*Device{pv1, pv2}, true, 10240, RaidArrayData{Level: "1"})

	if _, err := NewOperationResizeDevice(session, raid, raid.TargetSize+32); err == nil {
		t.Fatal("expected error resizing a raid array, which is never a resizable device kind")
	}
}

func TestNewOperationResizeDeviceAcceptsExistingPartition(t *testing.T) {
	session := NewSession()
	disk := NewDisk(session, "sda", 10240, DiskData{})
	part, err := NewPartition(session, "sda1", disk, true, 4096, PartitionData{Number: 1})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewOperationResizeDevice(session, part, 2048); err != nil {
		t.Fatalf("expected resizing an existing partition to succeed, got %v", err)
	}
}

func TestNewOperationResizeDeviceRejectsNonExistentDevice(t *testing.T) {
	session := NewSession()
	disk := NewDisk(session, "sda", 10240, DiskData{})
	part, err := NewPartition(session, "sda1", disk, false, 4096, PartitionData{Number: 1})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewOperationResizeDevice(session, part, 2048); err == nil {
		t.Fatal("expected error resizing a partition that does not exist yet")
	}
}
