// Copyright © 2020 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package blockio

import (
	"sort"
	"testing"
)

func TestGetStartEndMB(t *testing.T) {
	tests := []struct {
		start, end uint64
		want       string
	}{
		{0, 100 * 1000 * 1000, "0% 100M"},
		{50 * 1000 * 1000, 0, "50M -1"},
		{10 * 1000 * 1000, 20 * 1000 * 1000, "10M 20M"},
	}
	for _, tc := range tests {
		if got := getStartEndMB(tc.start, tc.end); got != tc.want {
			t.Errorf("getStartEndMB(%d, %d) = %q, want %q", tc.start, tc.end, got, tc.want)
		}
	}
}

func TestFindNewPartition(t *testing.T) {
	current := []*PartedPartition{{Number: 1}, {Number: 2}}
	next := []*PartedPartition{{Number: 1}, {Number: 2}, {Number: 3}}

	found := findNewPartition(current, next)
	if found.Number != 3 {
		t.Errorf("expected the new partition (number 3) to be found, got %+v", found)
	}
}

func TestFindNewPartitionNoneAdded(t *testing.T) {
	current := []*PartedPartition{{Number: 1}}
	found := findNewPartition(current, current)
	if found.Number != 0 {
		t.Errorf("expected a zero-value result when no partition was added, got %+v", found)
	}
}

func TestMakePartCommands(t *testing.T) {
	bd := &BlockDevice{MountPoint: "/", FsType: "ext4"}
	cmd, err := commonMakePartCommand(bd)
	if err != nil {
		t.Fatal(err)
	}
	if cmd != "mkpart /" {
		t.Errorf("commonMakePartCommand = %q, want %q", cmd, "mkpart /")
	}

	swap := &BlockDevice{FsType: "swap"}
	cmd, err = swapMakePartCommand(swap)
	if err != nil {
		t.Fatal(err)
	}
	if cmd != "mkpart linux-swap" {
		t.Errorf("swapMakePartCommand = %q, want %q", cmd, "mkpart linux-swap")
	}

	vfat := &BlockDevice{FsType: "vfat"}
	cmd, err = vfatMakePartCommand(vfat)
	if err != nil {
		t.Fatal(err)
	}
	if cmd != "mkpart EFI fat32" {
		t.Errorf("vfatMakePartCommand = %q, want %q", cmd, "mkpart EFI fat32")
	}
}

func TestGetMakeFsLabelTruncates(t *testing.T) {
	bd := &BlockDevice{FsType: "ext4", Label: "this-label-is-definitely-too-long-for-ext4"}
	label := getMakeFsLabel(bd)
	if len(label) != 2 || label[0] != "-L" {
		t.Fatalf("unexpected label args: %v", label)
	}
	if len(bd.Label) > MaxLabelLength("ext4") {
		t.Errorf("expected label to be truncated to at most %d chars, got %q (%d)",
			MaxLabelLength("ext4"), bd.Label, len(bd.Label))
	}
}

func TestByBDNameSortsNumerically(t *testing.T) {
	devices := []*BlockDevice{
		{Name: "sda10"},
		{Name: "sda2"},
		{Name: "sda1"},
	}
	sort.Sort(ByBDName(devices))

	want := []string{"sda1", "sda2", "sda10"}
	for i, w := range want {
		if devices[i].Name != w {
			t.Errorf("position %d: got %q, want %q", i, devices[i].Name, w)
		}
	}
}

func TestGetGUIDByMountPoint(t *testing.T) {
	bd := &BlockDevice{MountPoint: "/home"}
	guid, err := bd.getGUID()
	if err != nil {
		t.Fatal(err)
	}
	if guid != guidMap["/home"] {
		t.Errorf("getGUID() = %q, want %q", guid, guidMap["/home"])
	}
}

func TestGetGUIDEFISpecialCase(t *testing.T) {
	bd := &BlockDevice{FsType: "vfat", MountPoint: "/boot"}
	guid, err := bd.getGUID()
	if err != nil {
		t.Fatal(err)
	}
	if guid != guidMap["efi"] {
		t.Errorf("getGUID() = %q, want the efi guid %q", guid, guidMap["efi"])
	}
}

func TestGetGUIDUnknown(t *testing.T) {
	bd := &BlockDevice{MountPoint: "/opt", FsType: "ext4"}
	if _, err := bd.getGUID(); err == nil {
		t.Error("expected an error for a mount point with no known guid")
	}
}
