// Copyright © 2020 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import "testing"

func TestNewFormatRejectsRelativePath(t *testing.T) {
	if _, err := NewFormat(FormatExt4, "not/absolute", false); err == nil {
		t.Fatal("expected error for relative device path")
	}
}

func TestVfatDefaultsBootable(t *testing.T) {
	f, err := NewFormat(FormatVfat, "/dev/sda1", false)
	if err != nil {
		t.Fatal(err)
	}
	if !f.Bootable() {
		t.Error("expected vfat format to default bootable=true")
	}
}

func TestExt4DefaultsNotBootable(t *testing.T) {
	f, err := NewFormat(FormatExt4, "/dev/sda1", false)
	if err != nil {
		t.Fatal(err)
	}
	if f.Bootable() {
		t.Error("expected ext4 format to default bootable=false")
	}
	f.SetBootable(true)
	if !f.Bootable() {
		t.Error("expected explicit SetBootable(true) to override the default")
	}
}

func TestFormatMigrationChain(t *testing.T) {
	f, err := NewFormat(FormatExt2, "/dev/sda1", true)
	if err != nil {
		t.Fatal(err)
	}
	target, ok := f.MigrationTarget()
	if !ok || target != FormatExt3 {
		t.Fatalf("expected ext2 to migrate to ext3, got %v ok=%v", target, ok)
	}
	if !f.Migratable() {
		t.Error("expected existing ext2 format to be migratable")
	}

	f.Exists = false
	if f.Migratable() {
		t.Error("a non-existent format should never be migratable")
	}
}

func TestResizableRequiresExists(t *testing.T) {
	f, err := NewFormat(FormatExt4, "/dev/sda1", false)
	if err != nil {
		t.Fatal(err)
	}
	if f.Resizable() {
		t.Error("a non-existent format should never be resizable")
	}
	f.Exists = true
	if !f.Resizable() {
		t.Error("an existing ext4 format should be resizable")
	}
}

func TestFormatKindByName(t *testing.T) {
	cases := map[string]FormatKind{
		"ext4":      FormatExt4,
		"Ext4":      FormatExt4,
		"ext-4":     FormatExt4,
		"lvmpv":     FormatLvmPV,
		"lvm_pv":    FormatLvmPV,
		"md-member": FormatMdMember,
		"swap":      FormatSwap,
	}
	for name, want := range cases {
		got, err := FormatKindByName(name)
		if err != nil {
			t.Errorf("FormatKindByName(%q): %v", name, err)
			continue
		}
		if got != want {
			t.Errorf("FormatKindByName(%q) = %v, want %v", name, got, want)
		}
	}

	if _, err := FormatKindByName("not-a-real-format"); err == nil {
		t.Error("expected error for unknown format kind")
	}
}

func TestDefaultFilesystemKind(t *testing.T) {
	kind, err := DefaultFilesystemKind()
	if err != nil {
		t.Fatal(err)
	}
	if kind != FormatExt4 {
		t.Errorf("expected default filesystem kind ext4, got %v", kind)
	}
}

func TestFormatCloneIsDetached(t *testing.T) {
	f, err := NewFormat(FormatVfat, "/dev/sda1", true)
	if err != nil {
		t.Fatal(err)
	}
	f.SetBootable(false)
	clone := f.Clone()

	clone.SetBootable(true)
	if f.Bootable() {
		t.Error("mutating the clone's bootable flag should not affect the original")
	}
}
