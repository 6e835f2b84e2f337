// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package model

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/clearlinux/storage-planner/args"
	"github.com/clearlinux/storage-planner/errors"
	"github.com/clearlinux/storage-planner/storage"
	"github.com/clearlinux/storage-planner/utils"
)

// Version identifies the plan-descriptor schema; bumped whenever a
// field is added or reinterpreted.
var Version = "1.0.0"

var testAlias = []string{}

// PlanDescriptor is the on-disk, yaml-serializable description of what the
// auto-partitioner should do: which choice to run, over which disks, with
// which layout overrides. It exists because the planner's own Device/Format
// graph is a pointer-linked in-memory structure (spec §9's "arena indexed by
// id") that doesn't round-trip cleanly through yaml -- this is the
// serializable *intent* a wizard screen collects before any Device or
// Operation is ever constructed.
type PlanDescriptor struct {
	Choice        storage.AutoPartChoice `yaml:"choice"`
	TargetDisks   []string               `yaml:"targetDisks"`
	StorageAlias  []*StorageAlias        `yaml:"block-devices,omitempty,flow"`
	CryptPassFile string                 `yaml:"cryptPassFile,omitempty,flow"`
	LegacyBios    bool                   `yaml:"legacyBios,omitempty,flow"`
	ShrinkDisk    string                 `yaml:"shrinkDisk,omitempty,flow"`
	ShrinkSize    uint64                 `yaml:"shrinkSize,omitempty,flow"` // MiB, the new partition size after shrinking
	Version       uint                   `yaml:"version,omitempty,flow"`
}

// StorageAlias expands a variable used in TargetDisks entries: a disk name
// can be declared as "${alias}" where alias was previously declared pointing
// at a real device file, e.g.
//
//	block-devices: [{name: "alias", file: "/dev/nvme0n1"}]
type StorageAlias struct {
	Name       string `yaml:"name,omitempty,flow"`
	File       string `yaml:"file,omitempty,flow"`
	DeviceFile bool
}

// Validate checks the descriptor for the minimum information the
// auto-partitioner needs to run.
func (pd *PlanDescriptor) Validate() error {
	if pd == nil {
		return errors.ValidationErrorf("plan descriptor is nil")
	}

	if len(pd.TargetDisks) == 0 {
		return errors.ValidationErrorf("plan descriptor must name at least one target disk")
	}

	switch pd.Choice {
	case storage.ChoiceClearAll, storage.ChoiceClearLinuxOnly, storage.ChoiceUseFreeSpace:
	case storage.ChoiceShrinkExisting:
		if pd.ShrinkDisk == "" || pd.ShrinkSize == 0 {
			return errors.ValidationErrorf("shrink-existing requires shrinkDisk and shrinkSize")
		}
	default:
		return errors.ValidationErrorf("unknown auto-partition choice %q", pd.Choice)
	}

	return nil
}

// AddTargetDisk appends name to TargetDisks, skipping duplicates.
func (pd *PlanDescriptor) AddTargetDisk(name string) {
	for _, curr := range pd.TargetDisks {
		if curr == name {
			return
		}
	}
	pd.TargetDisks = append(pd.TargetDisks, name)
}

// LoadFile loads a PlanDescriptor from a yaml file at path, applying any
// --block-device aliases passed on the command line.
func LoadFile(path string, opts args.Args) (*PlanDescriptor, error) {
	var result PlanDescriptor
	result.Choice = storage.ChoiceUseFreeSpace

	if _, err := os.Stat(path); err == nil {
		configStr, err := ioutil.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err)
		}

		if err := yaml.Unmarshal(configStr, &result); err != nil {
			return nil, errors.Wrap(err)
		}
	}

	tmp := map[string]*StorageAlias{}
	for _, sa := range result.StorageAlias {
		tmp[sa.Name] = sa
	}
	for _, bds := range opts.BlockDevices {
		tks := strings.Split(bds, ":")
		if len(tks) < 2 {
			continue
		}
		tmp[tks[0]] = &StorageAlias{Name: tks[0], File: tks[1]}
	}

	result.StorageAlias = nil
	for _, sa := range tmp {
		result.StorageAlias = append(result.StorageAlias, sa)
	}

	if len(result.StorageAlias) > 0 {
		alias := map[string]string{}
		keepMe := []*StorageAlias{}

		for _, curr := range result.StorageAlias {
			if !isAliasInUse(result.TargetDisks, curr) {
				continue
			}

			fi, err := os.Lstat(curr.File)
			inTestAlias := isTestAlias(curr.File)

			// could be an image file to be created, so fail only when the
			// error doesn't just mean "not there yet".
			if err != nil && !inTestAlias && !os.IsNotExist(err) {
				return nil, errors.Wrap(err)
			}

			keepMe = append(keepMe, curr)

			if !inTestAlias && os.IsNotExist(err) {
				continue
			}
			if (fi != nil && fi.Mode()&os.ModeDevice == 0) && !inTestAlias {
				continue
			}

			curr.DeviceFile = true
			alias[curr.Name] = filepath.Base(curr.File)
		}

		result.StorageAlias = keepMe

		for i, name := range result.TargetDisks {
			result.TargetDisks[i] = expandAlias(name, alias)
		}
	}

	if result.Version > 0 {
		// a versioned descriptor was hand-authored or migrated; nothing
		// else to default.
		return &result, nil
	}

	return &result, nil
}

func expandAlias(name string, alias map[string]string) string {
	for k, v := range alias {
		name = strings.ReplaceAll(name, "${"+k+"}", v)
	}
	return name
}

func isAliasInUse(names []string, alias *StorageAlias) bool {
	rep := "${" + alias.Name + "}"
	for _, name := range names {
		if strings.Contains(name, rep) {
			return true
		}
	}
	return false
}

func isTestAlias(file string) bool {
	if len(testAlias) == 0 {
		return false
	}
	return utils.StringSliceContains(testAlias, file)
}

// WriteFile writes a yaml-formatted representation of pd to path.
func (pd *PlanDescriptor) WriteFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	b, err := yaml.Marshal(pd)
	if err != nil {
		return err
	}

	if _, err := f.WriteString("#storage-planner-config\n"); err != nil {
		return err
	}
	if _, err := f.WriteString("#generated by storage-planner:" + Version + "\n"); err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		return err
	}

	return nil
}
