// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

// Command storage-planner loads (or starts) a plan descriptor, probes the
// system's block devices, runs the auto-partitioner, and either prints or
// executes the resulting operation sequence.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/nightlyone/lockfile"

	"github.com/clearlinux/storage-planner/args"
	"github.com/clearlinux/storage-planner/blockio"
	"github.com/clearlinux/storage-planner/errors"
	"github.com/clearlinux/storage-planner/log"
	"github.com/clearlinux/storage-planner/model"
	"github.com/clearlinux/storage-planner/progress"
	"github.com/clearlinux/storage-planner/storage"
	"github.com/clearlinux/storage-planner/utils"
)

func main() {
	if err := run(); err != nil {
		log.ErrorError(err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var opts args.Args
	if err := opts.ParseArgs(); err != nil {
		return err
	}

	if opts.Version {
		fmt.Println(model.Version)
		return nil
	}

	log.SetLogLevel(opts.LogLevel)
	if opts.LogFile != "" {
		f, err := log.SetOutputFilename(opts.LogFile)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
	}

	if !opts.DryRun {
		if errString := utils.VerifyRootUser(); errString != "" {
			return errors.KindErrorf(errors.KindInvalidArgument, "%s", errString)
		}

		lockPath := strings.TrimSuffix(opts.LogFile, ".log") + ".lock"
		if lockPath == ".lock" {
			lockPath = "/var/run/storage-planner.lock"
		}
		lock, err := lockfile.New(lockPath)
		if err != nil {
			return err
		}
		if err := lock.TryLock(); err != nil {
			return errors.KindErrorf(errors.KindInvalidArgument, "another storage-planner run holds %q: %v", lockPath, err)
		}
		defer func() { _ = lock.Unlock() }()
	}

	pd, err := loadOrInitDescriptor(opts)
	if err != nil {
		return err
	}
	if err := pd.Validate(); err != nil {
		return err
	}

	if pd.CryptPassFile != "" {
		storage.PassphraseSource = func(*storage.Device) (string, error) {
			b, err := os.ReadFile(pd.CryptPassFile)
			if err != nil {
				return "", err
			}
			return strings.TrimSpace(string(b)), nil
		}
	}

	userDefined, err := userDefinedBlockDevices(pd)
	if err != nil {
		return err
	}
	probed, err := blockio.ListAvailableBlockDevices(userDefined)
	if err != nil {
		return err
	}

	session := storage.NewSession()
	tree := storage.NewDeviceTree(session)
	if err := storage.SeedTree(session, tree, probed); err != nil {
		return err
	}

	var targets []*storage.Device
	for _, name := range pd.TargetDisks {
		d := tree.GetDeviceByName(name)
		if d == nil {
			return errors.KindErrorf(errors.KindInvalidArgument, "target disk %q not found by the prober", name)
		}
		targets = append(targets, d)
	}

	planner := storage.NewAutoPartitioner(session, tree)

	var ops []*storage.Operation
	if pd.Choice == storage.ChoiceShrinkExisting {
		part := tree.GetDeviceByName(pd.ShrinkDisk)
		if part == nil {
			return errors.KindErrorf(errors.KindInvalidArgument, "shrink target %q not found by the prober", pd.ShrinkDisk)
		}
		ops, err = planner.ShrinkAndPlan(part, pd.ShrinkSize)
	} else {
		ops, err = planner.Plan(pd.Choice, targets)
	}
	if err != nil {
		return err
	}

	for _, op := range ops {
		fmt.Printf("#%d %s\n", op.ID(), op)
	}

	if opts.DryRun {
		return nil
	}

	client := progress.NewConsole()
	progress.Set(client)
	for _, op := range ops {
		if err := op.Execute(tree, client); err != nil {
			return err
		}
	}

	return nil
}

func loadOrInitDescriptor(opts args.Args) (*model.PlanDescriptor, error) {
	if opts.ConfigFile == "" {
		pd := &model.PlanDescriptor{Choice: storage.AutoPartChoice(opts.Choice), CryptPassFile: opts.CryptPassFile}
		for _, d := range opts.Disks {
			pd.AddTargetDisk(d)
		}
		return pd, nil
	}

	pd, err := model.LoadFile(opts.ConfigFile, opts)
	if err != nil {
		return nil, err
	}
	if opts.Choice != "" {
		pd.Choice = storage.AutoPartChoice(opts.Choice)
	}
	for _, d := range opts.Disks {
		pd.AddTargetDisk(d)
	}
	pd.CryptPassFile = opts.CryptPassFile
	return pd, nil
}

func userDefinedBlockDevices(pd *model.PlanDescriptor) ([]*blockio.BlockDevice, error) {
	var out []*blockio.BlockDevice
	for _, sa := range pd.StorageAlias {
		if !sa.DeviceFile {
			continue
		}
		out = append(out, &blockio.BlockDevice{Name: sa.Name, UserDefined: true})
	}
	return out, nil
}
