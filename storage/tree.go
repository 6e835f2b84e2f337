// Copyright © 2020 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import (
	"github.com/clearlinux/storage-planner/errors"
)

// DeviceTree holds the set of known devices, indexed by id and by name, and
// the ordered list of pending operations (spec §4.1). It is owned
// exclusively by the planner; callers mutate it only through AddDevice,
// AddOperation and RemoveOperation.
type DeviceTree struct {
	session     *Session
	devicesByID map[uint64]*Device
	byName      map[string]*Device
	pending     []*Operation
}

// NewDeviceTree returns an empty tree bound to session.
func NewDeviceTree(session *Session) *DeviceTree {
	return &DeviceTree{
		session:     session,
		devicesByID: map[uint64]*Device{},
		byName:      map[string]*Device{},
	}
}

// AddDevice inserts d into the tree and increments each parent's kids
// counter. Fails if a device with the same id is already present.
func (t *DeviceTree) AddDevice(d *Device) error {
	if _, ok := t.devicesByID[d.ID()]; ok {
		return errors.KindErrorf(errors.KindDeviceTreeError, "device id %d already present in tree", d.ID())
	}
	t.devicesByID[d.ID()] = d
	t.byName[d.Name] = d
	for _, p := range d.Parents {
		p.addChild()
	}
	return nil
}

// RemoveDevice removes d from the tree. Fails unless d is currently a leaf.
func (t *DeviceTree) RemoveDevice(d *Device) error {
	if !d.IsLeaf() {
		return errors.KindErrorf(errors.KindDeviceTreeError, "device %q still has dependents, cannot remove", d.Name)
	}
	t.forceRemoveDevice(d)
	return nil
}

// forceRemoveDevice removes d unconditionally, used by pruning's
// create/destroy cycle collapse (§4.5) which purges a device regardless of
// leaf status since every operation referencing it is dropped in the same
// step.
func (t *DeviceTree) forceRemoveDevice(d *Device) {
	delete(t.devicesByID, d.ID())
	delete(t.byName, d.Name)
	for _, p := range d.Parents {
		p.removeChild()
	}
}

// GetDeviceByID looks up a device by id.
func (t *DeviceTree) GetDeviceByID(id uint64) (*Device, bool) {
	d, ok := t.devicesByID[id]
	return d, ok
}

// GetDeviceByName looks up a device by name, returning nil if absent.
func (t *DeviceTree) GetDeviceByName(name string) *Device {
	return t.byName[name]
}

// Devices returns every device currently in the tree, in no particular order.
func (t *DeviceTree) Devices() []*Device {
	out := make([]*Device, 0, len(t.devicesByID))
	for _, d := range t.devicesByID {
		out = append(out, d)
	}
	return out
}

// Children returns every device in the tree whose Parents include d.
func (t *DeviceTree) Children(d *Device) []*Device {
	var out []*Device
	for _, c := range t.devicesByID {
		for _, p := range c.Parents {
			if p == d {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// AddOperation validates op (§4.3 constructor preconditions already ran;
// this validates registration-time tree-state rules), appends it to the
// pending list, and applies its eager mutation (§4.1).
func (t *DeviceTree) AddOperation(op *Operation) error {
	if op.Type != OpCreate || op.Object != ObjectDevice {
		if _, ok := t.devicesByID[op.Device.ID()]; !ok {
			return errors.KindErrorf(errors.KindDeviceTreeError, "operation targets device %q not present in tree", op.Device.Name)
		}
	}

	if op.Type == OpDestroy && op.Object == ObjectDevice && !op.Device.IsLeaf() {
		return errors.KindErrorf(errors.KindDeviceTreeError, "device %q is not a leaf, cannot schedule destruction", op.Device.Name)
	}

	switch {
	case op.Type == OpCreate && op.Object == ObjectDevice:
		if err := t.AddDevice(op.Device); err != nil {
			return err
		}
	case op.Type == OpDestroy && op.Object == ObjectDevice:
		t.forceRemoveDevice(op.Device)
	case op.Type == OpCreate && op.Object == ObjectFormat:
		op.Device.Format = op.NewFormat
	case op.Type == OpDestroy && op.Object == ObjectFormat:
		op.Device.Format = NullFormat()
	case op.Type == OpResize && op.Object == ObjectDevice:
		op.savedSize = op.Device.TargetSize
		op.Device.TargetSize = op.NewSize
	case op.Type == OpResize && op.Object == ObjectFormat:
		op.Device.Format.TargetSize = op.NewSize
	case op.Type == OpMigrate:
		op.Device.Format.Migrate = true
	}

	op.registered = true
	t.pending = append(t.pending, op)
	return nil
}

// RemoveOperation reverses op's eager mutation and removes it from the
// pending list; used to cancel.
func (t *DeviceTree) RemoveOperation(op *Operation) error {
	idx := -1
	for i, p := range t.pending {
		if p == op {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errors.KindErrorf(errors.KindDeviceTreeError, "operation %d is not registered", op.ID())
	}

	switch {
	case op.Type == OpCreate && op.Object == ObjectDevice:
		if err := t.RemoveDevice(op.Device); err != nil {
			return err
		}
	case op.Type == OpDestroy && op.Object == ObjectDevice:
		if err := t.AddDevice(op.Device); err != nil {
			return err
		}
	case op.Type == OpCreate && op.Object == ObjectFormat:
		op.Device.Format = op.savedFormat
	case op.Type == OpDestroy && op.Object == ObjectFormat:
		op.Device.Format = op.savedFormat
	case op.Type == OpResize && op.Object == ObjectDevice:
		op.Device.TargetSize = op.savedSize
	case op.Type == OpResize && op.Object == ObjectFormat:
		op.Device.Format.TargetSize = op.savedSize
	case op.Type == OpMigrate:
		op.Device.Format.Migrate = op.savedMigrate
	}

	op.registered = false
	t.pending = append(t.pending[:idx], t.pending[idx+1:]...)
	return nil
}

// OperationFilter selects a subset of the pending list for FindOperations.
// A nil field means "don't filter on this dimension".
type OperationFilter struct {
	Device *Device
	Type   *OperationType
	Object *OperationObject
}

// FindOperations returns every pending operation matching filter.
func (t *DeviceTree) FindOperations(filter OperationFilter) []*Operation {
	var out []*Operation
	for _, op := range t.pending {
		if filter.Device != nil && op.Device != filter.Device {
			continue
		}
		if filter.Type != nil && op.Type != *filter.Type {
			continue
		}
		if filter.Object != nil && op.Object != *filter.Object {
			continue
		}
		out = append(out, op)
	}
	return out
}

// Pending returns the current pending list, in registration order.
func (t *DeviceTree) Pending() []*Operation {
	out := make([]*Operation, len(t.pending))
	copy(out, t.pending)
	return out
}

// PruneOperations runs the fixed-point pruning algorithm of §4.5 over the
// pending list in place.
func (t *DeviceTree) PruneOperations() {
	pruneOperations(t)
}

// ProcessOperations prunes the pending list and returns the sorted execution
// sequence (§4.6). After this call the returned sequence is ready to
// execute; the tree's pending list itself is left pruned but unsorted.
func (t *DeviceTree) ProcessOperations() ([]*Operation, error) {
	t.PruneOperations()
	return sortPending(t.pending)
}
