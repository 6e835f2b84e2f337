// Copyright © 2020 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

// Obsoletes reports whether op makes other irrelevant (spec §4.5): other can
// be dropped from the pending list once op is registered.
func (op *Operation) Obsoletes(other *Operation) bool {
	if op == other {
		return false
	}

	// Default: same device, same (type, object), A.id > B.id.
	if op.Device == other.Device && op.Type == other.Type && op.Object == other.Object && op.id > other.id {
		return true
	}

	// Create Format A obsoletes any earlier Migrate/Resize Format on the
	// same device.
	if op.Type == OpCreate && op.Object == ObjectFormat && op.Device == other.Device && op.id > other.id {
		if other.Object == ObjectFormat && (other.Type == OpMigrate || other.Type == OpResize) {
			return true
		}
	}

	// Destroy Format A obsoletes any earlier Format operation on the same
	// device. It never obsoletes itself, even when the format does not
	// exist.
	if op.Type == OpDestroy && op.Object == ObjectFormat && op.Device == other.Device && op.id > other.id {
		if other.Object == ObjectFormat {
			return true
		}
	}

	// Destroy Device A obsoletes earlier operations on the same device:
	// for a non-existent device, every earlier operation on it (but not
	// itself: a lone Destroy Device on a non-existent device stays pending
	// unless the create/destroy cycle rule drops it); for an existing
	// device, every earlier operation except Destroy Format (that
	// destruction of content must still run).
	if op.Type == OpDestroy && op.Object == ObjectDevice && op.Device == other.Device && op.id > other.id {
		if !op.Device.Exists {
			return true
		}
		if !(other.Type == OpDestroy && other.Object == ObjectFormat) {
			return true
		}
	}

	return false
}

// pruneOperations runs the fixed-point pruning algorithm of §4.5 over t's
// pending list and returns the surviving operations in original order.
//
// Cycle detection runs before obsoletion within each pass: a Destroy Device
// on a non-existent device also obsoletes its own earlier Create Device
// (same device, "obsoletes every earlier operation"), so if obsoletion ran
// first it would strip the Create half before the cycle rule ever saw the
// pair together. Running the cycle sweep first lets it catch the whole
// create/destroy pair -- and everything else scheduled against that
// device -- in one shot.
func pruneOperations(t *DeviceTree) {
	for {
		before := len(t.pending)

		// Step 1: detect create/destroy cycles and purge the device.
		changed := t.dropCreateDestroyCycles()

		// Step 2: drop any operation obsoleted by a later one.
		t.pending = dropObsoleted(t.pending)

		// Step 3: drop operations whose target device is no longer present
		// and whose own intent isn't "make it no longer present" (a Destroy
		// Device op always finds its own target already gone -- that's the
		// eager mutation working as intended, not orphaning).
		t.pending = t.dropOrphaned(t.pending)

		if len(t.pending) == before && !changed {
			return
		}
	}
}

// dropObsoleted removes any operation in ops that a later operation in ops
// obsoletes.
func dropObsoleted(ops []*Operation) []*Operation {
	keep := make([]*Operation, 0, len(ops))
	for _, op := range ops {
		obsoleted := false
		for _, other := range ops {
			if other.Obsoletes(op) {
				obsoleted = true
				break
			}
		}
		if !obsoleted {
			keep = append(keep, op)
		}
	}
	return keep
}

// dropCreateDestroyCycles finds devices whose pending operations contain both
// a Create Device and a Destroy Device where the device does not
// independently exist, drops every pending operation referencing that
// device, and removes the device from the tree. Returns whether it changed
// anything.
//
// Candidate devices come from the pending list itself, not from the tree's
// current device set: a Destroy Device operation's eager mutation already
// removed its target from the tree at registration time, so by the time
// pruning runs the very device a cycle rule needs to find may no longer be
// there to iterate over.
func (t *DeviceTree) dropCreateDestroyCycles() bool {
	type counts struct{ create, destroy bool }
	seen := map[*Device]*counts{}
	for _, op := range t.pending {
		if op.Object != ObjectDevice || op.Device.Exists {
			continue
		}
		c, ok := seen[op.Device]
		if !ok {
			c = &counts{}
			seen[op.Device] = c
		}
		switch op.Type {
		case OpCreate:
			c.create = true
		case OpDestroy:
			c.destroy = true
		}
	}

	cyclic := map[*Device]bool{}
	for d, c := range seen {
		if c.create && c.destroy {
			cyclic[d] = true
		}
	}

	if len(cyclic) == 0 {
		return false
	}

	keep := make([]*Operation, 0, len(t.pending))
	for _, op := range t.pending {
		if cyclic[op.Device] {
			continue
		}
		keep = append(keep, op)
	}
	t.pending = keep

	for d := range cyclic {
		t.forceRemoveDevice(d)
	}
	return true
}

// dropOrphaned removes any operation whose target device is no longer
// present in the tree, except a Destroy Device operation: its own eager
// mutation is exactly what removed the device, so finding it absent is
// expected, not orphaning.
func (t *DeviceTree) dropOrphaned(ops []*Operation) []*Operation {
	keep := make([]*Operation, 0, len(ops))
	for _, op := range ops {
		if op.Type == OpDestroy && op.Object == ObjectDevice {
			keep = append(keep, op)
			continue
		}
		if _, ok := t.devicesByID[op.Device.ID()]; !ok {
			continue
		}
		keep = append(keep, op)
	}
	return keep
}
