// Copyright © 2020 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

// sortPending produces the ordered execution sequence for ops (spec §4.6):
// a destructive phase (Destroy Format + Destroy Device + Shrink resizes)
// followed by a constructive phase (Create Device + Create Format + Grow
// resizes + Migrate), each independently topologically sorted by Requires.
func sortPending(ops []*Operation) ([]*Operation, error) {
	var destructive, constructive []*Operation
	for _, op := range ops {
		if op.isDestructivePhase() {
			destructive = append(destructive, op)
		} else {
			constructive = append(constructive, op)
		}
	}

	destructiveSorted, err := sortPhase(destructive)
	if err != nil {
		return nil, err
	}
	constructiveSorted, err := sortPhase(constructive)
	if err != nil {
		return nil, err
	}

	out := make([]*Operation, 0, len(ops))
	out = append(out, destructiveSorted...)
	out = append(out, constructiveSorted...)
	return out, nil
}

// sortPhase builds the requires-edges DAG within a single phase and runs
// topoSort over it.
func sortPhase(ops []*Operation) ([]*Operation, error) {
	var edges []edge
	for _, a := range ops {
		for _, b := range ops {
			if a == b {
				continue
			}
			if a.Requires(b) {
				edges = append(edges, edge{parent: b, child: a})
			}
		}
	}
	return topoSort(ops, edges)
}
