// Copyright © 2020 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import (
	"sort"

	"github.com/clearlinux/storage-planner/errors"
)

// edge is a (parent, child) pair meaning "parent before child" (spec §4.7).
type edge struct {
	parent *Operation
	child  *Operation
}

// topoSort performs a Kahn-style topological sort over items using the given
// edges. Ties among simultaneously-ready roots are broken by ascending
// operation id, which is what makes two runs that register the same
// operation set in the same order produce byte-identical output (spec §5).
func topoSort(items []*Operation, edges []edge) ([]*Operation, error) {
	if len(items) == 0 {
		return nil, nil
	}

	incoming := make(map[*Operation]int, len(items))
	children := make(map[*Operation][]*Operation, len(items))
	for _, it := range items {
		incoming[it] = 0
	}
	for _, e := range edges {
		incoming[e.child]++
		children[e.parent] = append(children[e.parent], e.child)
	}

	var roots []*Operation
	for _, it := range items {
		if incoming[it] == 0 {
			roots = append(roots, it)
		}
	}
	if len(roots) == 0 {
		return nil, errors.KindErrorf(errors.KindCyclicGraph, "no root nodes")
	}

	order := make([]*Operation, 0, len(items))
	visited := make(map[*Operation]bool, len(items))

	for len(roots) > 0 {
		sort.Slice(roots, func(i, j int) bool { return roots[i].ID() < roots[j].ID() })
		root := roots[0]
		roots = roots[1:]

		if visited[root] {
			return nil, errors.KindErrorf(errors.KindCyclicGraph, "graph contains cycles")
		}
		visited[root] = true
		order = append(order, root)

		for _, child := range children[root] {
			incoming[child]--
			if incoming[child] == 0 {
				roots = append(roots, child)
			}
		}
	}

	if len(order) != len(items) {
		return nil, errors.KindErrorf(errors.KindCyclicGraph, "graph contains cycles")
	}

	return order, nil
}
