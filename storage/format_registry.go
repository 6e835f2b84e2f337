// Copyright © 2020 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import (
	"strings"

	"github.com/huandu/xstrings"

	"github.com/clearlinux/storage-planner/errors"
)

// defaultFilesystemOrder is the preference order DefaultFilesystemKind walks
// to pick a root filesystem kind when the caller doesn't name one (§6.3).
var defaultFilesystemOrder = []FormatKind{FormatExt4, FormatExt3, FormatExt2}

// formatRegistry maps a format kind's registry name (as it would appear in a
// user-facing layout request, e.g. "ext4", "swap", "lvmpv") to its FormatKind.
var formatRegistry = func() map[string]FormatKind {
	reg := map[string]FormatKind{}
	for k, name := range formatKindNames {
		reg[name] = k
	}
	return reg
}()

// FormatKindByName looks up a format kind by its registry name. Names are
// normalized (snake-cased, lower-cased) before lookup so "Ext4", "ext-4" and
// "ext4" all resolve to the same kind.
func FormatKindByName(name string) (FormatKind, error) {
	normalized := xstrings.ToSnakeCase(name)
	normalized = strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(normalized))

	if kind, ok := formatRegistry[normalized]; ok {
		return kind, nil
	}

	return FormatNone, errors.KindErrorf(errors.KindInvalidArgument, "unknown format kind %q", name)
}

// DefaultFilesystemKind returns the first supported kind in
// defaultFilesystemOrder, mirroring the teacher's "pick ext4, fall back to
// ext3/ext2" policy.
func DefaultFilesystemKind() (FormatKind, error) {
	for _, kind := range defaultFilesystemOrder {
		caps := formatCapabilities[kind]
		if caps.supported {
			return kind, nil
		}
	}
	return FormatNone, errors.KindErrorf(errors.KindInvalidArgument, "no default filesystem kind is supported")
}
