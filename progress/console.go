// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package progress

import (
	"fmt"
	"time"

	"github.com/clearlinux/storage-planner/utils"
)

// Console is a Client implementation that prints progress to stdout,
// degrading to one line per Desc when stdout isn't a tty (piped output, logs).
type Console struct {
	desc     string
	prefix   string
	spinIdx  int
	reported bool
}

// NewConsole returns a Client that writes progress to stdout.
func NewConsole() *Console {
	return &Console{}
}

var spinner = []string{"|", "/", "-", "\\"}

func (c *Console) piped() bool {
	if utils.IsStdoutTTY() {
		return false
	}
	if !c.reported {
		fmt.Println(c.prefix + c.desc)
		c.reported = true
	}
	return true
}

// Desc is part of the Client implementation.
func (c *Console) Desc(printPrefix, desc string) {
	c.prefix = printPrefix + ": "
	c.desc = desc
	c.reported = false
}

// Step is part of the Client implementation.
func (c *Console) Step() {
	if c.piped() {
		return
	}
	fmt.Printf("%s%s [%s]\r", c.prefix, c.desc, spinner[c.spinIdx])
	c.spinIdx = (c.spinIdx + 1) % len(spinner)
}

// Partial is part of the Client implementation.
func (c *Console) Partial(total int, step int) {
	if c.piped() {
		return
	}
	fmt.Printf("%s%s %.0f%%\r", c.prefix, c.desc, (float64(step)/float64(total))*100)
}

// Success is part of the Client implementation.
func (c *Console) Success() {
	if !utils.IsStdoutTTY() {
		return
	}
	c.spinIdx = 0
	fmt.Printf("%s%s [done]\n", c.prefix, c.desc)
}

// Failure is part of the Client implementation.
func (c *Console) Failure() {
	if !utils.IsStdoutTTY() {
		return
	}
	c.spinIdx = 0
	fmt.Printf("%s%s [failed]\n", c.prefix, c.desc)
}

// LoopWaitDuration is part of the Client implementation.
func (c *Console) LoopWaitDuration() time.Duration {
	return 50 * time.Millisecond
}
