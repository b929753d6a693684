// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

// Package notify delivers one-way progress updates of a reconciliation run.
// Notifiers never block the run and never report back.
package notify

import (
	"time"
)

// Progress is a single progress update
type Progress struct {
	Run   string    `json:"run"`
	Stage string    `json:"stage"`
	Done  int       `json:"done"`
	Total int       `json:"total"`
	Time  time.Time `json:"time"`

	// set on the final update of a run
	Finished bool   `json:"finished,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Notifier receives progress updates
type Notifier interface {
	Notify(p Progress)
}

// Nop drops every update
type Nop struct{}

func (Nop) Notify(Progress) {}

// ChanNotifier forwards updates to a channel. Updates are dropped if the
// channel is full.
type ChanNotifier struct {
	C chan Progress
}

// NewChanNotifier creates a ChanNotifier with a buffer of size n
func NewChanNotifier(n int) *ChanNotifier {
	return &ChanNotifier{C: make(chan Progress, n)}
}

func (c *ChanNotifier) Notify(p Progress) {
	select {
	case c.C <- p:
	default:
	}
}

// Multi fans a single update out to several notifiers
type Multi []Notifier

func (m Multi) Notify(p Progress) {
	for _, n := range m {
		if n != nil {
			n.Notify(p)
		}
	}
}
