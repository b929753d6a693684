// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/patrickbr/gtfsreconcile/logging"
)

// NATSNotifier publishes progress updates as JSON on
// <prefix>.<run>.<stage>
type NATSNotifier struct {
	nc     *nats.Conn
	prefix string
	logger *slog.Logger
}

func NewNATSNotifier(url string, prefix string, logger *slog.Logger) (*NATSNotifier, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	nc, err := nats.Connect(url,
		nats.Name("gtfsreconcile"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			logger.Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Debug("nats closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	if prefix == "" {
		prefix = "reconcile"
	}
	return &NATSNotifier{nc: nc, prefix: prefix, logger: logger}, nil
}

func (n *NATSNotifier) Notify(p Progress) {
	b, err := json.Marshal(p)
	if err != nil {
		logging.LogError(n.logger, "failed to encode progress", err)
		return
	}
	if err := n.nc.Publish(Subject(n.prefix, p), b); err != nil {
		logging.LogError(n.logger, "failed to publish progress", err,
			slog.String("stage", p.Stage))
	}
}

func (n *NATSNotifier) Close() {
	if n.nc != nil {
		n.nc.Drain()
		n.nc.Close()
	}
}

// Subject returns the subject an update is published on
func Subject(prefix string, p Progress) string {
	return fmt.Sprintf("%s.%s.%s", prefix, subjectToken(p.Run), subjectToken(p.Stage))
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS tokens cannot contain spaces, '>', '*', or '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
