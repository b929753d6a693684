// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errorCloser struct {
	err error
}

func (e *errorCloser) Close() error {
	return e.err
}

func TestStructuredLogger(t *testing.T) {
	t.Run("respects level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelWarn)

		logger.Info("hidden")
		logger.Warn("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), `"msg":"shown"`)
	})

	t.Run("logs errors with attributes", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		LogError(logger, "group failed", errors.New("boom"), slog.String("group", "80/1/2024"))

		assert.Contains(t, buf.String(), `"level":"ERROR"`)
		assert.Contains(t, buf.String(), `"error":"boom"`)
		assert.Contains(t, buf.String(), `"group":"80/1/2024"`)
	})

	t.Run("skips zero durations", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		LogOperation(logger, "resolved", slog.Duration("duration", 0), slog.Int("groups", 3))

		assert.NotContains(t, buf.String(), "duration")
		assert.Contains(t, buf.String(), `"groups":3`)
	})

	t.Run("nil logger is a no-op", func(t *testing.T) {
		assert.NotPanics(t, func() {
			LogError(nil, "x", errors.New("y"))
			LogOperation(nil, "x")
		})
	})
}

func TestTimed(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(&buf, slog.LevelInfo)

	done := Timed(logger, "stage", slog.String("name", "test"))
	time.Sleep(2 * time.Millisecond)
	d := done()

	assert.True(t, d > 0)
	assert.Contains(t, buf.String(), `"msg":"stage"`)
	assert.Contains(t, buf.String(), `"duration"`)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{"debug": slog.LevelDebug, "": slog.LevelInfo, "WARN": slog.LevelWarn, "error": slog.LevelError} {
		l, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, l)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestSafeClose(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(&buf, slog.LevelInfo)

	SafeCloseWithLogging(&errorCloser{err: assert.AnError}, logger, "write_feed")

	assert.Contains(t, buf.String(), `"msg":"failed to close resource"`)
	assert.Contains(t, buf.String(), `"operation":"write_feed"`)

	buf.Reset()
	SafeCloseWithLogging(&errorCloser{}, logger, "write_feed")
	assert.Empty(t, buf.String())
}

func TestHandleDeferredError(t *testing.T) {
	logger := Discard()

	var err error
	HandleDeferredError(&err, func() error { return assert.AnError }, logger, "flush")
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)

	orig := errors.New("first")
	err = orig
	HandleDeferredError(&err, func() error { return assert.AnError }, logger, "flush")
	assert.Equal(t, orig, err)
}
