// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package reconcile

import (
	"context"

	"github.com/patrickbr/gtfsreconcile/diagnostics"
	"github.com/patrickbr/gtfsreconcile/notify"
	"github.com/patrickbr/gtfsreconcile/schedule"
)

// Job is a pipeline run in the background. The dataset handed to Start
// must not be touched until the job is done.
type Job struct {
	done chan struct{}
	sink *diagnostics.Sink

	report Report
	err    error
}

// Start runs the pipeline on ds in its own goroutine. The host abandons a
// job by cancelling ctx, which stops it before the next processor.
func (p *Pipeline) Start(ctx context.Context, ds *schedule.Dataset) *Job {
	j := &Job{
		done: make(chan struct{}),
		sink: diagnostics.NewSink(),
	}

	go func() {
		defer close(j.done)

		j.report, j.err = p.Run(ctx, ds, j.sink)
		j.sink.Close()

		final := notify.Progress{Stage: "finished", Done: len(p.Processors), Total: len(p.Processors), Finished: true}
		if j.err != nil {
			final.Error = j.err.Error()
		}
		p.notify(final)
	}()

	return j
}

// Done is closed once the job has finished
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Sink returns the diagnostics of the job. It is only complete once the
// job is done.
func (j *Job) Sink() *diagnostics.Sink {
	return j.sink
}

// Wait blocks until the job is done and returns its result
func (j *Job) Wait() (Report, error) {
	<-j.done
	return j.report, j.err
}
