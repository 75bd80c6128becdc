// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package demux

import (
	"context"

	"github.com/juju/worker/v4"
	"gopkg.in/tomb.v2"
)

type demuxWorker struct {
	tomb  tomb.Tomb
	demux *Demuxer
}

// NewWorker returns a worker that runs d until the stream ends or the
// worker is killed. Killing the worker shuts d down cleanly, closing
// every target.
func NewWorker(d *Demuxer) worker.Worker {
	w := &demuxWorker{demux: d}
	w.tomb.Go(w.loop)
	return w
}

func (w *demuxWorker) loop() error {
	ctx := w.tomb.Context(context.Background())
	return w.demux.Run(ctx)
}

// Kill is part of the worker.Worker interface.
func (w *demuxWorker) Kill() {
	w.tomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (w *demuxWorker) Wait() error {
	return w.tomb.Wait()
}
