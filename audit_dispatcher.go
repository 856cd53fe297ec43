package goAccount

import (
	"context"

	"github.com/MrEthical07/goAccount/internal/dispatch"
)

type auditDispatcher struct {
	queue *dispatch.Queue[AuditEvent]
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	return &auditDispatcher{
		queue: dispatch.New(dispatch.Config{
			BufferSize: cfg.BufferSize,
			Workers:    1,
			DropIfFull: cfg.DropIfFull,
		}, sink.Emit),
	}
}

func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}
	d.queue.Enqueue(ctx, event)
}

func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.queue.Close()
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.queue.Dropped()
}
