// Package reporter sends command results to the controller off the polling path.
package reporter

import (
	"context"
	"time"

	"command-agent/agent/internal/command"
	"command-agent/agent/internal/logger"
)

// Sender delivers one result; *controller.Client satisfies it.
type Sender interface {
	PostResult(ctx context.Context, deviceID string, res command.Result) error
}

// Recorder keeps a local trace of each attempt; *db.Journal satisfies it.
type Recorder interface {
	Record(deviceID string, res command.Result, deliveryErr error) error
}

// Submitter runs background work; *workerpool.Pool satisfies it.
type Submitter interface {
	Go(ctx context.Context, name string, fn func(ctx context.Context)) error
}

type Reporter struct {
	deviceID func() string
	sender   Sender
	recorder Recorder
	pool     Submitter
	timeout  time.Duration
}

func New(deviceID func() string, sender Sender, recorder Recorder, pool Submitter, timeout time.Duration) *Reporter {
	return &Reporter{deviceID: deviceID, sender: sender, recorder: recorder, pool: pool, timeout: timeout}
}

// Report queues res for delivery and returns once a slot is taken. If none
// frees up within the report timeout the result is dropped. Delivery failures
// are logged and dropped: there is no retry and no queue.
func (r *Reporter) Report(res command.Result) {
	// waiting for a slot is bounded like the send itself
	ctx := context.Background()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	err := r.pool.Go(ctx, "report "+res.CommandID, func(ctx context.Context) {
		r.send(ctx, res)
	})
	if err != nil {
		logger.Errorf("Dropping result for command %s: %v", res.CommandID, err)
		r.record(res, err)
	}
}

func (r *Reporter) send(ctx context.Context, res command.Result) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	err := r.sender.PostResult(ctx, r.deviceID(), res)
	if err != nil {
		logger.Errorf("Error sending result for command %s: %v", res.CommandID, err)
	} else {
		logger.Infof("Command result sent: %s", res.CommandID)
	}
	r.record(res, err)
}

func (r *Reporter) record(res command.Result, deliveryErr error) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.Record(r.deviceID(), res, deliveryErr); err != nil {
		logger.Warnf("journal write for %s failed: %v", res.CommandID, err)
	}
}
