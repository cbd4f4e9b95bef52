package command

import (
	"context"
	"fmt"
	"time"

	"command-agent/agent/internal/logger"
)

// Reporter receives the single result produced for each dispatched command.
type Reporter interface {
	Report(res Result)
}

type Dispatcher struct {
	registry *Registry
	reporter Reporter
	timeout  time.Duration
	now      func() time.Time
}

// NewDispatcher builds a dispatcher; timeout bounds each handler call (0 = none).
func NewDispatcher(reg *Registry, rep Reporter, timeout time.Duration) *Dispatcher {
	return &Dispatcher{registry: reg, reporter: rep, timeout: timeout, now: time.Now}
}

// Format renders a short description of a command for logs.
func Format(cmd Command) string {
	return fmt.Sprintf("command=%s type=%s params=%d", cmd.ID, cmd.Type, len(cmd.Params))
}

// DispatchAll dispatches cmds in order; each waits only for the previous
// handler's synchronous call.
func (d *Dispatcher) DispatchAll(ctx context.Context, cmds []Command) {
	for _, cmd := range cmds {
		d.Dispatch(ctx, cmd)
	}
}

// Dispatch runs the handler for cmd and reports its outcome. It never fails:
// unknown types, handler errors and panics all become a reported result.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) {
	output, outcome := d.execute(ctx, cmd)
	d.reporter.Report(Result{
		CommandID: cmd.ID,
		Status:    StatusSuccess,
		Output:    output,
		Outcome:   outcome,
		Timestamp: d.now(),
	})
}

func (d *Dispatcher) execute(ctx context.Context, cmd Command) (output string, outcome Outcome) {
	h, ok := d.registry.Get(cmd.Type)
	if !ok {
		logger.Warnf("Unknown command type: %s", Format(cmd))
		return UnknownTypeOutput, OutcomeUnknownType
	}
	logger.Infof("Dispatching %s kind=%s", Format(cmd), h.Kind())

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Handler %s panicked: %v", cmd.Type, r)
			output, outcome = fmt.Sprintf("Error: %v", r), OutcomeError
		}
	}()

	out, err := h.Execute(ctx, cmd.Params)
	if err != nil {
		logger.Errorf("Command %s failed: %v", cmd.ID, err)
		return "Error: " + err.Error(), OutcomeError
	}
	logger.Debugf("Command %s completed", cmd.ID)
	return out, OutcomeOK
}
