package command

import (
	"context"
	"fmt"
	"time"
)

type Kind string

const (
	// KindSync handlers finish their work before Execute returns.
	KindSync Kind = "sync"
	// KindAsync handlers start background work and return an acknowledgment.
	KindAsync Kind = "async"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Outcome tells apart what the legacy status field folds into "success".
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeError       Outcome = "error"
	OutcomeUnknownType Outcome = "unknown_type"
)

const UnknownTypeOutput = "Unknown command type"

// Command is one unit of work received from the controller.
type Command struct {
	ID     string `json:"command_id"`
	Type   string `json:"type"`
	Params Params `json:"params,omitempty"`
}

type Result struct {
	CommandID string
	Status    Status
	Output    string
	Outcome   Outcome
	Timestamp time.Time
}

type Handler interface {
	Kind() Kind
	Execute(ctx context.Context, params Params) (string, error)
}

// HandlerFunc adapts a plain function into a sync Handler.
type HandlerFunc func(ctx context.Context, params Params) (string, error)

func (f HandlerFunc) Kind() Kind { return KindSync }
func (f HandlerFunc) Execute(ctx context.Context, params Params) (string, error) {
	return f(ctx, params)
}

// Params holds handler-specific arguments; only the consuming handler validates them.
type Params map[string]any

func (p Params) String(key string) (string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", fmt.Errorf("no value for %s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("value for %s is not a string", key)
	}
	return s, nil
}

func (p Params) StringOr(key, def string) string {
	if s, err := p.String(key); err == nil && s != "" {
		return s
	}
	return def
}

// IntOr accepts JSON numbers (float64) and ints.
func (p Params) IntOr(key string, def int) int {
	switch n := p[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	}
	return def
}
