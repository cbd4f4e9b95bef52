package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	noop := HandlerFunc(func(ctx context.Context, p Params) (string, error) { return "", nil })
	reg.Register("b", noop)
	reg.Register("a", noop)

	_, ok := reg.Get("a")
	assert.True(t, ok)
	_, ok = reg.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b"}, reg.Names())

	assert.Panics(t, func() { reg.Register("a", noop) })
	assert.Panics(t, func() { reg.Register("", noop) })
}

func TestParams(t *testing.T) {
	p := Params{"command": "echo hi", "lines": float64(5), "n": nil, "num": 3.0}

	s, err := p.String("command")
	assert.NoError(t, err)
	assert.Equal(t, "echo hi", s)

	_, err = p.String("missing")
	assert.EqualError(t, err, "no value for missing")
	_, err = p.String("n")
	assert.Error(t, err)
	_, err = p.String("num")
	assert.EqualError(t, err, "value for num is not a string")

	assert.Equal(t, "def", p.StringOr("missing", "def"))
	assert.Equal(t, 5, p.IntOr("lines", 100))
	assert.Equal(t, 100, p.IntOr("command", 100))

	var nilParams Params
	_, err = nilParams.String("command")
	assert.Error(t, err)
}
