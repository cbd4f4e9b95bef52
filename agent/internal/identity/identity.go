// Package identity derives the device identifier sent with every poll and report.
package identity

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// Source supplies the host facts the identifier is built from.
type Source interface {
	Model() string
	Device() string
}

type Provider struct {
	src      Source
	override string
	started  time.Time

	once sync.Once
	id   string
}

// New returns a provider; a non-empty override is used verbatim.
func New(src Source, override string, started time.Time) *Provider {
	if src == nil {
		src = HostSource{}
	}
	return &Provider{src: src, override: strings.TrimSpace(override), started: started}
}

// ID computes the identifier on first use and returns the same value for the process lifetime.
func (p *Provider) ID() string {
	p.once.Do(func() {
		if p.override != "" {
			p.id = p.override
			return
		}
		p.id = clean(p.src.Model()) + "_" + clean(p.src.Device()) + "_" + startSuffix(p.started)
	})
	return p.id
}

// startSuffix keeps the low five digits of the start time in milliseconds.
func startSuffix(t time.Time) string {
	ms := strconv.FormatInt(t.UnixMilli(), 10)
	if len(ms) > 5 {
		ms = ms[len(ms)-5:]
	}
	return ms
}

func clean(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return strings.Join(strings.Fields(s), "-")
}
