package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"command-agent/agent/internal/command"
	"command-agent/agent/internal/db"
)

// maxLogRead caps how much of the log file get_logs reads from the end.
const maxLogRead = 1 << 20

type getLogs struct{ path string }

func (getLogs) Kind() command.Kind { return command.KindSync }
func (h getLogs) Execute(ctx context.Context, params command.Params) (string, error) {
	if h.path == "" {
		return "", errors.New("log file not configured")
	}
	lines := params.IntOr("lines", 100)
	if lines <= 0 {
		lines = 100
	}
	return tailFile(h.path, lines)
}

func tailFile(path string, n int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	start := info.Size() - maxLogRead
	if start < 0 {
		start = 0
	}
	data, err := io.ReadAll(io.NewSectionReader(f, start, info.Size()-start))
	if err != nil {
		return "", err
	}
	all := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return strings.Join(all, "\n") + "\n", nil
}

// HistoryReader lists recent journal entries; *db.Journal satisfies it.
type HistoryReader interface {
	Recent(limit int) ([]db.ResultRecord, error)
}

type getHistory struct{ history HistoryReader }

func (getHistory) Kind() command.Kind { return command.KindSync }
func (h getHistory) Execute(ctx context.Context, params command.Params) (string, error) {
	rows, err := h.history.Recent(params.IntOr("limit", 20))
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "No results recorded", nil
	}
	var b strings.Builder
	for _, r := range rows {
		delivered := "delivered"
		if !r.Delivered {
			delivered = "undelivered"
		}
		fmt.Fprintf(&b, "%s %s %s %s %q\n", r.CompletedAt.Format("2006-01-02T15:04:05Z07:00"), r.CommandID, r.Outcome, delivered, clip(r.Output, 80))
	}
	return b.String(), nil
}

// clip shortens s to at most n bytes without splitting a rune.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
