package handlers

import (
	"context"
	"errors"

	"command-agent/agent/internal/command"

	"github.com/atotto/clipboard"
)

type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

var ErrClipboardUnavailable = errors.New("clipboard service not available")

// SystemClipboard uses the host clipboard (xclip/xsel/wl-clipboard on Linux).
type SystemClipboard struct{}

func (SystemClipboard) ReadAll() (string, error) {
	if clipboard.Unsupported {
		return "", ErrClipboardUnavailable
	}
	return clipboard.ReadAll()
}

func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnavailable
	}
	return clipboard.WriteAll(text)
}

type getClipboard struct{ cb Clipboard }

func (getClipboard) Kind() command.Kind { return command.KindSync }
func (h getClipboard) Execute(ctx context.Context, _ command.Params) (string, error) {
	text, err := h.cb.ReadAll()
	if err != nil {
		return "", err
	}
	if text == "" {
		return "Clipboard is empty", nil
	}
	return text, nil
}

type setClipboard struct{ cb Clipboard }

func (setClipboard) Kind() command.Kind { return command.KindSync }
func (h setClipboard) Execute(ctx context.Context, params command.Params) (string, error) {
	text, err := params.String("text")
	if err != nil {
		return "", err
	}
	if err := h.cb.WriteAll(text); err != nil {
		return "", err
	}
	return "Clipboard updated", nil
}
