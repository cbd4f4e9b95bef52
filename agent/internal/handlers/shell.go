package handlers

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"command-agent/agent/internal/command"
	"command-agent/agent/internal/logger"
)

// Shell runs params.command as a process (no shell interpretation) and
// returns its standard output, one "\n"-terminated line per output line.
type Shell struct {
	Timeout time.Duration
}

func (Shell) Kind() command.Kind { return command.KindSync }

func (h Shell) Execute(ctx context.Context, params command.Params) (string, error) {
	line, err := params.String("command")
	if err != nil {
		return "", err
	}
	argv := strings.Fields(line)
	if len(argv) == 0 {
		return "", errors.New("empty command")
	}
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	// children that inherit stdout must not keep Wait blocked after a kill
	cmd.WaitDelay = time.Second
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", err
	}
	if err := cmd.Start(); err != nil {
		return "", err
	}

	var out strings.Builder
	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		out.WriteString(sc.Text())
		out.WriteByte('\n')
	}
	scanErr := sc.Err()
	if scanErr != nil {
		_, _ = io.Copy(io.Discard, stdout)
	}
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return "", fmt.Errorf("command %q did not finish: %w", argv[0], ctx.Err())
	}
	if scanErr != nil {
		return "", fmt.Errorf("read output: %w", scanErr)
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		logger.Warnf("Shell command %q exited with code %d", argv[0], exitErr.ExitCode())
		return out.String(), nil
	}
	if waitErr != nil {
		return "", waitErr
	}
	return out.String(), nil
}
