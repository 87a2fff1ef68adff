package feed

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// CommandPublisher runs Command with Files appended as arguments, in Dir.
// An empty Command publishes nothing.
type CommandPublisher struct {
	Command []string
	Dir     string
	Files   []string
}

func (p CommandPublisher) Publish(ctx context.Context) error {
	if len(p.Command) == 0 {
		return nil
	}
	args := append(append([]string{}, p.Command[1:]...), p.Files...)
	cmd := exec.CommandContext(ctx, p.Command[0], args...)
	cmd.Dir = p.Dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	err := cmd.Run()
	slog.Debug("publish command",
		slog.String("command", strings.Join(cmd.Args, " ")),
		slog.Duration("took", time.Since(start)),
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w: %s", p.Command[0], err, strings.TrimSpace(out.String()))
	}
	return nil
}
