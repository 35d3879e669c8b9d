package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultPlayerCommand reads MPEG audio from stdin and plays it.
const DefaultPlayerCommand = "ffplay -nodisp -autoexit -loglevel quiet -"

// Player plays an audio clip, returning when playback ends or ctx is done.
type Player interface {
	Play(ctx context.Context, audio Audio) error
}

// CommandPlayer plays audio by piping it to an external program.
type CommandPlayer struct {
	name string
	args []string
}

// NewCommandPlayer parses a command line such as DefaultPlayerCommand.
func NewCommandPlayer(cmdline string) (*CommandPlayer, error) {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return nil, errors.New("player command is empty")
	}
	if _, err := exec.LookPath(fields[0]); err != nil {
		return nil, fmt.Errorf("player %q: %w", fields[0], err)
	}
	return &CommandPlayer{name: fields[0], args: fields[1:]}, nil
}

func (p *CommandPlayer) Play(ctx context.Context, audio Audio) error {
	cmd := exec.CommandContext(ctx, p.name, p.args...)
	cmd.Stdin = bytes.NewReader(audio.Data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w: %s", p.name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
