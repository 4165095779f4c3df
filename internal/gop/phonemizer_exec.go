package gop

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"
)

// execPhonemizer shells out to an external G2P CLI that accepts text on
// argv and emits raw IPA on stdout.
type execPhonemizer struct {
	cmd []string
}

// NewExecPhonemizer parses command into argv; the clean word text is
// appended as the final argument on each call.
func NewExecPhonemizer(command string) (Phonemizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse g2p command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("g2p command is empty")
	}
	return &execPhonemizer{cmd: args}, nil
}

func (p *execPhonemizer) IPA(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	base := p.cmd[0]
	args := append(append([]string{}, p.cmd[1:]...), text)
	command := exec.CommandContext(ctx, base, args...)
	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("%w: g2p command failed: %v: %s", ErrG2PUnavailable, err, stderr.String())
	}
	return strings.TrimSpace(stdout.String()), nil
}
