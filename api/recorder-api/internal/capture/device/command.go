// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_capture_device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/rapidaai/segscribe/pkg/commons"
)

// commandSource is the stdout of an external capture process such as
// `ffmpeg -f alsa -i default -ac 1 -ar 16000 -f s16le -` or `arecord -t raw`.
type commandSource struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	cancel context.CancelFunc
}

// StartCommand launches command and returns its raw PCM output. The process
// is killed on Close or when ctx ends.
func StartCommand(ctx context.Context, logger commons.Logger, command string) (io.ReadCloser, error) {
	args := strings.Fields(command)
	if len(args) == 0 {
		return nil, errors.New("empty capture command")
	}
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("capture command stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("capture command %s: %w", args[0], err)
	}
	logger.Infof("capture-device: started %s (pid %d)", args[0], cmd.Process.Pid)
	return &commandSource{cmd: cmd, stdout: stdout, cancel: cancel}, nil
}

func (c *commandSource) Read(p []byte) (int, error) {
	return c.stdout.Read(p)
}

func (c *commandSource) Close() error {
	c.cancel()
	err := c.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// killed by us
		return nil
	}
	return err
}
