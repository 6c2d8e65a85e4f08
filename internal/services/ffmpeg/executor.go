package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error
	Start(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) (Process, error)
}

// Process is a handle on a launched command.
type Process interface {
	Wait() error
	Signal(sig os.Signal) error
	PID() int
}

// commandExecutor launches real processes. Context cancellation sends SIGTERM
// and escalates to SIGKILL once the grace period elapses.
type commandExecutor struct {
	grace time.Duration
}

func (e commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error {
	proc, err := e.Start(ctx, binary, args, onStdout, onStderr)
	if err != nil {
		return err
	}
	return proc.Wait()
}

func (e commandExecutor) Start(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) (Process, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return os.ErrProcessDone
		}
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	if e.grace > 0 {
		cmd.WaitDelay = e.grace
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start command: %w", err)
	}

	proc := &commandProcess{cmd: cmd}
	proc.wg.Add(2)
	go proc.scan(stdout, onStdout)
	go proc.scan(stderr, onStderr)
	return proc, nil
}

type commandProcess struct {
	cmd      *exec.Cmd
	wg       sync.WaitGroup
	scanOnce sync.Once
	scanErr  error
}

func (p *commandProcess) scan(r io.Reader, forward func(string)) {
	defer p.wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if forward != nil {
			forward(scanner.Text())
		}
	}
	if err := scanner.Err(); err != nil {
		p.scanOnce.Do(func() {
			p.scanErr = err
		})
	}
}

func (p *commandProcess) Wait() error {
	p.wg.Wait()
	if err := p.cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	if p.scanErr != nil {
		return fmt.Errorf("scan output: %w", p.scanErr)
	}
	return nil
}

func (p *commandProcess) Signal(sig os.Signal) error {
	if p.cmd.Process == nil {
		return errors.New("process not started")
	}
	return p.cmd.Process.Signal(sig)
}

func (p *commandProcess) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}
