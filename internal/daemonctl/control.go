// Package daemonctl drives the casterd process from the CLI side: spawning
// it, tearing it down, and assembling status snapshots with offline
// fallbacks when the daemon is unreachable.
package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"caster/internal/config"
	"caster/internal/ipc"
)

// LaunchOptions controls how a detached casterd process is spawned.
type LaunchOptions struct {
	ConfigPath string
}

// StartState classifies how a start request resolved.
type StartState string

const (
	StartStateRequested      StartState = "start_requested"
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult reports how EnsureStarted resolved: the final state, an
// optional operator-facing message, and whether a fresh casterd process was
// spawned.
type StartResult struct {
	State    StartState
	Message  string
	Launched bool
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	StopAcknowledged bool
	ForcedKill       bool
	PID              int
}

// RestartResult combines the stop and start halves of a restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// ErrDaemonNotRunning indicates daemon IPC is unavailable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// ResolveDaemonBinary locates the casterd executable, preferring the one
// installed next to the current binary before falling back to PATH.
func ResolveDaemonBinary() (string, error) {
	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), "casterd")
		if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	path, err := exec.LookPath("casterd")
	if err != nil {
		return "", fmt.Errorf("locate casterd binary: %w", err)
	}
	return path, nil
}

// EnsureStarted brings the daemon up. When the socket is not answering it
// spawns casterd first, then issues a start request over IPC either way.
func EnsureStarted(socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	launched := false
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if launchErr := launchDaemon(executablePath, opts); launchErr != nil {
			return StartResult{}, launchErr
		}
		launched = true
		if client, err = dialRetry(socketPath, waitTimeout); err != nil {
			return StartResult{}, err
		}
	}
	defer client.Close()

	if status, statusErr := client.Status(); statusErr == nil && status != nil && status.Running {
		state := StartStateAlreadyRunning
		if launched {
			state = StartStateStarted
		}
		return StartResult{State: state, Launched: launched}, nil
	}

	resp, err := client.Start()
	switch {
	case err != nil:
		return StartResult{}, err
	case resp != nil && resp.Started:
		return StartResult{State: StartStateStarted, Launched: launched, Message: strings.TrimSpace(resp.Message)}, nil
	}
	return StartResult{State: StartStateRequested, Launched: launched, Message: "Start request sent"}, nil
}

// StopAndTerminate drains the engine over RPC, asks the process to exit with
// SIGTERM, and escalates to SIGKILL if it lingers past the grace period.
func StopAndTerminate(socketPath string, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	client, err := ipc.Dial(socketPath)
	switch {
	case isDaemonUnavailable(err):
		return StopResult{}, ErrDaemonNotRunning
	case err != nil:
		return StopResult{}, err
	}

	var lockPath, databasePath string
	pid := 0
	if status, statusErr := client.Status(); statusErr == nil && status != nil {
		lockPath = status.LockPath
		databasePath = status.DatabasePath
		pid = status.PID
	}
	resp, stopErr := client.Stop()
	_ = client.Close()
	if stopErr != nil {
		return StopResult{}, stopErr
	}
	result := StopResult{PID: pid, StopAcknowledged: resp != nil && resp.Stopped}

	runDir := runtimeDir(lockPath, databasePath, cfg)
	if runDir == "" {
		return result, fmt.Errorf("unable to determine daemon log directory")
	}
	pidPath := filepath.Join(runDir, "casterd.pid")
	lockFile := filepath.Join(runDir, "casterd.lock")

	target := pidFromFile(pidPath, pid)
	if target > 0 && target != os.Getpid() {
		if proc, findErr := os.FindProcess(target); findErr == nil {
			_ = proc.Signal(syscall.SIGTERM)
		}
	}
	if waitForExit(socketPath, target, gracePeriod) {
		return result, nil
	}

	killed, killErr := forceKill(pidPath, lockFile, target)
	if killErr != nil {
		return result, fmt.Errorf("terminate daemon process: %w", killErr)
	}
	_ = os.Remove(socketPath)
	result.ForcedKill = true
	result.PID = killed
	return result, nil
}

// Restart tears the daemon down when it is running and brings it back up.
func Restart(socketPath string, cfg *config.Config, executablePath string, opts LaunchOptions, stopGracePeriod, startWaitTimeout time.Duration) (RestartResult, error) {
	result := RestartResult{}
	stop, err := StopAndTerminate(socketPath, cfg, stopGracePeriod)
	switch {
	case err == nil:
		result.WasRunning = true
		result.Stop = stop
	case !errors.Is(err, ErrDaemonNotRunning):
		return RestartResult{}, err
	}

	start, err := EnsureStarted(socketPath, executablePath, opts, startWaitTimeout)
	if err != nil {
		return RestartResult{}, err
	}
	result.Start = start
	return result, nil
}

func launchDaemon(path string, opts LaunchOptions) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("launch daemon: empty executable path")
	}
	var args []string
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	cmd := exec.Command(path, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	// Release detaches the child so it outlives this CLI invocation.
	return cmd.Process.Release()
}

// dialRetry polls the socket until the freshly launched daemon answers.
func dialRetry(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	for {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("daemon failed to start: %w", err)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

// runtimeDir locates the directory holding the pid and lock files. The lock
// path reported by a live daemon wins over config hints.
func runtimeDir(lockPath, databasePath string, cfg *config.Config) string {
	switch {
	case lockPath != "":
		return filepath.Dir(lockPath)
	case cfg != nil && strings.TrimSpace(cfg.Paths.LogDir) != "":
		return cfg.Paths.LogDir
	case databasePath != "":
		return filepath.Dir(databasePath)
	}
	return ""
}

func pidFromFile(pidPath string, fallback int) int {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// waitForExit polls until the process is gone. Without a usable pid it falls
// back to watching the socket disappear.
func waitForExit(socketPath string, pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if pid > 0 {
			if err := syscall.Kill(pid, 0); err != nil {
				return true
			}
		} else if client, err := ipc.Dial(socketPath); err != nil {
			if isDaemonUnavailable(err) {
				return true
			}
		} else {
			_ = client.Close()
		}
		time.Sleep(200 * time.Millisecond)
	}
	return false
}

// forceKill sends SIGKILL and cleans up the pid and lock files afterwards.
func forceKill(pidPath, lockPath string, fallbackPID int) (int, error) {
	pid := pidFromFile(pidPath, fallbackPID)
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return 0, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
	return pid, nil
}

func isDaemonUnavailable(err error) bool {
	return errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
