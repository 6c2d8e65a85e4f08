package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"caster/internal/api"
	"caster/internal/config"
	"caster/internal/ipc"
	"caster/internal/library"
)

// commandContext carries the shared flag state every subcommand needs: where
// the daemon socket lives and which config file to load. Config loading is
// deferred until a command actually asks for it.
type commandContext struct {
	socketFlag *string
	configFlag *string
	loadConfig func() (*config.Config, error)
}

func newCommandContext(socketFlag, configFlag *string) *commandContext {
	c := &commandContext{socketFlag: socketFlag, configFlag: configFlag}
	c.loadConfig = sync.OnceValues(func() (*config.Config, error) {
		cfg, _, _, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			return nil, err
		}
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, err
		}
		return cfg, nil
	})
	return c
}

// flagValue reads a cobra string flag that may not be registered.
func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

func (c *commandContext) requireConfig() (*config.Config, error) {
	return c.loadConfig()
}

// configValue returns the loaded config, or nil when loading failed.
func (c *commandContext) configValue() *config.Config {
	cfg, err := c.requireConfig()
	if err != nil {
		return nil
	}
	return cfg
}

// socketPath resolves the daemon socket, writing the default back into the
// flag variable so later reads agree.
func (c *commandContext) socketPath() string {
	flag := c.socketFlag
	if flag == nil {
		return defaultSocketPath()
	}
	if sock := strings.TrimSpace(*flag); sock != "" {
		return sock
	}
	*flag = defaultSocketPath()
	return *flag
}

func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	socket := c.socketPath()
	conn, err := ipc.Dial(socket)
	if err != nil {
		return wrapDialError(err, socket)
	}
	defer conn.Close()
	return fn(conn)
}

// withCatalog runs fn against the daemon's catalog when it is reachable and
// falls back to opening the library store directly when it is not, so catalog
// commands work whether or not the daemon is up.
func (c *commandContext) withCatalog(fn func(catalogAPI) error) error {
	if conn, err := ipc.Dial(c.socketPath()); err == nil {
		defer conn.Close()
		return fn(&catalogIPCAdapter{client: conn})
	}

	cfg, err := c.requireConfig()
	if err != nil {
		return err
	}
	store, err := library.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(&catalogStoreAdapter{service: api.NewCatalogService(store)})
}

func wrapDialError(err error, socket string) error {
	if errors.Is(err, syscall.ENOENT) || os.IsNotExist(err) {
		return fmt.Errorf("connect to daemon: socket %s not found; start the daemon with `caster daemon start`", socket)
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon: socket %s refused the connection; verify the daemon is running", socket)
	}
	return fmt.Errorf("connect to daemon: %w", err)
}

// defaultSocketPath mirrors the daemon's socket location. When no config is
// loadable the CLI still needs somewhere to point, so it falls back to the
// default log directory and finally the system temp dir.
func defaultSocketPath() string {
	if cfg, _, _, err := config.Load(""); err == nil {
		return filepath.Join(cfg.Paths.LogDir, "caster.sock")
	}
	if logDir, err := config.ExpandPath("~/.local/share/caster/logs"); err == nil {
		return filepath.Join(logDir, "caster.sock")
	}
	return filepath.Join(os.TempDir(), "caster.sock")
}

// shouldSkipConfig walks up the command tree looking for the skipConfigLoad
// annotation set by commands that must run without a loadable config.
func shouldSkipConfig(cmd *cobra.Command) bool {
	cur := cmd
	for cur != nil && cur.Annotations["skipConfigLoad"] != "true" {
		cur = cur.Parent()
	}
	return cur != nil
}

func yesNo(v bool) string {
	if !v {
		return "no"
	}
	return "yes"
}
