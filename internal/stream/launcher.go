package stream

import (
	"context"
	"time"
)

// Session is a running transcoder owned by the manager.
type Session interface {
	ID() string
	Source() string
	StartedAt() time.Time
	PID() int
	Done() <-chan struct{}
	Err() error
	Stop(ctx context.Context) error
}

// Launcher starts transcoder sessions.
type Launcher interface {
	Launch(ctx context.Context, source string) (Session, error)
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context, source string) (Session, error)

// Launch implements Launcher.
func (f LauncherFunc) Launch(ctx context.Context, source string) (Session, error) {
	return f(ctx, source)
}

func sessionAlive(sess Session) bool {
	if sess == nil {
		return false
	}
	select {
	case <-sess.Done():
		return false
	default:
		return true
	}
}
