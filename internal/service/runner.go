package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/sakif/botpanel/internal/apperror"
	"github.com/sakif/botpanel/internal/launcher"
	"github.com/sakif/botpanel/internal/metrics"
)

// maxPlaceholderPID bounds the pid recorded when the launcher cannot report one.
const maxPlaceholderPID = 9999

// runner drives the launcher for both owner and admin operations.
//
// In the default optimistic mode a launcher failure is logged and the caller
// proceeds as if the call had worked: start records a placeholder pid, stop
// records the instance as offline. With strict set, failures are returned as
// apperror.ErrUpstream and the caller must leave stored state untouched.
type runner struct {
	launcher launcher.Launcher
	strict   bool
	logger   *slog.Logger
	// placeholderPID is swapped out in tests.
	placeholderPID func() int
}

func newRunner(l launcher.Launcher, strict bool, logger *slog.Logger) *runner {
	if l == nil {
		l = launcher.Unavailable{}
	}
	return &runner{
		launcher: l,
		strict:   strict,
		logger:   logger,
		placeholderPID: func() int {
			return rand.IntN(maxPlaceholderPID) + 1
		},
	}
}

// start launches spec and returns the pid to record.
func (r *runner) start(ctx context.Context, spec launcher.Spec) (int, error) {
	pid, err := r.launcher.Start(ctx, spec)
	metrics.LauncherOperations.WithLabelValues(metrics.OpStart, metrics.Outcome(err)).Inc()
	if err == nil {
		return pid, nil
	}

	if r.strict {
		return 0, apperror.Upstream(fmt.Sprintf("could not start %s", spec.Name), err)
	}

	pid = r.placeholderPID()
	r.logger.Warn("launcher start failed, recording placeholder pid",
		slog.String("instance", spec.Name),
		slog.Int("pid", pid),
		slog.String("error", err.Error()),
	)
	return pid, nil
}

// stop stops and removes the named instance.
func (r *runner) stop(ctx context.Context, name string) error {
	stopErr := r.launcher.Stop(ctx, name)
	metrics.LauncherOperations.WithLabelValues(metrics.OpStop, metrics.Outcome(stopErr)).Inc()

	removeErr := r.launcher.Remove(ctx, name)
	metrics.LauncherOperations.WithLabelValues(metrics.OpRemove, metrics.Outcome(removeErr)).Inc()

	err := stopErr
	if err == nil {
		err = removeErr
	}
	if err == nil {
		return nil
	}

	if r.strict {
		return apperror.Upstream(fmt.Sprintf("could not stop %s", name), err)
	}

	r.logger.Warn("launcher stop failed, marking offline anyway",
		slog.String("instance", name),
		slog.String("error", err.Error()),
	)
	return nil
}
