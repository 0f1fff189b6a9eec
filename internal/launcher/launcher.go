// Package launcher defines the contract with the external process supervisor
// that runs hosted bot instances.
//
// The panel never trusts the launcher for correctness: callers record the state
// they asked for and treat launcher errors as advisory (see service.AccountService).
package launcher

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ErrUnavailable is returned by every call on Unavailable.
var ErrUnavailable = errors.New("launcher: process supervisor unavailable")

// ErrInvalidName is returned when an instance name fails ValidateName.
var ErrInvalidName = errors.New("launcher: invalid instance name")

// Spec describes one hosted instance.
type Spec struct {
	// Name identifies the instance to the supervisor. Must pass ValidateName.
	Name string
	// Token is handed to the instance through its environment. May be empty
	// for manually hosted identities.
	Token string
}

// Launcher starts and stops named instances.
type Launcher interface {
	// Start launches the instance, or leaves it running if it already is, and
	// returns the process id reported by the supervisor.
	Start(ctx context.Context, spec Spec) (int, error)
	// Stop halts a running instance. Stopping an unknown name is not an error.
	Stop(ctx context.Context, name string) error
	// Remove deletes the instance definition. Removing an unknown name is not an error.
	Remove(ctx context.Context, name string) error
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// ValidateName rejects names that could be misread by a supervisor: anything
// outside letters, digits, '_', '.', '-', a leading separator, or more than 64
// characters.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Unavailable is the Launcher used when no supervisor could be reached at
// startup.
type Unavailable struct{}

func (Unavailable) Start(context.Context, Spec) (int, error) { return 0, ErrUnavailable }
func (Unavailable) Stop(context.Context, string) error        { return ErrUnavailable }
func (Unavailable) Remove(context.Context, string) error      { return ErrUnavailable }
