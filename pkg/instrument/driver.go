package instrument

import (
	"errors"
	"fmt"

	"github.com/james-see/wav2instrument/pkg/host"
)

// ErrCancelled reports a user-cancelled run
var ErrCancelled = errors.New("cancelled by user")

// Driver validates a run's configuration and hands the session to the
// selected back-end. Per-sample and per-parameter conditions are the
// back-end's to recover from; anything the driver rejects happens before
// the first host mutation.
type Driver struct {
	backends map[BackendKind]Backend
	prompter host.Prompter
}

// New creates a Driver over the given back-ends
func New(backends ...Backend) *Driver {
	d := &Driver{backends: make(map[BackendKind]Backend)}
	for _, b := range backends {
		d.backends[b.Kind()] = b
	}
	return d
}

// SetPrompter installs an optional confirmation prompter. Without one the
// driver never asks and proceeds.
func (d *Driver) SetPrompter(p host.Prompter) { d.prompter = p }

// Run executes one pipeline invocation. A cancel answer from the prompter
// aborts with ErrCancelled; host state already mutated by earlier samples
// in the same run stays as-is.
func (d *Driver) Run(session host.Session, opts Options) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	items := session.Items()
	if len(items) == 0 {
		return nil, fmt.Errorf("no sample items selected")
	}

	backend, ok := d.backends[opts.Backend]
	if !ok {
		return nil, fmt.Errorf("back-end %q not registered", opts.Backend)
	}

	if d.prompter != nil {
		msg := fmt.Sprintf("Build %q from %d sample(s) with the %s back-end?", opts.Name, len(items), opts.Backend)
		switch d.prompter.Confirm("wav2instrument", msg) {
		case host.AnswerCancel, host.AnswerNo:
			return nil, ErrCancelled
		}
	}

	return backend.Build(session, opts)
}
