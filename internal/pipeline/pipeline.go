// Package pipeline executes an ordered list of idempotent bootstrap stages.
//
// Each stage carries an optional precondition probe that inspects live
// system state and reports one of three results: the desired state is
// absent, present and valid, or present but invalid. The runner skips a
// stage only when its probe reports present-valid; absent and
// present-invalid both trigger the action. Separating the probe from the
// action lets idempotency decisions be tested without performing real
// installs or network calls.
package pipeline

import (
	"context"
	"fmt"
	"log"
)

// State is the result of a precondition probe.
type State int

const (
	// Absent means the desired state does not exist yet.
	Absent State = iota
	// Present means the desired state exists and is valid; the stage is
	// skipped.
	Present
	// Invalid means something exists at the target but is not usable; the
	// stage runs and replaces it.
	Invalid
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Present:
		return "present"
	case Invalid:
		return "invalid"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Stage describes one step of the bootstrap sequence.
type Stage struct {
	// Name identifies the stage in logs and failure diagnostics.
	Name string

	// Probe reports whether the stage's desired state already holds.
	// Optional; a stage without a probe always runs and must be
	// idempotent on its own.
	Probe func(ctx context.Context) (State, error)

	// Run performs the stage's mutation.
	Run func(ctx context.Context) error
}

// Run executes stages strictly in order. The first failure aborts the
// pipeline; no later stage executes. One log line is emitted per stage
// entry.
func Run(ctx context.Context, stages []Stage) error {
	for i, stage := range stages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("stage %s: %w", stage.Name, err)
		}

		log.Printf("Stage %d/%d: %s", i+1, len(stages), stage.Name)

		if stage.Probe != nil {
			state, err := stage.Probe(ctx)
			if err != nil {
				return fmt.Errorf("stage %s: precondition probe: %w", stage.Name, err)
			}
			if state == Present {
				log.Printf("Stage %d/%d: %s already satisfied, skipping", i+1, len(stages), stage.Name)
				continue
			}
		}

		if err := stage.Run(ctx); err != nil {
			return fmt.Errorf("stage %s: %w", stage.Name, err)
		}
	}
	return nil
}
