package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dev-tams/offhours/internal/cloud"
	"github.com/dev-tams/offhours/internal/schedule"
)

// DesiredState is what the schedule says a machine should be doing
// right now. Computed fresh on every run, never persisted.
type DesiredState int

const (
	DesiredStarted DesiredState = iota
	DesiredStopped
)

func (d DesiredState) String() string {
	if d == DesiredStopped {
		return "stopped"
	}
	return "started"
}

type Action int

const (
	ActionNone Action = iota
	ActionSkip
	ActionStart
	ActionStop
)

func (a Action) String() string {
	switch a {
	case ActionSkip:
		return "skip"
	case ActionStart:
		return "start"
	case ActionStop:
		return "stop"
	default:
		return "none"
	}
}

type MachineResult struct {
	Machine  string
	Group    string
	Source   string
	Entry    string
	Desired  DesiredState
	Observed cloud.PowerState
	Action   Action
	Skipped  bool
	Err      error
}

// decide computes the desired state for one machine. It is pure
// decision logic: no cloud I/O, and no dependence on simulate, so a
// dry run and a live run always agree. The ok return is false when no
// schedule applies at all.
func decide(m cloud.Machine, groups map[string]cloud.Group, tagKey string, now time.Time, log zerolog.Logger) (DesiredState, string, string, bool) {
	tag, source, ok := resolveSchedule(m, groups, tagKey)
	if !ok {
		return DesiredStarted, "", "", false
	}

	// First entry to match wins. Overlapping entries that disagree are
	// not detected; textual order governs.
	for _, entry := range schedule.Split(tag) {
		ev := schedule.Evaluate(entry, now)
		switch ev.Result {
		case schedule.Matched:
			return DesiredStopped, entry, source, true
		case schedule.Malformed:
			log.Warn().
				Str("machine", m.Name).
				Str("entry", entry).
				Str("reason", ev.Reason).
				Msg("ignoring malformed schedule entry")
		}
	}
	return DesiredStarted, "", source, true
}

// reconcileMachine resolves, decides, and issues the minimal corrective
// action for one machine. Failures stay inside the returned result so
// the batch keeps going.
func reconcileMachine(ctx context.Context, client cloud.Client, m cloud.Machine, groups map[string]cloud.Group, tagKey string, now time.Time, simulate bool, log zerolog.Logger) MachineResult {
	res := MachineResult{Machine: m.Name, Group: m.Group}

	desired, entry, source, ok := decide(m, groups, tagKey, now, log)
	if !ok {
		res.Skipped = true
		res.Action = ActionSkip
		log.Info().
			Str("machine", m.Name).
			Msg("no schedule tag on machine or resource group, skipping")
		return res
	}
	res.Desired = desired
	res.Entry = entry
	res.Source = source

	if entry != "" {
		log.Info().
			Str("machine", m.Name).
			Str("source", source).
			Str("entry", entry).
			Msg("inside shutdown window")
	} else {
		log.Info().
			Str("machine", m.Name).
			Str("source", source).
			Msg("no schedule entry matched, machine should be running")
	}

	// Query live rather than trusting the enumeration snapshot.
	observed, err := client.PowerState(ctx, m.ID)
	if err != nil {
		res.Err = fmt.Errorf("query power state: %w", err)
		log.Error().Err(err).Str("machine", m.Name).Msg("could not read power state")
		return res
	}
	res.Observed = observed

	switch {
	case desired == DesiredStarted && observed != cloud.StateRunning:
		res.Action = ActionStart
		if simulate {
			log.Info().Str("machine", m.Name).Str("observed", observed.String()).Msg("simulate: would start machine")
			return res
		}
		if err := client.Start(ctx, m.ID); err != nil {
			res.Err = fmt.Errorf("start: %w", err)
			log.Error().Err(err).Str("machine", m.Name).Msg("start failed")
			return res
		}
		log.Info().Str("machine", m.Name).Msg("start issued")

	case desired == DesiredStopped && observed != cloud.StateStopped:
		res.Action = ActionStop
		if simulate {
			log.Info().Str("machine", m.Name).Str("observed", observed.String()).Msg("simulate: would stop machine")
			return res
		}
		if err := client.Stop(ctx, m.ID, true); err != nil {
			res.Err = fmt.Errorf("stop: %w", err)
			log.Error().Err(err).Str("machine", m.Name).Msg("stop failed")
			return res
		}
		log.Info().Str("machine", m.Name).Msg("stop issued")

	default:
		res.Action = ActionNone
		log.Info().
			Str("machine", m.Name).
			Str("state", observed.String()).
			Msg("already in desired state")
	}

	return res
}
