package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/dev-tams/offhours/internal/cloud"
	"github.com/dev-tams/offhours/internal/config"
	"github.com/dev-tams/offhours/internal/notify"
	"github.com/dev-tams/offhours/internal/report"
)

const notificationTimeout = 5 * time.Second

// RunContext carries the run-start timestamp and the simulate flag
// through the whole batch, so there is no ambient state to reset
// between runs.
type RunContext struct {
	StartTime time.Time
	Simulate  bool
}

// RunSweep evaluates every machine once against its schedule and
// reconciles power state. Failing to enumerate machines or groups is
// fatal; anything that goes wrong with a single machine is recorded in
// its result and the batch continues.
func RunSweep(ctx context.Context, client cloud.Client, cfg *config.Config, rc RunContext, log zerolog.Logger) ([]MachineResult, error) {
	machines, err := client.ListMachines(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate machines: %w", err)
	}
	groups, err := client.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate resource groups: %w", err)
	}

	groupsByName := make(map[string]cloud.Group, len(groups))
	for _, g := range groups {
		groupsByName[g.Name] = g
	}

	// Stable order keeps the audit log reproducible across runs.
	sort.Slice(machines, func(i, j int) bool {
		if machines[i].Name == machines[j].Name {
			return machines[i].ID < machines[j].ID
		}
		return machines[i].Name < machines[j].Name
	})

	now := rc.StartTime.In(cfg.Location())
	log.Info().
		Int("machines", len(machines)).
		Int("groups", len(groups)).
		Time("now", now).
		Bool("simulate", rc.Simulate).
		Msg("sweep starting")

	results := make([]MachineResult, 0, len(machines))
	for _, m := range machines {
		results = append(results, reconcileMachine(ctx, client, m, groupsByName, cfg.Schedule.TagKey, now, rc.Simulate, log))
	}
	return results, nil
}

// RunOnce is one complete batch: sweep, run report, notifications, and
// the closing trailer. The trailer fires even when the run aborts.
func RunOnce(ctx context.Context, client cloud.Client, cfg *config.Config, simulate bool, log zerolog.Logger) error {
	rc := RunContext{StartTime: time.Now().UTC(), Simulate: simulate}

	defer func() {
		log.Info().Dur("elapsed", time.Since(rc.StartTime)).Msg("run finished")
	}()

	sink, err := report.FromConfig(ctx, cfg.Report)
	if err != nil {
		return err
	}
	dispatcher, err := notify.NewDispatcher(cfg.Notifications)
	if err != nil {
		return err
	}

	results, err := RunSweep(ctx, client, cfg, rc, log)
	if err != nil {
		notifyRun(ctx, dispatcher, summarize(rc, results, err), log)
		return err
	}

	event := summarize(rc, results, nil)
	log.Info().
		Int("machines", event.Machines).
		Int("started", event.Started).
		Int("stopped", event.Stopped).
		Int("skipped", event.Skipped).
		Int("failed", event.Failed).
		Msg("sweep complete")

	if sink != nil {
		key := rc.StartTime.UTC().Format("20060102_150405Z") + ".json"
		dest, werr := sink.Write(ctx, key, buildReport(rc, results))
		if werr != nil {
			// Report loss is not worth failing an otherwise good run.
			log.Error().Err(werr).Msg("writing run report failed")
		} else {
			log.Info().Str("dest", dest).Msg("run report written")

			stats, rerr := report.ApplyRetention(ctx, sink, cfg.Report.Retention)
			switch {
			case rerr != nil:
				log.Warn().Err(rerr).Msg("report retention failed")
			case stats.Deleted > 0:
				log.Info().
					Int("kept", stats.Kept).
					Int("deleted", stats.Deleted).
					Int("skipped", stats.Skipped).
					Msg("old run reports pruned")
			}
		}
	}

	notifyRun(ctx, dispatcher, event, log)
	return nil
}

func summarize(rc RunContext, results []MachineResult, runErr error) notify.Event {
	event := notify.Event{
		Status:   notify.StatusSuccess,
		Machines: len(results),
		Simulate: rc.Simulate,
		Duration: time.Since(rc.StartTime).Round(time.Millisecond).String(),
	}
	for _, r := range results {
		switch {
		case r.Err != nil:
			event.Failed++
		case r.Action == ActionStart:
			event.Started++
		case r.Action == ActionStop:
			event.Stopped++
		case r.Action == ActionSkip:
			event.Skipped++
		}
	}
	if event.Failed > 0 {
		event.Status = notify.StatusFailure
	}
	if runErr != nil {
		event.Status = notify.StatusFailure
		event.Error = runErr.Error()
	}
	return event
}

func buildReport(rc RunContext, results []MachineResult) report.Report {
	rep := report.Report{
		StartedAt: rc.StartTime,
		Duration:  time.Since(rc.StartTime).Round(time.Millisecond).String(),
		Simulate:  rc.Simulate,
		Records:   make([]report.Record, 0, len(results)),
	}
	for _, r := range results {
		rec := report.Record{
			Machine: r.Machine,
			Group:   r.Group,
			Source:  r.Source,
			Entry:   r.Entry,
			Action:  r.Action.String(),
		}
		if !r.Skipped {
			rec.Desired = r.Desired.String()
			rec.Observed = r.Observed.String()
		}
		if r.Err != nil {
			rec.Error = r.Err.Error()
		}
		rep.Records = append(rep.Records, rec)
	}
	return rep
}

func notifyRun(ctx context.Context, dispatcher *notify.Dispatcher, event notify.Event, log zerolog.Logger) {
	notifyCtx, cancel := notificationContext(ctx)
	defer cancel()

	if err := dispatcher.Notify(notifyCtx, event); err != nil {
		log.Warn().Err(err).Msg("notification failed")
	}
}

func notificationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), notificationTimeout)
	}
	return context.WithTimeout(context.WithoutCancel(ctx), notificationTimeout)
}
