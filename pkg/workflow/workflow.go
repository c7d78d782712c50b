// Package workflow runs the fixed workload management demo sequence against
// one Splunk pod. The sequence is deliberately rigid: the same calls, in the
// same order, every run. Gating steps abort the run on failure; best-effort
// steps (the background search launches and the display-only inspections)
// only warn.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/efortin/splunk-wlm-demo/pkg/config"
	"github.com/efortin/splunk-wlm-demo/pkg/kubectl"
	"github.com/efortin/splunk-wlm-demo/pkg/splunk"
)

// Step names, in execution order.
const (
	StepPreflight       = "preflight"
	StepEnable          = "enable-wlm"
	StepCreatePools     = "create-pools"
	StepCreateRules     = "create-rules"
	StepLaunchSearches  = "launch-searches"
	StepWait            = "wait"
	StepResourceUsage   = "resource-usage"
	StepSearchProcesses = "search-processes"
	StepStatus          = "wlm-status"
	StepDeleteRules     = "delete-rules"
	StepDeletePools     = "delete-pools"
	StepDisable         = "disable-wlm"
)

// Sequencer drives the demo end to end.
type Sequencer struct {
	cfg       config.Config
	splunk    *splunk.Client
	kubectl   *kubectl.Client
	preflight func(ctx context.Context) error
	log       *logrus.Entry

	// Sleep implements the fixed wait. Replaceable in tests; the default
	// honors context cancellation but is otherwise a plain pause.
	Sleep func(ctx context.Context, d time.Duration)
}

// New creates a new Sequencer. preflight runs as the first step, before any
// external call.
func New(cfg config.Config, splunkClient *splunk.Client, kubectlClient *kubectl.Client, preflight func(ctx context.Context) error, log *logrus.Entry) *Sequencer {
	return &Sequencer{
		cfg:       cfg,
		splunk:    splunkClient,
		kubectl:   kubectlClient,
		preflight: preflight,
		log:       log,
		Sleep:     sleepWithContext,
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

type step struct {
	name       string
	bestEffort bool
	fn         func(ctx context.Context, log *logrus.Entry) error
}

func (s *Sequencer) steps() []step {
	return []step{
		{name: StepPreflight, fn: func(ctx context.Context, _ *logrus.Entry) error { return s.preflight(ctx) }},
		{name: StepEnable, fn: func(ctx context.Context, _ *logrus.Entry) error { return s.splunk.EnableWorkloadManagement(ctx) }},
		{name: StepCreatePools, fn: s.createPools},
		{name: StepCreateRules, fn: s.createRules},
		{name: StepLaunchSearches, bestEffort: true, fn: s.launchSearches},
		{name: StepWait, fn: s.waitFixed},
		{name: StepResourceUsage, bestEffort: true, fn: s.showResourceUsage},
		{name: StepSearchProcesses, bestEffort: true, fn: s.showSearchProcesses},
		{name: StepStatus, fn: s.showStatus},
		{name: StepDeleteRules, fn: s.deleteRules},
		{name: StepDeletePools, fn: s.deletePools},
		{name: StepDisable, fn: func(ctx context.Context, _ *logrus.Entry) error { return s.splunk.DisableWorkloadManagement(ctx) }},
	}
}

// Run executes the demo sequence. The first gating failure aborts everything
// after it and is returned wrapped with the step name; the report covers the
// steps that ran either way.
func (s *Sequencer) Run(ctx context.Context) (Report, error) {
	report := Report{
		RunID:     shortID(),
		StartedAt: time.Now(),
	}
	log := s.log.WithField("run_id", report.RunID)
	log.WithFields(logrus.Fields{
		"pod":       s.cfg.Pod,
		"namespace": s.cfg.Namespace,
	}).Info("starting workload management demo")

	for _, st := range s.steps() {
		stepLog := log.WithField("step", st.name)
		stepLog.Info("step started")

		start := time.Now()
		err := st.fn(ctx, stepLog)
		result := StepResult{
			Name:       st.name,
			Duration:   time.Since(start),
			BestEffort: st.bestEffort,
			Err:        err,
		}
		report.Steps = append(report.Steps, result)

		if err != nil {
			if !st.bestEffort {
				report.FinishedAt = time.Now()
				stepLog.WithError(err).Error("step failed, aborting run")
				return report, fmt.Errorf("step %s: %w", st.name, err)
			}
			stepLog.WithError(err).Warn("step failed, continuing")
			continue
		}
		stepLog.WithField("duration", result.Duration.Round(time.Millisecond).String()).Info("step finished")
	}

	report.FinishedAt = time.Now()
	return report, nil
}

// Teardown removes the demo's rules and pools and disables workload
// management, attempting every removal even when earlier ones fail. This is
// the manual recovery path after an aborted run; Run itself never rolls
// back.
func (s *Sequencer) Teardown(ctx context.Context) error {
	var errs *multierror.Error
	for _, r := range splunk.DemoRules() {
		if err := s.splunk.DeleteRule(ctx, r.Name); err != nil {
			s.log.WithError(err).Warn("teardown: rule removal failed")
			errs = multierror.Append(errs, err)
		}
	}
	for _, p := range splunk.DemoPools() {
		if err := s.splunk.DeletePool(ctx, p.Name); err != nil {
			s.log.WithError(err).Warn("teardown: pool removal failed")
			errs = multierror.Append(errs, err)
		}
	}
	if err := s.splunk.DisableWorkloadManagement(ctx); err != nil {
		s.log.WithError(err).Warn("teardown: disabling workload management failed")
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

func (s *Sequencer) createPools(ctx context.Context, _ *logrus.Entry) error {
	for _, p := range splunk.DemoPools() {
		if err := s.splunk.CreatePool(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sequencer) createRules(ctx context.Context, _ *logrus.Entry) error {
	for _, r := range splunk.DemoRules() {
		if err := s.splunk.CreateRule(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// launchSearches attempts every launch even when one fails; a lost search
// only weakens the demo's display, it never gates the run.
func (s *Sequencer) launchSearches(ctx context.Context, _ *logrus.Entry) error {
	var errs *multierror.Error
	for _, spl := range splunk.DemoSearches {
		if err := s.splunk.LaunchSearch(ctx, spl); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

// waitFixed is the demo's only synchronization with the background searches:
// a fixed pause, not a completion check. Searches that outlive it simply
// show up in the inspection output mid-flight.
func (s *Sequencer) waitFixed(ctx context.Context, log *logrus.Entry) error {
	d := s.cfg.WaitDuration()
	log.Infof("waiting %s for the background searches to run", d)
	s.Sleep(ctx, d)
	return ctx.Err()
}

func (s *Sequencer) showResourceUsage(ctx context.Context, log *logrus.Entry) error {
	usage, err := s.kubectl.TopPod(ctx, s.cfg.Pod)
	if err != nil {
		return err
	}
	log.Infof("pod resource usage: %s", usage)
	return nil
}

func (s *Sequencer) showSearchProcesses(ctx context.Context, log *logrus.Entry) error {
	out, err := s.splunk.ListSearchProcesses(ctx)
	if err != nil {
		return err
	}
	if out == "" {
		log.Info("no search processes running")
		return nil
	}
	for _, line := range strings.Split(out, "\n") {
		log.Info(line)
	}
	return nil
}

func (s *Sequencer) showStatus(ctx context.Context, log *logrus.Entry) error {
	out, err := s.splunk.WorkloadStatus(ctx)
	if err != nil {
		return err
	}
	for _, line := range strings.Split(out, "\n") {
		log.Info(line)
	}
	return nil
}

func (s *Sequencer) deleteRules(ctx context.Context, _ *logrus.Entry) error {
	for _, r := range splunk.DemoRules() {
		if err := s.splunk.DeleteRule(ctx, r.Name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sequencer) deletePools(ctx context.Context, _ *logrus.Entry) error {
	for _, p := range splunk.DemoPools() {
		if err := s.splunk.DeletePool(ctx, p.Name); err != nil {
			return err
		}
	}
	return nil
}
