package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/heimdalr/dag"
	"github.com/sirupsen/logrus"

	"github.com/fareflow/fareflow/pkg/analytics"
	"github.com/fareflow/fareflow/pkg/fingerprint"
	"github.com/fareflow/fareflow/pkg/flight"
	"github.com/fareflow/fareflow/pkg/incremental"
	"github.com/fareflow/fareflow/pkg/ingest"
	"github.com/fareflow/fareflow/pkg/kpi"
	"github.com/fareflow/fareflow/pkg/observability"
	"github.com/fareflow/fareflow/pkg/staging"
	"github.com/fareflow/fareflow/pkg/transform"
	"github.com/fareflow/fareflow/pkg/validation"
)

// Run statuses recorded in the execution log
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// Stage names, also the vertex IDs of the stage graph
const (
	StageIngest    = "ingest"
	StageValidate  = "validate"
	StageTransform = "transform"
	StageKPI       = "kpi"
)

// StagingBackend is the staging store surface the pipeline needs
type StagingBackend interface {
	incremental.StagingStore
	ActiveRecords(ctx context.Context) ([]flight.StagedRecord, error)
	LogQualityChecks(ctx context.Context, entries []staging.QualityEntry) error
}

// AnalyticsBackend is the analytics store surface the pipeline needs
type AnalyticsBackend interface {
	incremental.AnalyticsStore
	ActiveRecords(ctx context.Context) ([]flight.AnalyticsRecord, error)
	SaveKPIs(ctx context.Context, results kpi.Results) error
	LogExecution(ctx context.Context, entry analytics.ExecutionEntry) error
}

// RunResult summarizes one pipeline run
type RunResult struct {
	RunID            string               `json:"run_id"`
	Status           string               `json:"status"`
	LoadMode         incremental.LoadMode `json:"load_mode"`
	ValidationStatus validation.Status    `json:"validation_status"`
	StartedAt        time.Time            `json:"started_at"`
	FinishedAt       time.Time            `json:"finished_at"`
	RowsIngested     int64                `json:"rows_ingested"`
	RowsInserted     int64                `json:"rows_inserted"`
	RowsUpdated      int64                `json:"rows_updated"`
	RowsUnchanged    int64                `json:"rows_unchanged"`
	RowsDeactivated  int64                `json:"rows_deactivated"`
	RowsFailed       int64                `json:"rows_failed"`
	Error            string               `json:"error,omitempty"`
}

// runState carries intermediate outputs between stages of one run
type runState struct {
	batch     []flight.StagedRecord
	changes   *incremental.ChangeSet
	checks    []validation.CheckResult
	transform transform.Result
	result    *RunResult
}

type stageFunc func(ctx context.Context, state *runState) error

// Orchestrator sequences the pipeline stages for a single run
type Orchestrator struct {
	log       logrus.FieldLogger
	cfg       *Config
	reader    *ingest.Reader
	validator *validation.Validator
	former    *transform.Transformer
	strategy  *incremental.Strategy
	writer    *incremental.Writer
	staging   StagingBackend
	analytics AnalyticsBackend

	graph  *dag.DAG
	stages map[string]stageFunc

	// now is injectable so load-mode selection is testable
	now func() time.Time
}

// NewOrchestrator wires the pipeline stages together
func NewOrchestrator(log logrus.FieldLogger, cfg *Config, stagingStore StagingBackend, analyticsStore AnalyticsBackend) (*Orchestrator, error) {
	hasher, err := fingerprint.New(fingerprint.Algorithm(cfg.Incremental.HashAlgorithm))
	if err != nil {
		return nil, err
	}

	strategy, err := incremental.NewStrategy(cfg.Incremental.Enabled, cfg.Incremental.FullRefreshDay)
	if err != nil {
		return nil, err
	}

	writer, err := incremental.NewWriter(log, stagingStore, analyticsStore, cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		log:       log.WithField("component", "pipeline"),
		cfg:       cfg,
		reader:    ingest.NewReader(log, hasher),
		validator: validation.NewValidator(log),
		former:    transform.NewTransformer(log),
		strategy:  strategy,
		writer:    writer,
		staging:   stagingStore,
		analytics: analyticsStore,
		now:       time.Now,
	}

	if err := o.buildGraph(); err != nil {
		return nil, err
	}

	return o, nil
}

// buildGraph declares the stage dependencies as a DAG. Execution order is
// derived from it rather than hard-coded so stages stay reorderable.
func (o *Orchestrator) buildGraph() error {
	o.graph = dag.NewDAG()
	o.stages = map[string]stageFunc{
		StageIngest:    o.runIngest,
		StageValidate:  o.runValidate,
		StageTransform: o.runTransform,
		StageKPI:       o.runKPI,
	}

	for name := range o.stages {
		if err := o.graph.AddVertexByID(name, name); err != nil {
			return fmt.Errorf("failed to add stage %s: %w", name, err)
		}
	}

	edges := [][2]string{
		{StageIngest, StageValidate},
		{StageValidate, StageTransform},
		{StageTransform, StageKPI},
	}
	for _, e := range edges {
		if err := o.graph.AddEdge(e[0], e[1]); err != nil {
			return fmt.Errorf("failed to add stage edge %s->%s: %w", e[0], e[1], err)
		}
	}

	return nil
}

// stageOrder returns the stages topologically sorted by ancestor count
func (o *Orchestrator) stageOrder() ([]string, error) {
	type ranked struct {
		name  string
		depth int
	}

	order := make([]ranked, 0, len(o.stages))

	for name := range o.stages {
		ancestors, err := o.graph.GetAncestors(name)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve stage order: %w", err)
		}

		order = append(order, ranked{name: name, depth: len(ancestors)})
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].depth != order[j].depth {
			return order[i].depth < order[j].depth
		}

		return order[i].name < order[j].name
	})

	names := make([]string, len(order))
	for i, r := range order {
		names[i] = r.name
	}

	return names, nil
}

// Run executes one pipeline run end to end. Stage failures stop the run;
// already committed batches are not rolled back. The run summary is always
// written to the execution log, success or not.
func (o *Orchestrator) Run(ctx context.Context) (RunResult, error) {
	result := RunResult{
		RunID:     uuid.New().String(),
		Status:    StatusSuccess,
		LoadMode:  o.strategy.Select(o.now()),
		StartedAt: o.now().UTC(),
	}

	state := &runState{result: &result}

	log := o.log.WithFields(logrus.Fields{
		"run_id":    result.RunID,
		"load_mode": result.LoadMode,
	})
	log.Info("Starting pipeline run")

	order, err := o.stageOrder()
	if err != nil {
		return o.finish(ctx, &result, err)
	}

	for _, name := range order {
		stageStart := time.Now()
		err := o.stages[name](ctx, state)
		status := "success"

		if err != nil {
			status = "failed"
		}

		observability.StageDuration.WithLabelValues(name, status).Observe(time.Since(stageStart).Seconds())

		if err != nil {
			log.WithError(err).WithField("stage", name).Error("Pipeline stage failed")

			return o.finish(ctx, &result, fmt.Errorf("stage %s: %w", name, err))
		}

		log.WithField("stage", name).Debug("Pipeline stage completed")
	}

	return o.finish(ctx, &result, nil)
}

// finish closes out the run: status, metrics, and the execution log entry
func (o *Orchestrator) finish(ctx context.Context, result *RunResult, runErr error) (RunResult, error) {
	result.FinishedAt = time.Now().UTC()

	if runErr != nil {
		result.Status = StatusFailed
		result.Error = runErr.Error()
	}

	observability.PipelineRunsTotal.WithLabelValues(string(result.LoadMode), statusLabel(result.Status)).Inc()
	observability.PipelineRunDuration.WithLabelValues(string(result.LoadMode)).
		Observe(result.FinishedAt.Sub(result.StartedAt).Seconds())

	entry := analytics.ExecutionEntry{
		RunID:           result.RunID,
		Status:          result.Status,
		LoadMode:        string(result.LoadMode),
		StartedAt:       result.StartedAt,
		FinishedAt:      result.FinishedAt,
		RowsIngested:    result.RowsIngested,
		RowsInserted:    result.RowsInserted,
		RowsUpdated:     result.RowsUpdated,
		RowsUnchanged:   result.RowsUnchanged,
		RowsDeactivated: result.RowsDeactivated,
		RowsFailed:      result.RowsFailed,
		Error:           result.Error,
	}
	if err := o.analytics.LogExecution(ctx, entry); err != nil {
		o.log.WithError(err).Warn("Failed to record execution log entry")
	}

	o.log.WithFields(logrus.Fields{
		"run_id":      result.RunID,
		"status":      result.Status,
		"inserted":    result.RowsInserted,
		"updated":     result.RowsUpdated,
		"unchanged":   result.RowsUnchanged,
		"deactivated": result.RowsDeactivated,
		"failed":      result.RowsFailed,
		"duration":    result.FinishedAt.Sub(result.StartedAt),
	}).Info("Pipeline run finished")

	return *result, runErr
}

func statusLabel(status string) string {
	if status == StatusSuccess {
		return "success"
	}

	return "failed"
}

// runIngest reads the CSV and applies the staging write path for the
// selected load mode
func (o *Orchestrator) runIngest(ctx context.Context, state *runState) error {
	batch, readResult, err := o.reader.Read(o.cfg.Ingest.CSVPath)
	if err != nil {
		return err
	}

	state.batch = batch
	state.result.RowsIngested = int64(readResult.Records)

	var report incremental.Report

	if state.result.LoadMode == incremental.LoadModeFullRefresh {
		report, err = o.writer.FullRefresh(ctx, batch)
		if err != nil {
			return err
		}
	} else {
		baseline, err := o.staging.ReadActiveFingerprints(ctx)
		if err != nil {
			// A failed baseline read degrades to "treat everything as new",
			// which is idempotent under the fingerprint upsert.
			o.log.WithError(err).Warn("Failed to read baseline, treating all records as new")

			baseline = incremental.Baseline{}
		}

		observability.BaselineSize.Set(float64(len(baseline)))

		changes := incremental.Classify(batch, baseline)
		state.changes = &changes
		report = o.writer.ApplyStaging(ctx, &changes)
	}

	state.result.RowsInserted += report.Inserted
	state.result.RowsUnchanged += report.Unchanged
	state.result.RowsDeactivated += report.Deactivated
	state.result.RowsFailed += report.Failed

	recordOutcomes(report)

	return nil
}

// runValidate runs the quality checks; FAILED aborts the run before
// transformation while WARNING lets it continue
func (o *Orchestrator) runValidate(ctx context.Context, state *runState) error {
	checks, overall := o.validator.Validate(state.batch)
	state.checks = checks
	state.result.ValidationStatus = overall

	entries := make([]staging.QualityEntry, 0, len(checks))

	for _, c := range checks {
		observability.ValidationChecks.WithLabelValues(c.Name, string(c.Status)).Inc()

		entries = append(entries, staging.QualityEntry{
			RunID:       state.result.RunID,
			CheckName:   c.Name,
			Status:      string(c.Status),
			RowsChecked: c.RowsChecked,
			RowsFailed:  c.RowsFailed,
			Detail:      c.Detail,
		})
	}

	if err := o.staging.LogQualityChecks(ctx, entries); err != nil {
		o.log.WithError(err).Warn("Failed to record quality check results")
	}

	if overall == validation.StatusFailed {
		return ErrValidationFailed
	}

	return nil
}

// runTransform turns active staged records into analytics upserts and
// propagates deactivations downstream
func (o *Orchestrator) runTransform(ctx context.Context, state *runState) error {
	staged, err := o.staging.ActiveRecords(ctx)
	if err != nil {
		return err
	}

	records, transformResult := o.former.Apply(staged)
	state.transform = transformResult

	report := o.writer.UpsertAnalytics(ctx, records)
	state.result.RowsUpdated += report.Updated
	state.result.RowsFailed += report.Failed

	recordOutcomes(incremental.Report{Updated: report.Updated, Failed: report.Failed})

	if state.changes != nil && len(state.changes.Deactivate) > 0 {
		o.writer.PropagateInactivity(ctx, state.changes.Deactivate)
	}

	return nil
}

// runKPI recomputes the KPI tables from the active analytics records
func (o *Orchestrator) runKPI(ctx context.Context, state *runState) error {
	records, err := o.analytics.ActiveRecords(ctx)
	if err != nil {
		return err
	}

	results := kpi.Compute(records, o.cfg.TopRoutes)

	return o.analytics.SaveKPIs(ctx, results)
}

func recordOutcomes(report incremental.Report) {
	outcomes := map[string]int64{
		"inserted":    report.Inserted,
		"updated":     report.Updated,
		"unchanged":   report.Unchanged,
		"deactivated": report.Deactivated,
		"failed":      report.Failed,
	}
	for outcome, count := range outcomes {
		if count > 0 {
			observability.RecordsProcessed.WithLabelValues(outcome).Add(float64(count))
		}
	}
}
