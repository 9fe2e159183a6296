// Package workflow sequences the analyze → generate → execute calls for a
// single in-memory session and derives everything the UI shows from one
// state value.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"ui2sql-backend/internal/models"
	"ui2sql-backend/internal/services"
)

type Option func(*Orchestrator)

func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func WithSteps(steps []Step) Option {
	return func(o *Orchestrator) { o.steps = steps }
}

// Orchestrator owns the workflow session. Upload and Execute reject new work
// while a call is in flight (ErrBusy); there is never more than one
// outstanding backend call.
type Orchestrator struct {
	backend  services.Backend
	notifier Notifier
	observer Observer
	logger   *slog.Logger
	steps    []Step

	mu         sync.Mutex
	state      State
	view       View
	runID      string
	file       *FileInfo
	analysis   *models.AnalysisResult
	generation *models.SQLGenerationResult
	editedSQL  *string
	execution  *models.ExecutionResult
	lastError  string
	cancel     context.CancelFunc
	closed     bool

	wg sync.WaitGroup
}

func New(backend services.Backend, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend: backend,
		steps:   DefaultSteps(),
		state:   StateIdle,
		view:    ViewUpload,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Upload starts a new run for an accepted file. All results of the previous
// run are discarded. The returned channel is closed once the run settles at
// ReadyToExecute or back at Idle.
func (o *Orchestrator) Upload(ctx context.Context, file *models.AcceptedFile) (<-chan struct{}, error) {
	if file == nil {
		return nil, errors.New("no file to process")
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}
	if o.state.Processing() {
		o.mu.Unlock()
		return nil, ErrBusy
	}

	o.clearResultsLocked()
	o.runID = uuid.New().String()
	o.file = fileInfo(file)
	o.state = StateAwaitingAnalysis
	o.view = ViewUpload
	runID := o.runID
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.logger.Info("pipeline started", "run_id", runID, "filename", file.Filename, "size", file.Size)
	o.publish(snap)

	return o.spawn(cancel, func() { o.runPipeline(runCtx, runID, file) }), nil
}

// Execute runs the current SQL text, including any user edits.
func (o *Orchestrator) Execute(ctx context.Context) (<-chan struct{}, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}
	if o.state.Processing() {
		o.mu.Unlock()
		return nil, ErrBusy
	}
	if o.state != StateReadyToExecute && o.state != StateExecuted {
		o.mu.Unlock()
		return nil, ErrNotReady
	}

	sql := o.currentSQLLocked()
	o.execution = nil
	o.lastError = ""
	o.state = StateAwaitingExecution
	if o.view == ViewResult {
		o.view = ViewSQL
	}
	runID := o.runID
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.logger.Info("execution started", "run_id", runID, "sql_bytes", len(sql))
	o.publish(snap)

	return o.spawn(cancel, func() { o.runExecution(runCtx, runID, sql) }), nil
}

// EditSQL replaces the editable SQL text. Tables and explanation keep
// describing the generated statement.
func (o *Orchestrator) EditSQL(sql string) error {
	o.mu.Lock()
	if o.state.Processing() {
		o.mu.Unlock()
		return ErrBusy
	}
	if o.generation == nil {
		o.mu.Unlock()
		return ErrNotReady
	}
	o.editedSQL = &sql
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.publish(snap)
	return nil
}

// AttachPreview records the preview of the file that fileID names. It is a
// no-op once another upload has replaced that file.
func (o *Orchestrator) AttachPreview(fileID string, preview *models.Preview) bool {
	o.mu.Lock()
	if o.file == nil || o.file.ID != fileID {
		o.mu.Unlock()
		return false
	}
	o.file.Preview = preview
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.publish(snap)
	return true
}

// DetachPreview forgets a revoked preview so snapshots stop pointing at it.
func (o *Orchestrator) DetachPreview(previewID string) bool {
	o.mu.Lock()
	if o.file == nil || o.file.Preview == nil || o.file.Preview.ID != previewID {
		o.mu.Unlock()
		return false
	}
	o.file.Preview = nil
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.publish(snap)
	return true
}

func (o *Orchestrator) SelectView(v View) error {
	o.mu.Lock()
	if !o.availabilityLocked().allows(v) {
		o.mu.Unlock()
		return ErrViewUnavailable
	}
	o.view = v
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.publish(snap)
	return nil
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Close cancels any in-flight call and waits for it to settle. Results that
// arrive after Close are dropped.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	if o.cancel != nil {
		o.cancel()
	}
	o.mu.Unlock()
	o.wg.Wait()
}

func (o *Orchestrator) spawn(cancel context.CancelFunc, fn func()) <-chan struct{} {
	done := make(chan struct{})
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer close(done)
		defer cancel()
		fn()
	}()
	return done
}

func (o *Orchestrator) runPipeline(ctx context.Context, runID string, file *models.AcceptedFile) {
	analysis, err := o.backend.Analyze(ctx, file)
	if err != nil {
		o.failProcessing(runID, err)
		return
	}
	ok := o.advance(runID, func() {
		o.analysis = analysis
		o.state = StateAwaitingGeneration
	})
	if !ok {
		return
	}
	o.logger.Info("analysis completed", "run_id", runID, "elements", len(analysis.Elements))

	generation, err := o.backend.GenerateSQL(ctx, analysis)
	if err != nil {
		o.failProcessing(runID, err)
		return
	}
	ok = o.advance(runID, func() {
		o.generation = generation
		o.state = StateReadyToExecute
		o.view = ViewSQL
	})
	if !ok {
		return
	}
	o.logger.Info("sql generated", "run_id", runID, "tables", generation.Tables)
	o.notify(NotifySuccess, MsgGenerated)
}

func (o *Orchestrator) runExecution(ctx context.Context, runID string, sql string) {
	result, err := o.backend.Execute(ctx, sql)
	if err != nil {
		ok := o.advance(runID, func() {
			o.state = StateReadyToExecute
			o.lastError = err.Error()
		})
		if ok {
			o.logger.Error("execution failed", "run_id", runID, "error", err)
			o.notify(NotifyError, MsgExecuteFailed)
		}
		return
	}

	ok := o.advance(runID, func() {
		o.execution = result
		o.state = StateExecuted
		o.view = ViewResult
	})
	if !ok {
		return
	}
	o.logger.Info("execution completed", "run_id", runID, "success", result.Success)
	if result.Success {
		o.notify(NotifySuccess, MsgExecuted)
	} else {
		o.notify(NotifyError, MsgExecuteFailed)
	}
}

// failProcessing drops every partial result of the run and returns to Idle.
func (o *Orchestrator) failProcessing(runID string, err error) {
	ok := o.advance(runID, func() {
		o.clearResultsLocked()
		o.file = nil
		o.state = StateIdle
		o.view = ViewUpload
		o.lastError = err.Error()
	})
	if !ok {
		return
	}
	o.logger.Error("pipeline failed", "run_id", runID, "error", err)
	o.notify(NotifyError, MsgProcessFailed)
}

// advance applies fn if runID is still the live run, then publishes the new
// state. It reports whether fn was applied.
func (o *Orchestrator) advance(runID string, fn func()) bool {
	o.mu.Lock()
	if o.closed || o.runID != runID {
		o.mu.Unlock()
		o.logger.Debug("dropping stale result", "run_id", runID)
		return false
	}
	fn()
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.publish(snap)
	return true
}

func (o *Orchestrator) clearResultsLocked() {
	o.analysis = nil
	o.generation = nil
	o.editedSQL = nil
	o.execution = nil
	o.lastError = ""
}

func (o *Orchestrator) currentSQLLocked() string {
	if o.editedSQL != nil {
		return *o.editedSQL
	}
	if o.generation != nil {
		return o.generation.SQL
	}
	return ""
}

func (o *Orchestrator) publish(snap Snapshot) {
	if o.observer != nil {
		o.observer.StateChanged(snap)
	}
}

func (o *Orchestrator) notify(kind NotificationKind, text string) {
	if o.notifier != nil {
		o.notifier.Notify(kind, text)
	}
}
