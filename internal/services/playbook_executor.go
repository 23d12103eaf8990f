package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sentinelsoc/soc-core/internal/metrics"
	"github.com/sentinelsoc/soc-core/internal/models"
	"github.com/sentinelsoc/soc-core/internal/storage"
	"github.com/sentinelsoc/soc-core/pkg/logger"
)

// PlaybookExecutor owns the execution state machine. Steps are advanced by
// analysts over the API; the executor serializes mutations per execution so
// two concurrent step updates can never interleave a read-modify-write.
type PlaybookExecutor struct {
	playbooks storage.PlaybookStore
	hub       Broadcaster
	logger    logger.Logger
	now       func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewPlaybookExecutor(playbooks storage.PlaybookStore, hub Broadcaster, log logger.Logger) *PlaybookExecutor {
	return &PlaybookExecutor{
		playbooks: playbooks,
		hub:       hub,
		logger:    log,
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
}

// lockFor returns the per-execution mutex, creating it on first use. Entries
// are never reaped; executions are low-cardinality and short-lived relative
// to process lifetime.
func (x *PlaybookExecutor) lockFor(execID string) *sync.Mutex {
	x.mu.Lock()
	defer x.mu.Unlock()
	l, ok := x.locks[execID]
	if !ok {
		l = &sync.Mutex{}
		x.locks[execID] = l
	}
	return l
}

// Start creates a new execution of an active playbook.
func (x *PlaybookExecutor) Start(ctx context.Context, playbookID string, trigger models.ExecutionTrigger) (*models.PlaybookExecution, error) {
	playbook, err := x.playbooks.GetPlaybook(ctx, playbookID)
	if err != nil {
		return nil, err
	}
	if playbook.Status != models.PlaybookActive {
		return nil, models.NewStateConflictError("playbook", playbookID, string(playbook.Status), "execute")
	}

	exec := models.NewExecution(playbook, trigger, x.now().UTC())
	if err := x.playbooks.InsertExecution(ctx, exec); err != nil {
		return nil, err
	}
	metrics.PlaybookExecutionsTotal.WithLabelValues(string(models.ExecutionInProgress)).Inc()
	x.logger.Info("playbook execution started",
		"execution", exec.ID, "playbook", playbookID, "by", exec.StartedBy)
	x.publishUpdate(exec)
	return exec, nil
}

// UpdateStep transitions one step of a running execution. When the update
// leaves every step terminal, the execution auto-completes.
func (x *PlaybookExecutor) UpdateStep(ctx context.Context, execID string, stepIndex int, status models.StepStatus, result string) (*models.PlaybookExecution, error) {
	l := x.lockFor(execID)
	l.Lock()
	defer l.Unlock()

	exec, err := x.playbooks.GetExecution(ctx, execID)
	if err != nil {
		return nil, err
	}
	if exec.Status != models.ExecutionInProgress {
		return nil, models.NewStateConflictError("execution", execID, string(exec.Status), "update step of")
	}
	if !status.Valid() {
		return nil, models.NewValidationError("status", "unknown step status: "+string(status))
	}
	if stepIndex < 0 || stepIndex >= len(exec.Steps) {
		return nil, models.NewValidationError("step_index",
			fmt.Sprintf("out of range: %d (execution has %d steps)", stepIndex, len(exec.Steps)))
	}

	now := x.now().UTC()
	step := &exec.Steps[stepIndex]
	step.Status = status
	if result != "" {
		step.Result = result
	}
	if status == models.StepRunning && step.StartedAt == nil {
		step.StartedAt = &now
	}
	if status.Terminal() && step.CompletedAt == nil {
		step.CompletedAt = &now
	}
	exec.CurrentStep = stepIndex

	if exec.AllStepsTerminal() {
		x.finish(exec, models.ExecutionCompleted, "all steps finished", now)
	}

	if err := x.playbooks.UpdateExecution(ctx, exec); err != nil {
		return nil, err
	}
	x.publishUpdate(exec)
	return exec, nil
}

// Abort terminates a running execution. Steps still pending are marked
// skipped; running steps keep their state for the post-mortem.
func (x *PlaybookExecutor) Abort(ctx context.Context, execID, reason string) (*models.PlaybookExecution, error) {
	l := x.lockFor(execID)
	l.Lock()
	defer l.Unlock()

	exec, err := x.playbooks.GetExecution(ctx, execID)
	if err != nil {
		return nil, err
	}
	if exec.Status != models.ExecutionInProgress {
		return nil, models.NewStateConflictError("execution", execID, string(exec.Status), "abort")
	}

	now := x.now().UTC()
	for i := range exec.Steps {
		if exec.Steps[i].Status == models.StepPending {
			exec.Steps[i].Status = models.StepSkipped
			exec.Steps[i].CompletedAt = &now
		}
	}
	if reason == "" {
		reason = "aborted"
	}
	x.finish(exec, models.ExecutionAborted, reason, now)

	if err := x.playbooks.UpdateExecution(ctx, exec); err != nil {
		return nil, err
	}
	x.logger.Info("playbook execution aborted", "execution", execID, "reason", reason)
	x.publishUpdate(exec)
	return exec, nil
}

// Complete force-finishes a running execution regardless of step state.
func (x *PlaybookExecutor) Complete(ctx context.Context, execID, result string) (*models.PlaybookExecution, error) {
	l := x.lockFor(execID)
	l.Lock()
	defer l.Unlock()

	exec, err := x.playbooks.GetExecution(ctx, execID)
	if err != nil {
		return nil, err
	}
	if exec.Status != models.ExecutionInProgress {
		return nil, models.NewStateConflictError("execution", execID, string(exec.Status), "complete")
	}

	if result == "" {
		result = "completed"
	}
	x.finish(exec, models.ExecutionCompleted, result, x.now().UTC())

	if err := x.playbooks.UpdateExecution(ctx, exec); err != nil {
		return nil, err
	}
	x.publishUpdate(exec)
	return exec, nil
}

func (x *PlaybookExecutor) finish(exec *models.PlaybookExecution, status models.ExecutionStatus, result string, now time.Time) {
	exec.Status = status
	exec.Result = result
	exec.CompletedAt = &now
	metrics.PlaybookExecutionsTotal.WithLabelValues(string(status)).Inc()
}

func (x *PlaybookExecutor) publishUpdate(exec *models.PlaybookExecution) {
	x.hub.PublishAlert(map[string]interface{}{
		"type":      "playbook_execution",
		"execution": exec,
	})
}
