// Package services defines the boundary between the workflow and the
// vision, generation and execution backends.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ui2sql-backend/internal/models"
)

// Operation names carried by ServiceError.
const (
	OpAnalyze  = "analyze"
	OpGenerate = "generate"
	OpExecute  = "execute"
)

type Analyzer interface {
	Analyze(ctx context.Context, file *models.AcceptedFile) (*models.AnalysisResult, error)
}

type SQLGenerator interface {
	GenerateSQL(ctx context.Context, analysis *models.AnalysisResult) (*models.SQLGenerationResult, error)
}

type SQLExecutor interface {
	Execute(ctx context.Context, sql string) (*models.ExecutionResult, error)
}

// Backend bundles the three calls the workflow needs.
type Backend interface {
	Analyzer
	SQLGenerator
	SQLExecutor
}

// ServiceError reports which backend call failed and why.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether the call ran past its deadline.
func (e *ServiceError) IsTimeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return err
	}
	return &ServiceError{Op: op, Err: err}
}

type timeoutBackend struct {
	next    Backend
	timeout time.Duration
}

// WithTimeout bounds every call to next with its own deadline. A zero timeout
// only normalises errors to *ServiceError.
func WithTimeout(next Backend, timeout time.Duration) Backend {
	return &timeoutBackend{next: next, timeout: timeout}
}

func (b *timeoutBackend) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.timeout)
}

func (b *timeoutBackend) Analyze(ctx context.Context, file *models.AcceptedFile) (*models.AnalysisResult, error) {
	ctx, cancel := b.bound(ctx)
	defer cancel()
	res, err := b.next.Analyze(ctx, file)
	if err == nil && res == nil {
		err = errors.New("empty analysis result")
	}
	if err != nil {
		return nil, wrap(OpAnalyze, err)
	}
	return res, nil
}

func (b *timeoutBackend) GenerateSQL(ctx context.Context, analysis *models.AnalysisResult) (*models.SQLGenerationResult, error) {
	ctx, cancel := b.bound(ctx)
	defer cancel()
	res, err := b.next.GenerateSQL(ctx, analysis)
	if err == nil && res == nil {
		err = errors.New("empty generation result")
	}
	if err != nil {
		return nil, wrap(OpGenerate, err)
	}
	return res, nil
}

func (b *timeoutBackend) Execute(ctx context.Context, sql string) (*models.ExecutionResult, error) {
	ctx, cancel := b.bound(ctx)
	defer cancel()
	res, err := b.next.Execute(ctx, sql)
	if err == nil && res == nil {
		err = errors.New("empty execution result")
	}
	if err != nil {
		return nil, wrap(OpExecute, err)
	}
	return res, nil
}
