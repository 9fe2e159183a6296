// Package mockapi stands in for the vision, SQL generation and SQL execution
// APIs. Every call waits a fixed delay and returns canned data.
package mockapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ui2sql-backend/internal/models"
	"ui2sql-backend/internal/services"
)

const (
	DefaultAnalysisDelay   = 3000 * time.Millisecond
	DefaultGenerationDelay = 2000 * time.Millisecond
	DefaultExecutionDelay  = 1500 * time.Millisecond

	ExecutionMessage = "SQL executed successfully! Created 4 tables with appropriate relationships."
	Explanation      = "Generated SQL schema for an e-commerce application with users, products, orders, and order items tables."
)

// ErrInjected is returned by a stage configured to fail.
var ErrInjected = errors.New("mock backend: injected failure")

type Options struct {
	AnalysisDelay   time.Duration
	GenerationDelay time.Duration
	ExecutionDelay  time.Duration

	// FailStage makes one stage ("analyze", "generate" or "execute") fail
	// after its delay.
	FailStage string
}

func DefaultOptions() Options {
	return Options{
		AnalysisDelay:   DefaultAnalysisDelay,
		GenerationDelay: DefaultGenerationDelay,
		ExecutionDelay:  DefaultExecutionDelay,
	}
}

type Client struct {
	opts Options
}

var _ services.Backend = (*Client)(nil)

func NewClient(opts Options) *Client {
	return &Client{opts: opts}
}

// Analyze ignores the image content and always describes the same schema.
func (c *Client) Analyze(ctx context.Context, file *models.AcceptedFile) (*models.AnalysisResult, error) {
	if file == nil {
		return nil, fmt.Errorf("no file to analyze")
	}
	if err := c.wait(ctx, c.opts.AnalysisDelay, services.OpAnalyze); err != nil {
		return nil, err
	}
	return SampleAnalysis(), nil
}

func (c *Client) GenerateSQL(ctx context.Context, analysis *models.AnalysisResult) (*models.SQLGenerationResult, error) {
	if analysis == nil {
		return nil, fmt.Errorf("no analysis to generate from")
	}
	if err := c.wait(ctx, c.opts.GenerationDelay, services.OpGenerate); err != nil {
		return nil, err
	}
	return &models.SQLGenerationResult{
		SQL:         SampleSQL,
		Tables:      TableNames(analysis),
		Explanation: Explanation,
	}, nil
}

// Execute does not parse the statement; the message is the same for any input.
func (c *Client) Execute(ctx context.Context, sql string) (*models.ExecutionResult, error) {
	if err := c.wait(ctx, c.opts.ExecutionDelay, services.OpExecute); err != nil {
		return nil, err
	}
	return &models.ExecutionResult{
		Success: true,
		Message: ExecutionMessage,
	}, nil
}

func (c *Client) wait(ctx context.Context, d time.Duration, op string) error {
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}
	if c.opts.FailStage == op {
		return ErrInjected
	}
	return nil
}

// TableNames lists the declared name of every "table" element in encounter
// order. Duplicates are kept.
func TableNames(analysis *models.AnalysisResult) []string {
	tables := make([]string, 0, len(analysis.Elements))
	for _, el := range analysis.Elements {
		if el.Type != "table" {
			continue
		}
		name, _ := el.Properties["name"].(string)
		tables = append(tables, name)
	}
	return tables
}
