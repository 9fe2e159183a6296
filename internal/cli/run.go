package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"ui2sql-backend/internal/app"
	"ui2sql-backend/internal/models"
	"ui2sql-backend/internal/workflow"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	NoExecute  bool
	SQLFile    string
	JSONOutput bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <image>",
		Short: "Analyze an image, generate SQL and execute it",
		Example: `  # Full pipeline with the default simulated latencies
  ui2sql run schema.png

  # Stop after generation
  ui2sql run schema.png --no-execute

  # Execute a hand-edited statement instead of the generated one
  ui2sql run schema.png --sql-file edited.sql --analysis-delay 0 --generation-delay 0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NoExecute, "no-execute", false, "Stop once the SQL is generated")
	cmd.Flags().StringVar(&opts.SQLFile, "sql-file", "", "Replace the generated SQL with the contents of this file before executing")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Print the final workflow snapshot as JSON")

	return cmd
}

func runRun(cmd *cobra.Command, path string, opts *RunOptions) error {
	cfg := getConfig(cmd)
	out := &printer{w: cmd.OutOrStdout(), quiet: opts.JSONOutput}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	// Routes are never served here; keep gin's debug banner off the terminal.
	gin.SetMode(gin.ReleaseMode)
	a := app.New(cfg, newLogger(cmd, cfg), workflow.WithNotifier(out), workflow.WithObserver(out))
	defer a.Orchestrator.Close()

	// No declared type: the acceptor sniffs the bytes.
	accepted, err := a.Acceptor.Accept(models.UploadedFile{
		Filename: filepath.Base(path),
		Size:     int64(len(data)),
		Data:     data,
	})
	if err != nil {
		return err
	}
	out.printf("Accepted %s (%d bytes, %s)\n", accepted.Filename, accepted.Size, accepted.MediaType)

	ctx := cmd.Context()
	done, err := a.Orchestrator.Upload(ctx, accepted)
	if err != nil {
		return err
	}
	<-done

	snap := a.Orchestrator.Snapshot()
	if snap.State != workflow.StateReadyToExecute {
		return fmt.Errorf("processing failed: %s", snap.LastError)
	}
	out.printGeneration(snap)

	if opts.SQLFile != "" {
		edited, err := os.ReadFile(opts.SQLFile)
		if err != nil {
			return fmt.Errorf("failed to read SQL file: %w", err)
		}
		if err := a.Orchestrator.EditSQL(string(edited)); err != nil {
			return err
		}
	}

	if !opts.NoExecute {
		done, err = a.Orchestrator.Execute(ctx)
		if err != nil {
			return err
		}
		<-done
		snap = a.Orchestrator.Snapshot()
	}

	if opts.JSONOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			return err
		}
	}

	if opts.NoExecute {
		return nil
	}
	if snap.Execution == nil {
		return fmt.Errorf("execution failed: %s", snap.LastError)
	}
	out.printf("\n%s\n", snap.Execution.Message)
	if !snap.Execution.Success {
		return errors.New("execution reported failure")
	}
	return nil
}

// printer reports progress to the terminal. It implements workflow.Notifier
// and workflow.Observer.
type printer struct {
	mu       sync.Mutex
	w        io.Writer
	quiet    bool
	lastStep int
}

func (p *printer) printf(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.quiet {
		fmt.Fprintf(p.w, format, args...)
	}
}

func (p *printer) Notify(kind workflow.NotificationKind, text string) {
	p.printf("[%s] %s\n", kind, text)
}

func (p *printer) StateChanged(snap workflow.Snapshot) {
	p.mu.Lock()
	if snap.CurrentStep == p.lastStep || !snap.Processing || snap.CurrentStep >= len(snap.Steps) {
		p.lastStep = snap.CurrentStep
		p.mu.Unlock()
		return
	}
	p.lastStep = snap.CurrentStep
	p.mu.Unlock()

	step := snap.Steps[snap.CurrentStep]
	p.printf("Step %d/%d: %s - %s\n", step.Index+1, len(snap.Steps), step.Label, step.Description)
}

func (p *printer) printGeneration(snap workflow.Snapshot) {
	if snap.Generation == nil {
		return
	}
	p.printf("\nTables: %s\n\n%s\n\n%s\n", strings.Join(snap.Generation.Tables, ", "), snap.SQL, snap.Generation.Explanation)
}
