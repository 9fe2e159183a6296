package workflow

import (
	"errors"
	"fmt"
)

var (
	ErrBusy            = errors.New("a request is already in progress")
	ErrNotReady        = errors.New("no generated SQL to work with yet")
	ErrViewUnavailable = errors.New("view is not available right now")
	ErrClosed          = errors.New("workflow is shut down")
)

// State is the position of the session in the upload → analyze → generate →
// execute pipeline.
type State int

const (
	StateIdle State = iota
	StateAwaitingAnalysis
	StateAwaitingGeneration
	StateReadyToExecute
	StateAwaitingExecution
	StateExecuted
)

var stateNames = map[State]string{
	StateIdle:               "idle",
	StateAwaitingAnalysis:   "awaiting_analysis",
	StateAwaitingGeneration: "awaiting_generation",
	StateReadyToExecute:     "ready_to_execute",
	StateAwaitingExecution:  "awaiting_execution",
	StateExecuted:           "executed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Processing is true while a backend call is in flight.
func (s State) Processing() bool {
	switch s {
	case StateAwaitingAnalysis, StateAwaitingGeneration, StateAwaitingExecution:
		return true
	}
	return false
}

// StepIndex maps the state onto the four user-facing steps.
func (s State) StepIndex() int {
	switch s {
	case StateAwaitingAnalysis:
		return 1
	case StateAwaitingGeneration:
		return 2
	case StateReadyToExecute, StateAwaitingExecution, StateExecuted:
		return 3
	default:
		return 0
	}
}

// View is one of the three result panes.
type View string

const (
	ViewUpload View = "upload"
	ViewSQL    View = "sql"
	ViewResult View = "result"
)

func ParseView(s string) (View, error) {
	switch v := View(s); v {
	case ViewUpload, ViewSQL, ViewResult:
		return v, nil
	}
	return "", fmt.Errorf("unknown view %q", s)
}

// Title and Description are the pane headings shown for each view.
func (v View) Title() string {
	switch v {
	case ViewSQL:
		return "Generated SQL"
	case ViewResult:
		return "Execution Result"
	default:
		return "Upload UI Screenshot"
	}
}

func (v View) Description() string {
	switch v {
	case ViewSQL:
		return "Review and edit the generated SQL"
	case ViewResult:
		return "View the execution output"
	default:
		return "Upload a screenshot of your UI or database schema"
	}
}

type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
)

// User-facing notification texts.
const (
	MsgGenerated     = "SQL generated successfully!"
	MsgProcessFailed = "Failed to process image. Please try again."
	MsgExecuted      = "SQL executed successfully!"
	MsgExecuteFailed = "Failed to execute SQL. Please check the syntax."
)

// Notifier receives fire-and-forget user notifications.
type Notifier interface {
	Notify(kind NotificationKind, text string)
}

// Observer receives a snapshot after every state change.
type Observer interface {
	StateChanged(snapshot Snapshot)
}
