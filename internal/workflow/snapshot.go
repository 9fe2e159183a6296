package workflow

import "ui2sql-backend/internal/models"

// FileInfo is what the session keeps about the accepted file. Image bytes
// stay with the upload preview store.
type FileInfo struct {
	ID        string          `json:"id"`
	Filename  string          `json:"filename"`
	MediaType string          `json:"media_type"`
	Size      int64           `json:"size"`
	Preview   *models.Preview `json:"preview,omitempty"`
}

func fileInfo(f *models.AcceptedFile) *FileInfo {
	return &FileInfo{
		ID:        f.ID,
		Filename:  f.Filename,
		MediaType: f.MediaType,
		Size:      f.Size,
		Preview:   f.Preview,
	}
}

type ViewAvailability struct {
	Upload bool `json:"upload"`
	SQL    bool `json:"sql"`
	Result bool `json:"result"`
}

func (a ViewAvailability) allows(v View) bool {
	switch v {
	case ViewUpload:
		return a.Upload
	case ViewSQL:
		return a.SQL
	case ViewResult:
		return a.Result
	}
	return false
}

// Snapshot is a point-in-time copy of the session.
type Snapshot struct {
	RunID           string                      `json:"run_id,omitempty"`
	State           State                       `json:"state"`
	Processing      bool                        `json:"processing"`
	CurrentStep     int                         `json:"current_step"`
	Steps           []StepView                  `json:"steps"`
	ActiveView      View                        `json:"active_view"`
	ViewTitle       string                      `json:"view_title"`
	ViewDescription string                      `json:"view_description"`
	Views           ViewAvailability            `json:"views"`
	File            *FileInfo                   `json:"file,omitempty"`
	Analysis        *models.AnalysisResult      `json:"analysis,omitempty"`
	Generation      *models.SQLGenerationResult `json:"generation,omitempty"`
	SQL             string                      `json:"sql"`
	SQLEdited       bool                        `json:"sql_edited"`
	Execution       *models.ExecutionResult     `json:"execution,omitempty"`
	LastError       string                      `json:"last_error,omitempty"`
}

func (o *Orchestrator) availabilityLocked() ViewAvailability {
	processing := o.state.Processing()
	return ViewAvailability{
		Upload: !processing,
		SQL:    o.generation != nil && !processing,
		Result: o.execution != nil,
	}
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	step := o.state.StepIndex()
	snap := Snapshot{
		RunID:           o.runID,
		State:           o.state,
		Processing:      o.state.Processing(),
		CurrentStep:     step,
		Steps:           RenderSteps(o.steps, step),
		ActiveView:      o.view,
		ViewTitle:       o.view.Title(),
		ViewDescription: o.view.Description(),
		Views:           o.availabilityLocked(),
		Analysis:        o.analysis,
		SQL:             o.currentSQLLocked(),
		SQLEdited:       o.editedSQL != nil,
		LastError:       o.lastError,
	}
	if o.file != nil {
		f := *o.file
		snap.File = &f
	}
	if o.generation != nil {
		g := *o.generation
		g.Tables = append([]string(nil), o.generation.Tables...)
		snap.Generation = &g
	}
	if o.execution != nil {
		e := *o.execution
		snap.Execution = &e
	}
	return snap
}
