package workflow

// Step describes one entry of the progress list.
type Step struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

type StepStatus string

const (
	StepCompleted StepStatus = "completed"
	StepCurrent   StepStatus = "current"
	StepPending   StepStatus = "pending"
)

type StepView struct {
	Step
	Index  int        `json:"index"`
	Status StepStatus `json:"status"`
}

// DefaultSteps returns the four pipeline steps.
func DefaultSteps() []Step {
	return []Step{
		{ID: "upload", Label: "Image Upload", Description: "Upload a UI screenshot to analyze"},
		{ID: "vision", Label: "AI Vision Analysis", Description: "Analyzing UI elements and structure"},
		{ID: "generate", Label: "SQL Generation", Description: "Generating SQL from the analysis"},
		{ID: "execute", Label: "Execute", Description: "Ready to execute the generated SQL"},
	}
}

// RenderSteps marks every step before current as completed, current as
// current and the rest as pending. steps is not modified.
func RenderSteps(steps []Step, current int) []StepView {
	views := make([]StepView, len(steps))
	for i, s := range steps {
		status := StepPending
		switch {
		case i < current:
			status = StepCompleted
		case i == current:
			status = StepCurrent
		}
		views[i] = StepView{Step: s, Index: i, Status: status}
	}
	return views
}
