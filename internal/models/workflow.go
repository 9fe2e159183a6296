package models

// UploadedFile is a user-supplied file before validation.
type UploadedFile struct {
	Filename  string
	MediaType string
	Size      int64
	Data      []byte
}

// AcceptedFile is an UploadedFile that passed type and size validation.
type AcceptedFile struct {
	ID        string
	Filename  string
	MediaType string
	Size      int64
	Data      []byte
	Preview   *Preview
}

// Preview is a renderable handle for an accepted image.
type Preview struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	MediaType string `json:"media_type"`
	Size      int64  `json:"size"`
}

type UIElement struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Children   []UIElement            `json:"children,omitempty"`
	Text       string                 `json:"text,omitempty"`
}

type StructureSummary struct {
	Layout   string   `json:"layout"`
	Sections []string `json:"sections"`
}

// AnalysisResult is the vision stage output for one upload.
type AnalysisResult struct {
	Elements  []UIElement      `json:"elements"`
	Structure StructureSummary `json:"structure"`
}

// SQLGenerationResult is the generation stage output for one AnalysisResult.
type SQLGenerationResult struct {
	SQL         string   `json:"sql"`
	Tables      []string `json:"tables"`
	Explanation string   `json:"explanation"`
}

type ExecutionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
