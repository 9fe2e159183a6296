package models

type EditSQLRequest struct {
	SQL string `json:"sql"`
}

type SelectViewRequest struct {
	// View is one of "upload", "sql" or "result".
	View string `json:"view" binding:"required" example:"sql"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
