package models

type UploadResponse struct {
	FileID   string   `json:"file_id"`
	Filename string   `json:"filename"`
	Size     int64    `json:"size"`
	Preview  *Preview `json:"preview"`
	Status   string   `json:"status"`
}

type PreviewDataResponse struct {
	ID      string `json:"id"`
	DataURI string `json:"data_uri"`
}

type ExecuteResponse struct {
	Status string `json:"status"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
