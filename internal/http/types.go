package http

import (
	"time"

	"github.com/fyrsmithlabs/attnd/internal/metadata"
	"github.com/fyrsmithlabs/attnd/internal/profile"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FolderRequest selects a folder root. GET requests carry it in the query.
type FolderRequest struct {
	FolderPath string `json:"folder_path" query:"folder_path"`
}

// FileRequest selects a file under a folder root.
type FileRequest struct {
	FolderPath string `json:"folder_path" query:"folder_path"`
	FilePath   string `json:"file_path" query:"file_path"`
}

// AnalyzeResponse is the response body for POST /api/v1/analyze.
type AnalyzeResponse struct {
	FolderPath string           `json:"folder_path"`
	Analysis   *profile.Profile `json:"analysis"`
}

// UpdateFileRequest is the request body for PUT /api/v1/file.
type UpdateFileRequest struct {
	FolderPath string  `json:"folder_path"`
	FilePath   string  `json:"file_path"`
	Content    *string `json:"content"`
}

// UpdateFileResponse is the response body for PUT /api/v1/file.
type UpdateFileResponse struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	ModifiedAt time.Time `json:"modified_at"`
}

// MetadataResponse wraps metadata reads.
type MetadataResponse struct {
	Metadata interface{} `json:"metadata"`
}

// UpdateMetadataRequest is the request body for PUT /api/v1/metadata.
type UpdateMetadataRequest struct {
	FolderPath string          `json:"folder_path"`
	FilePath   string          `json:"file_path"`
	Metadata   *metadata.Entry `json:"metadata"`
}

// ReplaceAllMetadataRequest is the request body for PUT /api/v1/metadata/all.
type ReplaceAllMetadataRequest struct {
	FolderPath string      `json:"folder_path"`
	Data       interface{} `json:"data"`
}

// SuccessResponse acknowledges a write.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
