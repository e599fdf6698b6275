package dto

import "github.com/LDThien999/ptitclassroom-score-api/internal/models"

// ExportRequest captures POST /classrooms/:id/exports payload.
type ExportRequest struct {
	Type            models.ExportType   `json:"type" validate:"required,oneof=classroom_scores student_report"`
	ClassroomID     string              `json:"classroomId" validate:"required_if=Type classroom_scores"`
	StudentUsername string              `json:"studentUsername" validate:"required_if=Type student_report"`
	Format          models.ExportFormat `json:"format" validate:"required,oneof=csv pdf xlsx"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID         string              `json:"id"`
	Type       models.ExportType   `json:"type"`
	Status     models.ExportStatus `json:"status"`
	Progress   int                 `json:"progress"`
	ResultURL  *string             `json:"resultUrl,omitempty"`
	Error      *string             `json:"error,omitempty"`
	FinishedAt *string             `json:"finishedAt,omitempty"`
}
