package jobqueue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type JobType string

const (
	JobTypeAnalyzeReport JobType = "analyze_report_image"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job is the JSON document stored under job:<id>.
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

type AnalyzePayload struct {
	ReportID string `json:"report_id"`
}

func (p AnalyzePayload) ToMap() map[string]interface{} {
	return map[string]interface{}{"report_id": p.ReportID}
}

// AnalyzePayloadFromMap also validates that report_id is a UUID.
func AnalyzePayloadFromMap(data map[string]interface{}) (*AnalyzePayload, uuid.UUID, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, uuid.Nil, err
	}
	var p AnalyzePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, uuid.Nil, err
	}
	id, err := uuid.Parse(p.ReportID)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("invalid report_id %q: %w", p.ReportID, err)
	}
	return &p, id, nil
}

func (j *Job) IsRetryable() bool {
	return j.RetryCount < j.MaxRetries
}

func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed records the error and counts the attempt.
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}

// RetryDelay grows linearly with the number of failed attempts.
func (j *Job) RetryDelay(base time.Duration) time.Duration {
	if j.RetryCount < 1 {
		return base
	}
	return base * time.Duration(j.RetryCount)
}
