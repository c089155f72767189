package common

import (
	"github.com/google/uuid"
)

// NewJobID generates a unique scrape job ID
// Format: job_<uuid>
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewWorkflowID generates a unique workflow ID
// Format: wf_<uuid>
func NewWorkflowID() string {
	return "wf_" + uuid.New().String()
}
