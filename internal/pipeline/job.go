package pipeline

import "github.com/nao1215/patentcrawl/internal/model"

// Job is the unit of work flowing through a Pipeline.
type Job struct {
	// Patent is the patent being processed.
	Patent *model.Patent

	// Citations holds the resolved citations once CitationStep ran.
	Citations []*model.Patent

	// PerformedSteps lists the names of the steps that ran, in order.
	PerformedSteps []string

	// Err is the last step error, or nil.
	Err error

	// Cancelled is set when the context ended before all steps ran.
	Cancelled bool
}

// NewJob creates a Job for p.
func NewJob(p *model.Patent) *Job {
	return &Job{
		Patent:         p,
		PerformedSteps: make([]string, 0),
	}
}

// Failed reports whether any step failed or the job was cancelled.
func (j *Job) Failed() bool {
	return j.Err != nil || j.Cancelled
}
