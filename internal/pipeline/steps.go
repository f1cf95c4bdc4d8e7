package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/patentcrawl/internal/model"
)

// DetailStep populates the patent's detail content, which stores the detail
// page in the page cache.
type DetailStep struct {
	// required makes an unavailable detail page a step failure.
	required bool
	logger   *slog.Logger
}

// DetailStepOption configures a DetailStep.
type DetailStepOption func(*DetailStep)

// WithDetailRequired makes an unavailable detail page fail the step.
// By default it is logged and the step succeeds.
func WithDetailRequired(required bool) DetailStepOption {
	return func(s *DetailStep) {
		s.required = required
	}
}

// WithDetailLogger sets a custom logger for the detail step.
func WithDetailLogger(logger *slog.Logger) DetailStepOption {
	return func(s *DetailStep) {
		s.logger = logger
	}
}

// NewDetailStep creates a new detail step.
func NewDetailStep(opts ...DetailStepOption) *DetailStep {
	s := &DetailStep{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *DetailStep) Name() string {
	return "detail"
}

// Do fetches the detail page of job.Patent.
func (s *DetailStep) Do(ctx context.Context, job *Job) error {
	_, err := job.Patent.Detail(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, model.ErrDetailUnavailable) && !s.required {
		s.logger.Info("detail page unavailable", "patent", job.Patent.ID, "error", err)
		return nil
	}
	return err
}

// CitationStep resolves the citations of job.Patent and stores them in
// job.Citations. Resolving downloads the detail page of every cited patent.
type CitationStep struct{}

// NewCitationStep creates a new citation step.
func NewCitationStep() *CitationStep {
	return &CitationStep{}
}

// Name returns the step name.
func (s *CitationStep) Name() string {
	return "citations"
}

// Do resolves the citations of job.Patent.
func (s *CitationStep) Do(ctx context.Context, job *Job) error {
	cited, err := job.Patent.Citations(ctx)
	if err != nil {
		return err
	}
	job.Citations = cited
	return nil
}
