// -----------------------------------------------------------------------
// Report Service - export a finished workflow as md, html, pdf or yaml
// -----------------------------------------------------------------------

package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/adscope/internal/models"
)

// Format is a report output format
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
	FormatYAML     Format = "yaml"
)

// ParseFormat accepts the format names used on the query string
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "pdf":
		return FormatPDF, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", &models.ValidationError{Field: "format", Message: "must be one of: md html pdf yaml"}
}

// ContentType returns the MIME type for the format
func (f Format) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	case FormatYAML:
		return "application/yaml"
	default:
		return "text/markdown; charset=utf-8"
	}
}

// Service renders workflow reports
type Service struct {
	markdown goldmark.Markdown
	logger   arbor.ILogger
}

// NewService creates a new report service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		logger: logger,
	}
}

// Render produces the report body for a workflow in the requested format
func (s *Service) Render(workflow *models.Workflow, format Format) ([]byte, error) {
	if workflow == nil {
		return nil, fmt.Errorf("render report: %w", models.ErrNotFound)
	}

	s.logger.Debug().
		Str("workflow_id", workflow.ID).
		Str("format", string(format)).
		Msg("Rendering workflow report")

	switch format {
	case FormatYAML:
		return s.renderYAML(workflow)
	case FormatHTML:
		return s.renderHTML(workflow)
	case FormatPDF:
		return s.renderPDF(workflow)
	default:
		return []byte(Markdown(workflow)), nil
	}
}

// yamlReport is the exported shape of a workflow
type yamlReport struct {
	WorkflowID  string              `yaml:"workflow_id"`
	Status      models.JobStatus    `yaml:"status"`
	CreatedAt   time.Time           `yaml:"created_at"`
	CompletedAt *time.Time          `yaml:"completed_at,omitempty"`
	CreditsUsed int                 `yaml:"credits_used"`
	Pages       []*models.PageTask  `yaml:"pages"`
	Analysis    models.AnalysisTask `yaml:"analysis"`
}

func (s *Service) renderYAML(workflow *models.Workflow) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	err := enc.Encode(yamlReport{
		WorkflowID:  workflow.ID,
		Status:      workflow.Status,
		CreatedAt:   workflow.CreatedAt,
		CompletedAt: workflow.CompletedAt,
		CreditsUsed: workflow.CreditsUsed,
		Pages:       workflow.Pages,
		Analysis:    workflow.Analysis,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode yaml report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode yaml report: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) renderHTML(workflow *models.Workflow) ([]byte, error) {
	var body bytes.Buffer
	if err := s.markdown.Convert([]byte(Markdown(workflow)), &body); err != nil {
		return nil, fmt.Errorf("failed to render html report: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&buf, "<title>Competitor report %s</title>\n", workflow.ID)
	buf.WriteString("</head>\n<body>\n")
	buf.Write(body.Bytes())
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes(), nil
}
