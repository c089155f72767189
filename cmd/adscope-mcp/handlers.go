package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/handlers"
	"github.com/ternarybob/adscope/internal/models"
	"github.com/ternarybob/adscope/internal/services/ads"
)

// adsService is everything the MCP tools need from the ads service
type adsService interface {
	handlers.JobService
	handlers.WorkflowService
	handlers.AnalysisService
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

// errorResult reports a failure as tool output. Only unexpected errors are logged.
func errorResult(logger arbor.ILogger, action string, err error) *mcp.CallToolResult {
	var validationErr *models.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return textResult(fmt.Sprintf("Invalid request: %v", err))
	case errors.Is(err, models.ErrNotFound):
		return textResult(fmt.Sprintf("%s: not found", action))
	case errors.Is(err, models.ErrTerminal), errors.Is(err, models.ErrInvalidTransition):
		return textResult(fmt.Sprintf("%s: %v", action, err))
	}
	logger.Error().Err(err).Str("action", action).Msg("MCP tool failed")
	return textResult(fmt.Sprintf("%s error: %v", action, err))
}

// handleCreateScrapeJob implements the create_scrape_job tool
func handleCreateScrapeJob(service adsService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return textResult("Error: query parameter is required"), nil
		}

		job, err := service.CreateScrapeJob(ads.ScrapeRequest{
			Query:  query,
			Limit:  request.GetInt("limit", 0),
			Region: request.GetString("region", ""),
		})
		if err != nil {
			return errorResult(logger, "Create scrape job", err), nil
		}
		return textResult(formatJob(job)), nil
	}
}

// handleGetJobStatus implements the get_job_status tool
func handleGetJobStatus(service adsService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobID, err := request.RequireString("job_id")
		if err != nil || jobID == "" {
			return textResult("Error: job_id parameter is required"), nil
		}

		job, err := service.GetJobStatus(ctx, jobID)
		if err != nil {
			return errorResult(logger, "Job "+jobID, err), nil
		}
		return textResult(formatJob(job)), nil
	}
}

// handleGetJobResults implements the get_job_results tool
func handleGetJobResults(service adsService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobID, err := request.RequireString("job_id")
		if err != nil || jobID == "" {
			return textResult("Error: job_id parameter is required"), nil
		}

		page, err := service.GetJobResults(ctx, jobID, request.GetInt("page", 1), request.GetInt("page_size", 20))
		if err != nil {
			return errorResult(logger, "Job "+jobID, err), nil
		}
		return textResult(formatResultsPage(page)), nil
	}
}

func handleCreateWorkflow(service adsService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		yourPage, err := request.RequireString("your_page_url")
		if err != nil || yourPage == "" {
			return textResult("Error: your_page_url parameter is required"), nil
		}
		competitors := request.GetStringSlice("competitor_urls", nil)
		if len(competitors) == 0 {
			return textResult("Error: competitor_urls must contain at least one URL"), nil
		}

		workflow, err := service.CreateWorkflow(ads.WorkflowRequest{
			YourPageURL:    yourPage,
			CompetitorURLs: competitors,
		})
		if err != nil {
			return errorResult(logger, "Create workflow", err), nil
		}
		return textResult(formatWorkflow(workflow)), nil
	}
}

func handleGetWorkflowStatus(service adsService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		workflowID, err := request.RequireString("workflow_id")
		if err != nil || workflowID == "" {
			return textResult("Error: workflow_id parameter is required"), nil
		}

		workflow, err := service.GetWorkflowStatus(ctx, workflowID)
		if err != nil {
			return errorResult(logger, "Workflow "+workflowID, err), nil
		}
		return textResult(formatWorkflow(workflow)), nil
	}
}

func handleCancelWorkflow(service adsService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		workflowID, err := request.RequireString("workflow_id")
		if err != nil || workflowID == "" {
			return textResult("Error: workflow_id parameter is required"), nil
		}

		workflow, err := service.CancelWorkflow(workflowID)
		if err != nil {
			return errorResult(logger, "Cancel workflow "+workflowID, err), nil
		}
		return textResult(formatWorkflow(workflow)), nil
	}
}

func handleGetWorkflowResults(service adsService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		workflowID, err := request.RequireString("workflow_id")
		if err != nil || workflowID == "" {
			return textResult("Error: workflow_id parameter is required"), nil
		}

		results, err := service.GetWorkflowResults(ctx, workflowID)
		if err != nil {
			return errorResult(logger, "Workflow "+workflowID, err), nil
		}
		return textResult(formatWorkflowResults(results)), nil
	}
}

// handleChatWithAnalysis implements the chat_with_analysis tool
func handleChatWithAnalysis(service adsService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := request.RequireString("message")
		if err != nil || message == "" {
			return textResult("Error: message parameter is required"), nil
		}

		reply, err := service.ChatWithAnalysis(ctx, ads.ChatRequest{
			Message:    message,
			WorkflowID: request.GetString("workflow_id", ""),
		})
		if err != nil {
			return errorResult(logger, "Chat", err), nil
		}
		return textResult(formatChatReply(reply)), nil
	}
}
