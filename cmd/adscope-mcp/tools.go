package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createScrapeJobTool returns the create_scrape_job tool definition
func createScrapeJobTool() mcp.Tool {
	return mcp.NewTool("create_scrape_job",
		mcp.WithDescription("Start an asynchronous Facebook Ad Library scrape and return the job id"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search term or advertiser name"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum ads to collect (default: 50, max: 500)"),
		),
		mcp.WithString("region",
			mcp.Description("ISO country code or ALL (default: US)"),
		),
	)
}

// createGetJobStatusTool returns the get_job_status tool definition
func createGetJobStatusTool() mcp.Tool {
	return mcp.NewTool("get_job_status",
		mcp.WithDescription("Get status and progress of a scrape job"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("Job ID (format: job_{uuid})"),
		),
	)
}

// createGetJobResultsTool returns the get_job_results tool definition
func createGetJobResultsTool() mcp.Tool {
	return mcp.NewTool("get_job_results",
		mcp.WithDescription("Get one page of ads collected by a scrape job"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("Job ID (format: job_{uuid})"),
		),
		mcp.WithNumber("page",
			mcp.Description("1-based page number (default: 1)"),
		),
		mcp.WithNumber("page_size",
			mcp.Description("Ads per page (default: 20, max: 100)"),
		),
	)
}

func createWorkflowTool() mcp.Tool {
	return mcp.NewTool("create_workflow",
		mcp.WithDescription("Scrape your page plus competitor pages in parallel, then run AI competitive analysis"),
		mcp.WithString("your_page_url",
			mcp.Required(),
			mcp.Description("Facebook page URL of your own brand"),
		),
		mcp.WithArray("competitor_urls",
			mcp.Required(),
			mcp.WithStringItems(),
			mcp.Description("Facebook page URLs of competitors"),
		),
	)
}

func createGetWorkflowStatusTool() mcp.Tool {
	return mcp.NewTool("get_workflow_status",
		mcp.WithDescription("Get per-page status and progress of a workflow"),
		mcp.WithString("workflow_id",
			mcp.Required(),
			mcp.Description("Workflow ID (format: wf_{uuid})"),
		),
	)
}

func createCancelWorkflowTool() mcp.Tool {
	return mcp.NewTool("cancel_workflow",
		mcp.WithDescription("Cancel a running workflow"),
		mcp.WithString("workflow_id",
			mcp.Required(),
			mcp.Description("Workflow ID (format: wf_{uuid})"),
		),
	)
}

func createGetWorkflowResultsTool() mcp.Tool {
	return mcp.NewTool("get_workflow_results",
		mcp.WithDescription("Get the competitor report of a workflow as markdown"),
		mcp.WithString("workflow_id",
			mcp.Required(),
			mcp.Description("Workflow ID (format: wf_{uuid})"),
		),
	)
}

// createChatWithAnalysisTool returns the chat_with_analysis tool definition
func createChatWithAnalysisTool() mcp.Tool {
	return mcp.NewTool("chat_with_analysis",
		mcp.WithDescription("Ask a follow-up question, optionally grounded on a workflow's ads and analysis"),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("Question to ask"),
		),
		mcp.WithString("workflow_id",
			mcp.Description("Workflow whose results ground the answer"),
		),
	)
}
