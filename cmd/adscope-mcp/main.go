package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"

	"github.com/ternarybob/adscope/internal/app"
	"github.com/ternarybob/adscope/internal/common"
)

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("ADSCOPE_CONFIG")

	var paths []string
	if configPath != "" {
		paths = append(paths, configPath)
	} else if _, err := os.Stat("adscope.toml"); err == nil {
		paths = append(paths, "adscope.toml")
	}

	config, err := common.LoadFromFiles(paths...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Minimal logging to avoid cluttering MCP stdio
	logger := arbor.NewLogger().WithConsoleWriter(arbor_models.WriterConfiguration{
		Type:             arbor_models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		DisableTimestamp: false,
	}).WithLevelFromString("warn")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	mcpServer := server.NewMCPServer(
		"adscope",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	service := application.AdsService

	// Scrape jobs
	mcpServer.AddTool(createScrapeJobTool(), handleCreateScrapeJob(service, logger))
	mcpServer.AddTool(createGetJobStatusTool(), handleGetJobStatus(service, logger))
	mcpServer.AddTool(createGetJobResultsTool(), handleGetJobResults(service, logger))

	// Competitor workflows
	mcpServer.AddTool(createWorkflowTool(), handleCreateWorkflow(service, logger))
	mcpServer.AddTool(createGetWorkflowStatusTool(), handleGetWorkflowStatus(service, logger))
	mcpServer.AddTool(createCancelWorkflowTool(), handleCancelWorkflow(service, logger))
	mcpServer.AddTool(createGetWorkflowResultsTool(), handleGetWorkflowResults(service, logger))

	// AI
	mcpServer.AddTool(createChatWithAnalysisTool(), handleChatWithAnalysis(service, logger))

	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}
