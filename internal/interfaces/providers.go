package interfaces

import (
	"github.com/ternarybob/adscope/internal/models"
	"github.com/ternarybob/adscope/internal/services/fallback"
)

// ScrapeProvider produces ad records for a search
type ScrapeProvider = fallback.Provider[models.SearchParams, []models.AdRecord]

// AnalysisProvider produces a structured competitive analysis
type AnalysisProvider = fallback.Provider[models.AnalysisInput, *models.AnalysisData]

// ChatProvider answers a chat message about an analysis
type ChatProvider = fallback.Provider[models.ChatInput, *models.ChatReply]
