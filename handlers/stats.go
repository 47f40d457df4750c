package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aiqalab/redteam-console/services"
	"github.com/aiqalab/redteam-console/utils"
)

// StatsHandler handles dashboard statistics requests
type StatsHandler struct {
	stats  *services.StatsService
	logger *utils.Logger
}

// NewStatsHandler creates a new stats handler instance
func NewStatsHandler(stats *services.StatsService) *StatsHandler {
	return &StatsHandler{
		stats:  stats,
		logger: utils.GetLogger(),
	}
}

// GetStats handles GET /api/stats requests
func (h *StatsHandler) GetStats(c *fiber.Ctx) error {
	snapshot, err := h.stats.Dashboard()
	if err != nil {
		h.logger.WithTraceID(utils.GetTraceID(c)).Error("Failed to build stats snapshot", err, nil)
		return utils.InternalServerErrorResponse(c, "Failed to retrieve statistics")
	}

	return utils.SuccessResponse(c, "Statistics retrieved successfully", snapshot)
}
