package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/aiqalab/redteam-console/services"
	"github.com/aiqalab/redteam-console/utils"
)

// TestCaseHandler handles attack-prompt library requests
type TestCaseHandler struct {
	testCases *services.TestCaseService
	logger    *utils.Logger
}

// NewTestCaseHandler creates a new test-case handler instance
func NewTestCaseHandler(testCases *services.TestCaseService) *TestCaseHandler {
	return &TestCaseHandler{
		testCases: testCases,
		logger:    utils.GetLogger(),
	}
}

// ListTestCases handles GET /api/testcases requests
func (h *TestCaseHandler) ListTestCases(c *fiber.Ctx) error {
	category := c.Query("category")

	cases, err := h.testCases.List(category)
	if err != nil {
		h.logger.WithTraceID(utils.GetTraceID(c)).Error("Failed to list test cases", err, map[string]interface{}{
			"category": category,
		})
		return utils.InternalServerErrorResponse(c, "Failed to retrieve test cases")
	}

	return utils.SuccessResponse(c, "Test cases retrieved successfully", cases)
}

// GetCategories handles GET /api/testcases/categories requests
func (h *TestCaseHandler) GetCategories(c *fiber.Ctx) error {
	categories, err := h.testCases.Categories()
	if err != nil {
		h.logger.WithTraceID(utils.GetTraceID(c)).Error("Failed to list categories", err, nil)
		return utils.InternalServerErrorResponse(c, "Failed to retrieve categories")
	}

	return utils.SuccessResponse(c, "Categories retrieved successfully", categories)
}

// ImportTestCases handles POST /api/testcases/import requests. The upload is
// a multipart form with a single "file" field containing CSV data.
func (h *TestCaseHandler) ImportTestCases(c *fiber.Ctx) error {
	traceID := utils.GetTraceID(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.BadRequestResponse(c, "No file uploaded", map[string]string{
			"error": err.Error(),
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.WithTraceID(traceID).Error("Failed to open uploaded file", err, map[string]interface{}{
			"filename": fileHeader.Filename,
		})
		return utils.BadRequestResponse(c, "Could not read the uploaded file", nil)
	}
	defer file.Close()

	result, err := h.testCases.Import(file)
	if err != nil {
		if errors.Is(err, services.ErrNoUsableRows) {
			return utils.BadRequestResponse(c, "No usable rows found in the file", nil)
		}
		h.logger.WithTraceID(traceID).Error("Test case import failed", err, map[string]interface{}{
			"filename": fileHeader.Filename,
		})
		return utils.BadRequestResponse(c, "Import failed", map[string]string{
			"error": err.Error(),
		})
	}

	return utils.SuccessResponse(c, "Test cases imported successfully", result)
}

// DownloadTemplate handles GET /api/testcases/template requests
func (h *TestCaseHandler) DownloadTemplate(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="test_cases_template.csv"`)
	return c.Send(h.testCases.TemplateCSV())
}

// ExportTestCases handles GET /api/testcases/export requests
func (h *TestCaseHandler) ExportTestCases(c *fiber.Ctx) error {
	data, err := h.testCases.ExportCSV(c.Query("category"))
	if err != nil {
		h.logger.WithTraceID(utils.GetTraceID(c)).Error("Test case export failed", err, nil)
		return utils.InternalServerErrorResponse(c, "Failed to export test cases")
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="test_cases.csv"`)
	return c.Send(data)
}
