package backend

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/imagingagent/internal/backend/commandstructure"
	"github.com/jo-hoe/imagingagent/internal/backend/imaging"
	"github.com/jo-hoe/imagingagent/internal/backend/prompt"
	"github.com/jo-hoe/imagingagent/internal/core"
)

// APIService exposes the service state and the prompt catalogue as JSON
type APIService struct {
	config      *core.ServiceConfig
	coreService *core.CoreService
	prompts     *prompt.Registry
}

type StatusResponse struct {
	AnalysisAvailable   bool     `json:"analysisAvailable"`
	Model               string   `json:"model"`
	Prompt              string   `json:"prompt"`
	DisplayWidth        int      `json:"displayWidth"`
	SupportedExtensions []string `json:"supportedExtensions"`
	Commands            []string `json:"commands"`
}

type PromptRequest struct {
	Name    string `param:"name" validate:"required"`
	Version int    `query:"version" validate:"gte=0"`
}

type PromptResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Version     int      `json:"version"`
	Description string   `json:"description,omitempty"`
	Headings    []string `json:"headings,omitempty"`
	Text        string   `json:"text"`
	Versions    []int    `json:"versions"`
}

func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService) (*APIService, error) {
	prompts, err := prompt.NewBuiltinRegistry()
	if err != nil {
		return nil, err
	}
	return &APIService{
		config:      config,
		coreService: coreService,
		prompts:     prompts,
	}, nil
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	// Set probe route
	e.GET("/probe", func(c echo.Context) error {
		return c.String(http.StatusOK, "API Service is running")
	})

	e.GET("/api/status", s.statusHandler)
	e.GET("/api/prompts/:name", s.promptHandler)
}

func (s *APIService) statusHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{
		AnalysisAvailable:   s.coreService.AnalysisAvailable(),
		Model:               s.config.Model.Name,
		Prompt:              s.coreService.PromptID(),
		DisplayWidth:        s.config.DisplayWidth,
		SupportedExtensions: imaging.SupportedExtensions(),
		Commands:            commandstructure.DefaultRegistry.GetRegisteredNames(),
	})
}

func (s *APIService) promptHandler(c echo.Context) error {
	var request PromptRequest
	if err := c.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "received invalid request parameters")
	}
	if err := c.Validate(&request); err != nil {
		return err
	}

	tmpl, err := s.prompts.Get(request.Name, request.Version)
	if errors.Is(err, prompt.ErrPromptNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, PromptResponse{
		ID:          tmpl.ID(),
		Name:        tmpl.Name,
		Version:     tmpl.Version,
		Description: tmpl.Description,
		Headings:    tmpl.Headings,
		Text:        tmpl.Text,
		Versions:    s.prompts.Versions(tmpl.Name),
	})
}
