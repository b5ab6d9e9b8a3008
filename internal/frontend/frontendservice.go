package frontend

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/imagingagent/internal/backend/export"
	"github.com/jo-hoe/imagingagent/internal/backend/imaging"
	"github.com/jo-hoe/imagingagent/internal/backend/session"
	"github.com/jo-hoe/imagingagent/internal/core"
)

const (
	MainPageName = "index.html"
	mimePNG      = "image/png"

	msgAnalysisUnavailable = "Service is not available because the API key is not configured."
	msgNoImage             = "Please upload an image first."
	msgNoAnalysis          = "Run an analysis before downloading the report."
	msgImageChanged        = "The image changed while it was being analyzed. Run the analysis again."
)

type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

type metadataEntry struct {
	Key   string
	Value string
}

type pageData struct {
	AnalysisAvailable bool
	PromptID          string
	ModelName         string
	Accept            string
	Result            *resultData
}

type resultData struct {
	Filename          string
	Timestamp         string
	Metadata          []metadataEntry
	AnalysisAvailable bool
	Analysis          *analysisData
}

type analysisData struct {
	HTML     template.HTML
	PromptID string
}

type messageData struct {
	Kind    string
	Message string
}

func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
		config:      config,
	}
}

// rootRedirectHandler redirects root path to index.html
func (service *FrontendService) rootRedirectHandler(ctx echo.Context) error {
	return ctx.Redirect(http.StatusMovedPermanently, "/"+MainPageName)
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	e.Renderer = newTemplate()

	e.GET("/", service.rootRedirectHandler) // Redirect root to index.html
	e.GET("/"+MainPageName, service.indexHandler)

	e.POST("/htmx/upload", service.htmxUploadHandler)
	e.GET("/htmx/image", service.htmxImageHandler)
	e.POST("/htmx/analyze", service.htmxAnalyzeHandler)
	e.POST("/htmx/reset", service.htmxResetHandler)
	e.GET("/download", service.downloadHandler)

	// Favicon (SVG) route
	e.GET("/icon.svg", service.iconHandler)
}

func (service *FrontendService) indexHandler(ctx echo.Context) error {
	data := pageData{
		AnalysisAvailable: service.coreService.AnalysisAvailable(),
		PromptID:          service.coreService.PromptID(),
		ModelName:         service.config.Model.Name,
		Accept:            strings.Join(imaging.SupportedExtensions(), ","),
	}

	current, err := service.coreService.Session(ctx.Request().Context(), sessionID(ctx))
	if err != nil {
		slog.Error("indexHandler: failed to load session", "error", err)
	} else if current.HasImage() {
		result, err := service.buildResult(current)
		if err != nil {
			slog.Error("indexHandler: failed to render stored analysis", "error", err)
		} else {
			data.Result = result
		}
	}

	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, MainPageName, data)
}

func (service *FrontendService) htmxUploadHandler(ctx echo.Context) error {
	request := ctx.Request()
	if request.ContentLength > service.config.MaxUploadBytes {
		slog.Warn("htmxUploadHandler: upload too large",
			"status", http.StatusRequestEntityTooLarge, "content_length", request.ContentLength)
		return service.renderTooLarge(ctx)
	}
	request.Body = http.MaxBytesReader(ctx.Response(), request.Body, service.config.MaxUploadBytes)

	file, err := ctx.FormFile("image")
	if err != nil {
		// chunked bodies carry no Content-Length and only trip the limit while parsing
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			slog.Warn("htmxUploadHandler: upload too large",
				"status", http.StatusRequestEntityTooLarge, "limit", maxBytesErr.Limit)
			return service.renderTooLarge(ctx)
		}
		slog.Error("htmxUploadHandler: failed to get uploaded file",
			"status", http.StatusBadRequest, "error", err)
		return service.renderMessage(ctx, http.StatusBadRequest, "error", "Failed to get uploaded file")
	}

	src, err := file.Open()
	if err != nil {
		slog.Error("htmxUploadHandler: failed to open uploaded file",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return service.renderMessage(ctx, http.StatusInternalServerError, "error", "Failed to open uploaded file")
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("htmxUploadHandler: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	data, err := io.ReadAll(src)
	if err != nil {
		slog.Error("htmxUploadHandler: failed to read uploaded file",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return service.renderMessage(ctx, http.StatusInternalServerError, "error", "Failed to read uploaded file")
	}

	current, err := service.coreService.Upload(request.Context(), sessionID(ctx), core.UploadedImage{
		Filename: file.Filename,
		Data:     data,
	})
	if err != nil {
		status, message := uploadErrorMessage(file.Filename, err)
		slog.Warn("htmxUploadHandler: failed to process uploaded image",
			"status", status, "error", err, "filename", file.Filename)
		return service.renderMessage(ctx, status, "error", message)
	}

	result, err := service.buildResult(current)
	if err != nil {
		slog.Error("htmxUploadHandler: failed to build result", "error", err)
		return service.renderMessage(ctx, http.StatusInternalServerError, "error", "Failed to display uploaded image")
	}
	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, "result", result)
}

func (service *FrontendService) renderTooLarge(ctx echo.Context) error {
	return service.renderMessage(ctx, http.StatusRequestEntityTooLarge, "error",
		fmt.Sprintf("File is too large. The limit is %d MB.", service.config.MaxUploadBytes>>20))
}

func uploadErrorMessage(filename string, err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrEmptyUpload):
		return http.StatusBadRequest, "Uploaded file is empty."
	case errors.Is(err, imaging.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType,
			"Unsupported file type. Accepted: " + strings.Join(imaging.SupportedExtensions(), ", ")
	case errors.Is(err, imaging.ErrDecode), errors.Is(err, imaging.ErrUnsupportedTransferSyntax):
		if format, _ := imaging.DetectFormat(filename); format == imaging.FormatDICOM {
			return http.StatusUnprocessableEntity, fmt.Sprintf("Failed to read DICOM file: %v", err)
		}
		return http.StatusUnprocessableEntity, fmt.Sprintf("Failed to read image file: %v", err)
	default:
		return http.StatusInternalServerError, "Failed to process uploaded image"
	}
}

func (service *FrontendService) htmxImageHandler(ctx echo.Context) error {
	current, err := service.coreService.Session(ctx.Request().Context(), sessionID(ctx))
	if err != nil || !current.HasImage() {
		slog.Warn("htmxImageHandler: image not available", "status", http.StatusNotFound, "error", err)
		return ctx.String(http.StatusNotFound, "Image not available")
	}

	// Prevent caching
	service.setNoCache(ctx)

	return ctx.Blob(http.StatusOK, mimePNG, current.DisplayImage)
}

func (service *FrontendService) htmxAnalyzeHandler(ctx echo.Context) error {
	current, err := service.coreService.Analyze(ctx.Request().Context(), sessionID(ctx))
	switch {
	case errors.Is(err, core.ErrAnalysisUnavailable):
		slog.Warn("htmxAnalyzeHandler: analysis unavailable", "status", http.StatusServiceUnavailable)
		return service.renderMessage(ctx, http.StatusServiceUnavailable, "warning", msgAnalysisUnavailable)
	case errors.Is(err, core.ErrNoImage):
		return service.renderMessage(ctx, http.StatusBadRequest, "info", msgNoImage)
	case errors.Is(err, core.ErrImageChanged):
		slog.Warn("htmxAnalyzeHandler: image replaced during analysis", "status", http.StatusConflict)
		return service.renderMessage(ctx, http.StatusConflict, "warning", msgImageChanged)
	case err != nil:
		slog.Error("htmxAnalyzeHandler: analysis failed", "status", http.StatusBadGateway, "error", err)
		return service.renderMessage(ctx, http.StatusBadGateway, "error", fmt.Sprintf("Analysis error: %v", err))
	}

	analysis, err := service.buildAnalysis(current)
	if err != nil {
		slog.Error("htmxAnalyzeHandler: failed to render markdown", "error", err)
		return service.renderMessage(ctx, http.StatusInternalServerError, "error", fmt.Sprintf("Analysis error: %v", err))
	}
	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, "analysis", analysis)
}

func (service *FrontendService) htmxResetHandler(ctx echo.Context) error {
	if err := service.coreService.Reset(ctx.Request().Context(), sessionID(ctx)); err != nil {
		slog.Error("htmxResetHandler: failed to reset session", "error", err)
		return service.renderMessage(ctx, http.StatusInternalServerError, "error", "Failed to clear session")
	}
	return service.renderMessage(ctx, http.StatusOK, "info", "Upload a medical image to begin.")
}

func (service *FrontendService) downloadHandler(ctx echo.Context) error {
	document, err := service.coreService.Export(ctx.Request().Context(), sessionID(ctx))
	switch {
	case errors.Is(err, core.ErrNoImage):
		return ctx.String(http.StatusConflict, msgNoImage)
	case errors.Is(err, core.ErrNoAnalysis):
		return ctx.String(http.StatusConflict, msgNoAnalysis)
	case err != nil:
		slog.Error("downloadHandler: failed to export", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to build document")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, export.DocumentFilename))
	service.setNoCache(ctx)
	return ctx.Blob(http.StatusOK, export.DocumentMIMEType, document)
}

func (service *FrontendService) buildResult(current *session.Session) (*resultData, error) {
	result := &resultData{
		Filename:          current.Filename,
		Timestamp:         service.timestampNanoStr(),
		Metadata:          sortedMetadata(current.Metadata),
		AnalysisAvailable: service.coreService.AnalysisAvailable(),
	}
	if current.HasAnalysis() {
		analysis, err := service.buildAnalysis(current)
		if err != nil {
			return nil, err
		}
		result.Analysis = analysis
	}
	return result, nil
}

func (service *FrontendService) buildAnalysis(current *session.Session) (*analysisData, error) {
	html, err := renderMarkdown(current.Analysis)
	if err != nil {
		return nil, err
	}
	return &analysisData{HTML: html, PromptID: current.PromptID}, nil
}

func sortedMetadata(metadata map[string]string) []metadataEntry {
	entries := make([]metadataEntry, 0, len(metadata))
	for k, v := range metadata {
		if v == "" {
			continue
		}
		entries = append(entries, metadataEntry{Key: k, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

func (service *FrontendService) renderMessage(ctx echo.Context, status int, kind, message string) error {
	return ctx.Render(status, "message", messageData{Kind: kind, Message: message})
}

func (service *FrontendService) setNoCache(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	ctx.Response().Header().Set("Pragma", "no-cache")
	ctx.Response().Header().Set("Expires", "0")
}

func (service *FrontendService) timestampNanoStr() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

func (service *FrontendService) iconHandler(ctx echo.Context) error {
	data, err := assetsFS.ReadFile("views/icon.svg")
	if err != nil {
		slog.Error("iconHandler: failed to read icon.svg", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to load icon")
	}
	// Cache for 7 days
	ctx.Response().Header().Set("Cache-Control", "public, max-age=604800, immutable")
	return ctx.Blob(http.StatusOK, "image/svg+xml", data)
}
