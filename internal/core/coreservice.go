package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jo-hoe/imagingagent/internal/backend/commandstructure"
	"github.com/jo-hoe/imagingagent/internal/backend/export"
	"github.com/jo-hoe/imagingagent/internal/backend/imaging"
	"github.com/jo-hoe/imagingagent/internal/backend/model"
	"github.com/jo-hoe/imagingagent/internal/backend/prompt"
	"github.com/jo-hoe/imagingagent/internal/backend/session"

	// registers the pipeline commands in the default registry
	_ "github.com/jo-hoe/imagingagent/internal/backend/commands"
)

var (
	ErrAnalysisUnavailable = errors.New("analysis is unavailable because no api key is configured")
	ErrNoImage             = errors.New("no image has been uploaded")
	ErrNoAnalysis          = errors.New("no analysis has been produced")
	ErrEmptyUpload         = errors.New("uploaded file is empty")
	ErrImageChanged        = errors.New("image changed while the analysis was running")
)

// displayMIMEType is the encoding every pipeline ends in
const displayMIMEType = "image/png"

type UploadedImage struct {
	Filename string
	Data     []byte
}

type CoreService struct {
	config   *ServiceConfig
	ingest   *commandstructure.CommandInvoker
	display  *commandstructure.CommandInvoker
	prompt   prompt.Template
	analyzer model.Analyzer
	store    session.Store

	// serializes read-modify-write cycles on stored sessions
	mu sync.Mutex
}

// NewCoreService wires the pipelines and the prompt; a nil analyzer disables analysis
func NewCoreService(config *ServiceConfig, analyzer model.Analyzer, store session.Store) (*CoreService, error) {
	ingest, err := commandstructure.NewCommandInvokerFromConfig(commandstructure.DefaultRegistry, config.IngestCommands)
	if err != nil {
		return nil, fmt.Errorf("failed to build ingest pipeline: %w", err)
	}
	display, err := commandstructure.NewCommandInvokerFromConfig(commandstructure.DefaultRegistry, config.DisplayCommands)
	if err != nil {
		return nil, fmt.Errorf("failed to build display pipeline: %w", err)
	}

	prompts, err := prompt.NewBuiltinRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt templates: %w", err)
	}
	template, err := prompts.Get(config.Prompt.Name, config.Prompt.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to select prompt: %w", err)
	}

	slog.Info("core service initialized",
		"ingest", ingest.CommandNames(),
		"display", display.CommandNames(),
		"prompt", template.ID(),
		"analysisAvailable", analyzer != nil)

	return &CoreService{
		config:   config,
		ingest:   ingest,
		display:  display,
		prompt:   template,
		analyzer: analyzer,
		store:    store,
	}, nil
}

func (service *CoreService) AnalysisAvailable() bool {
	return service.analyzer != nil
}

func (service *CoreService) PromptID() string {
	return service.prompt.ID()
}

func (service *CoreService) Config() *ServiceConfig {
	return service.config
}

// Upload normalizes and resizes the file and makes it the session's current image.
// Any previous analysis is discarded.
func (service *CoreService) Upload(ctx context.Context, sessionID string, upload UploadedImage) (*session.Session, error) {
	if len(upload.Data) == 0 {
		return nil, ErrEmptyUpload
	}
	if _, err := imaging.DetectFormat(upload.Filename); err != nil {
		return nil, fmt.Errorf("%w: %s", err, upload.Filename)
	}

	data := &commandstructure.ImageData{Filename: upload.Filename, Data: upload.Data}
	normalized, err := service.ingest.Execute(data)
	if err != nil {
		return nil, fmt.Errorf("failed to ingest %s: %w", upload.Filename, err)
	}
	displayed, err := service.display.Execute(normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare display image: %w", err)
	}

	service.mu.Lock()
	defer service.mu.Unlock()

	current, err := service.loadOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	current.SetImage(upload.Filename, displayed.Data, displayed.Metadata)
	if err := service.store.Save(ctx, current); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	slog.Info("CoreService: image uploaded",
		"session", sessionID, "filename", upload.Filename, "displayBytes", len(displayed.Data))
	return current, nil
}

// Analyze sends the session's display image and the configured prompt to the model once.
// Without an analyzer it fails before any network traffic. A result for an image that was
// replaced or cleared during the call is dropped with ErrImageChanged.
func (service *CoreService) Analyze(ctx context.Context, sessionID string) (*session.Session, error) {
	if service.analyzer == nil {
		return nil, ErrAnalysisUnavailable
	}

	current, err := service.requireImage(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	slog.Info("CoreService: requesting analysis", "session", sessionID, "prompt", service.prompt.ID())
	result, err := service.analyzer.Analyze(ctx, current.DisplayImage, displayMIMEType, service.prompt.Text)
	if err != nil {
		slog.Warn("CoreService: analysis failed", "session", sessionID, "error", err)
		return nil, err
	}

	service.mu.Lock()
	defer service.mu.Unlock()

	latest, err := service.loadOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if latest.Filename != current.Filename || !bytes.Equal(latest.DisplayImage, current.DisplayImage) {
		slog.Warn("CoreService: dropping analysis for replaced image",
			"session", sessionID, "analyzed", current.Filename, "current", latest.Filename)
		return nil, ErrImageChanged
	}

	latest.SetAnalysis(result, service.prompt.ID())
	if err := service.store.Save(ctx, latest); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return latest, nil
}

// Export renders the current image and analysis as a docx package
func (service *CoreService) Export(ctx context.Context, sessionID string) ([]byte, error) {
	current, err := service.requireImage(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !current.HasAnalysis() {
		return nil, ErrNoAnalysis
	}

	document, err := export.BuildDocx(current.DisplayImage, current.Analysis)
	if err != nil {
		return nil, fmt.Errorf("failed to build document: %w", err)
	}
	return document, nil
}

// Session returns the stored state; unknown IDs yield an empty session that is not persisted
func (service *CoreService) Session(ctx context.Context, sessionID string) (*session.Session, error) {
	return service.loadOrCreate(ctx, sessionID)
}

// Reset forgets the session's image and analysis
func (service *CoreService) Reset(ctx context.Context, sessionID string) error {
	service.mu.Lock()
	defer service.mu.Unlock()
	return service.store.Delete(ctx, sessionID)
}

func (service *CoreService) Close() error {
	return service.store.Close()
}

func (service *CoreService) requireImage(ctx context.Context, sessionID string) (*session.Session, error) {
	current, err := service.loadOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !current.HasImage() {
		return nil, ErrNoImage
	}
	return current, nil
}

func (service *CoreService) loadOrCreate(ctx context.Context, sessionID string) (*session.Session, error) {
	current, err := service.store.Get(ctx, sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return &session.Session{ID: sessionID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return current, nil
}
