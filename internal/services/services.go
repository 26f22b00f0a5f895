package services

import (
	"github.com/hemalab/hemassist/internal/config"
	"github.com/hemalab/hemassist/internal/infrastructure/openai"
	"github.com/hemalab/hemassist/internal/infrastructure/redis"
	"github.com/hemalab/hemassist/internal/services/assistant"
	"github.com/hemalab/hemassist/internal/services/ocr"
	"github.com/hemalab/hemassist/internal/services/session"
	"github.com/hemalab/hemassist/internal/services/tools"
	"github.com/hemalab/hemassist/internal/services/upload"
	"github.com/rs/zerolog/log"
)

type Services struct {
	sessionService *session.Service
	uploadService  *upload.Service
	ocrService     *ocr.Service
	toolService    *tools.Service
	driver         *assistant.Driver
}

// InitializeServices wires all services from environment configuration.
func InitializeServices() (*Services, error) {
	log.Info().Msg("Initializing core services")

	// Redis is optional; the session service falls back to memory
	redisService := redis.NewService()

	// OpenAI client is required
	openAIService := openai.NewService()
	client := openAIService.GetClient()

	sessionService := session.NewService(redisService, client)
	log.Info().Msg("Initializing session service")

	uploadService := upload.NewService(config.GetAllowedMIMETypes())

	ocrService := ocr.NewService(
		ocr.NewPopplerRasterizer(config.GetPdftoppmPath(), config.GetOCRDPI()),
		ocr.NewTesseractRecognizer(config.GetTesseractPath()),
	)
	log.Info().Msg("Initializing OCR service")

	toolService := tools.NewService()

	driver := assistant.NewDriver(client, toolService, assistant.DriverConfig{
		AssistantID:  config.GetAssistantID(),
		Author:       config.GetAssistantName(),
		PollInterval: config.GetRunPollInterval(),
		PollTimeout:  config.GetRunPollTimeout(),
	})
	log.Info().Msg("Initializing run driver")

	log.Info().Msg("All services initialized successfully")

	return New(sessionService, uploadService, ocrService, toolService, driver), nil
}

// New assembles a Services value from explicit components. Tests and callers
// with custom backends wire through here.
func New(
	sessionService *session.Service,
	uploadService *upload.Service,
	ocrService *ocr.Service,
	toolService *tools.Service,
	driver *assistant.Driver,
) *Services {
	return &Services{
		sessionService: sessionService,
		uploadService:  uploadService,
		ocrService:     ocrService,
		toolService:    toolService,
		driver:         driver,
	}
}

// GetSessionService returns the session service
func (s *Services) GetSessionService() *session.Service {
	return s.sessionService
}

// GetUploadService returns the upload validation service
func (s *Services) GetUploadService() *upload.Service {
	return s.uploadService
}

// GetOCRService returns the OCR extraction service
func (s *Services) GetOCRService() *ocr.Service {
	return s.ocrService
}

// GetToolService returns the tool registry
func (s *Services) GetToolService() *tools.Service {
	return s.toolService
}

// GetDriver returns the assistant run driver
func (s *Services) GetDriver() *assistant.Driver {
	return s.driver
}
