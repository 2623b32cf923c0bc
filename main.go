package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/swipswaps/DockerOCR/internal/constants"
	"github.com/swipswaps/DockerOCR/ocr"
)

// Global Variables and Constants
var (

	// Logger
	log = logrus.New()

	// Environment Variables
	ocrProvider          = envOrDefault("OCR_PROVIDER", "paddle")
	paddleOCRURL         = envOrDefault("PADDLE_OCR_URL", constants.DefaultPaddleURL)
	paddleOCRToken       = os.Getenv("PADDLE_OCR_TOKEN")
	iosOCRServerURL      = os.Getenv("IOS_OCR_SERVER_URL")
	azureDocAIEndpoint   = os.Getenv("AZURE_DOCAI_ENDPOINT")
	azureDocAIKey        = os.Getenv("AZURE_DOCAI_KEY")
	azureDocAIModelID    = os.Getenv("AZURE_DOCAI_MODEL_ID")
	googleProjectID      = os.Getenv("GOOGLE_PROJECT_ID")
	googleLocation       = os.Getenv("GOOGLE_LOCATION")
	googleProcessorID    = os.Getenv("GOOGLE_PROCESSOR_ID")
	tesseractLangs       = envOrDefault("TESSERACT_LANGS", "eng")
	listenAddress        = envOrDefault("LISTEN_ADDRESS", constants.DefaultListenAddress)
	dbPath               = envOrDefault("DB_PATH", "db/dockerocr.db")
	logLevel             = strings.ToLower(os.Getenv("LOG_LEVEL"))
	azureDocAITimeout    int
	ocrMaxRetries        int
	ocrRetryWaitMin      time.Duration
	ocrRetryWaitMax      time.Duration
	ocrRequestsPerMinute float64
	ocrWorkers           int
	ocrPageConcurrency   int
	maxUploadMB          int
)

// App struct to hold dependencies
type App struct {
	Provider     ocr.Provider
	ProviderName string
	Database     *gorm.DB

	jobs            *JobStore
	jobQueue        chan *Job
	pageConcurrency int
	maxUploadBytes  int64
	engineReady     atomic.Bool
}

// newApp wires an App with an empty job store.
func newApp(provider ocr.Provider, providerName string, database *gorm.DB) *App {
	return &App{
		Provider:        provider,
		ProviderName:    providerName,
		Database:        database,
		jobs:            newJobStore(),
		jobQueue:        make(chan *Job, 100),
		pageConcurrency: 2,
		maxUploadBytes:  20 << 20,
	}
}

func main() {
	// Initialize logrus logger
	initLogger()

	// Validate Environment Variables
	if err := validateEnvVars(); err != nil {
		log.Fatal(err)
	}

	// Load layout tunables and output templates
	loadSettings()
	if err := loadTemplates(); err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	// Initialize Database
	database, err := InitializeDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize OCR provider
	provider, err := ocr.NewProvider(providerConfig())
	if err != nil {
		log.Fatalf("Failed to create OCR provider: %v", err)
	}
	defer func() {
		if c, ok := provider.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				log.Warnf("Error closing OCR provider: %v", err)
			}
		}
	}()

	app := newApp(provider, ocrProvider, database)
	app.pageConcurrency = ocrPageConcurrency
	app.maxUploadBytes = int64(maxUploadMB) << 20

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Poll the engine until it has loaded its models
	StartReadinessProber(ctx, app, defaultProberConfig())

	// Start OCR worker pool
	app.startWorkerPool(ocrWorkers)

	router := newRouter(app)

	log.Infof("Server started on %s", listenAddress)
	if err := router.Run(listenAddress); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}

// newRouter registers every route on a gin engine with default middleware.
func newRouter(app *App) *gin.Engine {
	router := gin.Default()
	router.MaxMultipartMemory = app.maxUploadBytes

	router.GET("/health", healthHandler)
	router.GET("/ready", app.readyHandler)
	router.POST("/ocr", app.ocrHandler)

	api := router.Group("/api")
	{
		api.POST("/layout", layoutHandler)

		// Batch OCR jobs
		api.POST("/jobs/ocr", app.submitOCRJobHandler)
		api.GET("/jobs/ocr/:job_id", app.getJobStatusHandler)
		api.GET("/jobs/ocr", app.getAllJobsHandler)
		api.POST("/jobs/ocr/:job_id/stop", app.stopOCRJobHandler)

		// Local db actions
		api.GET("/history", app.getHistoryHandler)

		api.GET("/settings", getSettingsHandler)
		api.POST("/settings", updateSettingsHandler)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
	return router
}

func initLogger() {
	switch logLevel {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
		if logLevel != "" {
			log.Fatalf("Invalid log level: '%s'.", logLevel)
		}
	}

	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	ocr.SetLogLevel(log.GetLevel())
	if log.GetLevel() != logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
}

// validateEnvVars parses numeric settings and checks the provider configuration
func validateEnvVars() error {
	var err error
	if ocrMaxRetries, err = envInt("OCR_MAX_RETRIES", 2, 0); err != nil {
		return err
	}
	if ocrRetryWaitMin, err = envDuration("OCR_RETRY_WAIT_MIN", time.Second); err != nil {
		return err
	}
	if ocrRetryWaitMax, err = envDuration("OCR_RETRY_WAIT_MAX", 10*time.Second); err != nil {
		return err
	}
	if ocrRetryWaitMax < ocrRetryWaitMin {
		return fmt.Errorf("OCR_RETRY_WAIT_MAX (%s) must not be less than OCR_RETRY_WAIT_MIN (%s)", ocrRetryWaitMax, ocrRetryWaitMin)
	}
	if ocrRequestsPerMinute, err = envFloat("OCR_REQUESTS_PER_MINUTE", 0); err != nil {
		return err
	}
	if ocrWorkers, err = envInt("OCR_WORKERS", 1, 1); err != nil {
		return err
	}
	if ocrPageConcurrency, err = envInt("OCR_PAGE_CONCURRENCY", 2, 1); err != nil {
		return err
	}
	if maxUploadMB, err = envInt("MAX_UPLOAD_MB", 20, 1); err != nil {
		return err
	}
	if azureDocAITimeout, err = envInt("AZURE_DOCAI_TIMEOUT_SECONDS", 120, 1); err != nil {
		return err
	}

	switch ocrProvider {
	case "paddle":
		if paddleOCRURL == "" {
			return fmt.Errorf("please set the PADDLE_OCR_URL environment variable")
		}
	case "ios_ocr":
		if iosOCRServerURL == "" {
			return fmt.Errorf("please set the IOS_OCR_SERVER_URL environment variable for the iOS-OCR-Server provider")
		}
	case "azure":
		if azureDocAIEndpoint == "" || azureDocAIKey == "" {
			return fmt.Errorf("please set AZURE_DOCAI_ENDPOINT and AZURE_DOCAI_KEY for the Azure provider")
		}
	case "google_docai":
		if googleProjectID == "" || googleLocation == "" || googleProcessorID == "" {
			return fmt.Errorf("please set GOOGLE_PROJECT_ID, GOOGLE_LOCATION and GOOGLE_PROCESSOR_ID for the Google Document AI provider")
		}
	case "tesseract":
		if len(tesseractLanguages()) == 0 {
			return fmt.Errorf("please set TESSERACT_LANGS to one or more language packs, e.g. 'eng+deu'")
		}
	default:
		return fmt.Errorf("invalid OCR_PROVIDER %q: use 'paddle', 'ios_ocr', 'azure', 'google_docai' or 'tesseract'", ocrProvider)
	}
	return nil
}

// providerConfig collects the engine settings read from the environment.
func providerConfig() ocr.Config {
	return ocr.Config{
		Provider:           ocrProvider,
		PaddleURL:          paddleOCRURL,
		PaddleToken:        paddleOCRToken,
		IOSOCRServerURL:    iosOCRServerURL,
		GoogleProjectID:    googleProjectID,
		GoogleLocation:     googleLocation,
		GoogleProcessorID:  googleProcessorID,
		AzureEndpoint:      azureDocAIEndpoint,
		AzureAPIKey:        azureDocAIKey,
		AzureModelID:       azureDocAIModelID,
		AzureTimeout:       azureDocAITimeout,
		TesseractLanguages: tesseractLanguages(),
		Retry: ocr.RetryPolicy{
			// OCR_MAX_RETRIES excludes the first attempt
			MaxAttempts:     ocrMaxRetries + 1,
			WaitMin:         ocrRetryWaitMin,
			WaitMax:         ocrRetryWaitMax,
			RetryableStatus: ocr.DefaultRetryPolicy().RetryableStatus,
		},
		RequestsPerMinute: ocrRequestsPerMinute,
	}
}

// tesseractLanguages splits TESSERACT_LANGS on '+' or ',' the way tesseract -l accepts them.
func tesseractLanguages() []string {
	return strings.FieldsFunc(tesseractLangs, func(r rune) bool {
		return r == '+' || r == ',' || r == ' '
	})
}

func envOrDefault(name, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback, minimum int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if value < minimum {
		return 0, fmt.Errorf("invalid %s %d: must be at least %d", name, value, minimum)
	}
	return value, nil
}

func envFloat(name string, fallback float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("invalid %s %v: must not be negative", name, value)
	}
	return value, nil
}

// envDuration accepts Go durations ("1500ms") or a plain number of seconds.
func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	if seconds, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(seconds * float64(time.Second)), nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	return value, nil
}
