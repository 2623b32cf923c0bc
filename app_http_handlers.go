package main

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/swipswaps/DockerOCR/internal/constants"
)

// healthHandler handles the GET /health endpoint
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": constants.ServiceName})
}

// readyHandler handles the GET /ready endpoint
func (app *App) readyHandler(c *gin.Context) {
	if !app.engineReady.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "loading", "provider": app.ProviderName})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "provider": app.ProviderName})
}

// ocrHandler handles the POST /ocr endpoint
func (app *App) ocrHandler(c *gin.Context) {
	var req OCRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request payload: %v", err)})
		return
	}
	if req.Image == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image data provided"})
		return
	}
	if req.Filename == "" {
		req.Filename = "unknown"
	}

	content, err := decodeBase64Image(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := app.recognize(c.Request.Context(), content, req.Filename, recognizeOptions{
		Rotate: req.Rotate,
		HOCR:   req.HOCR,
		Format: req.Format,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if isClientError(err) {
			status = http.StatusBadRequest
		}
		log.WithField("filename", req.Filename).Errorf("OCR error: %v", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// layoutHandler handles the POST /api/layout endpoint. It reorders caller-supplied blocks
// without touching an engine.
func layoutHandler(c *gin.Context) {
	var req LayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request payload: %v", err)})
		return
	}
	if req.ImageWidth <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image_width must be positive"})
		return
	}
	if req.ImageWidth > constants.MaxImageWidth {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("image_width must not exceed %d", constants.MaxImageWidth)})
		return
	}
	if err := validateFormat(req.Format); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := reconstruct(req.Blocks, req.ImageWidth, log.WithField("endpoint", "layout"))
	text, err := renderText(result, req.Format)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, LayoutResponse{
		Text:   text,
		Blocks: result.Blocks,
		Layout: summarize(result),
	})
}

// submitOCRJobHandler handles the POST /api/jobs/ocr endpoint
func (app *App) submitOCRJobHandler(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid multipart form: %v", err)})
		return
	}
	headers := form.File["files[]"]
	if len(headers) == 0 {
		headers = form.File["files"]
	}
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files provided"})
		return
	}

	opts := recognizeOptions{Format: c.PostForm("format")}
	if err := validateFormat(opts.Format); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if raw := c.PostForm("rotate"); raw != "" {
		if opts.Rotate, err = strconv.Atoi(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rotate value"})
			return
		}
	}
	opts.HOCR, _ = strconv.ParseBool(c.PostForm("hocr"))

	files := make([]jobFile, 0, len(headers))
	for _, header := range headers {
		if header.Size > app.maxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("File %s exceeds the upload limit", header.Filename)})
			return
		}
		content, err := readUpload(header)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Failed to read %s: %v", header.Filename, err)})
			return
		}
		files = append(files, jobFile{Filename: header.Filename, Content: content})
	}

	// Create a new job
	now := time.Now()
	job := &Job{
		ID:         generateJobID(),
		Status:     jobPending,
		CreatedAt:  now,
		UpdatedAt:  now,
		TotalPages: len(files),
		Options:    opts,
		files:      files,
	}

	// Add job to store and queue
	app.jobs.addJob(job)
	select {
	case app.jobQueue <- job:
	default:
		app.jobs.finish(job.ID, jobFailed, nil, errors.New("job queue is full"))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Job queue is full, try again later"})
		return
	}

	// Return the job ID to the client
	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID})
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// getJobStatusHandler handles the GET /api/jobs/ocr/:job_id endpoint
func (app *App) getJobStatusHandler(c *gin.Context) {
	job, exists := app.jobs.getJob(c.Param("job_id"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// getAllJobsHandler handles the GET /api/jobs/ocr endpoint
func (app *App) getAllJobsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, app.jobs.GetAllJobs())
}

// stopOCRJobHandler handles the POST /api/jobs/ocr/:job_id/stop endpoint
func (app *App) stopOCRJobHandler(c *gin.Context) {
	jobID := c.Param("job_id")
	switch err := app.jobs.stop(jobID); {
	case errors.Is(err, errJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
	case errors.Is(err, errJobFinished):
		c.JSON(http.StatusConflict, gin.H{"error": "Job has already finished"})
	default:
		jobLogger(jobID).Info("Stop requested")
		c.JSON(http.StatusOK, gin.H{"status": "stopping", "job_id": jobID})
	}
}

// Section for local-db actions

// getHistoryHandler handles the GET /api/history endpoint
func (app *App) getHistoryHandler(c *gin.Context) {
	limit := constants.HistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = min(n, constants.HistoryLimit)
	}
	if app.Database == nil {
		c.JSON(http.StatusOK, []ReconstructionHistory{})
		return
	}

	records, err := GetRecentHistory(app.Database, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve history"})
		log.Errorf("Failed to retrieve history: %v", err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// getSettingsHandler handles the GET /api/settings endpoint
func getSettingsHandler(c *gin.Context) {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	c.JSON(http.StatusOK, settings)
}

// updateSettingsHandler handles the POST /api/settings endpoint. Fields missing from the
// payload keep their current values.
func updateSettingsHandler(c *gin.Context) {
	req := Settings{Layout: currentLayoutConfig()}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request payload: %v", err)})
		return
	}

	if err := updateLayoutSettings(req.Layout); err != nil {
		if errors.Is(err, errInvalidSettings) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Errorf("Failed to save settings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save settings"})
		return
	}

	c.JSON(http.StatusOK, Settings{Layout: currentLayoutConfig()})
}
