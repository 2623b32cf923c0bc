package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gardar/ocrchestra/pkg/hocr"
	"github.com/sirupsen/logrus"

	"github.com/swipswaps/DockerOCR/internal/constants"
	"github.com/swipswaps/DockerOCR/layout"
	"github.com/swipswaps/DockerOCR/ocr"
)

var errInvalidFormat = errors.New("invalid format")

// recognizeOptions controls a single recognition.
type recognizeOptions struct {
	Rotate     int
	HOCR       bool
	Format     string
	JobID      string
	PageNumber int
}

func validateFormat(format string) error {
	switch format {
	case "", formatText, formatColumns:
		return nil
	}
	return fmt.Errorf("%w: %q (expected %q or %q)", errInvalidFormat, format, formatText, formatColumns)
}

// isClientError reports whether err was caused by the request rather than the engine.
func isClientError(err error) bool {
	return errors.Is(err, errInvalidImage) ||
		errors.Is(err, errInvalidFormat) ||
		errors.Is(err, ocr.ErrUnsupportedFileType)
}

// recognize runs one image through the engine and the layout reconstructor.
func (app *App) recognize(ctx context.Context, content []byte, filename string, opts recognizeOptions) (*OCRResponse, error) {
	pageLogger := log.WithFields(logrus.Fields{
		"filename": filename,
		"provider": app.ProviderName,
	})
	if opts.JobID != "" {
		pageLogger = pageLogger.WithFields(logrus.Fields{"job_id": opts.JobID, "page": opts.PageNumber})
	}
	start := time.Now()

	if err := validateFormat(opts.Format); err != nil {
		return nil, err
	}

	img, err := prepareImage(content, opts.Rotate)
	if err != nil {
		return nil, err
	}
	pageLogger.WithFields(logrus.Fields{
		"width":  img.Width,
		"height": img.Height,
		"rotate": opts.Rotate,
	}).Debug("Prepared image")

	ocrResult, err := app.Provider.ProcessImage(ctx, img.Content, filename)
	if err != nil {
		return nil, fmt.Errorf("error performing OCR for %s: %w", filename, err)
	}

	width, height := img.Width, img.Height
	if ocrResult.ImageWidth > 0 {
		width = ocrResult.ImageWidth
	}
	if ocrResult.ImageHeight > 0 {
		height = ocrResult.ImageHeight
	}

	result := reconstruct(ocrResult.Blocks, width, pageLogger)
	text, err := renderText(result, opts.Format)
	if err != nil {
		return nil, err
	}

	response := &OCRResponse{
		Text:        text,
		Blocks:      result.Blocks,
		Filename:    filename,
		Layout:      summarize(result),
		ImageWidth:  width,
		ImageHeight: height,
	}

	if opts.HOCR {
		page := layout.ToHOCRPage(result, width, height, max(opts.PageNumber, 1))
		response.HOCR, err = renderHOCR(filename, page)
		if err != nil {
			return nil, err
		}
	}

	took := time.Since(start)
	record := newHistoryRecord(opts.JobID, filename, app.ProviderName, result, width, took)
	app.recordHistory(&record)

	pageLogger.WithFields(logrus.Fields{
		"mode":     result.Mode,
		"blocks":   len(result.Blocks),
		"dropped":  result.Dropped,
		"duration": took,
	}).Info("OCR completed")
	return response, nil
}

// reconstruct orders blocks with the current layout settings.
func reconstruct(blocks []layout.TextBlock, imageWidth int, logger logrus.FieldLogger) layout.Result {
	reconstructor := layout.NewReconstructor(currentLayoutConfig(), layout.NewLogRecorder(logger))
	return reconstructor.Reconstruct(blocks, imageWidth)
}

func (app *App) recordHistory(record *ReconstructionHistory) {
	if app.Database == nil {
		return
	}
	if err := InsertHistory(app.Database, record); err != nil {
		log.WithError(err).Warn("Failed to record reconstruction history")
	}
}

// renderText produces the response text in the requested format.
func renderText(result layout.Result, format string) (string, error) {
	switch format {
	case "", formatText:
		return result.Text, nil
	case formatColumns:
		templateMutex.RLock()
		defer templateMutex.RUnlock()

		var buf bytes.Buffer
		err := columnsTemplate.Execute(&buf, map[string]interface{}{
			"Columns":    result.ColumnBlocks(),
			"Mode":       result.Mode,
			"Boundaries": result.Boundaries,
			"Text":       result.Text,
		})
		if err != nil {
			return "", fmt.Errorf("error executing columns template: %w", err)
		}
		return buf.String(), nil
	}
	return "", fmt.Errorf("%w: %q", errInvalidFormat, format)
}

// renderHOCR writes a single-page hOCR document.
func renderHOCR(filename string, page hocr.Page) (string, error) {
	templateMutex.RLock()
	defer templateMutex.RUnlock()

	var buf bytes.Buffer
	err := hocrTemplate.Execute(&buf, map[string]interface{}{
		"Filename": filename,
		"System":   constants.ServiceName,
		"Page":     page,
	})
	if err != nil {
		return "", fmt.Errorf("error executing hOCR template: %w", err)
	}
	return buf.String(), nil
}
