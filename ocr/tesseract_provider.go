package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/swipswaps/DockerOCR/layout"
)

// ErrTesseractNotEnabled is returned when the binary was built without the tesseract tag.
var ErrTesseractNotEnabled = errors.New("tesseract support not enabled; rebuild with -tags tesseract")

// tesseractLine is one recognised text line in image pixels. Confidence is 0-100.
type tesseractLine struct {
	Text       string
	Box        image.Rectangle
	Confidence float64
}

// tesseractClient is the slice of the engine API the provider needs.
type tesseractClient interface {
	SetImageFromBytes(data []byte) error
	SetLanguage(languages ...string) error
	Lines() ([]tesseractLine, error)
	Close() error
}

// TesseractProvider runs a local Tesseract engine in process.
type TesseractProvider struct {
	languages []string
	newClient func() (tesseractClient, error)
}

func newTesseractProvider(config Config) (*TesseractProvider, error) {
	languages := config.TesseractLanguages
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	log.WithField("languages", strings.Join(languages, "+")).Info("Using Tesseract provider")

	return &TesseractProvider{
		languages: languages,
		newClient: newGosseractClient,
	}, nil
}

// Ready reports whether an engine can be created with the configured languages.
func (p *TesseractProvider) Ready(ctx context.Context) error {
	client, err := p.newClient()
	if err != nil {
		return err
	}
	defer client.Close()
	return client.SetLanguage(p.languages...)
}

// ProcessImage recognises text lines and reports each as a block.
func (p *TesseractProvider) ProcessImage(ctx context.Context, imageContent []byte, filename string) (*OCRResult, error) {
	logger := log.WithFields(logrus.Fields{
		"provider":  "tesseract",
		"filename":  filename,
		"data_size": len(imageContent),
	})

	if _, err := detectImageType(imageContent); err != nil {
		logger.WithError(err).Error("Unsupported file type")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client, err := p.newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := client.SetImageFromBytes(imageContent); err != nil {
		return nil, fmt.Errorf("tesseract: set image: %w", err)
	}
	if err := client.SetLanguage(p.languages...); err != nil {
		return nil, fmt.Errorf("tesseract: set languages: %w", err)
	}

	lines, err := client.Lines()
	if err != nil {
		logger.WithError(err).Error("Tesseract recognition failed")
		return nil, fmt.Errorf("tesseract: recognize: %w", err)
	}

	blocks := make([]layout.TextBlock, 0, len(lines))
	for _, line := range lines {
		text := strings.TrimSpace(line.Text)
		if text == "" {
			continue
		}
		blocks = append(blocks, layout.TextBlock{
			Text:       text,
			Confidence: line.Confidence / 100,
			BBox: layout.Rect(
				float64(line.Box.Min.X),
				float64(line.Box.Min.Y),
				float64(line.Box.Dx()),
				float64(line.Box.Dy()),
			),
		})
	}
	logger.WithField("blocks", len(blocks)).Debug("Tesseract processing complete")

	return &OCRResult{
		Text:   layout.JoinText(blocks),
		Blocks: blocks,
		Metadata: map[string]string{
			"provider":  "tesseract",
			"languages": strings.Join(p.languages, "+"),
		},
	}, nil
}
