//go:build tesseract

package ocr

import (
	"github.com/otiai10/gosseract/v2"
)

type gosseractClient struct {
	client *gosseract.Client
}

func newGosseractClient() (tesseractClient, error) {
	return &gosseractClient{client: gosseract.NewClient()}, nil
}

func (c *gosseractClient) SetImageFromBytes(data []byte) error {
	return c.client.SetImageFromBytes(data)
}

func (c *gosseractClient) SetLanguage(languages ...string) error {
	return c.client.SetLanguage(languages...)
}

func (c *gosseractClient) Lines() ([]tesseractLine, error) {
	boxes, err := c.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, err
	}
	lines := make([]tesseractLine, 0, len(boxes))
	for _, b := range boxes {
		lines = append(lines, tesseractLine{Text: b.Word, Box: b.Box, Confidence: b.Confidence})
	}
	return lines, nil
}

func (c *gosseractClient) Close() error {
	return c.client.Close()
}
