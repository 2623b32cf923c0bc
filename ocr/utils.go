package ocr

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"

	"github.com/swipswaps/DockerOCR/layout"
)

var supportedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/tiff": true,
	"image/bmp":  true,
	"image/webp": true,
}

// isImageMIMEType checks if the given MIME type is a supported image type
func isImageMIMEType(mimeType string) bool {
	return supportedImageTypes[mimeType]
}

// detectImageType sniffs the content and rejects anything the engines cannot read.
func detectImageType(imageContent []byte) (string, error) {
	mtype := mimetype.Detect(imageContent)
	if !isImageMIMEType(mtype.String()) {
		return mtype.String(), fmt.Errorf("%w: %s", ErrUnsupportedFileType, mtype.String())
	}
	return mtype.String(), nil
}

// polygonToBBox turns a flat [x1, y1, x2, y2, ...] polygon into points. A trailing odd
// coordinate is ignored.
func polygonToBBox(polygon []float64) layout.BBox {
	box := make(layout.BBox, 0, len(polygon)/2)
	for i := 0; i+1 < len(polygon); i += 2 {
		box = append(box, layout.Point{X: polygon[i], Y: polygon[i+1]})
	}
	return box
}
