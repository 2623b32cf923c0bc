package main

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

var errInvalidImage = errors.New("invalid image")

// decodeBase64Image accepts plain base64 or a data URL as produced by FileReader.readAsDataURL.
func decodeBase64Image(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if strings.HasPrefix(encoded, "data:") {
		comma := strings.IndexByte(encoded, ',')
		if comma < 0 {
			return nil, fmt.Errorf("%w: malformed data URL", errInvalidImage)
		}
		encoded = encoded[comma+1:]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// Some clients strip the padding
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidImage, err)
		}
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", errInvalidImage)
	}
	return data, nil
}

// preparedImage is the upright image handed to the engine.
type preparedImage struct {
	Content []byte
	Width   int
	Height  int
}

// prepareImage applies EXIF orientation and an optional counter-clockwise rotation, then
// re-encodes as PNG. Engines therefore always see the pixels the user sees, and box
// coordinates agree with Width.
func prepareImage(content []byte, rotate int) (*preparedImage, error) {
	img, err := imaging.Decode(bytes.NewReader(content), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidImage, err)
	}

	switch ((rotate % 360) + 360) % 360 {
	case 0:
	case 90:
		img = imaging.Rotate90(img)
	case 180:
		img = imaging.Rotate180(img)
	case 270:
		img = imaging.Rotate270(img)
	default:
		return nil, fmt.Errorf("%w: rotation must be a multiple of 90 degrees, got %d", errInvalidImage, rotate)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	bounds := img.Bounds()
	return &preparedImage{
		Content: buf.Bytes(),
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
	}, nil
}
