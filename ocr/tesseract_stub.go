//go:build !tesseract

package ocr

// newGosseractClient is the stand-in used when Tesseract is not compiled in.
// Building with -tags tesseract needs libtesseract and leptonica headers.
func newGosseractClient() (tesseractClient, error) {
	return nil, ErrTesseractNotEnabled
}
