package service

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"course_qa_backend/internal/util"
)

// plaintextExtensions are the formats read verbatim. Anything else is
// rejected before any bytes are consumed.
var plaintextExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".py":   true,
	".html": true,
	".css":  true,
	".js":   true,
}

// ExtractionService turns uploaded files into plain text for chunking.
type ExtractionService struct{}

func NewExtractionService() *ExtractionService {
	return &ExtractionService{}
}

// ExtractText reads the full contents of a supported file. The extracted
// text is returned exactly as stored; normalization is the chunker's job.
func (s *ExtractionService) ExtractText(filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !plaintextExtensions[ext] {
		return "", fmt.Errorf("%w: %q", util.ErrUnsupportedFormat, ext)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", util.ErrReadError, filename, err)
	}
	return string(data), nil
}
