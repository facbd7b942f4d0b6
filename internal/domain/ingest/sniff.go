package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/model"
)

// Format is a supported clip container format.
type Format string

// Supported containers.
const (
	FormatMP4 Format = "mp4"
	FormatAVI Format = "avi"
	FormatGIF Format = "gif"
)

// sniffLen is how many leading bytes DetectFormat needs.
const sniffLen = 12

// ParseFormat validates a declared container format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatMP4:
		return FormatMP4, nil
	case FormatAVI:
		return FormatAVI, nil
	case FormatGIF:
		return FormatGIF, nil
	default:
		return "", fmt.Errorf("%w: %q", model.ErrUnsupportedFormat, s)
	}
}

// DetectFormat sniffs the container from the clip's leading bytes.
func DetectFormat(header []byte) (Format, error) {
	switch {
	case len(header) >= 8 && bytes.Equal(header[4:8], []byte("ftyp")):
		return FormatMP4, nil
	case len(header) >= 12 && bytes.Equal(header[0:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("AVI ")):
		return FormatAVI, nil
	case bytes.HasPrefix(header, []byte("GIF87a")) || bytes.HasPrefix(header, []byte("GIF89a")):
		return FormatGIF, nil
	default:
		return "", fmt.Errorf("%w: unrecognized container signature", model.ErrUnsupportedFormat)
	}
}
