package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrContentMismatch is returned when an upload's bytes do not match its
// extension, such as a renamed executable posing as a PDF.
var ErrContentMismatch = errors.New("file content does not match its extension")

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// DetectContentType sniffs data and checks it against the filename's
// extension. It returns the detected MIME type for storage.
func DetectContentType(filename string, data []byte) (string, error) {
	mt := mimetype.Detect(data)
	ext := strings.ToLower(filepath.Ext(filename))

	var ok bool
	switch ext {
	case ".pdf":
		ok = mt.Is("application/pdf")
	case ".docx":
		// Some writers produce archives that only sniff as plain zip.
		ok = mt.Is(docxMIME) || mt.Is("application/zip")
	case ".txt", ".md", ".markdown", ".csv", ".html", ".htm":
		ok = isText(mt)
	default:
		return "", fmt.Errorf("unsupported file extension: %s", ext)
	}
	if !ok {
		return mt.String(), fmt.Errorf("%w: %s is %s", ErrContentMismatch, ext, mt.String())
	}
	if ext == ".docx" {
		return docxMIME, nil
	}
	return mt.String(), nil
}

func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
