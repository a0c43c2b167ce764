// Package decode turns an uploaded bill (plain text, PDF or image) into
// plain text for extraction.
package decode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Kind is the decode channel for a document.
type Kind string

const (
	KindText  Kind = "text"
	KindPDF   Kind = "pdf"
	KindImage Kind = "image"
)

// MaxTextBytes caps how much of a plain-text document is read.
const MaxTextBytes = 10 << 20

var (
	// ErrUnsupported is returned for a Kind with no decode channel.
	ErrUnsupported = errors.New("unsupported document type")
	// ErrToolMissing is returned when the external converter is not installed.
	ErrToolMissing = errors.New("decode tool not installed")
)

var kindByExt = map[string]Kind{
	".txt":  KindText,
	".text": KindText,
	".csv":  KindText,
	".pdf":  KindPDF,
	".png":  KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".tif":  KindImage,
	".tiff": KindImage,
	".bmp":  KindImage,
	".gif":  KindImage,
}

// KindOf picks the decode channel from a file name's extension. Unknown
// and missing extensions are read as UTF-8 text.
func KindOf(name string) Kind {
	if k, ok := kindByExt[strings.ToLower(filepath.Ext(name))]; ok {
		return k
	}
	return KindText
}

// Runner executes an external command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if errors.Is(err, exec.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrToolMissing, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Decoder converts documents with pdftotext and tesseract.
type Decoder struct {
	run Runner
}

// New returns a Decoder that runs the converters on the host. A nil run uses
// os/exec.
func New(run Runner) *Decoder {
	if run == nil {
		run = execRunner
	}
	return &Decoder{run: run}
}

var defaultDecoder = New(nil)

// Text decodes the document at path with the host converters.
func Text(ctx context.Context, path string, kind Kind) (string, error) {
	return defaultDecoder.Text(ctx, path, kind)
}

// Text returns the document's text. An empty kind is inferred from the path.
func (d *Decoder) Text(ctx context.Context, path string, kind Kind) (string, error) {
	if kind == "" {
		kind = KindOf(path)
	}

	switch kind {
	case KindText:
		return readText(path)
	case KindPDF:
		out, err := d.run(ctx, "pdftotext", "-layout", path, "-")
		if err != nil {
			return "", fmt.Errorf("decode pdf: %w", err)
		}
		return string(out), nil
	case KindImage:
		out, err := d.run(ctx, "tesseract", path, "stdout")
		if err != nil {
			return "", fmt.Errorf("decode image: %w", err)
		}
		return string(out), nil
	default:
		return "", fmt.Errorf("%w: kind %q", ErrUnsupported, kind)
	}
}

func readText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open text: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxTextBytes))
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return string(data), nil
}
