// Package asset converts user files, uploads and previously generated images
// into the inline payload the generation backend accepts.
package asset

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// MaxBytes caps a single asset read.
const MaxBytes = 25 << 20

// Asset is an image payload tagged with its media type.
type Asset struct {
	Data     []byte
	MimeType string
}

// InvalidAssetError reports a source that could not be read as an image.
type InvalidAssetError struct {
	Source string
	Err    error
}

func (e *InvalidAssetError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("invalid asset: %v", e.Err)
	}
	return fmt.Sprintf("invalid asset %s: %v", e.Source, e.Err)
}

func (e *InvalidAssetError) Unwrap() error { return e.Err }

// IsZero reports whether the asset carries no bytes.
func (a Asset) IsZero() bool { return len(a.Data) == 0 }

func (a Asset) Base64() string {
	return base64.StdEncoding.EncodeToString(a.Data)
}

func (a Asset) DataURL() string {
	if a.IsZero() {
		return ""
	}
	return fmt.Sprintf("data:%s;base64,%s", a.MimeType, a.Base64())
}

// FromBytes validates data as an image. mimeHint is used only when it names an
// image type; otherwise the type is sniffed from the content.
func FromBytes(data []byte, mimeHint string) (Asset, error) {
	if len(data) == 0 {
		return Asset{}, &InvalidAssetError{Err: errors.New("empty payload")}
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Asset{}, &InvalidAssetError{Err: err}
	}

	mimeType := normalizeMime(mimeHint)
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = normalizeMime(http.DetectContentType(data))
	}
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = "image/" + format
	}

	return Asset{Data: data, MimeType: mimeType}, nil
}

// FromReader reads at most MaxBytes from r.
func FromReader(r io.Reader, mimeHint string) (Asset, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBytes+1))
	if err != nil {
		return Asset{}, &InvalidAssetError{Err: fmt.Errorf("read: %w", err)}
	}
	if len(data) > MaxBytes {
		return Asset{}, &InvalidAssetError{Err: fmt.Errorf("payload exceeds %d bytes", MaxBytes)}
	}
	return FromBytes(data, mimeHint)
}

func FromFile(path string) (Asset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Asset{}, &InvalidAssetError{Source: path, Err: err}
	}
	defer f.Close()

	a, err := FromReader(f, "")
	if err != nil {
		var invalid *InvalidAssetError
		if errors.As(err, &invalid) {
			invalid.Source = path
		}
		return Asset{}, err
	}
	return a, nil
}

func FromBase64(value string, mimeHint string) (Asset, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return Asset{}, &InvalidAssetError{Err: fmt.Errorf("decode base64: %w", err)}
	}
	return FromBytes(data, mimeHint)
}

var dataURLRegex = regexp.MustCompile(`^data:([^;,]+)(;base64)?,`)

// FromDataURL accepts "data:<mime>;base64,<payload>" or a bare base64 string.
func FromDataURL(value string) (Asset, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Asset{}, &InvalidAssetError{Err: errors.New("empty data url")}
	}

	if !strings.HasPrefix(value, "data:") {
		return FromBase64(value, "")
	}

	matches := dataURLRegex.FindStringSubmatch(value)
	if len(matches) != 3 || matches[2] == "" {
		return Asset{}, &InvalidAssetError{Err: errors.New("unsupported data url")}
	}
	return FromBase64(value[len(matches[0]):], matches[1])
}

func normalizeMime(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if strings.Contains(value, ";") {
		value = strings.TrimSpace(strings.SplitN(value, ";", 2)[0])
	}
	if value == "image/jpg" {
		value = "image/jpeg"
	}
	return value
}
