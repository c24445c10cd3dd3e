// Package audio turns local recordings into durable payloads and back
// into playable files. The encoded payload is the only representation
// that survives a session; playable handles are temp files that the
// opening view must release.
package audio

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Payload is the durable form of a recording: base64 encoded bytes plus
// a MIME type tag.
type Payload struct {
	Data     string
	MIMEType string
}

var mimeByExtension = map[string]string{
	".webm": "audio/webm",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".mp4":  "audio/mp4",
	".aac":  "audio/aac",
	".flac": "audio/flac",
}

var extensionByMIME = map[string]string{
	"audio/webm": ".webm",
	"audio/ogg":  ".ogg",
	"audio/mpeg": ".mp3",
	"audio/wav":  ".wav",
	"audio/mp4":  ".m4a",
	"audio/aac":  ".aac",
	"audio/flac": ".flac",
}

// ErrUnsupportedFormat is returned when a file is neither a known audio
// extension nor sniffable as audio content.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// FromFile reads an uploaded recording and encodes it into a Payload.
// Empty or unreadable files abort the ingestion; nothing is retried.
func FromFile(path string) (Payload, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Payload{}, fmt.Errorf("read audio file: %w", err)
	}
	if len(raw) == 0 {
		return Payload{}, fmt.Errorf("read audio file: %s is empty", filepath.Base(path))
	}
	mimeType, err := detectMIME(path, raw)
	if err != nil {
		return Payload{}, err
	}
	return Payload{
		Data:     base64.StdEncoding.EncodeToString(raw),
		MIMEType: mimeType,
	}, nil
}

func detectMIME(path string, raw []byte) (string, error) {
	if mt, ok := mimeByExtension[strings.ToLower(filepath.Ext(path))]; ok {
		return mt, nil
	}
	sniffed := http.DetectContentType(raw)
	if strings.HasPrefix(sniffed, "audio/") {
		return sniffed, nil
	}
	// Browsers record webm audio inside a video container.
	if sniffed == "video/webm" {
		return "audio/webm", nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
}

// Handle is a session-local playable copy of a payload. It is never
// persisted; Release removes the backing file and is safe to call more
// than once.
type Handle struct {
	path    string
	release sync.Once
}

// Path reports the location of the decoded audio file.
func (h *Handle) Path() string {
	return h.path
}

// Release removes the decoded file. Views call this when they close,
// regardless of success or failure, so handles never accumulate.
func (h *Handle) Release() {
	h.release.Do(func() {
		if h.path != "" {
			_ = os.Remove(h.path)
		}
	})
}

// Open decodes the payload into a playable temp file under dir (the
// default temp dir when empty) and returns the owning handle.
func (p Payload) Open(dir string) (*Handle, error) {
	raw, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return nil, fmt.Errorf("decode audio payload: %w", err)
	}
	ext := extensionByMIME[p.MIMEType]
	if ext == "" {
		ext = ".bin"
	}
	f, err := os.CreateTemp(dir, "echonote-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("create playback file: %w", err)
	}
	if _, err := f.Write(raw); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("write playback file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("close playback file: %w", err)
	}
	return &Handle{path: f.Name()}, nil
}
