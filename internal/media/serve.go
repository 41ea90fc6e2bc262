package media

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// SourceServer streams clip source files to an external player, honoring
// HTTP range requests so the player can seek within a source without
// downloading it whole.
type SourceServer interface {
	ServeSource(w http.ResponseWriter, r *http.Request, sourceURI string) error
}

type Server struct {
	logger *slog.Logger
}

func NewServer(logger *slog.Logger) *Server {
	return &Server{logger: logger}
}

// ServeSource resolves a file-backed source URI and streams the requested
// byte range. Only file:// URIs and plain paths are servable; remote sources
// are the player's own job to fetch.
func (s *Server) ServeSource(w http.ResponseWriter, r *http.Request, sourceURI string) error {
	path, err := sourcePath(sourceURI)
	if err != nil {
		http.Error(w, "source is not a local file", http.StatusUnprocessableEntity)
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "source file not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("open source: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	size := stat.Size()

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)

	br, err := ParseRange(r.Header.Get("Range"), size)
	if err == ErrUnsatisfiable {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	}
	if err == ErrInvalidRange {
		// Malformed ranges fall back to the full file, matching net/http.
		br = nil
	} else if err != nil {
		return err
	}

	if br == nil {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
		w.WriteHeader(http.StatusOK)
		io.Copy(w, file)
		return nil
	}

	w.Header().Set("Content-Length", fmt.Sprintf("%d", br.Length()))
	w.Header().Set("Content-Range", br.ContentRange(size))
	w.WriteHeader(http.StatusPartialContent)

	if _, err := file.Seek(br.Start, io.SeekStart); err != nil {
		return fmt.Errorf("seek source: %w", err)
	}
	io.CopyN(w, file, br.Length())
	return nil
}

// sourcePath maps a source URI onto a local filesystem path.
func sourcePath(sourceURI string) (string, error) {
	if strings.HasPrefix(sourceURI, "file://") {
		u, err := url.Parse(sourceURI)
		if err != nil {
			return "", fmt.Errorf("parse source uri: %w", err)
		}
		return u.Path, nil
	}
	if strings.Contains(sourceURI, "://") {
		return "", fmt.Errorf("unsupported source scheme in %q", sourceURI)
	}
	return sourceURI, nil
}
