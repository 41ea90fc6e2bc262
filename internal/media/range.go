// Package media serves clip source files to external players over HTTP range
// requests and probes source metadata. It never interprets timeline state;
// sources are addressed by URI.
package media

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidRange  = errors.New("invalid range format")
	ErrUnsatisfiable = errors.New("range not satisfiable")
)

// ByteRange is an inclusive byte span within a source file.
type ByteRange struct {
	Start int64
	End   int64
}

func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

func (r ByteRange) ContentRange(total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, total)
}

// ParseRange interprets an HTTP Range header against a file of the given
// size. An empty header yields (nil, nil): the whole file. Multi-range
// requests degrade to their first range.
func ParseRange(header string, size int64) (*ByteRange, error) {
	if header == "" {
		return nil, nil
	}

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, ErrInvalidRange
	}
	if first, _, multi := strings.Cut(spec, ","); multi {
		spec = strings.TrimSpace(first)
	}

	startPart, endPart, ok := strings.Cut(spec, "-")
	if !ok {
		return nil, ErrInvalidRange
	}

	var r ByteRange
	switch {
	case startPart == "":
		// Suffix form: last N bytes.
		n, err := strconv.ParseInt(endPart, 10, 64)
		if err != nil || n <= 0 {
			return nil, ErrInvalidRange
		}
		r.Start = size - n
		if r.Start < 0 {
			r.Start = 0
		}
		r.End = size - 1

	default:
		start, err := strconv.ParseInt(startPart, 10, 64)
		if err != nil || start < 0 {
			return nil, ErrInvalidRange
		}
		r.Start = start
		if endPart == "" {
			r.End = size - 1
		} else {
			end, err := strconv.ParseInt(endPart, 10, 64)
			if err != nil {
				return nil, ErrInvalidRange
			}
			r.End = end
		}
	}

	if r.Start > r.End || r.Start >= size {
		return nil, ErrUnsatisfiable
	}
	if r.End >= size {
		r.End = size - 1
	}
	return &r, nil
}
