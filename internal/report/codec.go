package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/newthinker/retsign/internal/core"
	"github.com/vmihailenco/msgpack/v5"
)

// Format is a report encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat parses a format name. An empty name means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatMsgpack:
		return FormatMsgpack, nil
	}
	return "", core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown report format %q", s))
}

// Ext returns the file extension for the format.
func (f Format) Ext() string {
	if f == FormatMsgpack {
		return "msgpack"
	}
	return "json"
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatMsgpack {
		return "application/msgpack"
	}
	return "application/json"
}

// Encode writes r to w.
func Encode(w io.Writer, r *Report, f Format) error {
	switch f {
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(r)
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown report format %q", f))
}

// Decode reads a report written by Encode.
func Decode(rd io.Reader, f Format) (*Report, error) {
	var r Report
	var err error
	switch f {
	case FormatMsgpack:
		err = msgpack.NewDecoder(rd).Decode(&r)
	case FormatJSON, "":
		err = json.NewDecoder(rd).Decode(&r)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown report format %q", f))
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s report: %w", f, err)
	}
	return &r, nil
}
