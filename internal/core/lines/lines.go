// Package lines splits downloaded blob content into one record per line
// Compressed content is detected by signature, never by name
package lines

import (
	"bytes"
	"io"
	"strings"

	perr "connectors/internal/platform/errors"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

	bomUTF8    = []byte{0xef, 0xbb, 0xbf}
	bomUTF16LE = []byte{0xff, 0xfe}
	bomUTF16BE = []byte{0xfe, 0xff}
)

// IsGzip reports whether b starts with the gzip signature
func IsGzip(b []byte) bool { return bytes.HasPrefix(b, gzipMagic) }

// IsZstd reports whether b starts with the zstd frame signature
func IsZstd(b []byte) bool { return bytes.HasPrefix(b, zstdMagic) }

// Decompress inflates gzip or zstd content and returns anything else untouched
func Decompress(b []byte) ([]byte, error) {
	switch {
	case IsGzip(b):
		zr, err := gzip.NewReader(bytes.NewReader(b))
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "gzip header")
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "gzip body")
		}
		return out, nil

	case IsZstd(b):
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "zstd decoder")
		}
		defer dec.Close()
		out, err := dec.DecodeAll(b, nil)
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "zstd body")
		}
		return out, nil
	}
	return b, nil
}

// decodeText strips a byte order mark and transcodes UTF-16 to UTF-8
// content without a BOM is assumed to be UTF-8 already
func decodeText(b []byte) ([]byte, error) {
	if !bytes.HasPrefix(b, bomUTF8) && !bytes.HasPrefix(b, bomUTF16LE) && !bytes.HasPrefix(b, bomUTF16BE) {
		return b, nil
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), b)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "decode text")
	}
	return out, nil
}

// Split decompresses content when needed and returns its non blank lines
// Line endings may be \n or \r\n; lines are otherwise returned as is
func Split(content []byte) ([]string, error) {
	raw, err := Decompress(content)
	if err != nil {
		return nil, err
	}
	text, err := decodeText(raw)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(string(text), "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSuffix(p, "\r")
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
