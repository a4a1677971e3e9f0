package lines

import (
	"bytes"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/text/encoding/unicode"
)

func gz(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func zst(t *testing.T, s string) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	defer enc.Close()
	return enc.EncodeAll([]byte(s), nil)
}

func eq(a, b []string) bool { return strings.Join(a, "|") == strings.Join(b, "|") }

func TestSplit_GzipDropsBlankLines(t *testing.T) {
	got, err := Split(gz(t, "a\n\nb\n"))
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if !eq(got, []string{"a", "b"}) {
		t.Fatalf("Split gzip = %q", got)
	}
}

func TestSplit_PlainMatchesGzip(t *testing.T) {
	plain, _ := Split([]byte("a\n\nb\n"))
	zipped, _ := Split(gz(t, "a\n\nb\n"))
	if !eq(plain, zipped) {
		t.Fatalf("plain %q vs gzip %q", plain, zipped)
	}
}

func TestSplit_Zstd(t *testing.T) {
	got, err := Split(zst(t, "{\"a\":1}\n{\"b\":2}\n"))
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if !eq(got, []string{`{"a":1}`, `{"b":2}`}) {
		t.Fatalf("Split zstd = %q", got)
	}
}

func TestSplit_CRLFAndWhitespaceOnlyLines(t *testing.T) {
	got, _ := Split([]byte("x\r\n   \r\n\ty\r\n"))
	if !eq(got, []string{"x", "\ty"}) {
		t.Fatalf("Split crlf = %q", got)
	}
}

func TestSplit_EmptyContent(t *testing.T) {
	got, err := Split(nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("Split(nil) = %q, %v", got, err)
	}
}

func TestSplit_BOMs(t *testing.T) {
	got, _ := Split(append([]byte{0xef, 0xbb, 0xbf}, "first\nsecond"...))
	if !eq(got, []string{"first", "second"}) {
		t.Fatalf("utf8 bom = %q", got)
	}

	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	u16, err := enc.Bytes([]byte("one\ntwo\n"))
	if err != nil {
		t.Fatalf("encode utf16: %v", err)
	}
	got, err = Split(u16)
	if err != nil || !eq(got, []string{"one", "two"}) {
		t.Fatalf("utf16 = %q, %v", got, err)
	}
}

func TestSplit_CorruptGzip(t *testing.T) {
	bad := gz(t, "hello\nworld\n")
	bad = bad[:len(bad)-6]
	if _, err := Split(bad); err == nil {
		t.Fatalf("truncated gzip should fail")
	}
}

func TestSniffing(t *testing.T) {
	if !IsGzip([]byte{0x1f, 0x8b, 0x08}) || IsGzip([]byte("plain")) {
		t.Fatalf("IsGzip mismatch")
	}
	if !IsZstd([]byte{0x28, 0xb5, 0x2f, 0xfd, 0}) || IsZstd([]byte{0x28}) {
		t.Fatalf("IsZstd mismatch")
	}
}
