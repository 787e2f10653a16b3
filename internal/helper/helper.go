package helper

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"hpackCodec/internal/hpack"
)

// SensitivePrefix marks a field line whose field must never be indexed.
const SensitivePrefix = '!'

var ErrMalformedFieldLine = errors.New("malformed field line")

func ReadUntil(r *bytes.Reader, c byte) ([]byte, error) {
	var rBytes []byte
	rByte, err := r.ReadByte()

	for err != io.EOF && rByte != c {
		if err != nil {
			return rBytes, err
		}

		rBytes = append(rBytes, rByte)
		rByte, err = r.ReadByte()
	}

	return rBytes, nil
}

// ParseFieldLine splits "name: value". The colon that starts a pseudo-header
// name is part of the name. A leading '!' marks the field as never indexed.
func ParseFieldLine(line string) (hpack.HeaderField, error) {
	var f hpack.HeaderField

	line = strings.TrimRight(line, "\r\n")
	if len(line) > 0 && line[0] == SensitivePrefix {
		f.NeverIndexed = true
		line = line[1:]
	}

	r := bytes.NewReader([]byte(line))
	var prefix []byte
	if strings.HasPrefix(line, ":") {
		prefix = []byte{':'}
		_, _ = r.ReadByte()
	}

	name, err := ReadUntil(r, ':')
	if err != nil {
		return f, err
	}
	if r.Len() == 0 && !strings.HasSuffix(line, ":") {
		return f, fmt.Errorf("%w: missing ':' in %q", ErrMalformedFieldLine, line)
	}

	fullName := string(append(prefix, name...))
	if strings.TrimSpace(fullName) != fullName || fullName == "" || fullName == ":" {
		return f, fmt.Errorf("%w: bad name in %q", ErrMalformedFieldLine, line)
	}

	value := make([]byte, r.Len())
	_, _ = r.Read(value)

	f.HeaderFieldName = strings.ToLower(fullName)
	f.HeaderFieldValue = strings.TrimLeftFunc(string(value), unicode.IsSpace)
	return f, nil
}

// ParseFieldLines reads one field per line. Blank lines and lines starting
// with '#' are skipped.
func ParseFieldLines(r io.Reader) ([]hpack.HeaderField, error) {
	var fields []hpack.HeaderField

	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		f, err := ParseFieldLine(line)
		if err != nil {
			return fields, fmt.Errorf("line %d: %w", lineNumber, err)
		}
		fields = append(fields, f)
	}

	if err := scanner.Err(); err != nil {
		return fields, err
	}
	return fields, nil
}

// FormatFieldLines writes fields in the form ParseFieldLines reads.
func FormatFieldLines(w io.Writer, fields []hpack.HeaderField) error {
	bw := bufio.NewWriter(w)
	for _, f := range fields {
		if f.NeverIndexed {
			_ = bw.WriteByte(SensitivePrefix)
		}
		if _, err := fmt.Fprintf(bw, "%s: %s\n", f.HeaderFieldName, f.HeaderFieldValue); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// DecodeHex accepts hex with optional "0x" prefixes and any whitespace
// between octets.
func DecodeHex(input []byte) ([]byte, error) {
	var cleaned []byte
	for _, field := range strings.Fields(string(input)) {
		field = strings.TrimPrefix(strings.TrimPrefix(field, "0x"), "0X")
		cleaned = append(cleaned, field...)
	}

	out := make([]byte, hex.DecodedLen(len(cleaned)))
	n, err := hex.Decode(out, cleaned)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return out[:n], nil
}

// HexDump formats data sixteen octets per line with offsets.
func HexDump(data []byte) string {
	var b strings.Builder
	for i := 0; i < len(data); i += 16 {
		end := min(i+16, len(data))
		b.WriteString(fmt.Sprintf("%08x  ", i))
		for j := i; j < i+16; j++ {
			if j < end {
				b.WriteString(fmt.Sprintf("%02x ", data[j]))
			} else {
				b.WriteString("   ")
			}
		}
		b.WriteString(" |")
		for _, c := range data[i:end] {
			if strconv.IsPrint(rune(c)) && c < 0x7f {
				b.WriteByte(c)
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteString("|\n")
	}
	return b.String()
}
