// Package report provides reporting utilities.
package report

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// PeekBody takes head of response body for printing.
func PeekBody(body []byte, l int) []byte {
	tooLong := false
	if len(body) > l {
		tooLong = true
		body = body[0:l]
	}

	if !IsPrintable(string(body)) {
		return []byte("<non-printable-binary-data>")
	}

	if tooLong {
		return append(body, '.', '.', '.')
	}

	return body
}

// IsPrintable checks if s is ascii text without control characters other than whitespace.
func IsPrintable(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}

		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return false
		}
	}

	return true
}

// Bytes.
const (
	BYTE = 1 << (10 * iota)
	KILOBYTE
	MEGABYTE
	GIGABYTE
	TERABYTE
	PETABYTE
	EXABYTE
)

// ByteSize returns a human-readable byte string of the form 10MB, 12.5KB, and so forth.
func ByteSize(bytes int64) string {
	var (
		unit  string
		value = float64(bytes)
	)

	switch {
	case bytes >= EXABYTE:
		unit = "EB"
		value /= EXABYTE
	case bytes >= PETABYTE:
		unit = "PB"
		value /= PETABYTE
	case bytes >= TERABYTE:
		unit = "TB"
		value /= TERABYTE
	case bytes >= GIGABYTE:
		unit = "GB"
		value /= GIGABYTE
	case bytes >= MEGABYTE:
		unit = "MB"
		value /= MEGABYTE
	case bytes >= KILOBYTE:
		unit = "KB"
		value /= KILOBYTE
	default:
		unit = "B"
	}

	result := strconv.FormatFloat(value, 'f', 1, 64)
	result = strings.TrimSuffix(result, ".0")

	return result + unit
}

// Ms converts duration to fractional milliseconds.
func Ms(d time.Duration) float64 {
	return d.Seconds() * 1000
}
