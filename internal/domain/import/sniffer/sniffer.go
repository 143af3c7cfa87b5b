// Package sniffer recognizes PayPay exports by their header row and
// fingerprints unfamiliar layouts.
package sniffer

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"strings"
	"unicode"

	"github.com/FACorreiaa/paypay-tracker/internal/domain/import/parser"
)

var ErrNoHeadersFound = errors.New("no header row found")

// Report describes the header row of an uploaded file
type Report struct {
	Delimiter   rune
	Headers     []string
	Fingerprint string
	// Missing lists PayPay columns absent from Headers.
	Missing []string
}

// IsPayPay reports whether the header carries every PayPay column
func (r *Report) IsPayPay() bool {
	return r.Delimiter == ',' && len(r.Missing) == 0
}

// Inspect reads the first non-blank line of content as the header row.
func Inspect(content string) (*Report, error) {
	line := firstLine(content)
	if line == "" {
		return nil, ErrNoHeadersFound
	}

	delimiter, count := detectDelimiter(line)
	if count == 0 {
		delimiter = ','
	}

	reader := csv.NewReader(strings.NewReader(line))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	headers, err := reader.Read()
	if err != nil {
		return nil, ErrNoHeadersFound
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	return &Report{
		Delimiter:   delimiter,
		Headers:     headers,
		Fingerprint: generateFingerprint(headers),
		Missing:     missingColumns(headers, parser.Header),
	}, nil
}

// PayPayFingerprint is the fingerprint of an unmodified PayPay header.
func PayPayFingerprint() string {
	return generateFingerprint(parser.Header)
}

func firstLine(content string) string {
	content = strings.TrimPrefix(content, "\uFEFF")
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(strings.TrimRight(line, "\r")); line != "" {
			return line
		}
	}
	return ""
}

func detectDelimiter(line string) (rune, int) {
	delimiters := []rune{',', ';', '\t', '|'}
	bestDelimiter := rune(0)
	bestCount := 0
	for _, d := range delimiters {
		count := strings.Count(line, string(d))
		if count > bestCount {
			bestCount = count
			bestDelimiter = d
		}
	}
	return bestDelimiter, bestCount
}

func missingColumns(headers, expected []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}
	var missing []string
	for _, e := range expected {
		if !present[e] {
			missing = append(missing, e)
		}
	}
	return missing
}

// generateFingerprint hashes the header names after dropping punctuation
// and case.
func generateFingerprint(headers []string) string {
	var normalized []string
	for _, h := range headers {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, h)
		if clean != "" {
			normalized = append(normalized, clean)
		}
	}

	hash := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(hash[:])
}
