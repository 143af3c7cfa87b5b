package parser

import (
	"fmt"

	"github.com/gocarina/gocsv"
)

// MarshalSnapshot renders raw rows back to CSV, header included, for the
// upload audit record.
func MarshalSnapshot(rows []RawRow) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	out, err := gocsv.MarshalString(&rows)
	if err != nil {
		return "", fmt.Errorf("failed to marshal raw rows: %w", err)
	}
	return out, nil
}
