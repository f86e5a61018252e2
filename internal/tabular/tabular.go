// Package tabular reads and writes the delimited record format used by
// issue exports. It is a compatibility boundary: parsing is best effort and
// never rejects input, so files produced by other tools survive a pass
// through this codec byte for byte (see Serialize for the quoting rule).
package tabular

import "strings"

// Parse splits text into a header row and data rows. Fields are separated
// by commas, records by \n or \r\n. A field may be quoted with '"'; inside
// quotes a doubled '"' is a literal quote and commas and newlines are
// content. A trailing record without a final newline is still emitted.
// Rows consisting of a single empty field are blank lines and dropped.
func Parse(text string) (headers []string, rows [][]string) {
	records := parseRecords(text)
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], records[1:]
}

func parseRecords(text string) [][]string {
	var (
		records [][]string
		row     []string
		field   strings.Builder
		quoted  bool
	)

	endField := func() {
		row = append(row, field.String())
		field.Reset()
	}
	endRow := func() {
		endField()
		// A lone empty field is a blank line, not a data row.
		if len(row) > 1 || row[0] != "" {
			records = append(records, row)
		}
		row = nil
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case quoted:
			if c == '"' {
				if i+1 < len(runes) && runes[i+1] == '"' {
					field.WriteRune('"')
					i++
				} else {
					quoted = false
				}
			} else {
				field.WriteRune(c)
			}
		case c == '"':
			quoted = true
		case c == ',':
			endField()
		case c == '\r' && i+1 < len(runes) && runes[i+1] == '\n':
			endRow()
			i++
		case c == '\n':
			endRow()
		default:
			field.WriteRune(c)
		}
	}

	// Trailing record without a newline terminator.
	if field.Len() > 0 || len(row) > 0 {
		endRow()
	}

	return records
}

// Serialize renders headers plus rows back into delimited text. Every row
// is sized to the header width, fields are quoted only when they contain a
// comma, quote, or newline, and the output always ends with a newline.
func Serialize(headers []string, rows [][]string) string {
	var b strings.Builder
	writeRecord(&b, headers, len(headers))
	for _, row := range rows {
		writeRecord(&b, row, len(headers))
	}
	return b.String()
}

func writeRecord(b *strings.Builder, row []string, width int) {
	for i := 0; i < width; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		if i < len(row) {
			b.WriteString(encodeField(row[i]))
		}
	}
	b.WriteByte('\n')
}

func encodeField(field string) string {
	if !strings.ContainsAny(field, ",\"\n") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}
