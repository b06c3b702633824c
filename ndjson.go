package llmbatch

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"iter"
)

// maxRecordSize bounds a single NDJSON record. Structured outputs with long
// text fields routinely exceed bufio's 64 KB default.
const maxRecordSize = 16 * 1024 * 1024

// Records iterates the newline-delimited records of r. Blank and
// whitespace-only lines are skipped. Each yielded slice is only valid until
// the next iteration. A read error is yielded once and ends the sequence.
func Records(r io.Reader) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			if !yield(line, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// DecodeRecords runs decode over every record of r and collects the results.
// The first read or decode error aborts and is returned with the 1-based
// number of the offending non-blank record.
func DecodeRecords(r io.Reader, decode func(line []byte) (RawResponse, error)) ([]RawResponse, error) {
	var out []RawResponse
	n := 0
	for line, err := range Records(r) {
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		n++
		resp, err := decode(line)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", n, err)
		}
		out = append(out, resp)
	}
	return out, nil
}

// EncodeRecords writes one JSON document per line.
func EncodeRecords[T any](w io.Writer, records []T) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
	}
	return nil
}
