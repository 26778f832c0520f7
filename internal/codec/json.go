package codec

import (
	"bufio"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
)

// ExportStats reports what an Exporter wrote
type ExportStats struct {
	Records    int
	PlainBytes int64
}

// JSONLinesExporter writes gzip-compressed newline-delimited JSON
type JSONLinesExporter struct{}

var _ Exporter = (*JSONLinesExporter)(nil)

// NewJSONLinesExporter creates a new JSON lines exporter
func NewJSONLinesExporter() *JSONLinesExporter {
	return &JSONLinesExporter{}
}

// Format returns the exporter format identifier
func (e *JSONLinesExporter) Format() string {
	return "jsonl.gz"
}

// Export writes one JSON object per payload. PlainBytes counts the
// uncompressed lines including newlines.
func (e *JSONLinesExporter) Export(payloads []Payload, w io.Writer) (ExportStats, error) {
	var stats ExportStats

	gz := gzip.NewWriter(w)
	bw := bufio.NewWriter(gz)

	for _, p := range payloads {
		line, err := json.Marshal(p)
		if err != nil {
			return stats, fmt.Errorf("failed to encode JSON: %w", err)
		}
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return stats, fmt.Errorf("failed to write JSON line: %w", err)
		}
		stats.Records++
		stats.PlainBytes += int64(len(line))
	}

	if err := bw.Flush(); err != nil {
		return stats, fmt.Errorf("failed to flush JSON lines: %w", err)
	}
	if err := gz.Close(); err != nil {
		return stats, fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	return stats, nil
}

// ReadJSONLines decodes a stream written by JSONLinesExporter
func ReadJSONLines(r io.Reader) ([]Payload, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptPayload, err)
	}
	defer gz.Close()

	var payloads []Payload
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var p Payload
		if err := json.Unmarshal(scanner.Bytes(), &p); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptPayload, err)
		}
		payloads = append(payloads, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptPayload, err)
	}
	return payloads, nil
}
