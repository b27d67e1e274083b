// Package history records the traffic of a session and exports it to files
package history

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// DefaultMaxSize is the default byte bound of a RingRecorder
const DefaultMaxSize = 10 * 1024 * 1024

// Direction represents the direction of data flow
type Direction int

const (
	// DirectionInput is data typed by the user and sent to the child
	DirectionInput Direction = iota
	// DirectionOutput is data produced by the child
	DirectionOutput
)

// String returns the string representation of Direction
func (d Direction) String() string {
	switch d {
	case DirectionInput:
		return "input"
	case DirectionOutput:
		return "output"
	default:
		return "unknown"
	}
}

// FileFormat represents different file export formats
type FileFormat int

const (
	// FormatPlain writes the child's output bytes only, replayable with cat
	FormatPlain FileFormat = iota
	FormatTimestamped
	FormatJSON
)

// String returns the string representation of FileFormat
func (f FileFormat) String() string {
	switch f {
	case FormatPlain:
		return "plain"
	case FormatTimestamped:
		return "timestamped"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseFileFormat parses a format name
func ParseFileFormat(name string) (FileFormat, error) {
	switch strings.ToLower(name) {
	case "plain", "plain_text", "text":
		return FormatPlain, nil
	case "timestamped", "":
		return FormatTimestamped, nil
	case "json":
		return FormatJSON, nil
	default:
		return 0, fmt.Errorf("unsupported format: %q", name)
	}
}

// Recorder receives the traffic of a session
type Recorder interface {
	Write(data []byte, direction Direction) error
	Entries() []Entry
	Stats() Stats
	SaveToFile(filename string, format FileFormat) error
	Clear()
}

// Entry is a single chunk of recorded traffic
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Direction Direction `json:"direction"`
	Data      []byte    `json:"data"`
	Length    int       `json:"length"`
}

// Validate checks if the entry is valid
func (e Entry) Validate() error {
	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp cannot be zero")
	}

	if e.Direction != DirectionInput && e.Direction != DirectionOutput {
		return fmt.Errorf("invalid direction: %d", e.Direction)
	}

	if e.Data == nil {
		return fmt.Errorf("data cannot be nil")
	}

	if e.Length != len(e.Data) {
		return fmt.Errorf("length mismatch: expected %d, got %d", len(e.Data), e.Length)
	}

	return nil
}

// NewEntry creates an entry holding a copy of data
func NewEntry(data []byte, direction Direction) Entry {
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	return Entry{
		Timestamp: time.Now(),
		Direction: direction,
		Data:      dataCopy,
		Length:    len(data),
	}
}

// Stats provides statistics about recorded traffic
type Stats struct {
	TotalEntries  int        `json:"total_entries"`
	InputEntries  int        `json:"input_entries"`
	OutputEntries int        `json:"output_entries"`
	InputBytes    int        `json:"input_bytes"`
	OutputBytes   int        `json:"output_bytes"`
	Evicted       int        `json:"evicted"`
	MaxSize       int        `json:"max_size"`
	CurrentSize   int        `json:"current_size"`
	OldestEntry   *time.Time `json:"oldest_entry,omitempty"`
	NewestEntry   *time.Time `json:"newest_entry,omitempty"`
}

// RingRecorder keeps the most recent entries up to a byte bound. When a write
// would exceed the bound the oldest entries are evicted.
type RingRecorder struct {
	mu      sync.Mutex
	session string
	entries []Entry
	size    int
	maxSize int
	evicted int
}

// NewRingRecorder creates a recorder for the given session. A non-positive
// maxSize selects DefaultMaxSize.
func NewRingRecorder(maxSize int, session string) *RingRecorder {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	return &RingRecorder{
		session: session,
		entries: make([]Entry, 0, 256),
		maxSize: maxSize,
	}
}

// Session returns the session identifier written into exports
func (r *RingRecorder) Session() string {
	return r.session
}

// Write records data
func (r *RingRecorder) Write(data []byte, direction Direction) error {
	if data == nil {
		return fmt.Errorf("data cannot be nil")
	}

	if direction != DirectionInput && direction != DirectionOutput {
		return fmt.Errorf("invalid direction: %d", direction)
	}

	if len(data) > r.maxSize {
		data = data[len(data)-r.maxSize:]
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	drop := 0
	for r.size+len(data) > r.maxSize && drop < len(r.entries) {
		r.size -= r.entries[drop].Length
		drop++
	}
	if drop > 0 {
		r.entries = append(r.entries[:0], r.entries[drop:]...)
		r.evicted += drop
	}

	r.entries = append(r.entries, NewEntry(data, direction))
	r.size += len(data)

	return nil
}

// Entries returns a copy of the recorded entries, oldest first
func (r *RingRecorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]Entry, len(r.entries))
	copy(result, r.entries)
	return result
}

// Stats returns statistics about the recorded traffic
func (r *RingRecorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Stats{
		TotalEntries: len(r.entries),
		Evicted:      r.evicted,
		MaxSize:      r.maxSize,
		CurrentSize:  r.size,
	}

	for i := range r.entries {
		entry := &r.entries[i]
		switch entry.Direction {
		case DirectionInput:
			stats.InputEntries++
			stats.InputBytes += entry.Length
		case DirectionOutput:
			stats.OutputEntries++
			stats.OutputBytes += entry.Length
		}
	}

	if n := len(r.entries); n > 0 {
		oldest := r.entries[0].Timestamp
		newest := r.entries[n-1].Timestamp
		stats.OldestEntry = &oldest
		stats.NewestEntry = &newest
	}

	return stats
}

// Clear drops all entries
func (r *RingRecorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = r.entries[:0]
	r.size = 0
	r.evicted = 0
}

// SaveToFile saves the recorded entries to a file in the specified format
func (r *RingRecorder) SaveToFile(filename string, format FileFormat) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := r.Export(file, format); err != nil {
		file.Close()
		return err
	}

	return file.Close()
}

// Export writes the recorded entries to w in the specified format
func (r *RingRecorder) Export(w io.Writer, format FileFormat) error {
	entries := r.Entries()

	switch format {
	case FormatPlain:
		return saveAsPlain(w, entries)
	case FormatTimestamped:
		return saveAsTimestamped(w, r.session, entries)
	case FormatJSON:
		return saveAsJSON(w, r.session, entries)
	default:
		return fmt.Errorf("unsupported format: %v", format)
	}
}

// saveAsPlain writes the output bytes only
func saveAsPlain(w io.Writer, entries []Entry) error {
	for _, entry := range entries {
		if entry.Direction != DirectionOutput {
			continue
		}
		if _, err := w.Write(entry.Data); err != nil {
			return fmt.Errorf("failed to write data: %w", err)
		}
	}
	return nil
}

var controlEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"\n", "\\n",
	"\r", "\\r",
	"\t", "\\t",
	"\x1b", "\\e",
)

// saveAsTimestamped writes one line per entry
func saveAsTimestamped(w io.Writer, session string, entries []Entry) error {
	if session != "" {
		if _, err := fmt.Fprintf(w, "# session %s\n", session); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for _, entry := range entries {
		direction := "<<"
		if entry.Direction == DirectionOutput {
			direction = ">>"
		}

		line := fmt.Sprintf("[%s] %s %s\n",
			entry.Timestamp.Format("2006-01-02 15:04:05.000"),
			direction,
			controlEscaper.Replace(string(entry.Data)))

		if _, err := io.WriteString(w, line); err != nil {
			return fmt.Errorf("failed to write timestamped data: %w", err)
		}
	}
	return nil
}

// saveAsJSON writes all entries as one JSON document
func saveAsJSON(w io.Writer, session string, entries []Entry) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	data := struct {
		Session string  `json:"session,omitempty"`
		Entries []Entry `json:"entries"`
		Count   int     `json:"count"`
	}{
		Session: session,
		Entries: entries,
		Count:   len(entries),
	}

	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

// LoadFromFile reads entries from a JSON export
func LoadFromFile(filename string) (string, []Entry, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read file: %w", err)
	}

	var doc struct {
		Session string  `json:"session"`
		Entries []Entry `json:"entries"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", nil, fmt.Errorf("failed to parse history file: %w", err)
	}

	for i, entry := range doc.Entries {
		if err := entry.Validate(); err != nil {
			return "", nil, fmt.Errorf("invalid entry %d: %w", i, err)
		}
	}

	return doc.Session, doc.Entries, nil
}
