package logger

import "encoding/json"

const defaultRecentCapacity = 500

// Entry is a parsed log line kept in the recent-logs buffer.
type Entry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// recentWriter implements io.Writer. It receives JSON log lines from zerolog
// and keeps the most recent ones so the API can expose them.
type recentWriter struct {
	buffer *RingBuffer[Entry]
}

func newRecentWriter(capacity int) *recentWriter {
	if capacity <= 0 {
		capacity = defaultRecentCapacity
	}
	return &recentWriter{buffer: NewRingBuffer[Entry](capacity)}
}

// Write parses a zerolog JSON line into an Entry. Malformed lines are
// silently dropped; log capture must never fail a write.
func (w *recentWriter) Write(p []byte) (int, error) {
	entry, err := parseEntry(p)
	if err == nil {
		w.buffer.Push(entry)
	}
	return len(p), nil
}

func parseEntry(data []byte) (Entry, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Entry{}, err
	}

	entry := Entry{Fields: make(map[string]any)}

	if ts, ok := raw["time"].(string); ok {
		entry.Timestamp = ts
		delete(raw, "time")
	}
	if level, ok := raw["level"].(string); ok {
		entry.Level = level
		delete(raw, "level")
	}
	if component, ok := raw["component"].(string); ok {
		entry.Component = component
		delete(raw, "component")
	}
	if msg, ok := raw["message"].(string); ok {
		entry.Message = msg
		delete(raw, "message")
	}
	for k, v := range raw {
		entry.Fields[k] = v
	}

	return entry, nil
}
