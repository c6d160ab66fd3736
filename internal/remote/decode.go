package remote

import (
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/starford/muninn/internal/models"
)

var errMissingID = errors.New("record missing id")

// decodeNote coerces one dynamically shaped wire record into a Note. The
// remote service is not consistent about field names or timestamp encodings,
// so both the structured form (id/content/created_at) and the legacy form
// (key/createdate as epoch seconds) are accepted. Unknown fields are ignored.
func decodeNote(raw map[string]any) (models.Note, error) {
	id := stringField(raw, "id", "key")
	if id == "" {
		return models.Note{}, errMissingID
	}
	n := models.Note{
		ID:         id,
		Content:    stringField(raw, "content"),
		Tags:       stringSlice(raw["tags"]),
		CreatedAt:  timeField(raw, "created_at", "createdate"),
		ModifiedAt: timeField(raw, "modified_at", "modifydate"),
		Deleted:    boolField(raw, "deleted"),
		Pinned:     boolField(raw, "pinned"),
		Version:    intField(raw, "version"),
	}
	return n, nil
}

// decodeChange coerces one record from the changes feed. A record flagged
// deleted (or explicitly marked as a tombstone) becomes a tombstone change
// carrying only the id. Records without an id decode to a zero Change so
// the cache can count and log them.
func decodeChange(raw map[string]any) models.Change {
	id := stringField(raw, "id", "key")
	if id == "" {
		return models.Change{}
	}
	if boolField(raw, "tombstone") || boolField(raw, "deleted") {
		return models.Change{ID: id, Tombstone: true}
	}
	n, err := decodeNote(raw)
	if err != nil {
		return models.Change{}
	}
	return models.Change{ID: id, Note: n}
}

func decodeNoteList(data []byte) ([]models.Note, error) {
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		// Some deployments wrap the list in an envelope.
		var envelope struct {
			Notes []map[string]any `json:"notes"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil || envelope.Notes == nil {
			return nil, errors.New("note list has unexpected shape")
		}
		records = envelope.Notes
	}
	notes := make([]models.Note, 0, len(records))
	for _, raw := range records {
		n, err := decodeNote(raw)
		if err != nil {
			// Keep a placeholder so the caller sees the malformed record.
			notes = append(notes, models.Note{})
			continue
		}
		notes = append(notes, n)
	}
	return notes, nil
}

func stringField(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := raw[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		out := make([]string, len(vv))
		copy(out, vv)
		return out
	case []any:
		var out []string
		for _, item := range vv {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// boolField accepts booleans and the numeric 0/1 encoding used by the
// legacy record form.
func boolField(raw map[string]any, key string) bool {
	switch v := raw[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case json.Number:
		f, err := v.Float64()
		return err == nil && f != 0
	case string:
		return v == "1" || v == "true"
	}
	return false
}

// timeField accepts RFC 3339 strings and epoch seconds (integer or float).
func timeField(raw map[string]any, keys ...string) time.Time {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case string:
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				return t
			}
		case float64:
			if v > 0 {
				sec, frac := math.Modf(v)
				return time.Unix(int64(sec), int64(frac*1e9)).UTC()
			}
		}
	}
	return time.Time{}
}

func intField(raw map[string]any, key string) int64 {
	switch v := raw[key].(type) {
	case float64:
		return int64(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
	}
	return 0
}
