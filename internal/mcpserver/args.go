package mcpserver

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// argInt reads an optional integer argument. JSON numbers arrive as
// float64; numeric strings are tolerated.
func argInt(req mcp.CallToolRequest, key string, def int) (int, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case string:
		if v == "" {
			return def, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%s must be an integer", key)
}

// argBool reads an optional boolean argument.
func argBool(req mcp.CallToolRequest, key string) (bool, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return false, nil
	}
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		if v == "" {
			return false, nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("%s must be a boolean", key)
		}
		return b, nil
	}
	return false, fmt.Errorf("%s must be a boolean", key)
}

// argTags reads a tags argument as either a comma-separated string or a
// JSON array of strings. The second result reports whether the argument
// was present at all, so callers can tell "clear the tags" apart from
// "leave them alone".
func argTags(req mcp.CallToolRequest, key string) ([]string, bool, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return nil, false, nil
	}
	switch v := raw.(type) {
	case string:
		return splitTags(v), true, nil
	case []string:
		return dropBlank(v), true, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, isStr := item.(string)
			if !isStr {
				return nil, true, fmt.Errorf("%s must contain only strings", key)
			}
			if t := strings.TrimSpace(s); t != "" {
				out = append(out, t)
			}
		}
		return out, true, nil
	}
	return nil, true, fmt.Errorf("%s must be an array of strings or a comma-separated string", key)
}

// argTime parses an optional date argument, accepting YYYY-MM-DD or a
// full RFC 3339 timestamp. endOfDay widens a date-only value to the last
// instant of that day, for inclusive upper bounds.
func argTime(req mcp.CallToolRequest, key string, endOfDay bool) (time.Time, error) {
	raw, ok := req.GetArguments()[key].(string)
	if !ok || raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be YYYY-MM-DD or RFC 3339", key)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t.UTC(), nil
}

func splitTags(s string) []string {
	return dropBlank(strings.Split(s, ","))
}

func dropBlank(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
