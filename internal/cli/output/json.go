package output

import (
	"encoding/json"
	"io"
)

// JSONFormatter writes indented JSON without HTML escaping, so JIDs and
// message text print as they are.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
