package output

import (
	"encoding/json"
	"io"
)

// WriteJSON writes v as two-space-indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
