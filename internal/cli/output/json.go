package output

import (
	"encoding/json"
	"io"
	"reflect"
)

// JSONFormatter writes indented JSON. Titles and paths are written
// verbatim (no < escapes) and an empty result list is "[]", not null.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(w io.Writer, data any) error {
	if v := reflect.ValueOf(data); v.Kind() == reflect.Slice && v.IsNil() {
		data = []any{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
