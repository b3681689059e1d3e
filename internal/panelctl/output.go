package panelctl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Render writes an API reply body in the requested format.
func Render(w io.Writer, body json.RawMessage, format string) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	switch format {
	case FormatJSON:
		var buf bytes.Buffer
		if err := json.Indent(&buf, body, "", "  "); err != nil {
			return fmt.Errorf("format response: %w", err)
		}
		buf.WriteByte('\n')
		_, err := w.Write(buf.Bytes())
		return err
	case FormatYAML, "":
		var v any
		if err := json.Unmarshal(body, &v); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("format response: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
