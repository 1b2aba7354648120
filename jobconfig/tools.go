package jobconfig

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ToolToggle enables or disables one tool.
type ToolToggle struct {
	Name    string
	Enabled bool
}

// ToolSet is the tools section of a job: a mapping of tool name to enabled
// flag that remembers the order it was written in, since that order is the
// order results are reported in.
type ToolSet []ToolToggle

// Enabled returns the names of the enabled tools, in order.
func (ts ToolSet) Enabled() []string {
	var out []string
	for _, t := range ts {
		if t.Enabled {
			out = append(out, t.Name)
		}
	}

	return out
}

func (ts *ToolSet) UnmarshalJSON(b []byte) error {
	// A null tools section is the same as leaving it out.
	if string(bytes.TrimSpace(b)) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("tools must be an object of name to true/false, got %v", tok)
	}

	out := ToolSet{}
	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name := tok.(string)

		var enabled bool
		if err := dec.Decode(&enabled); err != nil {
			return fmt.Errorf("tool %s: %w", name, err)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("tool %s is listed more than once", name)
		}
		seen[name] = struct{}{}
		out = append(out, ToolToggle{Name: name, Enabled: enabled})
	}

	*ts = out

	return nil
}

func (ts ToolSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, t := range ts {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(t.Name)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "%s:%t", name, t.Enabled)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func (ts *ToolSet) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: tools must be a mapping of name to true/false", node.Line)
	}

	out := ToolSet{}
	seen := make(map[string]struct{})
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value

		var enabled bool
		if err := node.Content[i+1].Decode(&enabled); err != nil {
			return fmt.Errorf("tool %s: %w", name, err)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("tool %s is listed more than once", name)
		}
		seen[name] = struct{}{}
		out = append(out, ToolToggle{Name: name, Enabled: enabled})
	}

	*ts = out

	return nil
}
