package qagen

import (
	"bytes"
	"encoding/json"
)

// EncodePairs renders pairs as a pretty-printed JSON list of single-entry
// objects, {"<question>": "<answer>"}, in order.
func EncodePairs(pairs []Pair) ([]byte, error) {
	list := make([]map[string]string, len(pairs))
	for i, p := range pairs {
		list[i] = map[string]string{p.Question: p.Answer}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(list); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
