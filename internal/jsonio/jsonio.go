// Package jsonio reads and writes the primary JSON file: an array of
// objects.
package jsonio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/witanlabs/jsheet/internal/fsutil"
	"github.com/witanlabs/jsheet/internal/sheet"
	"github.com/witanlabs/jsheet/internal/sheeterr"
	"github.com/witanlabs/jsheet/internal/value"
)

// Load reads path as a JSON array of objects. Numbers are kept exact.
func Load(path string) ([]sheet.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, sheeterr.Wrap(sheeterr.KindIO, path, err)
	}
	rows, err := Decode(data)
	if err != nil {
		var se *sheeterr.Error
		if errors.As(err, &se) && se.Path == "" {
			se.Path = path
		}
		return nil, err
	}
	return rows, nil
}

// Decode parses an in-memory document.
func Decode(data []byte) ([]sheet.Row, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, &sheeterr.Error{Kind: sheeterr.KindParse, Msg: "invalid JSON", Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, sheeterr.New(sheeterr.KindParse, "invalid JSON: unexpected data after top-level value")
	}

	items, ok := root.([]any)
	if !ok {
		return nil, sheeterr.New(sheeterr.KindSchema, "JSON root is not an array")
	}
	rows := make([]sheet.Row, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, sheeterr.New(sheeterr.KindSchema, "element %d is not an object", i)
		}
		row := make(sheet.Row, len(obj))
		for k, raw := range obj {
			v, err := value.FromAny(raw)
			if err != nil {
				return nil, &sheeterr.Error{Kind: sheeterr.KindParse, Msg: fmt.Sprintf("element %d field %q", i, k), Err: err}
			}
			row[k] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Encode pretty-prints rows with two-space indentation and sorted keys.
func Encode(rows []sheet.Row) ([]byte, error) {
	arr := make([]any, len(rows))
	for i, row := range rows {
		obj := make(map[string]any, len(row))
		for k, v := range row {
			obj[k] = v.ToAny()
		}
		arr[i] = obj
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(arr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes rows to path atomically.
func Save(path string, rows []sheet.Row) error {
	data, err := Encode(rows)
	if err != nil {
		return sheeterr.Wrap(sheeterr.KindExport, path, err)
	}
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return sheeterr.Wrap(sheeterr.KindIO, path, err)
	}
	return nil
}
