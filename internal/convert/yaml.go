package convert

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"github.com/witanlabs/jsheet/internal/value"
)

// EncodeYAML writes the rows as a sequence of mappings. Keys follow the
// export column order rather than yaml's default sorting, and numbers keep
// their exact text.
func EncodeYAML(e *Export) ([]byte, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, row := range e.Rows {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, c := range e.Columns {
			v, ok := row[c]
			if !ok {
				continue
			}
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: c},
				yamlNode(v))
		}
		seq.Content = append(seq.Content, m)
	}
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{seq}}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func yamlNode(v value.Value) *yaml.Node {
	switch v.Kind {
	case value.KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: v.Display()}
	case value.KindNumber:
		tag := "!!float"
		if _, ok := v.Int64(); ok {
			tag = "!!int"
		} else if _, ok := v.Uint64(); ok {
			tag = "!!int"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v.Display()}
	case value.KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.Text}
	case value.KindArray:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range v.Items {
			n.Content = append(n.Content, yamlNode(item))
		}
		return n
	case value.KindObject:
		n := &yaml.Node{Kind: yaml.MappingNode}
		for _, k := range sortedFieldNames(v.Fields) {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				yamlNode(v.Fields[k]))
		}
		return n
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}
