package codec

import "gopkg.in/yaml.v3"

type yamlCodec struct{}

// YAML returns the application/yaml codec.
func YAML() Codec { return yamlCodec{} }

func (yamlCodec) MediaType() string { return "application/yaml" }

func (yamlCodec) Decode(data []byte, v any) (bool, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return false, err
	}
	// An empty document has no content; a lone null scalar decodes to nothing.
	if len(node.Content) == 0 {
		return false, nil
	}
	if doc := node.Content[0]; doc.Kind == yaml.ScalarNode && doc.Tag == "!!null" {
		return false, nil
	}
	if err := node.Decode(v); err != nil {
		return false, err
	}
	return true, nil
}

func (yamlCodec) Encode(v any) ([]byte, error) {
	return yaml.Marshal(v)
}
