package siteconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// envTag marks values that are read from the environment at load time.
const envTag = "!ENV"

// resolveEnvTags rewrites every !ENV node in place.
//
// A scalar names one variable. A sequence names several variables tried in
// order; when it has more than one item the last item is the default used
// if none is set. Values found in the environment get their implicit YAML
// type, so "!ENV PORT" with PORT=8000 decodes as an integer. An unset
// variable without a default becomes null.
func resolveEnvTags(node *yaml.Node, lookup func(string) (string, bool)) error {
	if node == nil {
		return nil
	}

	if node.Tag == envTag {
		return resolveEnvNode(node, lookup)
	}

	for _, child := range node.Content {
		if err := resolveEnvTags(child, lookup); err != nil {
			return err
		}
	}
	return nil
}

func resolveEnvNode(node *yaml.Node, lookup func(string) (string, bool)) error {
	var (
		names    []string
		fallback *yaml.Node
	)

	switch node.Kind {
	case yaml.ScalarNode:
		names = []string{node.Value}
	case yaml.SequenceNode:
		items := node.Content
		if len(items) > 1 {
			fallback = items[len(items)-1]
			items = items[:len(items)-1]
		}
		for _, item := range items {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: %s variable names must be scalars", item.Line, envTag)
			}
			names = append(names, item.Value)
		}
	default:
		return fmt.Errorf("line %d: %s expects a variable name or a list of names", node.Line, envTag)
	}

	for _, name := range names {
		if value, ok := lookup(name); ok {
			*node = yaml.Node{Kind: yaml.ScalarNode, Value: value, Line: node.Line, Column: node.Column}
			return nil
		}
	}

	if fallback != nil {
		resolved := *fallback
		if err := resolveEnvTags(&resolved, lookup); err != nil {
			return err
		}
		*node = resolved
		return nil
	}

	*node = yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null", Line: node.Line, Column: node.Column}
	return nil
}

// decodeWithEnv parses data, resolves !ENV tags and decodes the result.
func decodeWithEnv(data []byte, lookup func(string) (string, bool)) (map[string]any, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ParseError{Err: err}
	}
	if root.Kind == 0 {
		return map[string]any{}, nil
	}
	if err := resolveEnvTags(&root, lookup); err != nil {
		return nil, err
	}

	var doc any
	if err := root.Decode(&doc); err != nil {
		return nil, &ParseError{Err: err}
	}

	switch m := doc.(type) {
	case map[string]any:
		return m, nil
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, nil
	case nil:
		return map[string]any{}, nil
	default:
		return nil, &ParseError{Err: fmt.Errorf("top-level value must be a mapping, got %T", doc)}
	}
}
