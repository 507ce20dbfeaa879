// Package siteconfig parses and validates MkDocs site configuration files.
//
// Parsing happens in two tiers: ParseRaw decodes the YAML without any schema
// so that syntax problems surface on their own, and a Loader performs the
// schema and semantic validation.
package siteconfig

import (
	"fmt"

	goerrors "github.com/go-errors/errors"
	"gopkg.in/yaml.v3"
)

// RequiredField is the top-level key every site configuration must declare.
const RequiredField = "site_name"

// ConfigurationDocsURL is where users are sent when a required field is missing.
const ConfigurationDocsURL = "https://www.mkdocs.org/user-guide/configuration/"

// ParseError reports a document that is not well-formed YAML or whose
// top-level value is not a mapping.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseRaw decodes data as a generic YAML document without schema enforcement.
// Custom tags such as !ENV are accepted and left unresolved. Errors carry the
// stack of the ParseRaw call and unwrap to *ParseError.
func ParseRaw(data []byte) (map[string]any, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, goerrors.Wrap(&ParseError{Err: err}, 0)
	}

	switch root := doc.(type) {
	case map[string]any:
		return root, nil
	case map[any]any:
		out := make(map[string]any, len(root))
		for k, v := range root {
			out[fmt.Sprint(k)] = v
		}
		return out, nil
	case nil:
		return nil, goerrors.Wrap(&ParseError{Err: fmt.Errorf("document is empty, expected a mapping of configuration keys")}, 0)
	default:
		return nil, goerrors.Wrap(&ParseError{Err: fmt.Errorf("top-level value must be a mapping, got %T", doc)}, 0)
	}
}

// HasRequiredField reports whether doc declares RequiredField.
func HasRequiredField(doc map[string]any) bool {
	_, ok := doc[RequiredField]
	return ok
}

// MissingFieldMessage is the advisory text printed when RequiredField is absent.
func MissingFieldMessage(path string) string {
	return fmt.Sprintf("%s: Missing %s field. This is a required field. See: %s", path, RequiredField, ConfigurationDocsURL)
}
