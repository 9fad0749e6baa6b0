package loader

import (
	"bytes"
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// decodeYAML strictly decodes a YAML or JSON document into v. Unknown
// fields are errors.
func decodeYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Error{Code: ErrCodeNotFound, Path: path, Message: "cannot read file", Err: err}
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &Error{Code: ErrCodeDecode, Path: path, Message: "empty document"}
		}
		var te *yaml.TypeError
		if errors.As(err, &te) {
			return &Error{Code: ErrCodeDecode, Path: path, Message: "document does not match the schema", Err: err}
		}
		return &Error{Code: ErrCodeParse, Path: path, Message: "invalid document", Err: err}
	}
	return nil
}
