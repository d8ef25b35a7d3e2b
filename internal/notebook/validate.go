package notebook

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed data/nbformat.v4.schema.json
var schemaJSON []byte

// ErrInvalidNotebook is returned by Validate for documents that do not
// match the notebook schema.
var ErrInvalidNotebook = errors.New("invalid notebook")

var (
	loadSchemaOnce sync.Once
	schema         *gojsonschema.Schema
	schemaErr      error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	loadSchemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compiling notebook schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// Validate checks a serialized notebook against the nbformat 4 schema.
func Validate(doc []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNotebook, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidNotebook, strings.Join(msgs, "; "))
}
