package worker

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Request body schemas, keyed by file name under schemas/.
const (
	schemaDraft         = "draft.json"
	schemaFollowUp      = "follow_up.json"
	schemaCheckIn       = "check_in.json"
	schemaPlanItem      = "plan_item.json"
	schemaPlanItemPatch = "plan_item_patch.json"
)

const schemaBaseURL = "https://decision-fitness.local/schemas/"

// errBadRequest marks request bodies that failed to decode or validate.
var errBadRequest = errors.New("bad request")

// Validator checks request bodies against the embedded JSON schemas.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator compiles every embedded schema.
func NewValidator() (*Validator, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, err
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	for _, e := range entries {
		f, err := schemaFS.Open("schemas/" + e.Name())
		if err != nil {
			return nil, err
		}
		err = c.AddResource(schemaBaseURL+e.Name(), f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("schema %s load failed: %w", e.Name(), err)
		}
	}

	v := &Validator{schemas: make(map[string]*jsonschema.Schema, len(entries))}
	for _, e := range entries {
		compiled, err := c.Compile(schemaBaseURL + e.Name())
		if err != nil {
			return nil, fmt.Errorf("schema %s compile failed: %w", e.Name(), err)
		}
		v.schemas[e.Name()] = compiled
	}
	return v, nil
}

// Decode reads r's body, validates it against the named schema and
// unmarshals it into dst.
func (v *Validator) Decode(r *http.Request, schema string, dst any) error {
	compiled, ok := v.schemas[schema]
	if !ok {
		return fmt.Errorf("unknown schema %q", schema)
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %w", errBadRequest, err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: invalid JSON: %w", errBadRequest, err)
	}
	if err := compiled.Validate(doc); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}
