package qc

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed qc_config.json
var defaultConfigJSON []byte

// Params holds the configuration values of one test. Scalars are numbers, spans are
// two-element lists.
type Params map[string]interface{}

// Configuration is the nested document the engine consumes: module -> test -> params.
type Configuration map[string]map[string]Params

// Fields is the read side of a rendered parameter form.
type Fields interface {
	Field(id string) (string, bool)
}

// FieldMap is a Fields backed by a map of field id to raw value.
type FieldMap map[string]string

// Field implements Fields.
func (m FieldMap) Field(id string) (string, bool) {
	v, ok := m[id]
	return v, ok
}

func readNumber(fields Fields, id string) (float64, error) {
	raw, ok := fields.Field(id)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return 0, &MissingParameterError{Field: id}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &MissingParameterError{Field: id, Value: raw}
	}
	return v, nil
}

// FromForm assembles the configuration of testID from form values. Span keys pack their two
// fields into [min, max]; scalar keys take their single field.
func FromForm(testID string, fields Fields) (Configuration, error) {
	schema, err := SchemaFor(testID)
	if err != nil {
		return nil, err
	}
	params := make(Params, len(schema.Keys))
	for _, key := range schema.Keys {
		values := make([]float64, len(key.Fields))
		for i, id := range key.Fields {
			v, err := readNumber(fields, id)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		if key.IsSpan() {
			params[key.Name] = []interface{}{values[0], values[1]}
		} else {
			params[key.Name] = values[0]
		}
	}
	return Configuration{Module: {testID: params}}, nil
}

// DefaultConfiguration returns the bundled configuration used with the example dataset.
func DefaultConfiguration() (Configuration, error) {
	var cfg Configuration
	if err := json.Unmarshal(defaultConfigJSON, &cfg); err != nil {
		return nil, fmt.Errorf("decode default configuration: %w", err)
	}
	return cfg, nil
}

// LoadConfiguration decodes a configuration document. YAML and JSON are both accepted.
func LoadConfiguration(r io.Reader) (Configuration, error) {
	var cfg Configuration
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if len(cfg) == 0 {
		return nil, fmt.Errorf("decode configuration: document is empty")
	}
	return cfg, nil
}

// Params returns the parameters configured for a built-in test.
func (c Configuration) Params(testID string) (Params, bool) {
	tests, ok := c[Module]
	if !ok {
		return nil, false
	}
	p, ok := tests[testID]
	return p, ok
}

// ForTest returns a configuration holding only testID.
func (c Configuration) ForTest(testID string) Configuration {
	p, ok := c.Params(testID)
	if !ok {
		return Configuration{}
	}
	return Configuration{Module: {testID: p}}
}

// Validate checks that testID is configured and that its keys exactly match the schema,
// with spans holding two numbers and scalars holding one.
func (c Configuration) Validate(testID string) error {
	schema, err := SchemaFor(testID)
	if err != nil {
		return err
	}
	p, ok := c.Params(testID)
	if !ok {
		return &InvalidConfigError{TestID: testID, Reason: fmt.Sprintf("no %s.%s section", Module, testID)}
	}
	want := schema.KeyNames()
	got := make([]string, 0, len(p))
	for k := range p {
		got = append(got, k)
	}
	sort.Strings(got)
	sorted := append([]string(nil), want...)
	sort.Strings(sorted)
	if strings.Join(got, ",") != strings.Join(sorted, ",") {
		return &InvalidConfigError{
			TestID: testID,
			Reason: fmt.Sprintf("keys [%s] do not match [%s]", strings.Join(got, ", "), strings.Join(want, ", ")),
		}
	}
	for _, key := range schema.Keys {
		if key.IsSpan() {
			if _, err := p.Span(key.Name); err != nil {
				return &InvalidConfigError{TestID: testID, Reason: err.Error()}
			}
			continue
		}
		if _, err := p.Float(key.Name); err != nil {
			return &InvalidConfigError{TestID: testID, Reason: err.Error()}
		}
	}
	return nil
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Float returns a scalar parameter.
func (p Params) Float(key string) (float64, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("%s is not set", key)
	}
	f, ok := asFloat(v)
	if !ok {
		return 0, fmt.Errorf("%s must be a number, got %v", key, v)
	}
	return f, nil
}

// Span returns a [min, max] parameter.
func (p Params) Span(key string) ([2]float64, error) {
	var span [2]float64
	v, ok := p[key]
	if !ok {
		return span, fmt.Errorf("%s is not set", key)
	}
	var items []interface{}
	switch s := v.(type) {
	case []interface{}:
		items = s
	case []float64:
		items = []interface{}{}
		for _, f := range s {
			items = append(items, f)
		}
	default:
		return span, fmt.Errorf("%s must be a [min, max] list, got %v", key, v)
	}
	if len(items) != 2 {
		return span, fmt.Errorf("%s must have 2 values, got %d", key, len(items))
	}
	for i, item := range items {
		f, ok := asFloat(item)
		if !ok {
			return span, fmt.Errorf("%s[%d] must be a number, got %v", key, i, item)
		}
		span[i] = f
	}
	return span, nil
}
