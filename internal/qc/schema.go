package qc

import "strconv"

// Module is the configuration section every built-in test lives under.
const Module = "qartod"

// Built-in test identifiers.
const (
	GrossRangeTest   = "gross_range_test"
	FlatLineTest     = "flat_line_test"
	RateOfChangeTest = "rate_of_change_test"
	SpikeTest        = "spike_test"
)

// ParamKind is the input type a presentation layer should render for a parameter.
type ParamKind string

const KindNumber ParamKind = "number"

// Param describes one form field of a test.
type Param struct {
	Name    string    `json:"name" yaml:"name"`
	Label   string    `json:"label" yaml:"label"`
	Kind    ParamKind `json:"type" yaml:"type"`
	Default float64   `json:"default" yaml:"default"`
}

// Key is one configuration entry and the form fields that feed it. A key fed by one field is
// a scalar; a key fed by two is a [min, max] span.
type Key struct {
	Name   string   `json:"name" yaml:"name"`
	Fields []string `json:"fields" yaml:"fields"`
}

// IsSpan reports whether the key holds a two-element span.
func (k Key) IsSpan() bool {
	return len(k.Fields) == 2
}

// TestSchema is the static description of one test.
type TestSchema struct {
	ID     string  `json:"id" yaml:"id"`
	Params []Param `json:"params" yaml:"params"`
	Keys   []Key   `json:"keys" yaml:"keys"`
}

// KeyNames returns the configuration keys the test requires, in schema order.
func (s TestSchema) KeyNames() []string {
	names := make([]string, len(s.Keys))
	for i, k := range s.Keys {
		names[i] = k.Name
	}
	return names
}

// Defaults returns the default form values keyed by field id.
func (s TestSchema) Defaults() map[string]string {
	out := make(map[string]string, len(s.Params))
	for _, p := range s.Params {
		out[p.Name] = strconv.FormatFloat(p.Default, 'g', -1, 64)
	}
	return out
}

func number(name, label string, def float64) Param {
	return Param{Name: name, Label: label, Kind: KindNumber, Default: def}
}

func scalar(name string) Key { return Key{Name: name, Fields: []string{name}} }

var schemas = []TestSchema{
	{
		ID: GrossRangeTest,
		Params: []Param{
			number("fail_span_min", "Fail Span Min", -10),
			number("fail_span_max", "Fail Span Max", 10),
			number("suspect_span_min", "Suspect Span Min", -2),
			number("suspect_span_max", "Suspect Span Max", 3),
		},
		Keys: []Key{
			{Name: "fail_span", Fields: []string{"fail_span_min", "fail_span_max"}},
			{Name: "suspect_span", Fields: []string{"suspect_span_min", "suspect_span_max"}},
		},
	},
	{
		ID: FlatLineTest,
		Params: []Param{
			number("tolerance", "Tolerance", 0.001),
			number("suspect_threshold", "Suspect Threshold", 10800),
			number("fail_threshold", "Fail Threshold", 21600),
		},
		Keys: []Key{scalar("tolerance"), scalar("suspect_threshold"), scalar("fail_threshold")},
	},
	{
		ID:     RateOfChangeTest,
		Params: []Param{number("threshold", "Threshold", 0.001)},
		Keys:   []Key{scalar("threshold")},
	},
	{
		ID: SpikeTest,
		Params: []Param{
			number("suspect_threshold", "Suspect Threshold", 0.8),
			number("fail_threshold", "Fail Threshold", 3),
		},
		Keys: []Key{scalar("suspect_threshold"), scalar("fail_threshold")},
	},
}

// Tests returns the built-in test identifiers in schema order.
func Tests() []string {
	ids := make([]string, len(schemas))
	for i, s := range schemas {
		ids[i] = s.ID
	}
	return ids
}

// Schemas returns a copy of every built-in schema.
func Schemas() []TestSchema {
	return append([]TestSchema(nil), schemas...)
}

// SchemaFor returns the schema of a built-in test.
func SchemaFor(testID string) (TestSchema, error) {
	for _, s := range schemas {
		if s.ID == testID {
			return s, nil
		}
	}
	return TestSchema{}, &UnknownTestError{TestID: testID}
}
