package table

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// yamlTable is the human-editable stored-table form. Values are listed with
// axis 0 varying fastest.
type yamlTable struct {
	Axes     []yamlAxis   `yaml:"axes"`
	Quantity yamlQuantity `yaml:"quantity"`
	Values   []float64    `yaml:"values"`
}

type yamlAxis struct {
	Name   string    `yaml:"name"`
	Unit   string    `yaml:"unit"`
	Scale  string    `yaml:"scale"`
	Points []float64 `yaml:"points"`
}

type yamlQuantity struct {
	Name  string `yaml:"name"`
	Unit  string `yaml:"unit"`
	Scale string `yaml:"scale"`
}

// DecodeYAML reads a stored table in YAML form. Unknown fields are rejected.
func DecodeYAML(name string, r io.Reader) (*Table, error) {
	var doc yamlTable
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, resourceErrorf(name, err, "parse YAML stored table")
	}
	axes := make([]Axis, len(doc.Axes))
	for k, a := range doc.Axes {
		scale, err := parseScaleDefault(a.Scale)
		if err != nil {
			return nil, resourceErrorf(name, err, "axis %q", a.Name)
		}
		axes[k] = Axis{Name: a.Name, Unit: a.Unit, Scale: scale, Points: a.Points}
	}
	qScale, err := parseScaleDefault(doc.Quantity.Scale)
	if err != nil {
		return nil, resourceErrorf(name, err, "quantity %q", doc.Quantity.Name)
	}
	return New(name, axes, Quantity{Name: doc.Quantity.Name, Unit: doc.Quantity.Unit, Scale: qScale}, doc.Values)
}

// EncodeYAML writes t in YAML form.
func EncodeYAML(w io.Writer, t *Table) error {
	doc := yamlTable{
		Axes:     make([]yamlAxis, len(t.axes)),
		Quantity: yamlQuantity{Name: t.quantity.Name, Unit: t.quantity.Unit, Scale: t.quantity.Scale.String()},
		Values:   t.values,
	}
	for k, ax := range t.axes {
		doc.Axes[k] = yamlAxis{Name: ax.Name, Unit: ax.Unit, Scale: ax.Scale.String(), Points: ax.Points}
	}
	encoder := yaml.NewEncoder(w)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("encode YAML stored table: %w", err)
	}
	return encoder.Close()
}

// parseScaleDefault treats an omitted scale as linear.
func parseScaleDefault(s string) (Scale, error) {
	if s == "" {
		return Linear, nil
	}
	return ParseScale(s)
}
