package excel

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Definition is a schema written in YAML:
//
//	name: attendance
//	sheet: Data
//	fields:
//	  - {name: first, col: 0, type: int, label: First, default: 100}
//	  - name: second
//	    col: 1
//	    type: int
//	    choices: [{value: 1, label: one}, {value: 2, label: two}]
//	  - {name: date, col: 2, type: date, default: today}
type Definition struct {
	Name   string            `yaml:"name"`
	Sheet  string            `yaml:"sheet"`
	Fields []FieldDefinition `yaml:"fields" validate:"required,min=1,dive"`
}

type FieldDefinition struct {
	Name  string  `yaml:"name" validate:"required"`
	Col   int     `yaml:"col"`
	Type  Kind    `yaml:"type" validate:"required,oneof=string int float bool date datetime time lookup"`
	Label string  `yaml:"label"`
	Width float64 `yaml:"width" validate:"gte=0,lte=255"`
	// Default of date and datetime fields may be "today" or "now",
	// evaluated on every use.
	Default  any                `yaml:"default"`
	Location string             `yaml:"location"`
	Choices  []ChoiceDefinition `yaml:"choices" validate:"dive"`
	Lookup   *LookupDefinition  `yaml:"lookup"`
}

type ChoiceDefinition struct {
	Value any    `yaml:"value"`
	Label string `yaml:"label" validate:"required"`
}

// LookupDefinition is a lookup table given inline as pairs, or loaded by a
// query selecting key and lookup columns. Environment variables in DSN are
// expanded.
type LookupDefinition struct {
	Pairs           []LookupPairDefinition `yaml:"pairs" validate:"dive"`
	Driver          string                 `yaml:"driver"`
	DSN             string                 `yaml:"dsn"`
	Query           string                 `yaml:"query"`
	Timeout         time.Duration          `yaml:"timeout" validate:"gte=0"`
	CaseInsensitive bool                   `yaml:"case_insensitive"`
	DefaultOnFail   bool                   `yaml:"default_on_fail"`
}

// DefaultLookupDriver is used by lookup queries that name no driver.
const DefaultLookupDriver = "mysql"

type LookupPairDefinition struct {
	Key    any `yaml:"key"`
	Lookup any `yaml:"lookup"`
}

var validate = validator.New()

// LoadDefinition reads and validates a YAML definition file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition %s: %w", path, err)
	}
	def, err := ParseDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("definition %s: %w", path, err)
	}
	return def, nil
}

// ParseDefinition decodes and validates a YAML definition.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

func (d *Definition) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	for _, fd := range d.Fields {
		if fd.Type != KindLookup {
			continue
		}
		switch lk := fd.Lookup; {
		case lk == nil, len(lk.Pairs) == 0 && lk.Query == "":
			return fmt.Errorf("%w: lookup field %s has no lookup table", ErrInvalidValue, fd.Name)
		case len(lk.Pairs) > 0 && lk.Query != "":
			return fmt.Errorf("%w: lookup field %s has both pairs and a query", ErrInvalidValue, fd.Name)
		case lk.Query != "" && lk.DSN == "":
			return fmt.Errorf("%w: lookup field %s has a query without a dsn", ErrInvalidValue, fd.Name)
		}
	}
	return nil
}

// Schema builds the schema described by the definition.
func (d *Definition) Schema() (*Schema, error) {
	fields := make([]*Field, 0, len(d.Fields))
	for _, fd := range d.Fields {
		f, err := fd.field()
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fd.Name, err)
		}
		fields = append(fields, f)
	}
	return NewSchema(fields...)
}

func (fd FieldDefinition) field() (*Field, error) {
	opts := []FieldOption{WithLabel(fd.Label), WithWidth(fd.Width)}

	if fd.Location != "" {
		loc, err := time.LoadLocation(fd.Location)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithLocation(loc))
	}
	if len(fd.Choices) > 0 {
		choices := make([]Choice, 0, len(fd.Choices))
		for _, c := range fd.Choices {
			v, err := normalize(fd.Type, c.Value)
			if err != nil {
				return nil, fmt.Errorf("choice %s: %w", c.Label, err)
			}
			choices = append(choices, Choice{Value: v, Label: c.Label})
		}
		opts = append(opts, WithChoices(choices...))
	}
	if fd.Default != nil {
		def, err := definitionDefault(fd.Type, fd.Default)
		if err != nil {
			return nil, fmt.Errorf("default: %w", err)
		}
		opts = append(opts, WithDefault(def))
	}

	if fd.Type != KindLookup {
		return newField(fd.Name, fd.Col, fd.Type, opts), nil
	}
	if fd.Lookup.CaseInsensitive {
		opts = append(opts, CaseInsensitive())
	}
	if fd.Lookup.DefaultOnFail {
		opts = append(opts, DefaultOnLookupFail())
	}
	return ForeignKeyField(fd.Name, fd.Col, fd.Lookup.source(), opts...), nil
}

func (ld *LookupDefinition) source() LookupSource {
	if ld.Query != "" {
		driver := ld.Driver
		if driver == "" {
			driver = DefaultLookupDriver
		}
		return SQLLookup{
			Driver:  driver,
			DSN:     os.ExpandEnv(ld.DSN),
			Query:   ld.Query,
			Timeout: ld.Timeout,
		}
	}
	pairs := make(StaticLookup, 0, len(ld.Pairs))
	for _, p := range ld.Pairs {
		pairs = append(pairs, LookupPair{Key: p.Key, Lookup: p.Lookup})
	}
	return pairs
}

func definitionDefault(kind Kind, v any) (any, error) {
	if s, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "now":
			if kind == KindDateTime {
				return func() any { return time.Now() }, nil
			}
		case "today":
			if kind == KindDate {
				return func() any { return dateOnly(time.Now()) }, nil
			}
		}
	}
	if kind == KindLookup {
		return v, nil
	}
	return normalize(kind, v)
}
