package excel

import (
	"fmt"
	"strings"
)

// LookupPair binds a key, the value kept in records, to the value shown in
// the sheet.
type LookupPair struct {
	Key    any
	Lookup any
}

// LookupSource provides the table behind a foreign key field.
// It is loaded once before every read or write.
type LookupSource interface {
	LookupPairs() ([]LookupPair, error)
}

// StaticLookup is a fixed lookup table.
type StaticLookup []LookupPair

func (s StaticLookup) LookupPairs() ([]LookupPair, error) {
	return s, nil
}

// LookupFunc adapts a function to a LookupSource.
type LookupFunc func() ([]LookupPair, error)

func (fn LookupFunc) LookupPairs() ([]LookupPair, error) {
	return fn()
}

type lookupConfig struct {
	source          LookupSource
	caseInsensitive bool
	defaultOnFail   bool
	onFail          func(row Record, value string) (any, error)

	toKey    map[string]any
	toLookup map[string]any
}

// ForeignKeyField translates sheet values to keys of source and back.
func ForeignKeyField(name string, col int, source LookupSource, opts ...FieldOption) *Field {
	f := &Field{Name: name, Col: col, Kind: KindLookup, lookup: &lookupConfig{source: source}}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CaseInsensitive matches lookup values regardless of case.
func CaseInsensitive() FieldOption {
	return func(f *Field) {
		if f.lookup != nil {
			f.lookup.caseInsensitive = true
		}
	}
}

// DefaultOnLookupFail makes a lookup miss yield the field default.
func DefaultOnLookupFail() FieldOption {
	return func(f *Field) {
		if f.lookup != nil {
			f.lookup.defaultOnFail = true
		}
	}
}

// OnLookupFail resolves lookup misses. It takes precedence over DefaultOnLookupFail.
func OnLookupFail(fn func(row Record, value string) (any, error)) FieldOption {
	return func(f *Field) {
		if f.lookup != nil {
			f.lookup.onFail = fn
		}
	}
}

func (f *Field) loadLookup() error {
	lc := f.lookup
	if lc == nil || lc.source == nil {
		return fmt.Errorf("%w: field %s has no lookup source", ErrInvalidValue, f.Name)
	}
	pairs, err := lc.source.LookupPairs()
	if err != nil {
		return fmt.Errorf("load lookup for field %s: %w", f.Name, err)
	}
	lc.toKey = make(map[string]any, len(pairs))
	lc.toLookup = make(map[string]any, len(pairs))
	for _, p := range pairs {
		if p.Lookup == nil {
			continue
		}
		lc.toKey[lc.normalize(keyOf(p.Lookup))] = p.Key
		lc.toLookup[keyOf(p.Key)] = p.Lookup
	}
	log.Debugf("lookup for field %s loaded, %d entries", f.Name, len(lc.toKey))
	return nil
}

func (lc *lookupConfig) normalize(s string) string {
	s = strings.TrimSpace(s)
	if lc.caseInsensitive {
		return strings.ToLower(s)
	}
	return s
}

func (f *Field) lookupKey(raw string, row Record) (any, error) {
	lc := f.lookup
	if lc == nil {
		return nil, fmt.Errorf("%w: field %s has no lookup source", ErrInvalidValue, f.Name)
	}
	if lc.toKey == nil {
		if err := f.loadLookup(); err != nil {
			return nil, err
		}
	}
	if key, ok := lc.toKey[lc.normalize(raw)]; ok {
		return key, nil
	}
	if lc.onFail != nil {
		return lc.onFail(row, raw)
	}
	if lc.defaultOnFail {
		return f.Default(), nil
	}
	return nil, ErrLookupNotFound
}

func (f *Field) lookupValue(key any) (any, error) {
	lc := f.lookup
	if lc == nil {
		return nil, fmt.Errorf("%w: field %s has no lookup source", ErrInvalidValue, f.Name)
	}
	if lc.toLookup == nil {
		if err := f.loadLookup(); err != nil {
			return nil, err
		}
	}
	if v, ok := lc.toLookup[keyOf(key)]; ok {
		return v, nil
	}
	return nil, ErrLookupNotFound
}
