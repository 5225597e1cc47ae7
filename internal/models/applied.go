package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// AppliedSet holds names of patches already applied to an entity.
type AppliedSet map[string]bool

// ParseAppliedSet decodes the stored JSON blob. An empty or null blob yields an empty set.
func ParseAppliedSet(blob string) (AppliedSet, error) {
	blob = strings.TrimSpace(blob)
	set := AppliedSet{}

	if blob == "" || blob == "null" {
		return set, nil
	}

	if err := json.Unmarshal([]byte(blob), &set); err != nil {
		return nil, fmt.Errorf("invalid applied set %q: %w", blob, err)
	}

	return set, nil
}

func (s AppliedSet) Has(name string) bool {
	return s[name]
}

// Add marks name as applied. Adding an existing name is a no-op.
func (s AppliedSet) Add(name string) {
	s[name] = true
}

func (s AppliedSet) Clone() AppliedSet {
	clone := make(AppliedSet, len(s))
	for name, ok := range s {
		if ok {
			clone[name] = true
		}
	}
	return clone
}

// Names returns the applied names in lexical order.
func (s AppliedSet) Names() []string {
	names := make([]string, 0, len(s))
	for name, ok := range s {
		if ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (s AppliedSet) Encode() (string, error) {
	if s == nil {
		return "{}", nil
	}

	bytes, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func (s AppliedSet) Value() (driver.Value, error) {
	return s.Encode()
}

func (s *AppliedSet) Scan(value interface{}) error {
	var err error

	switch v := value.(type) {
	case nil:
		*s = AppliedSet{}
	case string:
		*s, err = ParseAppliedSet(v)
	case []byte:
		*s, err = ParseAppliedSet(string(v))
	default:
		err = errors.New("invalid type")
	}
	return err
}
