package history

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// CaseRecord is one labeled historical event with forward returns.
type CaseRecord struct {
	Date     string  `json:"date"`
	Symbol   string  `json:"symbol"`
	Tag      string  `json:"tag"`
	Regime   string  `json:"regime"`
	Return1D float64 `json:"return_1d"`
	Return3D float64 `json:"return_3d"`
	Return7D float64 `json:"return_7d"`
	Summary  string  `json:"summary"`
}

// Store is an in-memory case base, loaded once at startup.
type Store struct {
	cases []CaseRecord
}

func NewStore(cases []CaseRecord) *Store {
	return &Store{cases: cases}
}

// LoadStore reads a JSON array of case records from path.
func LoadStore(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read case file: %w", err)
	}
	var cases []CaseRecord
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("parse case file %s: %w", path, err)
	}
	return &Store{cases: cases}, nil
}

func (s *Store) Len() int { return len(s.cases) }

func (s *Store) All() []CaseRecord { return s.cases }

// Filter narrows the case base. Symbol and regime match exactly, tag
// matches as a substring. Empty selectors match everything.
type Filter struct {
	Symbol string
	Tag    string
	Regime string
}

func (s *Store) Select(f Filter) []CaseRecord {
	var out []CaseRecord
	for _, c := range s.cases {
		if f.Symbol != "" && c.Symbol != f.Symbol {
			continue
		}
		if f.Tag != "" && !strings.Contains(c.Tag, f.Tag) {
			continue
		}
		if f.Regime != "" && c.Regime != f.Regime {
			continue
		}
		out = append(out, c)
	}
	return out
}
