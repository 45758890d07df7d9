// Package catalog loads and serves the read-only case catalog. Cases are
// parsed once at startup; the returned Catalog is safe for concurrent reads.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mrodas/legalexam/internal/model"
)

//go:embed cases/*.json
var defaultFS embed.FS

const defaultFile = "cases/nft_ip_es.json"

// Catalog is an ordered, immutable collection of cases.
type Catalog struct {
	cases []model.Case
	byID  map[int64]int
}

// LoadDefault parses the embedded case set.
func LoadDefault() (*Catalog, error) {
	data, err := defaultFS.ReadFile(defaultFile)
	if err != nil {
		return nil, fmt.Errorf("read embedded catalog: %w", err)
	}
	return parse(data)
}

// LoadFile parses a case set from a JSON file on disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return c, nil
}

func parse(data []byte) (*Catalog, error) {
	var cases []model.Case
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("parse catalog JSON: %w", err)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("catalog contains no cases")
	}

	byID := make(map[int64]int, len(cases))
	for i, cs := range cases {
		if cs.ID == 0 {
			return nil, fmt.Errorf("case %d: missing id", i)
		}
		if _, dup := byID[cs.ID]; dup {
			return nil, fmt.Errorf("duplicate case id %d", cs.ID)
		}
		if len(cs.Questions) == 0 {
			return nil, fmt.Errorf("case %d: no questions", cs.ID)
		}
		for qi, q := range cs.Questions {
			if q.Text == "" {
				return nil, fmt.Errorf("case %d question %d: empty text", cs.ID, qi)
			}
		}
		byID[cs.ID] = i
	}

	return &Catalog{cases: cases, byID: byID}, nil
}

// Cases returns all cases in catalog order.
func (c *Catalog) Cases() []model.Case {
	return c.cases
}

// Case returns the case with the given ID.
func (c *Catalog) Case(id int64) (model.Case, bool) {
	i, ok := c.byID[id]
	if !ok {
		return model.Case{}, false
	}
	return c.cases[i], true
}

// QuestionCount returns the total number of questions across all cases.
func (c *Catalog) QuestionCount() int {
	n := 0
	for _, cs := range c.cases {
		n += len(cs.Questions)
	}
	return n
}

// MaxPossible returns the maximum attainable grand total.
func (c *Catalog) MaxPossible() float64 {
	return float64(c.QuestionCount()) * model.MaxPerQuestion
}
