package board

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Seed describes the columns and tasks every new board starts with.
//
//	columns:
//	  - title: Todo
//	    tasks: ["Write docs", "Review PR"]
//	  - title: Done
type Seed struct {
	Columns []SeedColumn `yaml:"columns"`
}

type SeedColumn struct {
	Title string   `yaml:"title"`
	Tasks []string `yaml:"tasks"`
}

// LoadSeed reads a YAML seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return &s, nil
}

// apply fills an empty store. Columns and tasks keep the file order.
func (s *Seed) apply(store *Store) error {
	if s == nil {
		return nil
	}
	for _, c := range s.Columns {
		col := store.CreateColumn(c.Title)
		for _, content := range c.Tasks {
			if _, err := store.CreateTask(col.ID, content); err != nil {
				return err
			}
		}
	}
	return nil
}
