// Package curriculum reads skill graphs from YAML files.
package curriculum

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/stepwise/internal/skillgraph"
)

//go:embed algebra.yaml
var builtin []byte

// Curriculum is a validated set of skills plus an optional default goal.
type Curriculum struct {
	Skills      []skillgraph.Skill
	DefaultGoal string
}

type fileDoc struct {
	DefaultGoal string     `yaml:"default_goal,omitempty"`
	Skills      []skillDoc `yaml:"skills"`
}

type skillDoc struct {
	ID            int    `yaml:"id"`
	Name          string `yaml:"name"`
	Subject       string `yaml:"subject,omitempty"`
	Stage         string `yaml:"stage,omitempty"`
	Explain       string `yaml:"explain,omitempty"`
	Practice      string `yaml:"practice,omitempty"`
	Assess        string `yaml:"assess,omitempty"`
	Probe         string `yaml:"probe,omitempty"`
	Prerequisites []int  `yaml:"prerequisites,flow,omitempty"`
}

// Default returns the built-in algebra curriculum.
func Default() (*Curriculum, error) {
	c, err := Parse(builtin)
	if err != nil {
		return nil, fmt.Errorf("built-in curriculum: %w", err)
	}
	return c, nil
}

// Load reads and validates a curriculum file.
func Load(path string) (*Curriculum, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read curriculum: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes YAML and validates the resulting graph. Unknown fields are
// rejected so typos in seed names do not silently drop content.
func Parse(data []byte) (*Curriculum, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc fileDoc
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("curriculum is empty")
		}
		return nil, fmt.Errorf("parse curriculum: %w", err)
	}
	if len(doc.Skills) == 0 {
		return nil, errors.New("curriculum has no skills")
	}

	skills := make([]skillgraph.Skill, len(doc.Skills))
	for i, d := range doc.Skills {
		skills[i] = d.skill()
	}
	if err := skillgraph.Validate(skills); err != nil {
		return nil, err
	}

	c := &Curriculum{Skills: skills, DefaultGoal: doc.DefaultGoal}
	if c.DefaultGoal != "" {
		if _, err := skillgraph.New(skills).ResolveScope(c.DefaultGoal); err != nil {
			return nil, fmt.Errorf("default goal: %w", err)
		}
	}
	return c, nil
}

// Marshal renders skills in the file format Parse reads.
func Marshal(c *Curriculum) ([]byte, error) {
	doc := fileDoc{DefaultGoal: c.DefaultGoal, Skills: make([]skillDoc, len(c.Skills))}
	for i, s := range c.Skills {
		doc.Skills[i] = docFor(s)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode curriculum: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d skillDoc) skill() skillgraph.Skill {
	s := skillgraph.Skill{
		ID:            skillgraph.SkillID(d.ID),
		Name:          d.Name,
		Subject:       d.Subject,
		Stage:         d.Stage,
		ExplainSeed:   d.Explain,
		PracticeSeed:  d.Practice,
		AssessSeed:    d.Assess,
		ProbeQuestion: d.Probe,
	}
	for _, p := range d.Prerequisites {
		s.Prerequisites = append(s.Prerequisites, skillgraph.SkillID(p))
	}
	return s
}

func docFor(s skillgraph.Skill) skillDoc {
	d := skillDoc{
		ID:       int(s.ID),
		Name:     s.Name,
		Subject:  s.Subject,
		Stage:    s.Stage,
		Explain:  s.ExplainSeed,
		Practice: s.PracticeSeed,
		Assess:   s.AssessSeed,
		Probe:    s.ProbeQuestion,
	}
	for _, p := range s.Prerequisites {
		d.Prerequisites = append(d.Prerequisites, int(p))
	}
	return d
}
