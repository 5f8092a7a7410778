package compliance

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

const (
	DefaultVersion              = "1.1.0"
	DefaultPerformanceCeilingMS = 5000
)

//go:embed schema.cue
var schemaSource string

//go:embed policies.yaml
var defaultDocument []byte

// Policy is one versioned ruleset. A requirement that is switched off
// always passes.
type Policy struct {
	Version                   string `json:"version" yaml:"version"`
	RequireCompleteness       bool   `json:"require_completeness" yaml:"require_completeness"`
	RequireHierarchyIntegrity bool   `json:"require_hierarchy_integrity" yaml:"require_hierarchy_integrity"`
	PerformanceCeilingMS      int64  `json:"performance_ceiling_ms" yaml:"performance_ceiling_ms"`
}

// DefaultPolicy returns the built-in active policy.
func DefaultPolicy() Policy {
	return Policy{
		Version:                   DefaultVersion,
		RequireCompleteness:       true,
		RequireHierarchyIntegrity: true,
		PerformanceCeilingMS:      DefaultPerformanceCeilingMS,
	}
}

// WithCeiling returns a copy of p with a different performance ceiling.
// Non-positive values leave the ceiling unchanged.
func (p Policy) WithCeiling(ms int64) Policy {
	if ms > 0 {
		p.PerformanceCeilingMS = ms
	}
	return p
}

// Document holds every known policy version and the active selector.
type Document struct {
	Active   string   `json:"active" yaml:"active"`
	Policies []Policy `json:"policies" yaml:"policies"`
}

// ParseDocument decodes a YAML policy document and validates it.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DefaultDocument returns the built-in policy document.
func DefaultDocument() *Document {
	doc, err := ParseDocument(defaultDocument)
	if err != nil {
		panic(fmt.Sprintf("built-in policy document: %v", err))
	}
	return doc
}

// Validate checks the document against the policy schema, then checks
// that versions are unique and the active version exists.
func (d *Document) Validate() error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile policy schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Document"))
	v := def.Unify(ctx.Encode(d))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}

	seen := make(map[string]bool, len(d.Policies))
	for _, p := range d.Policies {
		if seen[p.Version] {
			return fmt.Errorf("%w: version %s defined twice", ErrInvalidPolicy, p.Version)
		}
		seen[p.Version] = true
	}

	if !seen[d.Active] {
		return fmt.Errorf("%w: active version %s is not defined", ErrInvalidPolicy, d.Active)
	}
	return nil
}

// Lookup returns the policy with the given version.
func (d *Document) Lookup(version string) (Policy, error) {
	for _, p := range d.Policies {
		if p.Version == version {
			return p, nil
		}
	}
	return Policy{}, fmt.Errorf("%w: %s", ErrUnknownVersion, version)
}

// ActivePolicy returns the policy selected by Active.
func (d *Document) ActivePolicy() Policy {
	p, err := d.Lookup(d.Active)
	if err != nil {
		return DefaultPolicy()
	}
	return p
}
