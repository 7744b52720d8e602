// Package diagnostics defines the three kinds of failure the compiler
// can report (spec §7): user errors, unsupported constructs, and
// internal invariant violations. Compilation is total — the first
// diagnostic aborts, and no partial image is written.
package diagnostics

import (
	"fmt"

	"github.com/pkg/errors"
)

// Location pinpoints a diagnostic in source, mirroring ast.Position
// without importing the ast package (diagnostics sits below it).
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// RedefinitionKind distinguishes a duplicate top-level path from a
// duplicate local, since purlang's original compiler renders the two
// with different wording (SPEC_FULL.md, "duplicate-path diagnostic").
type RedefinitionKind int

const (
	KindLocal RedefinitionKind = iota
	KindPath
)

// UndefinedError is ERR_UNDEFINED: an identifier used in a context that
// requires a definition (spec §4.4, gen_defined) with no matching
// binding in the lexical chain.
type UndefinedError struct {
	Name string
	At   Location
}

func (e *UndefinedError) Error() string {
	return fmt.Sprintf("%s: undefined name %q", e.At, e.Name)
}

// RedefinitionError is ERR_REDEFINITION: a name already bound in the
// innermost scope (a local) or already registered as a path.
type RedefinitionError struct {
	Name string
	Kind RedefinitionKind
	At   Location
}

func (e *RedefinitionError) Error() string {
	if e.Kind == KindPath {
		return fmt.Sprintf("%s: path %q already defined", e.At, e.Name)
	}
	return fmt.Sprintf("%s: %q redefined in this scope", e.At, e.Name)
}

// NotYetImplementedError marks a construct the grammar accepts but this
// generator deliberately does not lower: string patterns, cross-module
// access, cons-in-pattern.
type NotYetImplementedError struct {
	Construct string
	At        Location
}

func (e *NotYetImplementedError) Error() string {
	return fmt.Sprintf("%s: %s not yet implemented", e.At, e.Construct)
}

// InternalError marks an AST shape the generator believes is
// impossible to reach from a well-formed parse — a bug, not a language
// limitation.
type InternalError struct {
	NodeKind string
	Detail   string
	At       Location
}

func (e *InternalError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: internal error: unexpected %s node", e.At, e.NodeKind)
	}
	return fmt.Sprintf("%s: internal error: %s (%s)", e.At, e.Detail, e.NodeKind)
}

// Wrap attaches a stage label to err using github.com/pkg/errors, so a
// failure surfaced at the `generate` boundary prints a cause chain.
// Render prints Cause(err); cmd/purc exits with status 1 for every
// failure.
func Wrap(err error, stage string) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "during %s", stage)
}

// Cause unwraps a diagnostic wrapped with Wrap back to its original
// typed error, for exit-code selection and testing.
func Cause(err error) error {
	return errors.Cause(err)
}
