package image_test

import (
	"bytes"
	"testing"

	"github.com/purlang/purc/internal/ast"
	"github.com/purlang/purc/internal/bytecode"
	"github.com/purlang/purc/internal/compiler"
	"github.com/purlang/purc/internal/image"
)

func path(name string, param ast.Node, body ast.Node) *ast.Path {
	return &ast.Path{Name: name, Clause: &ast.Clause{Param: param, Body: body}}
}

func ident(name string) *ast.Ident { return &ast.Ident{Name: name} }

// A module whose clauses exercise an identifier parameter, a tuple
// parameter, a niladic path, a number constant, an atom constant, and
// a tuple body.
func buildSampleModule(t *testing.T) []*bytecode.PathEntry {
	t.Helper()
	g := compiler.New(compiler.Module{Name: "sample", MajorVersion: 1})
	block := &ast.Block{Children: []ast.Node{
		path("identity", ident("X"), ident("X")),
		path("pair",
			&ast.Tuple{Members: []ast.Node{ident("X"), ident("Y")}},
			&ast.Tuple{Members: []ast.Node{ident("X"), ident("Y")}}),
		path("answer", nil, &ast.Number{Lexeme: "42", Value: 42}),
		path("label", nil, &ast.Atom{Lexeme: "ok"}),
	}}
	paths, err := g.Generate(block)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return paths
}

// TestWriteReadRoundTripPreservesStructure verifies spec §8's
// round-trip law: Read(Write(paths)) reconstructs the same path names,
// clause count, register high-water marks, and code length for every
// clause.
func TestWriteReadRoundTripPreservesStructure(t *testing.T) {
	paths := buildSampleModule(t)

	var buf bytes.Buffer
	if err := image.Write(&buf, paths); err != nil {
		t.Fatalf("Write: %v", err)
	}

	mod, err := image.Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if len(mod.Paths) != len(paths) {
		t.Fatalf("path count = %d, want %d", len(mod.Paths), len(paths))
	}
	for i, p := range paths {
		got := mod.Paths[i]
		if got.Name != p.Name {
			t.Fatalf("path %d name = %q, want %q", i, got.Name, p.Name)
		}
		if len(got.Clauses) != len(p.Clauses) {
			t.Fatalf("path %q clause count = %d, want %d", p.Name, len(got.Clauses), len(p.Clauses))
		}
		for j, c := range p.Clauses {
			gotClause := got.Clauses[j]
			if int(gotClause.NReg) != c.NReg {
				t.Fatalf("path %q clause %d NReg = %d, want %d", p.Name, j, gotClause.NReg, c.NReg)
			}
			if len(gotClause.Code) != len(c.Code) {
				t.Fatalf("path %q clause %d code length = %d, want %d", p.Name, j, len(gotClause.Code), len(c.Code))
			}
			if len(gotClause.Constants) != len(c.KHeader) {
				t.Fatalf("path %q clause %d constant count = %d, want %d", p.Name, j, len(gotClause.Constants), len(c.KHeader))
			}
		}
	}
}

// TestReadRejectsBadMagic confirms the reader refuses a file that
// doesn't start with the format's magic byte, rather than misreading
// garbage as a path count.
func TestReadRejectsBadMagic(t *testing.T) {
	buf := bytes.NewReader([]byte{0x00, 0x00, 0x00, 0x00})
	if _, err := image.Read(buf); err == nil {
		t.Fatal("expected an error for a bad magic byte, got nil")
	}
}

// TestAnswerAndLabelConstantsSurviveRoundTrip checks the "answer" and
// "label" clauses' single constant decodes back with its original
// value, not just the right count.
func TestAnswerAndLabelConstantsSurviveRoundTrip(t *testing.T) {
	paths := buildSampleModule(t)

	var buf bytes.Buffer
	if err := image.Write(&buf, paths); err != nil {
		t.Fatalf("Write: %v", err)
	}
	mod, err := image.Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	answer := mod.Paths[2].Clauses[0]
	if len(answer.Constants) != 1 || answer.Constants[0].Number != 42 {
		t.Fatalf("answer clause constants = %+v, want a single NUMBER 42", answer.Constants)
	}

	label := mod.Paths[3].Clauses[0]
	if len(label.Constants) != 1 || label.Constants[0].Atom != "ok" {
		t.Fatalf("label clause constants = %+v, want a single ATOM \"ok\"", label.Constants)
	}
}
