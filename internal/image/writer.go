package image

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/purlang/purc/internal/ast"
	"github.com/purlang/purc/internal/bytecode"
	"github.com/purlang/purc/internal/diagnostics"
	"github.com/purlang/purc/internal/value"
)

// Write serializes paths to w in the format described by spec §6.2:
// module header, then one PathBlock per path, each carrying its
// clauses' patterns, constants, and code.
func Write(w io.Writer, paths []*bytecode.PathEntry) error {
	if err := writeU8(w, magic); err != nil {
		return err
	}
	if err := writeU24(w, version); err != nil {
		return err
	}
	if err := writeNulString(w, FormatVersion); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(paths))); err != nil {
		return err
	}
	for _, p := range paths {
		if err := writePath(w, p); err != nil {
			return fmt.Errorf("writing path %q: %w", p.Name, err)
		}
	}
	return nil
}

func writePath(w io.Writer, p *bytecode.PathEntry) error {
	if err := writeU8(w, pathMarker); err != nil {
		return err
	}
	if err := writeName(w, p.Name); err != nil {
		return err
	}
	if len(p.Clauses) > 0xFF {
		return &diagnostics.InternalError{Detail: fmt.Sprintf("path %q has %d clauses, more than fit in u8", p.Name, len(p.Clauses))}
	}
	if err := writeU8(w, uint8(len(p.Clauses))); err != nil {
		return err
	}
	for _, c := range p.Clauses {
		if err := writeClause(w, c); err != nil {
			return err
		}
	}
	return nil
}

// writeName writes a PathBlock's name_len + name bytes. A name longer
// than 255 bytes cannot be represented by the u8 length prefix; the
// original's writer truncated silently here (fputc(strlen(name)+1,...)
// with no bounds check) — this rewrite raises an InternalError instead
// (SPEC_FULL.md, "unchecked name-length truncation").
func writeName(w io.Writer, name string) error {
	if len(name) > 0xFF {
		return &diagnostics.InternalError{Detail: fmt.Sprintf("path name %q (%d bytes) exceeds the 255-byte wire limit", name, len(name))}
	}
	if err := writeU8(w, uint8(len(name))); err != nil {
		return err
	}
	_, err := io.WriteString(w, name)
	return err
}

func writeClause(w io.Writer, c *bytecode.ClauseEntry) error {
	clauseNode, _ := c.Node.(*ast.Clause)
	var param ast.Node
	if clauseNode != nil {
		param = clauseNode.Param
	}
	if err := writePattern(w, param); err != nil {
		return err
	}

	if c.NReg > 0xFF {
		return &diagnostics.InternalError{Detail: fmt.Sprintf("clause register high-water mark %d exceeds u8", c.NReg)}
	}
	if err := writeU8(w, uint8(c.NReg)); err != nil {
		return err
	}

	if len(c.KHeader) > bytecode.MaxConstants {
		return &diagnostics.InternalError{Detail: fmt.Sprintf("clause has %d constants, more than MaxConstants", len(c.KHeader))}
	}
	if err := writeU8(w, uint8(len(c.KHeader))); err != nil {
		return err
	}
	for _, v := range c.KHeader {
		if err := writeConstant(w, v); err != nil {
			return err
		}
	}

	if err := writeU64(w, uint64(len(c.Code))); err != nil {
		return err
	}
	for _, instr := range c.Code {
		if err := writeU32(w, uint32(instr)); err != nil {
			return err
		}
	}
	return nil
}

// writePattern encodes a clause's parameter pattern (spec §6.2
// PatternBlock). A nil param (a niladic path) is written as PatternAny,
// the same "no payload" encoding an identifier parameter gets — the
// format has no dedicated "no parameter" marker.
func writePattern(w io.Writer, n ast.Node) error {
	switch x := n.(type) {
	case nil:
		return writeU8(w, uint8(PatternAny))
	case *ast.Ident:
		return writeU8(w, uint8(PatternAny))
	case *ast.Tuple:
		if err := writeU8(w, uint8(PatternTuple)); err != nil {
			return err
		}
		if len(x.Members) > 0xFF {
			return &diagnostics.InternalError{Detail: "pattern tuple arity exceeds u8"}
		}
		if err := writeU8(w, uint8(len(x.Members))); err != nil {
			return err
		}
		for _, m := range x.Members {
			if err := writePattern(w, m); err != nil {
				return err
			}
		}
		return nil
	case *ast.Atom:
		if err := writeU8(w, uint8(PatternAtom)); err != nil {
			return err
		}
		return writeLenPrefixedAtom(w, x.Lexeme)
	case *ast.Number:
		if err := writeU8(w, uint8(PatternNumber)); err != nil {
			return err
		}
		return writeI32(w, int32(x.Value))
	case *ast.String:
		return &diagnostics.NotYetImplementedError{Construct: "string pattern"}
	default:
		return &diagnostics.InternalError{NodeKind: n.Kind().String(), Detail: "unsupported parameter pattern shape"}
	}
}

// writeLenPrefixedAtom writes `u8 len+1`, the bytes, then a NUL
// terminator — the PatternBlock atom encoding (spec §6.2), distinct
// from ConstantBlock's plain NUL-terminated string.
func writeLenPrefixedAtom(w io.Writer, s string) error {
	if len(s) > 0xFE {
		return &diagnostics.InternalError{Detail: fmt.Sprintf("atom %q exceeds the pattern-block length limit", s)}
	}
	if err := writeU8(w, uint8(len(s)+1)); err != nil {
		return err
	}
	if _, err := io.WriteString(w, s); err != nil {
		return err
	}
	return writeU8(w, 0)
}

// writeConstant encodes one ConstantBlock (spec §6.2), recursing for
// TUPLE and LIST payloads.
func writeConstant(w io.Writer, v value.Value) error {
	if err := writeU8(w, uint8(v.Tag)); err != nil {
		return err
	}
	switch v.Tag.Base() {
	case value.TagNumber:
		return writeI32(w, int32(v.Number))
	case value.TagAtom:
		return writeNulString(w, v.Atom)
	case value.TagPathID:
		if err := writeNulString(w, v.PathID.Module); err != nil {
			return err
		}
		return writeNulString(w, v.PathID.Path)
	case value.TagTuple:
		if len(v.Tuple) > 0xFF {
			return &diagnostics.InternalError{Detail: "constant tuple arity exceeds u8"}
		}
		if err := writeU8(w, uint8(len(v.Tuple))); err != nil {
			return err
		}
		for _, m := range v.Tuple {
			if err := writeConstant(w, m); err != nil {
				return err
			}
		}
		return nil
	case value.TagList:
		if err := writeU64(w, uint64(len(v.List))); err != nil {
			return err
		}
		for _, item := range v.List {
			if err := writeConstant(w, item); err != nil {
				return err
			}
		}
		return nil
	case value.TagVar, value.TagAny:
		return writeU32(w, uint32(v.Register))
	default:
		return &diagnostics.InternalError{Detail: fmt.Sprintf("unsupported constant tag %s", v.Tag)}
	}
}

func writeNulString(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return err
	}
	return writeU8(w, 0)
}

func writeU8(w io.Writer, v uint8) error  { return binary.Write(w, binary.LittleEndian, v) }
func writeU32(w io.Writer, v uint32) error { return binary.Write(w, binary.LittleEndian, v) }
func writeU64(w io.Writer, v uint64) error { return binary.Write(w, binary.LittleEndian, v) }
func writeI32(w io.Writer, v int32) error  { return binary.Write(w, binary.LittleEndian, v) }

// writeU24 writes the low 3 bytes of v, little-endian; the high byte
// of the u32 is discarded, matching the format's fixed version
// sentinel 0xFFFFFF.
func writeU24(w io.Writer, v uint32) error {
	b := []byte{byte(v), byte(v >> 8), byte(v >> 16)}
	_, err := w.Write(b)
	return err
}
