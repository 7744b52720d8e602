package image

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/purlang/purc/internal/value"
)

// Read parses an image written by Write back into its structural form,
// used by the round-trip law tests (spec §8) and by disasm.
func Read(r io.Reader) (*Module, error) {
	m, err := readU8(r)
	if err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if m != magic {
		return nil, fmt.Errorf("bad magic byte %#x, want %#x", m, magic)
	}
	v, err := readU24(r)
	if err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}
	if v != version {
		return nil, fmt.Errorf("unsupported image version %#x", v)
	}
	formatVersion, err := readNulString(r)
	if err != nil {
		return nil, fmt.Errorf("reading format version: %w", err)
	}
	if !NegotiateVersion(formatVersion, FormatVersion) {
		return nil, fmt.Errorf("image format version %q is not readable by this toolchain (supports %q)", formatVersion, FormatVersion)
	}
	pathCount, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("reading path count: %w", err)
	}

	mod := &Module{Paths: make([]*Path, 0, pathCount), FormatVersion: formatVersion}
	for i := uint32(0); i < pathCount; i++ {
		p, err := readPath(r)
		if err != nil {
			return nil, fmt.Errorf("reading path %d: %w", i, err)
		}
		mod.Paths = append(mod.Paths, p)
	}
	return mod, nil
}

func readPath(r io.Reader) (*Path, error) {
	marker, err := readU8(r)
	if err != nil {
		return nil, err
	}
	if marker != pathMarker {
		return nil, fmt.Errorf("bad path marker %#x, want %#x", marker, pathMarker)
	}
	name, err := readName(r)
	if err != nil {
		return nil, err
	}
	clauseCount, err := readU8(r)
	if err != nil {
		return nil, err
	}
	p := &Path{Name: name, Clauses: make([]*Clause, 0, clauseCount)}
	for i := uint8(0); i < clauseCount; i++ {
		c, err := readClause(r)
		if err != nil {
			return nil, fmt.Errorf("clause %d: %w", i, err)
		}
		p.Clauses = append(p.Clauses, c)
	}
	return p, nil
}

func readName(r io.Reader) (string, error) {
	n, err := readU8(r)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readClause(r io.Reader) (*Clause, error) {
	pattern, err := readPattern(r)
	if err != nil {
		return nil, fmt.Errorf("pattern: %w", err)
	}
	nreg, err := readU8(r)
	if err != nil {
		return nil, err
	}
	constCount, err := readU8(r)
	if err != nil {
		return nil, err
	}
	constants := make([]Constant, 0, constCount)
	for i := uint8(0); i < constCount; i++ {
		c, err := readConstant(r)
		if err != nil {
			return nil, fmt.Errorf("constant %d: %w", i, err)
		}
		constants = append(constants, c)
	}
	codeLen, err := readU64(r)
	if err != nil {
		return nil, err
	}
	code := make([]uint32, 0, codeLen)
	for i := uint64(0); i < codeLen; i++ {
		w, err := readU32(r)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		code = append(code, w)
	}
	return &Clause{Param: pattern, NReg: nreg, Constants: constants, Code: code}, nil
}

func readPattern(r io.Reader) (*Pattern, error) {
	tag, err := readU8(r)
	if err != nil {
		return nil, err
	}
	switch PatternTag(tag) {
	case PatternAny:
		return &Pattern{Tag: PatternAny}, nil
	case PatternTuple:
		arity, err := readU8(r)
		if err != nil {
			return nil, err
		}
		members := make([]*Pattern, 0, arity)
		for i := uint8(0); i < arity; i++ {
			m, err := readPattern(r)
			if err != nil {
				return nil, err
			}
			members = append(members, m)
		}
		return &Pattern{Tag: PatternTuple, Members: members}, nil
	case PatternAtom:
		lenPlusOne, err := readU8(r)
		if err != nil {
			return nil, err
		}
		if lenPlusOne == 0 {
			return nil, fmt.Errorf("pattern atom length prefix is zero")
		}
		buf := make([]byte, lenPlusOne-1)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		term, err := readU8(r)
		if err != nil {
			return nil, err
		}
		if term != 0 {
			return nil, fmt.Errorf("pattern atom missing NUL terminator")
		}
		return &Pattern{Tag: PatternAtom, Atom: string(buf)}, nil
	case PatternNumber:
		n, err := readI32(r)
		if err != nil {
			return nil, err
		}
		return &Pattern{Tag: PatternNumber, Number: n}, nil
	default:
		return nil, fmt.Errorf("unsupported pattern tag %d", tag)
	}
}

func readConstant(r io.Reader) (Constant, error) {
	tag, err := readU8(r)
	if err != nil {
		return Constant{}, err
	}
	base := value.Tag(tag).Base()
	switch base {
	case value.TagNumber:
		n, err := readI32(r)
		if err != nil {
			return Constant{}, err
		}
		return Constant{Tag: tag, Number: n}, nil
	case value.TagAtom:
		s, err := readNulString(r)
		if err != nil {
			return Constant{}, err
		}
		return Constant{Tag: tag, Atom: s}, nil
	case value.TagTuple:
		arity, err := readU8(r)
		if err != nil {
			return Constant{}, err
		}
		members := make([]Constant, 0, arity)
		for i := uint8(0); i < arity; i++ {
			m, err := readConstant(r)
			if err != nil {
				return Constant{}, err
			}
			members = append(members, m)
		}
		return Constant{Tag: tag, Tuple: members}, nil
	case value.TagList:
		length, err := readU64(r)
		if err != nil {
			return Constant{}, err
		}
		items := make([]Constant, 0, length)
		for i := uint64(0); i < length; i++ {
			it, err := readConstant(r)
			if err != nil {
				return Constant{}, err
			}
			items = append(items, it)
		}
		return Constant{Tag: tag, List: items}, nil
	case value.TagPathID:
		mod, err := readNulString(r)
		if err != nil {
			return Constant{}, err
		}
		path, err := readNulString(r)
		if err != nil {
			return Constant{}, err
		}
		return Constant{Tag: tag, Module: mod, Path: path}, nil
	case value.TagVar, value.TagAny:
		reg, err := readU32(r)
		if err != nil {
			return Constant{}, err
		}
		return Constant{Tag: tag, Register: reg}, nil
	default:
		return Constant{}, fmt.Errorf("unsupported constant tag %d", tag)
	}
}

func readNulString(r io.Reader) (string, error) {
	var buf []byte
	for {
		b, err := readU8(r)
		if err != nil {
			return "", err
		}
		if b == 0 {
			return string(buf), nil
		}
		buf = append(buf, b)
	}
}

func readU8(r io.Reader) (uint8, error) {
	var v uint8
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readU32(r io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readU64(r io.Reader) (uint64, error) {
	var v uint64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readI32(r io.Reader) (int32, error) {
	var v int32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readU24(r io.Reader) (uint32, error) {
	buf := make([]byte, 3)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16, nil
}
