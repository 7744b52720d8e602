package bytecode

import (
	"github.com/purlang/purc/internal/value"
)

// codeGrowthStep mirrors the original generator's fixed 4096-word
// buffer growth; Go's append already grows geometrically, so this only
// documents the heuristic rather than driving an explicit realloc.
const codeGrowthStep = 4096

// ClauseEntry holds everything the generator accumulates while lowering
// one function clause: its constant table, its code stream, and the
// bookkeeping (register high-water mark, local count) the image writer
// and VM need.
type ClauseEntry struct {
	Node    interface{} // the defining *ast.Clause; kept as interface{} to avoid an import cycle
	Index   int         // index within the parent path (always 0 until multi-clause paths exist)
	KHeader []value.Value
	ktable  map[string]int // source lexeme -> constant index, for keyed interning
	KIndex  int
	NReg    int // one past the highest register ever allocated
	NLocals int
	Code    []Instruction
	codesize int
}

// NewClauseEntry allocates an empty clause, pre-sizing its code buffer
// the way the original's fixed-step allocator would. Register 0 is the
// clause's incoming argument, reserved by the calling convention; the
// first AllocRegister call returns 1.
func NewClauseEntry(node interface{}, index int) *ClauseEntry {
	return &ClauseEntry{
		Node:     node,
		Index:    index,
		KHeader:  make([]value.Value, 0, 16),
		ktable:   make(map[string]int),
		NReg:     1,
		Code:     make([]Instruction, 0, codeGrowthStep),
		codesize: codeGrowthStep,
	}
}

// PC is the number of instructions emitted so far; code[PC-1] is always
// the most recently emitted word.
func (c *ClauseEntry) PC() int { return len(c.Code) }

// CodeSize reports the clause's current code buffer capacity. This is
// only an observability hook: Emit never blocks on it, since append
// grows the underlying slice on demand.
func (c *ClauseEntry) CodeSize() int {
	if cap(c.Code) > c.codesize {
		c.codesize = cap(c.Code)
	}
	return c.codesize
}

// Emit appends instr to the code stream and returns the PC it was
// written at, so callers can later reserve a PatchSite over it.
func (c *ClauseEntry) Emit(instr Instruction) int {
	pc := len(c.Code)
	c.Code = append(c.Code, instr)
	return pc
}

// AllocRegister returns the next free register and bumps the
// high-water mark. Registers are allocated monotonically per clause
// (invariant 1); this generator never recycles one mid-clause.
func (c *ClauseEntry) AllocRegister() int {
	r := c.NReg
	c.NReg++
	return r
}

// Intern returns the K-flagged operand for value v, reusing the
// existing slot if sourceKey was already interned on this clause
// (invariant: "two intern calls with the same non-null source key on
// the same clause return the same index"). An empty sourceKey always
// allocates a fresh, unshared slot — used for anonymous constants such
// as pattern values and path identifiers.
func (c *ClauseEntry) Intern(sourceKey string, v value.Value) Operand {
	if sourceKey != "" {
		if idx, ok := c.ktable[sourceKey]; ok {
			return Const(idx)
		}
	}
	idx := c.KIndex
	c.KHeader = append(c.KHeader, v)
	c.KIndex++
	if sourceKey != "" {
		c.ktable[sourceKey] = idx
	}
	return Const(idx)
}

// PatchSite is a handle to a forward-jump placeholder, returned by
// EmitJumpPlaceholder so callers never juggle raw PCs (design notes,
// "forward-jump patching").
type PatchSite struct {
	clause *ClauseEntry
	pc     int
	a      uint8
	op     OpCode
}

// EmitJumpPlaceholder writes a zero-offset jump of op and returns a
// handle to patch it once the target PC is known. a is carried through
// unchanged (JUMP ignores it; it exists for encoding symmetry with
// other AJ-form instructions).
func (c *ClauseEntry) EmitJumpPlaceholder(op OpCode, a uint8) PatchSite {
	pc := c.Emit(EncodeAJ(op, a, 0))
	return PatchSite{clause: c, pc: pc, a: a, op: op}
}

// PatchToHere patches the jump to land on the next instruction to be
// emitted (invariant 5: no unpatched placeholder survives).
func (p PatchSite) PatchToHere() {
	p.PatchTo(p.clause.PC())
}

// PatchTo patches the jump to land on targetPC, an absolute PC. The
// offset is relative to the PC of the instruction following the jump
// itself.
func (p PatchSite) PatchTo(targetPC int) {
	offset := targetPC - (p.pc + 1)
	p.clause.Code[p.pc] = EncodeAJ(p.op, p.a, int16(offset))
}

// PatchAsReturn overwrites the placeholder entirely with
// `RETURN result, 0, 0`, used when a select's end-of-arm jump turns out
// to be the clause's own tail (spec §4.7 step 8).
func (p PatchSite) PatchAsReturn(result uint8) {
	p.clause.Code[p.pc] = EncodeABC(OpReturn, result, Reg(0), Reg(0))
}

// Terminate appends the zero terminator word required after every
// clause's final RETURN/TAILCALL (invariant 4). It is a programmer
// error to call this before the last emitted instruction is terminal;
// callers enforce that, not this package.
func (c *ClauseEntry) Terminate() {
	c.Code = append(c.Code, 0)
}

// PathEntry is one named top-level definition. The format reserves a
// clause count per path; this generator always populates exactly one.
type PathEntry struct {
	Name        string
	Node        interface{} // the defining *ast.Path
	GlobalIndex int
	Clauses     []*ClauseEntry
}

func NewPathEntry(name string, node interface{}, index int) *PathEntry {
	return &PathEntry{Name: name, Node: node, GlobalIndex: index}
}
