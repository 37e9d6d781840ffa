// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package mips

import (
	"errors"

	"github.com/ezrec/dynarec/translate"
)

var f = translate.From

var (
	// Execution errors
	ErrBreak     = errors.New(f("break"))
	ErrDelaySlot = errors.New(f("control transfer in delay slot"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrMacroSyntax        = errors.New(f(".macro syntax"))
	ErrMacroNesting       = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate     = errors.New(f(".macro duplicated"))
	ErrMacroLonely        = errors.New(f(".macro without .endm"))
	ErrMacroLonelyEndm    = errors.New(f(".endm without .macro"))
	ErrOrgSyntax          = errors.New(f(".org syntax"))
	ErrOrgBackwards       = errors.New(f(".org moves backwards"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeMissing      = errors.New(f("operand missing"))
	ErrRegisterInvalid    = errors.New(f("register invalid"))
	ErrImmediateRange     = errors.New(f("immediate out of range"))
	ErrBranchRange        = errors.New(f("branch target out of range"))
	ErrJumpRange          = errors.New(f("jump target outside region"))
	ErrInstructionUnknown = errors.New(f("instruction unknown"))
)

// ErrInvalidInstruction is a reserved or unsupported instruction word.
type ErrInvalidInstruction Instruction

func (err ErrInvalidInstruction) Error() string {
	return f("invalid instruction 0x%08x", uint32(err))
}

func (err ErrInvalidInstruction) Is(target error) (ok bool) {
	_, ok = target.(ErrInvalidInstruction)
	return
}

// ErrFault locates a guest fault.
type ErrFault struct {
	Pc  uint32
	Err error
}

func (err *ErrFault) Error() string {
	return f("pc 0x%08x: %v", err.Pc, err.Err)
}

func (err *ErrFault) Unwrap() error {
	return err.Err
}

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err ErrMacro) Unwrap() error {
	return err.Err
}
