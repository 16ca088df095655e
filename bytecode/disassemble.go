package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders m.Bytecode as one line per opcode, operands in wire
// order, the form the pnginec CLI's -dump flag prints and tests assert
// scenario opcode streams against. Adapted from
// recording.CommandType.String()'s name-table lookup, generalized from a
// single command name to a full operand dump.
func Disassemble(m *Module) (string, error) {
	var b strings.Builder
	pc := 0
	for pc < len(m.Bytecode) {
		op, values, n, err := UnpackOperands(m.Bytecode[pc:])
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%04x  %s", pc, op.String())
		for _, name := range OperandNames(op) {
			fmt.Fprintf(&b, " %s=%d", name, values[name])
		}
		b.WriteByte('\n')
		pc += n
	}
	return b.String(), nil
}
