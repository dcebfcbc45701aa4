package analyzer

import "github.com/slowlang/pubdata/analyzer/ir"

type (
	// TxInfo names a transmitter: an operand whose value a side-channel
	// observer can infer. Which indexes the instruction's operand list.
	TxInfo struct {
		Kind  string
		Which int
	}
)

// Transmitter classifies an instruction. Loads and stores transmit the
// address, conditional branches and switches the condition, indirect
// branches the target. Unconditional branches transmit nothing.
func Transmitter(x *ir.Instr) (TxInfo, bool) {
	switch x.Op {
	case ir.OpLoad:
		return TxInfo{Kind: "load.addr", Which: 0}, true
	case ir.OpStore:
		return TxInfo{Kind: "store.addr", Which: 1}, true
	case ir.OpBr:
		if x.IsCondBr() {
			return TxInfo{Kind: "br.cond", Which: 0}, true
		}
	case ir.OpSwitch:
		return TxInfo{Kind: "switch.cond", Which: 0}, true
	case ir.OpIndirectBr:
		return TxInfo{Kind: "indirectbr.target", Which: 0}, true
	}

	return TxInfo{}, false
}
