// Code generated by "stringer -linecomment -type=Op"; DO NOT EDIT.

package cpu

import "strconv"

func _() {
	// An "invalid array index" compiler error signifies that the constant values have changed.
	// Re-run the stringer command to generate them again.
	var x [1]struct{}
	_ = x[OP_MOV-0]
	_ = x[OP_LDR-1]
	_ = x[OP_STR-2]
	_ = x[OP_ADD-3]
	_ = x[OP_SUB-4]
	_ = x[OP_MUL-5]
	_ = x[OP_CMP-6]
	_ = x[OP_AND-7]
	_ = x[OP_ORR-8]
	_ = x[OP_LSL-9]
	_ = x[OP_LSR-10]
	_ = x[OP_ASR-11]
	_ = x[OP_ROR-12]
	_ = x[OP_B-13]
	_ = x[OP_BL-14]
}

const _Op_name = "MOVLDRSTRADDSUBMULCMPANDORRLSLLSRASRRORBBL"

var _Op_index = [...]uint8{0, 3, 6, 9, 12, 15, 18, 21, 24, 27, 30, 33, 36, 39, 40, 42}

func (i Op) String() string {
	if i < 0 || i >= Op(len(_Op_index)-1) {
		return "Op(" + strconv.FormatInt(int64(i), 10) + ")"
	}
	return _Op_name[_Op_index[i]:_Op_index[i+1]]
}
