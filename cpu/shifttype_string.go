// Code generated by "stringer -linecomment -type=ShiftType"; DO NOT EDIT.

package cpu

import "strconv"

func _() {
	// An "invalid array index" compiler error signifies that the constant values have changed.
	// Re-run the stringer command to generate them again.
	var x [1]struct{}
	_ = x[SHIFT_LSL-0]
	_ = x[SHIFT_LSR-1]
	_ = x[SHIFT_ASR-2]
	_ = x[SHIFT_ROR-3]
}

const _ShiftType_name = "LSLLSRASRROR"

var _ShiftType_index = [...]uint8{0, 3, 6, 9, 12}

func (i ShiftType) String() string {
	if i < 0 || i >= ShiftType(len(_ShiftType_index)-1) {
		return "ShiftType(" + strconv.FormatInt(int64(i), 10) + ")"
	}
	return _ShiftType_name[_ShiftType_index[i]:_ShiftType_index[i+1]]
}
