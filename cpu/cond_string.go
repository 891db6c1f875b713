// Code generated by "stringer -linecomment -type=Cond"; DO NOT EDIT.

package cpu

import "strconv"

func _() {
	// An "invalid array index" compiler error signifies that the constant values have changed.
	// Re-run the stringer command to generate them again.
	var x [1]struct{}
	_ = x[COND_EQ-0]
	_ = x[COND_NE-1]
	_ = x[COND_CS-2]
	_ = x[COND_CC-3]
	_ = x[COND_MI-4]
	_ = x[COND_PL-5]
	_ = x[COND_VS-6]
	_ = x[COND_VC-7]
	_ = x[COND_HI-8]
	_ = x[COND_LS-9]
	_ = x[COND_GE-10]
	_ = x[COND_LT-11]
	_ = x[COND_GT-12]
	_ = x[COND_LE-13]
	_ = x[COND_AL-14]
	_ = x[COND_NV-15]
}

const _Cond_name = "EQNECSCCMIPLVSVCHILSGELTGTLEALNV"

var _Cond_index = [...]uint8{0, 2, 4, 6, 8, 10, 12, 14, 16, 18, 20, 22, 24, 26, 28, 30, 32}

func (i Cond) String() string {
	if i < 0 || i >= Cond(len(_Cond_index)-1) {
		return "Cond(" + strconv.FormatInt(int64(i), 10) + ")"
	}
	return _Cond_name[_Cond_index[i]:_Cond_index[i+1]]
}
