package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlagsArithmetic(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		sub     bool
		a, b    uint32
		expects Flags
	}){
		{"add_zero", false, 0, 0, Flags{Z: true}},
		{"add_carry", false, 0xffffffff, 1, Flags{Z: true, C: true}},
		{"add_negative", false, 0x7fffffff, 1, Flags{N: true, V: true}},
		{"add_no_overflow", false, 0x80000000, 0x80000000, Flags{Z: true, C: true, V: true}},
		{"sub_equal", true, 5, 5, Flags{Z: true, C: true}},
		{"sub_greater", true, 7, 5, Flags{C: true}},
		{"sub_borrow", true, 5, 7, Flags{N: true}},
		{"sub_overflow", true, 0x80000000, 1, Flags{C: true, V: true}},
	}

	for _, entry := range table {
		var fl Flags
		if entry.sub {
			fl.SetSub(entry.a, entry.b, entry.a-entry.b)
		} else {
			fl.SetAdd(entry.a, entry.b, entry.a+entry.b)
		}
		assert.Equal(entry.expects, fl, entry.name)
	}
}

func TestFlagsPasses(t *testing.T) {
	assert := assert.New(t)

	// CMP r0, r1 outcomes for the three interesting orderings. The
	// differences are computed through variables so the 1-2 case wraps.
	var lt, eq, gt Flags
	one, two, three := uint32(1), uint32(2), uint32(3)
	lt.SetSub(one, two, one-two)
	eq.SetSub(two, two, two-two)
	gt.SetSub(three, two, three-two)

	table := [](struct {
		cond       Cond
		lt, eq, gt bool
	}){
		{COND_EQ, false, true, false},
		{COND_NE, true, false, true},
		{COND_CS, false, true, true},
		{COND_CC, true, false, false},
		{COND_MI, true, false, false},
		{COND_PL, false, true, true},
		{COND_VS, false, false, false},
		{COND_VC, true, true, true},
		{COND_HI, false, false, true},
		{COND_LS, true, true, false},
		{COND_GE, false, true, true},
		{COND_LT, true, false, false},
		{COND_GT, false, false, true},
		{COND_LE, true, true, false},
		{COND_AL, true, true, true},
		{COND_NV, false, false, false},
	}

	for _, entry := range table {
		assert.Equal(entry.lt, lt.Passes(entry.cond), "%v lt", entry.cond)
		assert.Equal(entry.eq, eq.Passes(entry.cond), "%v eq", entry.cond)
		assert.Equal(entry.gt, gt.Passes(entry.cond), "%v gt", entry.cond)
	}

	// Fresh flags execute AL and fail EQ.
	var fl Flags
	assert.True(fl.Passes(COND_AL))
	assert.False(fl.Passes(COND_EQ))
	assert.Equal("----", fl.String())
	assert.Equal("-ZC-", eq.String())
}
