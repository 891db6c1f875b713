// Package cpu implements the μARM register machine and its assembler.
//
// The machine consists of sixteen 32-bit general-purpose registers, a
// flat byte-addressable memory, NZCV condition flags, and a program
// counter indexing a sequence of decoded instructions. Every instruction
// carries an execution predicate; a failing predicate makes the cycle a
// no-op. Execution is fully deterministic and halts on the branch-to-self
// idiom.
//
// The assembler provides a macro assembler for the ARM-subset instruction
// set, supporting macros, labels, equates, and compile-time expression
// evaluation. Binary instruction words (big-endian, 32-bit) can be
// decoded and encoded losslessly for the supported subset.
package cpu
