// Package calc evaluates cleaned arithmetic expressions and classifies
// failures.
//
// Parsing and evaluation are delegated to github.com/expr-lang/expr running
// in a closed environment: only the math functions and constants declared
// here are visible, and every expr builtin is disabled. Results are
// rendered with Format so that integers stay integers and very large or
// very small values switch to scientific notation.
//
// Two entry points exist:
//   - Processor.Process handles voice transcripts (normalize, evaluate,
//     report an Outcome that never fails).
//   - Evaluator.Calculate handles typed input and returns (Value, error).
package calc
