// Package normalize turns raw spoken or typed transcripts into arithmetic
// expressions that the calc package can evaluate.
//
// Cleaning is a single pass over the input:
//   - Unicode compatibility folding (NFKC) and lowercasing
//   - Spoken phrase substitution from an ordered Dictionary
//     ("divided by" → "/", "squared" → "**2", ...)
//   - Removal of every character outside the expression whitelist
//   - Whitespace collapse, decimal point joining and sqrt operand wrapping
//   - Removal of filler commands ("calculate", "what is", "equals")
//
// # Dictionary Ordering
//
// Phrases are matched longest first and on whole words only, so
// "to the power of" wins over "power" and "mod" never rewrites "modulus"
// or "moderate".
//
// The active dictionary can be replaced at runtime. Watcher reloads a YAML
// phrase file whenever it changes on disk.
package normalize
