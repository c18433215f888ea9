// Package calculette implements the evaluator behind a pocket calculator.
//
// Expressions are parsed into a syntax tree over a fixed grammar and then
// evaluated; nothing in the input is ever executed as code. The grammar is
// what you would type on a calculator keypad: numbers, "+ - * / % ^",
// brackets, functions like "sqrt(16)" or "log(100)", and the constants PI
// and E. "-2^2^n" is the same as "-(2^(2^n))", and "2 (3)" multiplies.
//
// Arithmetic follows floating-point rules at the context's precision: 1/0 is
// Infinity and 0/0 is NaN, and neither is an error. Only input that cannot be
// parsed, or that names something undefined, is an error. Evaluate wraps all
// of this into a Result whose String method gives the text a calculator
// display shows, with errors rendered as "Erreur".
package calculette
