// Package buffer holds the expression text being edited on the calculator.
package buffer

import "unicode/utf8"

// Buffer is an editable expression. The zero value is an empty buffer.
// Nothing checks that the contents form a valid expression until they are
// evaluated. Buffers are values; copies edit independently.
type Buffer struct {
	s string
}

// Of returns a buffer holding text.
func Of(text string) Buffer {
	return Buffer{s: text}
}

// Append adds text to the end of the buffer.
func (b *Buffer) Append(text string) {
	b.s += text
}

// DeleteLast removes the final rune. It does nothing on an empty buffer.
func (b *Buffer) DeleteLast() {
	_, sz := utf8.DecodeLastRuneInString(b.s)
	b.s = b.s[:len(b.s)-sz]
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.s = ""
}

// Set replaces the contents of the buffer.
func (b *Buffer) Set(text string) {
	b.s = text
}

// Text returns the raw contents.
func (b Buffer) Text() string {
	return b.s
}

// Display returns the text shown on the calculator screen, which is "0" for
// an empty buffer.
func (b Buffer) Display() string {
	if b.s == "" {
		return "0"
	}
	return b.s
}

// Len returns the number of runes in the buffer.
func (b Buffer) Len() int {
	return utf8.RuneCountInString(b.s)
}
