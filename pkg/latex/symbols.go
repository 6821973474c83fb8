// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package latex

// symbolReplacement maps a Unicode math symbol to the LaTeX command KaTeX
// expects. Replacements are applied in slice order so output is deterministic.
type symbolReplacement struct {
	symbol  string
	command string
}

// symbolTable covers the Unicode symbols that show up most often in
// AI-generated precalculus markup. Commands are plain KaTeX-renderable
// macros; anything not in this table is left alone.
var symbolTable = []symbolReplacement{
	// Binary operators
	{"·", `\cdot`},
	{"×", `\times`},
	{"÷", `\div`},
	{"±", `\pm`},
	{"∓", `\mp`},

	// Relations
	{"≤", `\le`},
	{"≥", `\ge`},
	{"≠", `\ne`},
	{"≈", `\approx`},
	{"≡", `\equiv`},
	{"∝", `\propto`},

	// Greek letters common in AP Precalculus
	{"π", `\pi`},
	{"θ", `\theta`},
	{"α", `\alpha`},
	{"β", `\beta`},
	{"Δ", `\Delta`},
	{"∆", `\Delta`}, // U+2206 INCREMENT, distinct from Greek capital delta
	{"ω", `\omega`},
	{"φ", `\phi`},
	{"μ", `\mu`},
	{"λ", `\lambda`},

	// Miscellaneous
	{"∞", `\infty`},
	{"√", `\sqrt`},
	{"°", `^\circ`},
	{"²", `^2`},
	{"³", `^3`},
	{"½", `\frac{1}{2}`},
	{"Σ", `\sum`},

	// Set notation
	{"∈", `\in`},
	{"∉", `\notin`},
	{"∪", `\cup`},
	{"∩", `\cap`},
	{"⊂", `\subset`},
	{"⊆", `\subseteq`},
	{"∅", `\emptyset`},
	{"ℝ", `\mathbb{R}`},

	// Arrows
	{"→", `\to`},
	{"⇒", `\Rightarrow`},
	{"⇔", `\Leftrightarrow`},
}

// needsOperand holds symbols whose commands cannot stand alone in a math
// span: \sqrt without a radicand, ^ without a base. Inside math the
// operand is already adjacent; stray in prose there is nothing to attach
// to, so those occurrences are reported instead of wrapped.
var needsOperand = map[string]bool{
	"√": true,
	"°": true,
	"²": true,
	"³": true,
}
