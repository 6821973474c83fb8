// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package latex repairs malformed math markup in LLM output before it is
// handed to a browser-side renderer (KaTeX).
//
// # Description
//
// Language models emit math in an inconsistent mix of Unicode symbols,
// legacy \(...\) / \[...\] delimiters, and dollar-delimited LaTeX. Clean
// applies a fixed sequence of textual passes that normalize all of it to
// $...$ (inline) and $$...$$ (display) spans containing only ASCII LaTeX
// commands:
//
//  1. Unicode math symbols inside math spans are replaced with their LaTeX
//     command equivalents, repeating until a fixed point (bounded).
//  2. Stray un-delimited symbols in prose are wrapped in $...$. Symbols
//     whose commands need an operand (√, °, ², ³) are reported as errors
//     instead, since wrapping them alone yields spans KaTeX rejects.
//  3. Literal "?" placeholders inside math spans are flagged as errors.
//     These are unfixable; the text is left unmodified at that spot.
//  4. Legacy \(...\) and \[...\] delimiters are normalized to $ / $$.
//  5. Display blocks sharing a line with prose are reflowed onto their own
//     line with blank lines around them.
//
// Clean is pure and synchronous: no I/O, no state between calls.
//
// # Thread Safety
//
// Safe for concurrent use; the package holds no mutable state.
package latex

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// maxSymbolPasses bounds the pass-until-fixed-point loop in the symbol
// replacement stage. Replacements emit only ASCII commands so a single pass
// normally suffices; the bound is a safety stop against a pathological table
// entry reintroducing its own input.
const maxSymbolPasses = 32

// snippetContext is how many bytes of surrounding math content to include
// in an Issue snippet.
const snippetContext = 20

// Severity classifies an Issue.
type Severity string

const (
	// SeverityWarning marks markup that was repaired automatically.
	SeverityWarning Severity = "warning"

	// SeverityError marks markup that cannot be repaired and needs a human
	// (or a model retry). The text is left as-is at the reported spot.
	SeverityError Severity = "error"
)

// Issue codes. These are part of the API response contract; the UI keys
// display treatment off them.
const (
	CodeUnicodeSymbol   = "unicode_symbol"
	CodeStraySymbol     = "stray_symbol"
	CodePlaceholder     = "unresolved_placeholder"
	CodeLegacyDelimiter = "legacy_delimiter"
	CodeDisplayReflow   = "display_reflow"
)

// Issue describes one repair (warning) or one unfixable spot (error) found
// while cleaning.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Snippet  string   `json:"snippet,omitempty"`
}

// Result is the outcome of a Clean call.
type Result struct {
	// Text is the cleaned markup.
	Text string `json:"text"`

	// Issues lists every repair made and every unfixable spot found, in
	// pass order.
	Issues []Issue `json:"issues"`

	// Changed reports whether Text differs from the input.
	Changed bool `json:"changed"`
}

// Clean runs the full pass sequence over input and returns the cleaned text
// together with the issues found.
func Clean(input string) Result {
	text := input
	issues := []Issue{}

	text, issues = replaceSymbolsInMath(text, issues)
	text, issues = wrapStraySymbols(text, issues)
	issues = flagPlaceholders(text, issues)
	text, issues = normalizeDelimiters(text, issues)
	text, issues = reflowDisplayMath(text, issues)

	return Result{
		Text:    text,
		Issues:  issues,
		Changed: text != input,
	}
}

// =============================================================================
// Math span scanning
// =============================================================================

// mathSpan is a delimited math region. start and end index the content,
// exclusive of the delimiters themselves.
type mathSpan struct {
	start   int
	end     int
	display bool
}

// mathSpans scans s for $...$, $$...$$, \(...\) and \[...\] regions.
// Escaped dollars (\$) are not treated as delimiters. An unterminated
// opener ends the scan; the tail is treated as prose.
func mathSpans(s string) []mathSpan {
	var spans []mathSpan
	i := 0
	for i < len(s) {
		switch s[i] {
		case '\\':
			if i+1 < len(s) {
				switch s[i+1] {
				case '(':
					close := strings.Index(s[i+2:], `\)`)
					if close < 0 {
						return spans
					}
					spans = append(spans, mathSpan{i + 2, i + 2 + close, false})
					i = i + 2 + close + 2
					continue
				case '[':
					close := strings.Index(s[i+2:], `\]`)
					if close < 0 {
						return spans
					}
					spans = append(spans, mathSpan{i + 2, i + 2 + close, true})
					i = i + 2 + close + 2
					continue
				}
			}
			i += 2
		case '$':
			if i+1 < len(s) && s[i+1] == '$' {
				close := strings.Index(s[i+2:], "$$")
				if close < 0 {
					return spans
				}
				spans = append(spans, mathSpan{i + 2, i + 2 + close, true})
				i = i + 2 + close + 2
				continue
			}
			close := indexUnescapedDollar(s, i+1)
			if close < 0 {
				return spans
			}
			spans = append(spans, mathSpan{i + 1, close, false})
			i = close + 1
		default:
			i++
		}
	}
	return spans
}

// indexUnescapedDollar returns the index of the next '$' at or after from
// that is not preceded by a backslash, or -1.
func indexUnescapedDollar(s string, from int) int {
	for i := from; i < len(s); i++ {
		if s[i] == '$' && (i == 0 || s[i-1] != '\\') {
			return i
		}
	}
	return -1
}

// =============================================================================
// Pass 1: symbol replacement inside math spans
// =============================================================================

func replaceSymbolsInMath(s string, issues []Issue) (string, []Issue) {
	spans := mathSpans(s)
	if len(spans) == 0 {
		return s, issues
	}
	var b strings.Builder
	prev := 0
	for _, sp := range spans {
		b.WriteString(s[prev:sp.start])
		fixed, spanIssues := replaceSymbols(s[sp.start:sp.end])
		b.WriteString(fixed)
		issues = append(issues, spanIssues...)
		prev = sp.end
	}
	b.WriteString(s[prev:])
	return b.String(), issues
}

// replaceSymbols rewrites every table symbol in content to its LaTeX
// command, passing over the table until a full pass makes no change or the
// safety bound is hit. One warning is emitted per occurrence.
func replaceSymbols(content string) (string, []Issue) {
	var issues []Issue
	for pass := 0; pass < maxSymbolPasses; pass++ {
		changed := false
		for _, r := range symbolTable {
			for {
				idx := strings.Index(content, r.symbol)
				if idx < 0 {
					break
				}
				rest := content[idx+len(r.symbol):]
				repl := r.command
				if needsSeparator(repl, rest) {
					repl += " "
				}
				content = content[:idx] + repl + rest
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Code:     CodeUnicodeSymbol,
					Message:  fmt.Sprintf("replaced %q with %q", r.symbol, r.command),
				})
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return content, issues
}

// needsSeparator reports whether a space must follow command so the next
// character does not extend the command name (e.g. `\cdot` + "b").
func needsSeparator(command, rest string) bool {
	if rest == "" {
		return false
	}
	last := command[len(command)-1]
	if !isASCIILetter(last) {
		return false
	}
	return isASCIILetter(rest[0])
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// =============================================================================
// Pass 2: stray symbol wrapping in prose
// =============================================================================

func wrapStraySymbols(s string, issues []Issue) (string, []Issue) {
	spans := mathSpans(s)
	var b strings.Builder
	prev := 0
	for _, sp := range spans {
		// Back up over the opening delimiter so prose regions exclude it.
		open := openDelimiterStart(s, sp)
		wrapped, regionIssues := wrapSymbolsInProse(s[prev:open])
		b.WriteString(wrapped)
		issues = append(issues, regionIssues...)
		b.WriteString(s[open:spanEnd(s, sp)])
		prev = spanEnd(s, sp)
	}
	wrapped, regionIssues := wrapSymbolsInProse(s[prev:])
	b.WriteString(wrapped)
	issues = append(issues, regionIssues...)
	return b.String(), issues
}

// openDelimiterStart returns the index of the first byte of sp's opening
// delimiter.
func openDelimiterStart(s string, sp mathSpan) int {
	// Delimiters are 1 byte ($), or 2 bytes ($$, \(, \[).
	if sp.start >= 2 {
		two := s[sp.start-2 : sp.start]
		if two == "$$" || two == `\(` || two == `\[` {
			return sp.start - 2
		}
	}
	return sp.start - 1
}

// spanEnd returns the index just past sp's closing delimiter.
func spanEnd(s string, sp mathSpan) int {
	if sp.end < len(s) && s[sp.end] == '$' {
		if sp.end+1 < len(s) && s[sp.end+1] == '$' && sp.display {
			return sp.end + 2
		}
		return sp.end + 1
	}
	// \) or \]
	if sp.end+2 <= len(s) {
		return sp.end + 2
	}
	return len(s)
}

func wrapSymbolsInProse(region string) (string, []Issue) {
	var issues []Issue
	for _, r := range symbolTable {
		off := 0
		for {
			idx := strings.Index(region[off:], r.symbol)
			if idx < 0 {
				break
			}
			abs := off + idx
			if needsOperand[r.symbol] {
				// Wrapping alone would hand the renderer a span it
				// rejects, e.g. $\sqrt$ with no radicand.
				issues = append(issues, Issue{
					Severity: SeverityError,
					Code:     CodeStraySymbol,
					Message:  fmt.Sprintf("stray %q needs an operand and was left unwrapped", r.symbol),
					Snippet:  snippetAround(region, abs),
				})
				off = abs + len(r.symbol)
				continue
			}
			repl := "$" + r.command + "$"
			region = region[:abs] + repl + region[abs+len(r.symbol):]
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Code:     CodeStraySymbol,
				Message:  fmt.Sprintf("wrapped stray %q as %q", r.symbol, repl),
			})
			off = abs + len(repl)
		}
	}
	return region, issues
}

// =============================================================================
// Pass 3: placeholder flagging
// =============================================================================

// flagPlaceholders reports a literal "?" inside any math span as an error.
// Models emit these when they fail to produce a term; rendering them hides
// the failure from the student, so they are surfaced instead of patched.
func flagPlaceholders(s string, issues []Issue) []Issue {
	for _, sp := range mathSpans(s) {
		content := s[sp.start:sp.end]
		for off := 0; ; {
			idx := strings.Index(content[off:], "?")
			if idx < 0 {
				break
			}
			abs := off + idx
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     CodePlaceholder,
				Message:  "math contains an unresolved \"?\" placeholder",
				Snippet:  snippetAround(content, abs),
			})
			off = abs + 1
		}
	}
	return issues
}

func snippetAround(content string, idx int) string {
	start := idx - snippetContext
	end := idx + snippetContext
	if start < 0 {
		start = 0
	}
	if end > len(content) {
		end = len(content)
	}
	// Don't split multi-byte runes at the cut points.
	for start > 0 && !utf8Start(content[start]) {
		start--
	}
	for end < len(content) && !utf8Start(content[end]) {
		end++
	}
	return content[start:end]
}

func utf8Start(b byte) bool { return b < 0x80 || b >= 0xC0 }

// =============================================================================
// Pass 4: legacy delimiter normalization
// =============================================================================

var legacyReplacer = strings.NewReplacer(
	`\(`, "$",
	`\)`, "$",
	`\[`, "$$",
	`\]`, "$$",
)

func normalizeDelimiters(s string, issues []Issue) (string, []Issue) {
	inline := strings.Count(s, `\(`)
	display := strings.Count(s, `\[`)
	if inline == 0 && display == 0 {
		return s, issues
	}
	s = legacyReplacer.Replace(s)
	for i := 0; i < inline; i++ {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Code:     CodeLegacyDelimiter,
			Message:  `normalized \(...\) to $...$`,
		})
	}
	for i := 0; i < display; i++ {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Code:     CodeLegacyDelimiter,
			Message:  `normalized \[...\] to $$...$$`,
		})
	}
	return s, issues
}

// =============================================================================
// Pass 5: display math reflow
// =============================================================================

// maxReflowPasses bounds reflow iteration; each pass can only split one
// prose/display adjacency per match site, so a handful is plenty.
const maxReflowPasses = 16

var (
	displayAfterProse  = regexp.MustCompile(`([^ \t\n])[ \t]*(\$\$[^$]+\$\$)`)
	proseAfterDisplay  = regexp.MustCompile(`(\$\$[^$]+\$\$)[ \t]*([^ \t\n])`)
	collapsedBlankLine = regexp.MustCompile(`\n{3,}`)
)

// reflowDisplayMath moves $$...$$ blocks that share a line with prose onto
// their own line, with a blank line on each side.
func reflowDisplayMath(s string, issues []Issue) (string, []Issue) {
	orig := s
	for pass := 0; pass < maxReflowPasses; pass++ {
		next := displayAfterProse.ReplaceAllString(s, "${1}\n\n${2}")
		next = proseAfterDisplay.ReplaceAllString(next, "${1}\n\n${2}")
		if next == s {
			break
		}
		s = next
	}
	if s != orig {
		// Reflow can stack inserted breaks next to existing ones.
		s = collapsedBlankLine.ReplaceAllString(s, "\n\n")
	}
	if s != orig {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Code:     CodeDisplayReflow,
			Message:  "moved display math onto its own line",
		})
	}
	return s, issues
}

// ContainsUnicodeMath reports whether s still holds any non-ASCII rune that
// looks mathematical. Used by callers to decide whether a second model pass
// is worth attempting.
func ContainsUnicodeMath(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			for _, t := range symbolTable {
				if strings.ContainsRune(t.symbol, r) {
					return true
				}
			}
		}
	}
	return false
}
