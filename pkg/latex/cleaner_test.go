// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package latex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Symbol replacement inside math spans
// =============================================================================

func TestClean_UnicodeSymbolInsideInlineMath(t *testing.T) {
	res := Clean("$x · y$")

	assert.Equal(t, `$x \cdot y$`, res.Text)
	assert.True(t, res.Changed)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, SeverityWarning, res.Issues[0].Severity)
	assert.Equal(t, CodeUnicodeSymbol, res.Issues[0].Code)
}

func TestClean_MultipleSymbolsInOneSpan(t *testing.T) {
	res := Clean("$a × b ≤ π$")

	assert.Equal(t, `$a \times b \le \pi$`, res.Text)
	assert.True(t, res.Changed)
	assert.Len(t, res.Issues, 3)
}

func TestClean_SymbolAdjacentToLetterGetsSeparator(t *testing.T) {
	// Without the separator the command name would swallow the next letter.
	res := Clean("$a·b$")

	assert.Equal(t, `$a\cdot b$`, res.Text)
}

func TestClean_SymbolAdjacentToDigitNeedsNoSeparator(t *testing.T) {
	res := Clean("$2·3$")

	assert.Equal(t, `$2\cdot3$`, res.Text)
}

func TestClean_SymbolInsideDisplayMath(t *testing.T) {
	res := Clean("$$x ≥ 0$$")

	assert.Equal(t, `$$x \ge 0$$`, res.Text)
	assert.True(t, res.Changed)
}

func TestClean_SymbolInsideLegacyDelimiters(t *testing.T) {
	// Legacy spans are math spans for the symbol pass even though the
	// delimiters themselves are only rewritten later.
	res := Clean(`\(θ ≈ 1.57\)`)

	assert.Equal(t, `$\theta \approx 1.57$`, res.Text)
}

func TestClean_SymbolOutsideMathIsNotReplacedInPlace(t *testing.T) {
	// Prose symbols go through the stray-wrapping pass instead.
	res := Clean("The ratio π shows up everywhere.")

	assert.Equal(t, `The ratio $\pi$ shows up everywhere.`, res.Text)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, CodeStraySymbol, res.Issues[0].Code)
}

func TestClean_StrayDegreeIsReportedNotWrapped(t *testing.T) {
	// ^\circ has no base out in prose; wrapping it would produce a span
	// the renderer rejects.
	res := Clean("The angle is 90° here.")

	assert.Equal(t, "The angle is 90° here.", res.Text)
	assert.False(t, res.Changed)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, SeverityError, res.Issues[0].Severity)
	assert.Equal(t, CodeStraySymbol, res.Issues[0].Code)
	assert.Contains(t, res.Issues[0].Snippet, "°")
}

func TestClean_StraySqrtIsReportedNotWrapped(t *testing.T) {
	res := Clean("Take the √ of both sides, but π is fine.")

	assert.NotContains(t, res.Text, `$\sqrt$`)
	assert.Contains(t, res.Text, "√")
	assert.Contains(t, res.Text, `$\pi$`)

	var errors int
	for _, is := range res.Issues {
		if is.Severity == SeverityError {
			errors++
		}
	}
	assert.Equal(t, 1, errors)
}

func TestClean_OperandSymbolInsideMathStillReplaced(t *testing.T) {
	// Inside a span the base is already adjacent, so replacement stays.
	res := Clean("$90° = \\frac{π}{2}$ radians")

	assert.Contains(t, res.Text, `90^\circ`)
	for _, is := range res.Issues {
		assert.Equal(t, SeverityWarning, is.Severity)
	}
}

// =============================================================================
// Placeholder flagging
// =============================================================================

func TestClean_PlaceholderInsideMathIsReportedNotFixed(t *testing.T) {
	res := Clean("$x + ? = 7$")

	assert.Equal(t, "$x + ? = 7$", res.Text)
	assert.False(t, res.Changed)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, SeverityError, res.Issues[0].Severity)
	assert.Equal(t, CodePlaceholder, res.Issues[0].Code)
	assert.Contains(t, res.Issues[0].Snippet, "?")
}

func TestClean_QuestionMarkInProseIsFine(t *testing.T) {
	res := Clean("What is $x+1$?")

	assert.False(t, res.Changed)
	assert.Empty(t, res.Issues)
}

func TestClean_MultiplePlaceholdersEachReported(t *testing.T) {
	res := Clean("$? + ? = 2$")

	assert.Len(t, res.Issues, 2)
	assert.False(t, res.Changed)
}

// =============================================================================
// Legacy delimiter normalization
// =============================================================================

func TestClean_LegacyInlineDelimiters(t *testing.T) {
	res := Clean(`\(a+b\)`)

	assert.Equal(t, "$a+b$", res.Text)
	assert.True(t, res.Changed)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, CodeLegacyDelimiter, res.Issues[0].Code)
}

func TestClean_LegacyDisplayDelimiters(t *testing.T) {
	res := Clean("See:\n" + `\[x^2 = 9\]` + "\nabove.")

	assert.Contains(t, res.Text, "$$x^2 = 9$$")
	assert.NotContains(t, res.Text, `\[`)
	assert.True(t, res.Changed)
}

func TestClean_MixedLegacyAndDollar(t *testing.T) {
	res := Clean(`First \(a\), then $b$.`)

	assert.Equal(t, "First $a$, then $b$.", res.Text)
}

// =============================================================================
// Display math reflow
// =============================================================================

func TestClean_DisplayMathSharingLineWithProse(t *testing.T) {
	res := Clean("Solve: $$x^2 = 4$$ for x.")

	assert.Equal(t, "Solve:\n\n$$x^2 = 4$$\n\nfor x.", res.Text)
	assert.True(t, res.Changed)
}

func TestClean_DisplayMathAlreadyOnOwnLineUntouched(t *testing.T) {
	in := "Solve:\n\n$$x^2 = 4$$\n\nfor x."
	res := Clean(in)

	assert.Equal(t, in, res.Text)
	assert.False(t, res.Changed)
}

func TestClean_LegacyDisplayInlineWithProseGetsBothFixes(t *testing.T) {
	res := Clean(`The vertex form \[y = a(x-h)^2 + k\] is useful.`)

	assert.Equal(t, "The vertex form\n\n$$y = a(x-h)^2 + k$$\n\nis useful.", res.Text)
}

// =============================================================================
// Clean input
// =============================================================================

func TestClean_NoIssues(t *testing.T) {
	cases := []string{
		"",
		"Plain prose with no math at all.",
		`$x \cdot y$`,
		"A well formed $f(x) = 2x$ inline span.",
		"Before.\n\n$$x = 1$$\n\nAfter.",
	}
	for _, in := range cases {
		t.Run(in, func(t *testing.T) {
			res := Clean(in)
			assert.Equal(t, in, res.Text)
			assert.False(t, res.Changed)
			assert.Empty(t, res.Issues)
		})
	}
}

func TestClean_EscapedDollarIsNotADelimiter(t *testing.T) {
	res := Clean(`It costs \$5 total.`)

	assert.Equal(t, `It costs \$5 total.`, res.Text)
	assert.False(t, res.Changed)
}

func TestClean_UnterminatedSpanLeavesTailAlone(t *testing.T) {
	res := Clean("Broken $x + 1 and then · prose")

	// The unterminated opener means everything after it is treated as
	// prose; the stray symbol still gets wrapped.
	assert.Contains(t, res.Text, `$\cdot$`)
}

// =============================================================================
// Full pipeline
// =============================================================================

func TestClean_TypicalModelOutput(t *testing.T) {
	in := "To multiply, use the dot: $3 · 4 = 12$. " +
		`In general \(a · b = b · a\). The area is $$A = π r²$$ always.`

	res := Clean(in)

	assert.True(t, res.Changed)
	assert.Contains(t, res.Text, `$3 \cdot 4 = 12$`)
	assert.Contains(t, res.Text, `$a \cdot b = b \cdot a$`)
	assert.Contains(t, res.Text, "\n\n$$A = \\pi r^2$$\n\n")
	assert.NotContains(t, res.Text, "·")
	assert.NotContains(t, res.Text, `\(`)

	var warnings, errors int
	for _, is := range res.Issues {
		switch is.Severity {
		case SeverityWarning:
			warnings++
		case SeverityError:
			errors++
		}
	}
	assert.Zero(t, errors)
	assert.Greater(t, warnings, 4)
}

func TestClean_IsIdempotent(t *testing.T) {
	in := `Compute $x · y$ and \(a ÷ b\), then $$p ± q$$ done.`
	first := Clean(in)
	second := Clean(first.Text)

	assert.Equal(t, first.Text, second.Text)
	assert.False(t, second.Changed)
	assert.Empty(t, second.Issues)
}

func TestContainsUnicodeMath(t *testing.T) {
	assert.True(t, ContainsUnicodeMath("left over π here"))
	assert.False(t, ContainsUnicodeMath(`all clean \pi here`))
	assert.False(t, ContainsUnicodeMath("café")) // non-math unicode
}

func TestClean_SnippetIsBounded(t *testing.T) {
	long := "$" + strings.Repeat("x+", 100) + "?" + strings.Repeat("+y", 100) + "$"
	res := Clean(long)

	require.Len(t, res.Issues, 1)
	assert.LessOrEqual(t, len(res.Issues[0].Snippet), 2*snippetContext+4)
}
