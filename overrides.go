package html2pdf

import (
	"fmt"
	"strings"
)

// defaultHiddenSelectors hides common non-content chrome before printing a
// remote page. The list is a heuristic, not a complete set.
var defaultHiddenSelectors = []string{
	"nav",
	"header nav",
	"footer",
	"[role='navigation']",
	"[role='banner']",
	"[role='dialog']",
	"[aria-modal='true']",
	".navbar",
	".nav",
	".menu",
	".sidebar",
	".modal",
	".modal-backdrop",
	".popup",
	".overlay",
	".cookie",
	".cookies",
	".cookie-banner",
	".cookie-consent",
	"#cookie-banner",
	"#cookie-consent",
	"[id*='cookie']",
	"[class*='cookie']",
	".gdpr",
	".consent",
	".newsletter",
	".advertisement",
	".ads",
}

// DefaultHiddenSelectors returns a copy of the built-in selector denylist.
func DefaultHiddenSelectors() []string {
	out := make([]string, len(defaultHiddenSelectors))
	copy(out, defaultHiddenSelectors)
	return out
}

// ValidSelector reports whether s can be placed before a rule body without
// escaping the rule or the style element. Braces, semicolons, backslashes,
// comment markers and "<" are rejected. So are unclosed brackets, parentheses
// and quotes, which would swallow the rules that follow.
func ValidSelector(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if strings.ContainsAny(s, "{};<\\") || strings.Contains(s, "/*") || strings.Contains(s, "*/") {
		return false
	}
	return balanced(s)
}

// balanced reports whether every (, [ and quote in s is closed in order.
func balanced(s string) bool {
	var open []rune
	var quote rune
	for _, c := range s {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(' || c == '[':
			open = append(open, c)
		case c == ')' || c == ']':
			want := '('
			if c == ']' {
				want = '['
			}
			if len(open) == 0 || open[len(open)-1] != want {
				return false
			}
			open = open[:len(open)-1]
		}
	}
	return quote == 0 && len(open) == 0
}

// buildPrintOverrideCSS generates the stylesheet injected into remote pages
// before printing: denylisted elements hidden, body margin zeroed, and the
// print page size forced to the requested format.
// Invalid selectors are dropped.
func buildPrintOverrideCSS(selectors []string, page PageSettings) string {
	var valid []string
	for _, s := range selectors {
		if ValidSelector(s) {
			valid = append(valid, strings.TrimSpace(s))
		}
	}

	// One rule per selector: a selector the browser does not understand
	// drops only its own rule.
	var b strings.Builder
	if len(valid) > 0 {
		b.WriteString("/* Hidden elements */\n")
	}
	for _, sel := range valid {
		b.WriteString(sel)
		b.WriteString(" {\n  display: none !important;\n}\n")
	}

	fmt.Fprintf(&b, `
/* Print layout */
html, body {
  margin: 0 !important;
}
@page {
  size: %s;
  margin: %.2fin;
}
`, cssPageSize(page.Format), page.Margin)

	return b.String()
}

// cssPageSize maps a page format to its CSS @page size keyword.
func cssPageSize(format string) string {
	switch strings.ToLower(format) {
	case PageFormatLetter:
		return "letter"
	case PageFormatLegal:
		return "legal"
	default:
		return "A4"
	}
}
