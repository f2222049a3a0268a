package analysis

import (
	"math/big"
	"strings"
)

// DefaultMaxKeywords caps the rendered missing-keyword list.
const DefaultMaxKeywords = 50

// Debug block headers.
const (
	resumeHeader = "--- RESUME ---"
	jdHeader     = "--- JOB DESCRIPTION ---"
)

// Page is the set of output regions a result is rendered into.
type Page interface {
	ShowResult()
	SetScore(text string)
	SetSectionScores(lines []string)
	SetMissingKeywords(lines []string)
	SetSuggestions(lines []string)
	SetDebugText(text string)
	// SetWarning receives the analyzer's degraded-result notice, "" when none.
	SetWarning(text string)
}

// Render reveals the result region and fills every region in a fixed order,
// ending with the warning notice.
// maxKeywords <= 0 falls back to DefaultMaxKeywords.
func Render(p Page, r *Result, maxKeywords int) {
	p.ShowResult()
	p.SetScore(FormatScore(r.ATSScore))
	p.SetSectionScores(SectionLines(r.SectionScores))
	p.SetMissingKeywords(KeywordLines(r.MissingKeywords, maxKeywords))
	p.SetSuggestions(SuggestionLines(r.Suggestions))
	p.SetDebugText(DebugText(r.Debug))
	p.SetWarning(strings.TrimSpace(string(r.Warning)))
}

// FormatScore renders a percentage with one decimal, e.g. "72.3%".
func FormatScore(p Percent) string {
	return toFixed1(float64(p)) + "%"
}

// SectionLines renders "<name>: <value>%" per section, in response order.
func SectionLines(scores SectionScores) []string {
	lines := make([]string, 0, len(scores))
	for _, s := range scores {
		lines = append(lines, s.Name+": "+FormatScore(s.Value))
	}
	return lines
}

// KeywordLines returns at most limit keywords, in original order.
func KeywordLines(keywords TextList, limit int) []string {
	if limit <= 0 {
		limit = DefaultMaxKeywords
	}
	if len(keywords) > limit {
		keywords = keywords[:limit]
	}
	return append([]string(nil), keywords...)
}

// SuggestionLines returns every suggestion, in original order.
func SuggestionLines(suggestions TextList) []string {
	return append([]string(nil), suggestions...)
}

// DebugText joins the compared texts under fixed headers.
func DebugText(d *Debug) string {
	var resume, jd string
	if d != nil {
		resume, jd = string(d.ResumeText), string(d.JDText)
	}
	var b strings.Builder
	b.WriteString(resumeHeader)
	b.WriteString("\n")
	b.WriteString(resume)
	b.WriteString("\n\n")
	b.WriteString(jdHeader)
	b.WriteString("\n")
	b.WriteString(jd)
	return b.String()
}

// toFixed1 rounds half away from zero on the exact binary value, so 72.25
// gives "72.3" where strconv's round-half-even would give "72.2".
func toFixed1(x float64) string {
	neg := x < 0
	if neg {
		x = -x
	}
	// 53-bit mantissa times 10 plus one half fits well inside 128 bits
	v := new(big.Float).SetPrec(128).SetFloat64(x)
	v.Mul(v, big.NewFloat(10))
	v.Add(v, big.NewFloat(0.5))
	n, _ := v.Int(nil)

	digits := n.String()
	if len(digits) < 2 {
		digits = "0" + digits
	}
	out := digits[:len(digits)-1] + "." + digits[len(digits)-1:]
	if neg {
		out = "-" + out
	}
	return out
}
