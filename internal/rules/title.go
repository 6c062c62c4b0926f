package rules

import (
	"regexp"
	"sort"
	"strings"

	"datascrubber/internal/config"
	"datascrubber/internal/models"
)

const documentParam = "?document="

var (
	bracketedCode = regexp.MustCompile(`\((\d{4})\)`)
	codeOnly      = regexp.MustCompile(`^\(\d+\)$`)
)

type replacement struct {
	re   *regexp.Regexp
	with string
}

// TitleRewriter rebuilds report titles from conversion-page URLs.
type TitleRewriter struct {
	drop         map[string]bool
	source       string
	publishers   []string
	publisherMap map[string]string
	reports      []string
	reportMap    map[string]string
	replacements []replacement
}

// NewTitleRewriter compiles a title rewrite configuration.
func NewTitleRewriter(cfg *config.TitleRewrite) (*TitleRewriter, error) {
	tr := &TitleRewriter{
		drop:         make(map[string]bool, len(cfg.DropTitles)),
		source:       cfg.Source,
		publishers:   longestFirst(cfg.Publishers),
		publisherMap: cfg.Publishers,
		reports:      longestFirst(cfg.Reports),
		reportMap:    cfg.Reports,
	}

	for _, d := range cfg.DropTitles {
		tr.drop[d] = true
	}

	for _, r := range cfg.Replacements {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, err
		}

		tr.replacements = append(tr.replacements, replacement{re: re, with: r.Replace})
	}

	return tr, nil
}

// Rewrite converts one conversion-page URL into a title. The boolean is false
// when the title should be dropped.
func (tr *TitleRewriter) Rewrite(page string) (string, bool) {
	title := FromConversionPage(page)

	if !strings.HasPrefix(title, "(") {
		for _, name := range tr.publishers {
			if strings.Contains(title, name) && !strings.HasPrefix(title, "(") {
				title = strings.ReplaceAll(title, name, tr.publisherMap[name])
			}
		}
	}

	if !strings.HasPrefix(title, "(") {
		for _, key := range tr.reports {
			if strings.Contains(title, key) {
				title = strings.Replace(title, key, tr.reportMap[key], 1)
				break
			}
		}
	}

	for _, r := range tr.replacements {
		title = r.re.ReplaceAllString(title, r.with)
	}

	title = strings.TrimSpace(title)
	if title == "" || codeOnly.MatchString(title) || tr.drop[title] {
		return "", false
	}

	return title, true
}

// Rule returns the rule writing rewritten titles into Report Title.
func (tr *TitleRewriter) Rule() Rule {
	return New("title_rewrite", func(t *models.Table) (int, error) {
		if err := t.Require(tr.source); err != nil {
			return 0, err
		}

		t.AddColumn(models.ColReportTitle, "")

		t.Filter(func(rec models.Record) bool {
			title, ok := tr.Rewrite(rec[tr.source])
			if ok {
				rec[models.ColReportTitle] = title
			}

			return ok
		})

		return 0, nil
	})
}

// FromConversionPage decodes a conversion-page URL of the form
// ".../<stock code>?document=<title>" into "(<code>) <title>". Without a stock
// code suffix, a "(dddd)" group inside the title is moved to the front.
func FromConversionPage(page string) string {
	decoded := unquote(page)

	// Ideographic spaces go first: folding would turn them into ASCII spaces.
	decoded = strings.ReplaceAll(decoded, "　", "")
	decoded = strs.FoldWidth(decoded)

	prefix, doc, found := strings.Cut(decoded, documentParam)
	if !found {
		return moveStockCode(decoded)
	}

	if code, ok := trailingCode(prefix); ok {
		return "(" + code + ") " + doc
	}

	return moveStockCode(doc)
}

// unquote decodes every valid %XX escape and keeps malformed ones as they
// are. Byte sequences that do not form UTF-8 become U+FFFD.
func unquote(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2

			continue
		}

		b.WriteByte(s[i])
	}

	return strings.ToValidUTF8(b.String(), "\uFFFD")
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case c >= 'a':
		return c - 'a' + 10
	case c >= 'A':
		return c - 'A' + 10
	default:
		return c - '0'
	}
}

func trailingCode(s string) (string, bool) {
	if len(s) < 4 {
		return "", false
	}

	code := s[len(s)-4:]
	for _, r := range code {
		if r < '0' || r > '9' {
			return "", false
		}
	}

	return code, true
}

func moveStockCode(title string) string {
	m := bracketedCode.FindString(title)
	if m == "" {
		return title
	}

	return m + " " + strings.TrimSpace(strings.ReplaceAll(title, m, ""))
}

func longestFirst(m map[string]string) []string {
	keys := sortedKeys(m)

	sort.SliceStable(keys, func(i, j int) bool {
		return len(keys[i]) > len(keys[j])
	})

	return keys
}
