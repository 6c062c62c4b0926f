package utils

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/width"
)

// StringHelper provides string utility functions.
type StringHelper struct{}

// NewStringHelper creates a new string helper.
func NewStringHelper() *StringHelper {
	return &StringHelper{}
}

// FoldWidth maps full-width letters, digits and punctuation to their ASCII forms.
func (s *StringHelper) FoldWidth(str string) string {
	return width.Fold.String(str)
}

// StripSpaces removes ASCII and ideographic spaces.
func (s *StringHelper) StripSpaces(str string) string {
	return strings.NewReplacer(" ", "", "　", "").Replace(str)
}

// ContainsFold reports whether substr is within str, ignoring case.
func (s *StringHelper) ContainsFold(str, substr string) bool {
	return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
}

// TruncateString truncates string to a display width of maxWidth cells.
func (s *StringHelper) TruncateString(str string, maxWidth int) string {
	if runewidth.StringWidth(str) <= maxWidth {
		return str
	}

	return runewidth.Truncate(str, maxWidth, "...")
}
