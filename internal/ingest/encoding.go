package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrUnknownEncoding is returned when a detected charset has no decoder.
var ErrUnknownEncoding = errors.New("unknown character encoding")

// EncodingUTF8 is reported for input that is already valid UTF-8.
const EncodingUTF8 = "UTF-8"

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// chardet names that differ from WHATWG labels.
var charsetAliases = map[string]string{
	"GB-18030": "gb18030",
	"EUC-KR":   "euc-kr",
	"Big5":     "big5",
}

// DetectEncoding guesses the charset of data and returns its name with a
// confidence between 0 and 100.
func DetectEncoding(data []byte) (string, int) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return EncodingUTF8, 100
	case bytes.HasPrefix(data, bomUTF16LE):
		return "UTF-16LE", 100
	case bytes.HasPrefix(data, bomUTF16BE):
		return "UTF-16BE", 100
	case utf8.Valid(data):
		return EncodingUTF8, 100
	}

	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || result == nil {
		return EncodingUTF8, 0
	}

	return result.Charset, result.Confidence
}

// Decode converts data from charset to UTF-8. A leading byte-order mark is
// honored and dropped; undecodable sequences are discarded.
func Decode(data []byte, charset string) ([]byte, error) {
	label := charset
	if alias, ok := charsetAliases[charset]; ok {
		label = alias
	}

	enc, err := htmlindex.Get(strings.ToLower(label))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEncoding, charset)
	}

	decoded, _, err := transform.Bytes(unicode.BOMOverride(enc.NewDecoder()), data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", charset, err)
	}

	return bytes.ReplaceAll(decoded, []byte(string(utf8.RuneError)), nil), nil
}

// DecodeAuto detects the charset of data and decodes it.
func DecodeAuto(data []byte) ([]byte, string, int, error) {
	charset, confidence := DetectEncoding(data)

	decoded, err := Decode(data, charset)
	if err != nil {
		return nil, charset, confidence, err
	}

	return decoded, charset, confidence, nil
}
