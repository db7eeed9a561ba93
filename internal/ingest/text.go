package ingest

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// binaryThresholdPercent is the share of non-text bytes above which a file
// is treated as binary. Exactly the threshold still counts as text.
const binaryThresholdPercent = 30

// textBytes is the ASCII "text" set: printable characters 0x20-0x7E plus
// bell, backspace, tab, newline, form feed, carriage return and escape.
var textBytes = func() [utf8.RuneSelf]bool {
	var set [utf8.RuneSelf]bool
	for _, b := range []byte{0x07, 0x08, '\t', '\n', '\f', '\r', 0x1b} {
		set[b] = true
	}
	for b := 0x20; b < 0x7f; b++ {
		set[b] = true
	}
	return set
}()

// IsBinary classifies data as binary when it holds a NUL byte or when more
// than 30% of its bytes fall outside the text set. Bytes of a well-formed
// multi-byte UTF-8 sequence count as text; any other byte >= 0x80 does not.
// Empty data is text.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return true
	}

	nonText := 0
	for i := 0; i < len(data); {
		if b := data[i]; b < utf8.RuneSelf {
			if !textBytes[b] {
				nonText++
			}
			i++
			continue
		}
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			nonText++
			i++
			continue
		}
		i += size
	}
	return nonText*100 > len(data)*binaryThresholdPercent
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText converts raw bytes to a UTF-8 string. A leading BOM is
// removed and malformed sequences are dropped.
func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	return strings.ToValidUTF8(string(data), "")
}
