// Package rtf writes recovered document text as a minimal Rich Text Format
// file: one 12pt Helvetica paragraph per line and a page break between pages.
package rtf

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const header = `{\rtf1\ansi\ansicpg1252\deff0{\fonttbl{\f0\fswiss Helvetica;}}\f0\fs24 `

// WritePages writes pages to w as an RTF document.
func WritePages(w io.Writer, pages []string) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(header)
	for i, page := range pages {
		if i > 0 {
			bw.WriteString("\\page\n")
		}
		writeText(bw, page)
	}
	bw.WriteString("}\n")
	return bw.Flush()
}

func writeText(w *bufio.Writer, text string) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, r := range text {
		switch {
		case r == '\\' || r == '{' || r == '}':
			w.WriteByte('\\')
			w.WriteRune(r)
		case r == '\n':
			w.WriteString("\\par\n")
		case r == '\t':
			w.WriteString("\\tab ")
		case r >= 0x20 && r < 0x7f:
			w.WriteRune(r)
		case r < 0x20:
			// Other control characters have no meaning in running text.
		case r > 0xFFFF:
			r -= 0x10000
			writeUnicode(w, 0xD800+(r>>10))
			writeUnicode(w, 0xDC00+(r&0x3FF))
		default:
			writeUnicode(w, r)
		}
	}
}

// writeUnicode emits r as a signed 16-bit \u control word with a '?'
// fallback for readers without Unicode support.
func writeUnicode(w *bufio.Writer, r rune) {
	fmt.Fprintf(w, "\\u%d?", int16(uint16(r)))
}
