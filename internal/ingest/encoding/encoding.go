// Package encoding classifies the character encoding of uploaded statement files.
// Detection is best-effort: a buffer that decodes cleanly as UTF-8 is treated as
// UTF-8 even though a Latin-1 file can, in rare cases, look the same.
package encoding

// Encoding is the detected character encoding of a file
type Encoding string

const (
	UTF8   Encoding = "utf8"
	Latin1 Encoding = "latin1"
)

// sniffLen is how much of the file Detect inspects
const sniffLen = 4096

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Detect classifies a byte prefix as UTF-8 or a Latin-1-family legacy encoding.
// It never fails; anything it cannot prove invalid is reported as UTF-8.
func Detect(prefix []byte) Encoding {
	if len(prefix) > sniffLen {
		prefix = prefix[:sniffLen]
	}
	if hasUTF8BOM(prefix) {
		return UTF8
	}

	i := 0
	for i < len(prefix) {
		b := prefix[i]
		switch {
		case b < 0x80:
			i++
		case b >= 0xC2 && b <= 0xDF:
			if !continuations(prefix, i+1, 1) {
				return Latin1
			}
			i += 2
		case b >= 0xE0 && b <= 0xEF:
			if !continuations(prefix, i+1, 2) {
				return Latin1
			}
			i += 3
		case b >= 0xF0 && b <= 0xF4:
			if !continuations(prefix, i+1, 3) {
				return Latin1
			}
			i += 4
		default:
			// 0x80-0xC1 and 0xF5-0xFF can never start a UTF-8 sequence
			return Latin1
		}
	}
	return UTF8
}

// continuations reports whether n continuation bytes (0x80-0xBF) follow offset.
// A sequence truncated by the end of the sniff window counts as valid.
func continuations(buf []byte, offset, n int) bool {
	for j := 0; j < n; j++ {
		idx := offset + j
		if idx >= len(buf) {
			return true
		}
		if buf[idx] < 0x80 || buf[idx] > 0xBF {
			return false
		}
	}
	return true
}

// DecodeToUTF8 returns the file content as UTF-8 text, stripping any BOM and
// widening Latin-1 bytes when detection says the file is not UTF-8.
func DecodeToUTF8(data []byte) []byte {
	if hasUTF8BOM(data) {
		return data[len(utf8BOM):]
	}
	if Detect(data) == UTF8 {
		return data
	}
	return decodeLatin1(data)
}

func hasUTF8BOM(data []byte) bool {
	return len(data) >= 3 && data[0] == utf8BOM[0] && data[1] == utf8BOM[1] && data[2] == utf8BOM[2]
}

func decodeLatin1(data []byte) []byte {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return []byte(string(runes))
}
