package parser

import (
	"fmt"
)

// Format identifies one of the supported parser variants. It is a closed set:
// descriptors select parsers through this enum, never by reflective lookup.
type Format string

const (
	FormatDelimited   Format = "delimited"
	FormatSpreadsheet Format = "spreadsheet"
	FormatPOSSales    Format = "possales"
)

// FileKind is the physical shape of an import file
type FileKind string

const (
	FileKindDelimitedText FileKind = "delimited-text"
	FileKindSpreadsheet   FileKind = "spreadsheet"
)

// ImportFormatDescriptor is configured data describing one import format.
// It drives which parser runs and with what structural overrides.
type ImportFormatDescriptor struct {
	Code              string
	DisplayName       string
	FileKind          FileKind
	DelimiterOverride *string // single-character override, nil = auto-detect
	HeaderSkipCount   int
	Selector          Format
}

var knownFormats = map[Format]struct{}{
	FormatDelimited:   {},
	FormatSpreadsheet: {},
	FormatPOSSales:    {},
}

// ResolveSelector validates a descriptor's parser selector against the closed set
func ResolveSelector(selector string) (Format, error) {
	f := Format(selector)
	if _, ok := knownFormats[f]; !ok {
		return "", fmt.Errorf("unknown parser selector %q", selector)
	}
	return f, nil
}

// Delimiter returns the descriptor's delimiter override as a rune, 0 if unset
func (d ImportFormatDescriptor) Delimiter() rune {
	if d.DelimiterOverride == nil || *d.DelimiterOverride == "" {
		return 0
	}
	return []rune(*d.DelimiterOverride)[0]
}
