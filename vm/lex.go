package vm

import (
	"strconv"
	"strings"
)

// TokenKind classifies one whitespace-delimited lexeme.
type TokenKind int

const (
	KindMnemonic TokenKind = iota
	KindLabelDef
	KindImmediate
	KindName
)

// Token is one classified lexeme from the source buffer. Value holds
// the already-parsed immediate bit pattern when Kind == KindImmediate;
// for every other kind only Lexeme is meaningful.
type Token struct {
	Kind   TokenKind
	Lexeme string
	Value  uint64
}

// tokenize splits source on ASCII whitespace and classifies each
// resulting lexeme. There are no quoted strings in this grammar, but a
// "//" truncates the rest of its line first, the same as gvm's source
// preprocessing; every remaining lexeme is either a label definition,
// a known mnemonic, something that parses as a number, or an
// unresolved name.
func tokenize(source string) []Token {
	fields := strings.Fields(stripComments(source))
	tokens := make([]Token, 0, len(fields))
	for _, lexeme := range fields {
		tokens = append(tokens, classify(lexeme))
	}
	return tokens
}

func stripComments(source string) string {
	lines := strings.Split(source, "\n")
	for i, line := range lines {
		if idx := strings.Index(line, "//"); idx >= 0 {
			lines[i] = line[:idx]
		}
	}
	return strings.Join(lines, "\n")
}

func classify(lexeme string) Token {
	if strings.HasSuffix(lexeme, ":") {
		return Token{Kind: KindLabelDef, Lexeme: strings.TrimSuffix(lexeme, ":")}
	}

	if _, ok := mnemonicToOpcode[lexeme]; ok {
		return Token{Kind: KindMnemonic, Lexeme: lexeme}
	}

	if v, ok := parseImmediate(lexeme); ok {
		return Token{Kind: KindImmediate, Lexeme: lexeme, Value: v}
	}

	return Token{Kind: KindName, Lexeme: lexeme}
}

// parseImmediate tries, in order: unsigned 64-bit, signed 64-bit,
// 64-bit float, then (if the lexeme ends in 'f') 32-bit float. Each
// successful parse is re-encoded as the raw 64-bit bit pattern that
// the assembler will emit verbatim as the ByteCode value.
func parseImmediate(lexeme string) (uint64, bool) {
	if u, err := strconv.ParseUint(lexeme, 10, 64); err == nil {
		return u, true
	}
	if i, err := strconv.ParseInt(lexeme, 10, 64); err == nil {
		return uint64(i), true
	}
	if f, err := strconv.ParseFloat(lexeme, 64); err == nil {
		return float64Bits(f), true
	}
	if strings.HasSuffix(lexeme, "f") {
		if f, err := strconv.ParseFloat(strings.TrimSuffix(lexeme, "f"), 32); err == nil {
			return uint64(float32Bits(float32(f))), true
		}
	}
	return 0, false
}
