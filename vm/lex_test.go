package vm

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		lexeme string
		kind   TokenKind
	}{
		{"start:", KindLabelDef},
		{"push", KindMnemonic},
		{"halt", KindMnemonic},
		{"42", KindImmediate},
		{"-7", KindImmediate},
		{"3.14", KindImmediate},
		{"2.5f", KindImmediate},
		{"loop", KindName},
	}

	for _, c := range cases {
		tok := classify(c.lexeme)
		assert(t, tok.Kind == c.kind, "classify(%q) = kind %d, want %d", c.lexeme, tok.Kind, c.kind)
	}
}

func TestClassifyLabelDefStripsColon(t *testing.T) {
	tok := classify("loop:")
	assert(t, tok.Lexeme == "loop", "expected trailing colon stripped, got %q", tok.Lexeme)
}

func TestParseImmediateOrder(t *testing.T) {
	v, ok := parseImmediate("42")
	assert(t, ok && v == 42, "expected unsigned parse of 42")

	v, ok = parseImmediate("-1")
	assert(t, ok && v == uint64(^uint64(0)), "expected -1 to bit-cast to all-ones, got %d", v)

	_, ok = parseImmediate("not-a-number")
	assert(t, !ok, "expected parse failure for a non-numeric lexeme")
}

func TestTokenizeIgnoresNoComments(t *testing.T) {
	toks := tokenize("push 1\npush 2")
	assert(t, len(toks) == 4, "expected 4 tokens, got %d", len(toks))
}
