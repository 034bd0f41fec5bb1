package vm

import "fmt"

// Assemble runs the full two-pass pipeline over a source buffer
// and returns a ready-to-execute Program. An implicit Halt is appended
// if the last instruction isn't already one.
func Assemble(source string) (Program, error) {
	tokens := tokenize(source)

	instrTokens, labels := assignPositions(tokens)

	if err := resolveNames(instrTokens, labels); err != nil {
		return nil, err
	}

	instrTokens = appendImplicitHalt(instrTokens)

	return emit(instrTokens)
}

// assignPositions is pass 1: walk the token stream, recording
// each label's instruction index and dropping LabelDef tokens from the
// output stream. Mnemonic tokens advance the instruction counter;
// Immediate and Name tokens ride along as the preceding mnemonic's
// operand and do not.
func assignPositions(tokens []Token) ([]Token, map[string]int) {
	labels := make(map[string]int)
	out := make([]Token, 0, len(tokens))

	pos := 0
	for _, tok := range tokens {
		switch tok.Kind {
		case KindLabelDef:
			labels[tok.Lexeme] = pos
		case KindMnemonic:
			out = append(out, tok)
			pos++
		default: // KindImmediate, KindName
			out = append(out, tok)
		}
	}

	return out, labels
}

// resolveNames is pass 2's symbol resolution: every Name token
// is replaced in place by the instruction index of its label,
// reinterpreted as an immediate so emission doesn't need to special-
// case it. A Name that isn't a known label and doesn't itself parse as
// an immediate (see parseImmediate) is an UnresolvedSymbol.
func resolveNames(tokens []Token, labels map[string]int) error {
	for i, tok := range tokens {
		if tok.Kind != KindName {
			continue
		}

		if idx, ok := labels[tok.Lexeme]; ok {
			tokens[i] = Token{Kind: KindImmediate, Lexeme: tok.Lexeme, Value: uint64(idx)}
			continue
		}

		if v, ok := parseImmediate(tok.Lexeme); ok {
			tokens[i] = Token{Kind: KindImmediate, Lexeme: tok.Lexeme, Value: v}
			continue
		}

		return fmt.Errorf("%w: %s", ErrUnresolvedSymbol, tok.Lexeme)
	}
	return nil
}

// appendImplicitHalt adds a synthetic Halt instruction when the last
// instruction in the stream isn't already one.
func appendImplicitHalt(tokens []Token) []Token {
	lastOp, ok := lastMnemonicOpcode(tokens)
	if ok && lastOp == OpHalt {
		return tokens
	}
	return append(tokens, Token{Kind: KindMnemonic, Lexeme: "halt"})
}

func lastMnemonicOpcode(tokens []Token) (Opcode, bool) {
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].Kind == KindMnemonic {
			return mnemonicToOpcode[tokens[i].Lexeme], true
		}
	}
	return 0, false
}

// emit walks the resolved token stream and produces one ByteCode
// record per Mnemonic token, consuming the following token as its
// immediate operand iff the opcode requires one.
func emit(tokens []Token) (Program, error) {
	prog := make(Program, 0, len(tokens))

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]

		switch tok.Kind {
		case KindMnemonic:
			op, ok := mnemonicToOpcode[tok.Lexeme]
			if !ok {
				// Unreachable through the normal tokenizer: classify only
				// ever produces KindMnemonic for a known lexeme.
				return nil, fmt.Errorf("%w: %s", ErrUnknownMnemonic, tok.Lexeme)
			}

			var value uint64
			if op.TakesImmediate() {
				i++
				if i >= len(tokens) || tokens[i].Kind != KindImmediate {
					return nil, fmt.Errorf("%w: %s expects an immediate operand", ErrMalformedImmediate, tok.Lexeme)
				}
				value = tokens[i].Value
			}

			prog = append(prog, ByteCode{Op: op, Value: value})

		case KindImmediate, KindName:
			// Reached only when an immediate wasn't consumed as the
			// operand of a preceding mnemonic.
			return nil, fmt.Errorf("%w: %s", ErrOrphanImmediate, tok.Lexeme)

		default:
			return nil, fmt.Errorf("%w: unexpected token %s", ErrUnknownMnemonic, tok.Lexeme)
		}
	}

	return prog, nil
}
