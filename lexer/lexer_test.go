package lexer

import "testing"

func scanAll(t *testing.T, src string) []Token {
	t.Helper()
	l := New([]byte(src))
	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks
		}
	}
}

func TestLexer_MacroKeyword(t *testing.T) {
	toks := scanAll(t, `#buffer b { size=16 }`)
	want := []Kind{Hash, MacroKeyword, Identifier, LBrace, Identifier, Equals, Integer, RBrace, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d kind = %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestLexer_IdentifierNotAfterHash(t *testing.T) {
	// "buffer" not preceded by '#' is a plain identifier, not a macro keyword.
	toks := scanAll(t, `buffer`)
	if toks[0].Kind != Identifier {
		t.Errorf("kind = %v, want Identifier", toks[0].Kind)
	}
}

func TestLexer_DottedIdentifier(t *testing.T) {
	toks := scanAll(t, `canvas.width`)
	want := []Kind{Identifier, Dot, Identifier, EOF}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d kind = %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestLexer_Numbers(t *testing.T) {
	cases := []struct {
		src  string
		kind Kind
	}{
		{"123", Integer},
		{"-5", Integer},
		{"0x7F", Hex},
		{"1.5", Float},
		{"-0.25", Float},
	}
	for _, c := range cases {
		toks := scanAll(t, c.src)
		if toks[0].Kind != c.kind {
			t.Errorf("%q kind = %v, want %v", c.src, toks[0].Kind, c.kind)
		}
		if toks[0].Text([]byte(c.src)) != c.src {
			t.Errorf("%q text = %q", c.src, toks[0].Text([]byte(c.src)))
		}
	}
}

func TestLexer_Boolean(t *testing.T) {
	toks := scanAll(t, `true false`)
	if toks[0].Kind != Boolean || toks[1].Kind != Boolean {
		t.Errorf("got %v %v, want Boolean Boolean", toks[0].Kind, toks[1].Kind)
	}
}

func TestLexer_StringWithEscape(t *testing.T) {
	src := `"4*4 \"nested\""`
	toks := scanAll(t, src)
	if toks[0].Kind != String {
		t.Fatalf("kind = %v, want String", toks[0].Kind)
	}
	if toks[0].Text([]byte(src)) != src {
		t.Errorf("text = %q, want %q", toks[0].Text([]byte(src)), src)
	}
}

func TestLexer_StringSpansLines(t *testing.T) {
	src := "\"line one\nline two\""
	toks := scanAll(t, src)
	if toks[0].Kind != String {
		t.Fatalf("kind = %v, want String", toks[0].Kind)
	}
}

func TestLexer_LineComment(t *testing.T) {
	toks := scanAll(t, "// a comment\nbuffer")
	if len(toks) != 2 || toks[0].Kind != Identifier || toks[1].Kind != EOF {
		t.Fatalf("got %+v", toks)
	}
}

func TestLexer_UnterminatedString(t *testing.T) {
	l := New([]byte(`"unterminated`))
	_, err := l.Next()
	lexErr, ok := err.(*Error)
	if !ok || lexErr.Code != "E001" {
		t.Fatalf("err = %v, want E001", err)
	}
}

func TestLexer_UnknownChar(t *testing.T) {
	l := New([]byte(`@`))
	_, err := l.Next()
	lexErr, ok := err.(*Error)
	if !ok || lexErr.Code != "E003" {
		t.Fatalf("err = %v, want E003", err)
	}
}

func TestLexer_InvalidNumber(t *testing.T) {
	l := New([]byte(`1.5.5`))
	_, err := l.Next()
	if err == nil {
		t.Fatal("expected error for multiple decimal points")
	}
}

// TestLexer_RoundTrip verifies spec.md §8 property 8: writing tokens back
// as text using each token's span reproduces the original source exactly.
func TestLexer_RoundTrip(t *testing.T) {
	src := `#define N=3
#buffer b { size="N*16" usage=[UNIFORM] }
#renderPass r { pipeline=p draw=3 } // trailing comment`
	toks := scanAll(t, src)

	// Reconstruct by filling the gaps between tokens (whitespace/comments)
	// with the original bytes and each token span verbatim.
	var rebuilt []byte
	cursor := 0
	for _, tok := range toks {
		if tok.Kind == EOF {
			rebuilt = append(rebuilt, src[cursor:]...)
			break
		}
		rebuilt = append(rebuilt, src[cursor:tok.Start]...)
		rebuilt = append(rebuilt, []byte(tok.Text([]byte(src)))...)
		cursor = tok.End
	}
	if string(rebuilt) != src {
		t.Errorf("round trip mismatch:\ngot:  %q\nwant: %q", rebuilt, src)
	}
}
