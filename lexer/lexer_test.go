package lexer

import "testing"

func TestSplitWhitespace(t *testing.T) {
	cases := []struct {
		in                 string
		lws, body, rws string
	}{
		{"", "", "", ""},
		{"a", "", "a", ""},
		{"\ta", "\t", "a", ""},
		{"b\n", "", "b", "\n"},
		{" \t\r\n", " \t\r\n", "", ""},
	}
	for _, tc := range cases {
		lws, body, rws := SplitWhitespace(tc.in)
		if lws != tc.lws || body != tc.body || rws != tc.rws {
			t.Errorf("SplitWhitespace(%q) = (%q, %q, %q), want (%q, %q, %q)",
				tc.in, lws, body, rws, tc.lws, tc.body, tc.rws)
		}
		if lws+body+rws != tc.in {
			t.Errorf("SplitWhitespace(%q) did not round-trip: got %q", tc.in, lws+body+rws)
		}
	}
}

func TestTakeContentStopsAtDelimiters(t *testing.T) {
	for _, delim := range []string{"{{", "{%", "{#"} {
		src := "hello " + delim + " x"
		c := NewCursor(src)
		lws, body, rws := c.TakeContent()
		if lws != "" || body != "hello" || rws != " " {
			t.Fatalf("delim %q: got (%q,%q,%q)", delim, lws, body, rws)
		}
		if !c.HasPrefix(delim) {
			t.Fatalf("delim %q: cursor not left at delimiter, remaining %q", delim, string(c.Src[c.Pos:]))
		}
	}
}

func TestTakeContentIgnoresLoneBrace(t *testing.T) {
	c := NewCursor("a { b {{ c")
	_, body, _ := c.TakeContent()
	if body != "a { b" {
		t.Fatalf("got body %q", body)
	}
	if !c.HasPrefix("{{") {
		t.Fatalf("cursor not left at {{, remaining %q", string(c.Src[c.Pos:]))
	}
}

func TestTakeContentEmptyTemplate(t *testing.T) {
	c := NewCursor("")
	lws, body, rws := c.TakeContent()
	if lws != "" || body != "" || rws != "" {
		t.Fatalf("got (%q,%q,%q)", lws, body, rws)
	}
}

func TestScanIdentifier(t *testing.T) {
	c := NewCursor("_foo2Bar rest")
	id, ok := c.ScanIdentifier()
	if !ok || id != "_foo2Bar" {
		t.Fatalf("got %q, %v", id, ok)
	}
}

func TestScanNumber(t *testing.T) {
	c := NewCursor("1234abc")
	n, ok := c.ScanNumber()
	if !ok || n != "1234" {
		t.Fatalf("got %q, %v", n, ok)
	}
}

func TestScanStringVerbatim(t *testing.T) {
	c := NewCursor(`"a\nb" rest`)
	s, ok := c.ScanString()
	if !ok || s != `a\nb` {
		t.Fatalf("got %q, %v", s, ok)
	}
}
