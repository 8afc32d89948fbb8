package render

import "testing"

func TestHTMLEscapesMarkupCharacters(t *testing.T) {
	got := HTML(`<b>"A" & 'B'</b>`)
	want := Safe(`&lt;b&gt;&quot;A&quot; &amp; &#39;B&#39;&lt;/b&gt;`)
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSafeDoesNotEscape(t *testing.T) {
	got := Safe_("<b>")
	if got != Safe("<b>") {
		t.Fatalf("got %q", got)
	}
}

func TestEscapeIsAliasOfE(t *testing.T) {
	if Escape("<x>") != E("<x>") {
		t.Fatalf("Escape and E diverged")
	}
}

func TestJSONScalarsAndCollections(t *testing.T) {
	cases := map[string]struct {
		in   any
		want string
	}{
		"string": {"hi", `"hi"`},
		"bool":   {true, "true"},
		"int":    {7, "7"},
		"slice":  {[]int{1, 2, 3}, "[1,2,3]"},
		"nilptr": {(*int)(nil), "null"},
	}
	for name, c := range cases {
		if got := string(JSON(c.in)); got != c.want {
			t.Errorf("%s: got %q, want %q", name, got, c.want)
		}
	}
}

func TestLowerUpperTrimCapitalize(t *testing.T) {
	if Lower("ABC") != "abc" {
		t.Fatalf("Lower failed")
	}
	if Upper("abc") != "ABC" {
		t.Fatalf("Upper failed")
	}
	if Trim("  hi  ") != "hi" {
		t.Fatalf("Trim failed")
	}
	if Capitalize("wORLD") != "World" {
		t.Fatalf("Capitalize failed")
	}
	if Capitalize("") != "" {
		t.Fatalf("Capitalize of empty string must stay empty")
	}
}

func TestFormat(t *testing.T) {
	if got := Format("%s has %d items", "cart", 3); got != "cart has 3 items" {
		t.Fatalf("got %q", got)
	}
}

func TestJoinOverSlice(t *testing.T) {
	if got := Join([]string{"a", "b", "c"}, ", "); got != "a, b, c" {
		t.Fatalf("got %q", got)
	}
}

func TestJoinOverNonSliceFallsBackToSprint(t *testing.T) {
	if got := Join(42, ", "); got != "42" {
		t.Fatalf("got %q", got)
	}
}
