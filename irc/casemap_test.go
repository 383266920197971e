package irc

import "testing"

func TestCasefold(t *testing.T) {
	cases := []struct {
		mapping Casemapping
		in      string
		want    string
	}{
		{CasemapASCII, "NiCK^{}|", "nick^{}|"},
		{CasemapRFC1459Strict, "NiCK^{}|", "nick^[]\\"},
		{CasemapRFC1459, "NiCK^{}|", "nick~[]\\"},
	}
	for _, c := range cases {
		if got := Casefold(c.mapping, c.in); got != c.want {
			t.Errorf("Casefold(%v, %q) = %q, want %q", c.mapping, c.in, got, c.want)
		}
	}
}

func TestParseCasemapping(t *testing.T) {
	cases := map[string]Casemapping{
		"ascii":          CasemapASCII,
		"rfc1459-strict": CasemapRFC1459Strict,
		"rfc1459":        CasemapRFC1459,
		"":               CasemapRFC1459,
		"bogus":          CasemapRFC1459,
	}
	for in, want := range cases {
		if got := ParseCasemapping(in); got != want {
			t.Errorf("ParseCasemapping(%q) = %v, want %v", in, got, want)
		}
	}
}
