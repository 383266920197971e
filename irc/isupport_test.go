package irc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestISupportDefaults(t *testing.T) {
	is := NewISupport()
	require.Equal(t, CasemapRFC1459, is.Casemapping)
	require.Equal(t, "#&", is.Chantypes)
	require.Equal(t, Prefix{Modes: "ov", Sigils: "@+"}, is.Prefix)
	require.Equal(t, Chanmodes{List: "b", SettingB: "k", SettingC: "l", SettingD: "imnpst"}, is.Chanmodes)
}

func TestISupportTokensIncremental(t *testing.T) {
	is := NewISupport()
	is.Tokens([]string{"CASEMAPPING=ascii", "CHANTYPES=#"})
	require.Equal(t, CasemapASCII, is.Casemapping)
	require.Equal(t, "#", is.Chantypes)

	is.Tokens([]string{"PREFIX=(qaohv)~&@%+", "CHANMODES=eIb,k,l,imnpst"})
	require.Equal(t, Prefix{Modes: "qaohv", Sigils: "~&@%+"}, is.Prefix)
	require.Equal(t, Chanmodes{List: "eIb", SettingB: "k", SettingC: "l", SettingD: "imnpst"}, is.Chanmodes)
}

func TestISupportTokensIdempotent(t *testing.T) {
	is1 := NewISupport()
	is1.Tokens([]string{"CASEMAPPING=ascii", "PREFIX=(ov)@+"})

	is2 := NewISupport()
	is2.Tokens([]string{"CASEMAPPING=ascii", "PREFIX=(ov)@+"})
	is2.Tokens([]string{"CASEMAPPING=ascii", "PREFIX=(ov)@+"})

	require.Equal(t, is1, is2)
}

func TestISupportEmptyPrefixTokenPreservesPrior(t *testing.T) {
	is := NewISupport()
	is.Tokens([]string{"PREFIX=(qaohv)~&@%+"})
	require.Equal(t, Prefix{Modes: "qaohv", Sigils: "~&@%+"}, is.Prefix)

	is.Tokens([]string{"PREFIX="})
	require.Equal(t, Prefix{Modes: "qaohv", Sigils: "~&@%+"}, is.Prefix)
}

func TestISupportUnknownAndNegatedTokensIgnored(t *testing.T) {
	is := NewISupport()
	is.Tokens([]string{"BOGUS=1", "-CHANTYPES", ""})
	require.Equal(t, NewISupport(), is)
}

func TestPrefixLookups(t *testing.T) {
	p := Prefix{Modes: "ov", Sigils: "@+"}

	mode, ok := p.ModeFromSigil('@')
	require.True(t, ok)
	require.Equal(t, byte('o'), mode)

	sigil, ok := p.SigilFromMode('v')
	require.True(t, ok)
	require.Equal(t, byte('+'), sigil)

	_, ok = p.ModeFromSigil('!')
	require.False(t, ok)

	require.True(t, p.IsPrefixMode('o'))
	require.False(t, p.IsPrefixMode('b'))
}
