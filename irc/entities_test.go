package irc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChannelModes(t *testing.T) {
	ch := newChannel("#chan", "#chan")

	ch.addMode('n', "", false)
	_, ok := ch.Mode('n')
	require.True(t, ok)

	ch.addMode('k', "secret", false)
	param, ok := ch.Mode('k')
	require.True(t, ok)
	require.Equal(t, "secret", param)

	ch.addMode('b', "*!*@bad.host", true)
	ch.addMode('b', "*!*@evil.host", true)
	require.Equal(t, []string{"*!*@bad.host", "*!*@evil.host"}, ch.ListMode('b'))

	ch.removeMode('b', "*!*@bad.host")
	require.Equal(t, []string{"*!*@evil.host"}, ch.ListMode('b'))

	ch.removeMode('n', "")
	_, ok = ch.Mode('n')
	require.False(t, ok)
}

func TestChannelUserModesNoDuplicateNoReorder(t *testing.T) {
	cu := newChannelUser()
	cu.addMode('o')
	cu.addMode('v')
	cu.addMode('o')
	require.Equal(t, []byte{'o', 'v'}, cu.Modes)
	require.True(t, cu.HasMode('o'))
	require.True(t, cu.HasMode('v'))

	cu.removeMode('o')
	require.Equal(t, []byte{'v'}, cu.Modes)
	require.False(t, cu.HasMode('o'))
}

func TestUserSetNickname(t *testing.T) {
	u := newUser("Nick", "nick")
	u.setNickname("Nick2", "nick2")
	require.Equal(t, "Nick2", u.Nickname)
	require.Equal(t, "nick2", u.NicknameCf)
}
