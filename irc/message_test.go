package irc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	line, err := ParseLine(":nick!user@host PRIVMSG #chan :hello there")
	require.NoError(t, err)
	require.Equal(t, "nick", line.Source.Nickname)
	require.Equal(t, "user", line.Source.Username)
	require.Equal(t, "host", line.Source.Hostname)
	require.Equal(t, "PRIVMSG", line.Command)
	require.Equal(t, []string{"#chan", "hello there"}, line.Params)
}

func TestParseLineServerSource(t *testing.T) {
	line, err := ParseLine(":irc.example.net 001 me :Welcome")
	require.NoError(t, err)
	require.Equal(t, "irc.example.net", line.Source.Nickname)
	require.Equal(t, "", line.Source.Username)
	require.Equal(t, "001", line.Command)
}

func TestParseHostmask(t *testing.T) {
	hm := ParseHostmask("nick!user@host")
	require.Equal(t, Hostmask{Nickname: "nick", Username: "user", Hostname: "host"}, hm)
	require.Equal(t, "nick!user@host", hm.String())

	bare := ParseHostmask("nick")
	require.Equal(t, "nick", bare.String())
}

func TestStatefulDecoderFeedSplitAcrossChunks(t *testing.T) {
	var d StatefulDecoder

	lines := d.Feed([]byte("PING :1\r\nPIN"))
	require.Equal(t, []string{"PING :1"}, lines)

	lines = d.Feed([]byte("G :2\r\n\r\nQUIT\n"))
	require.Equal(t, []string{"PING :2", "QUIT"}, lines)
}
