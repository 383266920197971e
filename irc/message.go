package irc

import (
	"bytes"
	"strings"

	ircv3 "gopkg.in/irc.v3"
)

// Hostmask is the decomposed form of an IRC message prefix: nick!user@host.
// Username and Hostname are optional because server-sourced lines (e.g.
// "irc.example.net") carry only a name. Named Hostmask rather than Prefix
// to avoid colliding with the ISUPPORT PREFIX=(modes)sigils mapping
// (see isupport.go).
type Hostmask struct {
	Nickname string
	Username string
	Hostname string
}

func hostmaskFromIRC(p *ircv3.Prefix) Hostmask {
	if p == nil {
		return Hostmask{}
	}
	return Hostmask{Nickname: p.Name, Username: p.User, Hostname: p.Host}
}

// ParseHostmask decomposes a raw "nick!user@host" (or a bare server name,
// or a partial "nick@host"/"nick!user") token into a Hostmask, delegating
// to gopkg.in/irc.v3's own prefix grammar so a 353 NAMES entry is parsed
// exactly the way a line's own source prefix is.
func ParseHostmask(raw string) Hostmask {
	return hostmaskFromIRC(ircv3.ParsePrefix(raw))
}

// String renders the hostmask the way a server would: "nick!user@host"
// when both username and hostname are known, or the bare nickname
// otherwise. Used for Channel.TopicSetBy on a live TOPIC line, where the
// spec calls for "str(source hostmask)".
func (h Hostmask) String() string {
	if h.Username == "" || h.Hostname == "" {
		return h.Nickname
	}
	return h.Nickname + "!" + h.Username + "@" + h.Hostname
}

// Line is a single parsed IRC message: a source (possibly zero-value, for
// server-originated lines with no nick!user@host prefix), a command word,
// and its parameters. It is the boundary shape Session.ParseTokens
// consumes; Message/Prefix parsing itself is delegated to gopkg.in/irc.v3.
type Line struct {
	Source  Hostmask
	Command string
	Params  []string
	// Tags holds IRCv3 message tags, keyed verbatim (no '+' client-only
	// prefix stripped).
	Tags map[string]string
}

// Param returns the i'th parameter, or "" if the line has fewer than i+1
// parameters.
func (l Line) Param(i int) string {
	if i < 0 || i >= len(l.Params) {
		return ""
	}
	return l.Params[i]
}

// ParseLine parses a single raw IRC line (no trailing CR/LF) using
// gopkg.in/irc.v3's message grammar.
func ParseLine(raw string) (Line, error) {
	msg, err := ircv3.ParseMessage(raw)
	if err != nil {
		return Line{}, err
	}
	tags := make(map[string]string, len(msg.Tags))
	for k, v := range msg.Tags {
		tags[string(k)] = string(v)
	}
	return Line{
		Source:  hostmaskFromIRC(msg.Prefix),
		Command: strings.ToUpper(msg.Command),
		Params:  msg.Params,
		Tags:    tags,
	}, nil
}

// StatefulDecoder accumulates bytes delivered across successive Recv calls
// and yields whole lines as soon as a terminator is seen, mirroring the
// buffered-read loop of CyberFlameGO-senpai/irc/states.go but adapted to
// push-style input: callers hand it chunks as they arrive rather than
// handing it an io.Reader to pull from.
type StatefulDecoder struct {
	buf []byte
}

// Feed appends chunk to the internal buffer and extracts every complete
// line now available, in order. A line is terminated by "\n", with any
// trailing "\r" stripped; an empty line is skipped, matching real server
// behavior around keepalive blank lines.
func (d *StatefulDecoder) Feed(chunk []byte) []string {
	d.buf = append(d.buf, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		raw := d.buf[:i]
		d.buf = d.buf[i+1:]
		if n := len(raw); n > 0 && raw[n-1] == '\r' {
			raw = raw[:n-1]
		}
		if len(raw) == 0 {
			continue
		}
		lines = append(lines, string(raw))
	}
	return lines
}
