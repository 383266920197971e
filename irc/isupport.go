package irc

import (
	"strings"
)

// Prefix is the parsed form of the ISUPPORT PREFIX=(modes)sigils token: a
// parallel mapping between channel prefix-mode characters (e.g. 'o') and
// their display sigils (e.g. '@').
type Prefix struct {
	// Modes holds the mode characters in descending rank order, e.g. "ov".
	Modes string
	// Sigils holds the matching sigils in the same order, e.g. "@+".
	Sigils string
}

// ModeFromSigil returns the mode character a leading sigil (as seen in a
// NAMES reply or a STATUSMSG target prefix) decodes to, and whether it
// decoded at all.
func (p Prefix) ModeFromSigil(sigil byte) (mode byte, ok bool) {
	i := strings.IndexByte(p.Sigils, sigil)
	if i < 0 {
		return 0, false
	}
	return p.Modes[i], true
}

// SigilFromMode is the inverse of ModeFromSigil.
func (p Prefix) SigilFromMode(mode byte) (sigil byte, ok bool) {
	i := strings.IndexByte(p.Modes, mode)
	if i < 0 {
		return 0, false
	}
	return p.Sigils[i], true
}

// IsPrefixMode reports whether mode is one of the channel membership modes
// carried by PREFIX.
func (p Prefix) IsPrefixMode(mode byte) bool {
	return strings.IndexByte(p.Modes, mode) >= 0
}

// Chanmodes is the parsed form of the ISUPPORT CHANMODES=A,B,C,D token: the
// four classes of channel mode, distinguished by how they consume
// parameters on set/unset. See spec §4.2.
type Chanmodes struct {
	// List modes (class A) always take a parameter, and the parameter is a
	// list entry (e.g. "b" for bans) rather than a single setting.
	List string
	// SettingB modes (class B) always take a parameter, on both set and
	// unset.
	SettingB string
	// SettingC modes (class C) take a parameter only when being set.
	SettingC string
	// SettingD modes (class D) never take a parameter.
	SettingD string
}

func defaultChanmodes() Chanmodes {
	return Chanmodes{List: "b", SettingB: "k", SettingC: "l", SettingD: "imnpst"}
}

// ISupport accumulates the RPL_ISUPPORT (005) tokens relevant to the state
// tracker: CASEMAPPING, CHANTYPES, STATUSMSG, PREFIX, CHANMODES. A later
// 005 updates values incrementally; the final state wins. Unknown keys are
// ignored.
type ISupport struct {
	Casemapping Casemapping
	Chantypes   string
	Statusmsg   string
	Prefix      Prefix
	Chanmodes   Chanmodes
}

// NewISupport returns an ISupport with the RFC 1459 defaults that apply
// before any 005 line has been seen.
func NewISupport() ISupport {
	return ISupport{
		Casemapping: CasemapRFC1459,
		Chantypes:   "#&",
		Statusmsg:   "",
		Prefix:      Prefix{Modes: "ov", Sigils: "@+"},
		Chanmodes:   defaultChanmodes(),
	}
}

// Tokens feeds a sequence of ISUPPORT tokens (params[1:-1] of a 005 line,
// i.e. with the leading nickname and the trailing human-readable text
// already stripped) into the accumulator.
func (is *ISupport) Tokens(tokens []string) {
	for _, tok := range tokens {
		is.token(tok)
	}
}

func (is *ISupport) token(tok string) {
	if tok == "" {
		return
	}
	// A leading "-" negates a previously-advertised token; this tracker has
	// no use for un-negotiating a feature mid-session, so negations are
	// ignored rather than reverted to a guessed prior value.
	if tok[0] == '-' {
		return
	}

	key, value, _ := strings.Cut(tok, "=")
	switch strings.ToUpper(key) {
	case "CASEMAPPING":
		is.Casemapping = ParseCasemapping(value)
	case "CHANTYPES":
		is.Chantypes = value
	case "STATUSMSG":
		is.Statusmsg = value
	case "PREFIX":
		if p, ok := parsePrefix(value); ok {
			is.Prefix = p
		}
	case "CHANMODES":
		is.Chanmodes = parseChanmodes(value)
	}
}

func parsePrefix(value string) (Prefix, bool) {
	if value == "" {
		return Prefix{}, false
	}
	if value[0] != '(' {
		return Prefix{}, false
	}
	close := strings.IndexByte(value, ')')
	if close < 0 {
		return Prefix{}, false
	}
	modes := value[1:close]
	sigils := value[close+1:]
	if len(modes) != len(sigils) {
		return Prefix{}, false
	}
	return Prefix{Modes: modes, Sigils: sigils}, true
}

func parseChanmodes(value string) Chanmodes {
	classes := strings.SplitN(value, ",", 4)
	out := Chanmodes{}
	if len(classes) > 0 {
		out.List = classes[0]
	}
	if len(classes) > 1 {
		out.SettingB = classes[1]
	}
	if len(classes) > 2 {
		out.SettingC = classes[2]
	}
	if len(classes) > 3 {
		out.SettingD = classes[3]
	}
	return out
}

// classOf reports which CHANMODES class a mode character belongs to, if
// any, and whether the class is "list" (as opposed to a single setting).
func (is ISupport) classOf(mode byte) (isList, isSettingB, isSettingC bool) {
	return strings.IndexByte(is.Chanmodes.List, mode) >= 0,
		strings.IndexByte(is.Chanmodes.SettingB, mode) >= 0,
		strings.IndexByte(is.Chanmodes.SettingC, mode) >= 0
}

// linelen and similar advisory limits are not tracked: this tracker's scope
// for ISupport is casemap/chantypes/statusmsg/prefix/chanmodes only.
