package irc

// Emit is the closed set of notifications a Session produces while
// processing a line. Each handler in the dispatch table returns zero or
// more Emits describing what changed; callers type-switch on the concrete
// type to react. The set is closed by an unexported marker method, so no
// package outside irc can add a tenth variant. Naming follows the
// EmitCommand/EmitSelf/... family these variants are grounded on
// (original_source/ircstates/server.py imports "from .emit import *" and
// uses exactly these names), with an "Emit" prefix throughout since Go,
// unlike Python, can't have a package-level User entity type and a
// same-named emit variant coexist in one package.
type Emit interface {
	isEmit()
}

// EmitCommand is emitted first for every line that had a registered
// handler, carrying the raw command word.
type EmitCommand struct {
	Command string
}

func (EmitCommand) isEmit() {}

// EmitSelf is emitted when a line names the local user without the local
// user being the line's prefix source (WHO/WHOIS replies about ourselves).
type EmitSelf struct{}

func (EmitSelf) isEmit() {}

// EmitSourceSelf is emitted when the line's prefix source is the local
// user.
type EmitSourceSelf struct{}

func (EmitSourceSelf) isEmit() {}

// EmitSourceUser is emitted when the line's prefix source resolves to a
// User, whether interned in Session.Users or transiently synthesized (as
// PRIVMSG/NOTICE/TAGMSG sources are, per spec §4.5).
type EmitSourceUser struct {
	User *User
}

func (EmitSourceUser) isEmit() {}

// EmitUser is emitted when a line is about a user other than its source,
// e.g. each member named in a 353 NAMES reply, or a WHO/WHOIS subject.
type EmitUser struct {
	User *User
}

func (EmitUser) isEmit() {}

// EmitChannel is emitted when a line is about a channel.
type EmitChannel struct {
	Channel *Channel
}

func (EmitChannel) isEmit() {}

// EmitTarget carries a message target exactly as received, before
// STATUSMSG prefix stripping or self/channel classification.
type EmitTarget struct {
	Target string
}

func (EmitTarget) isEmit() {}

// EmitTargetSelf is emitted when a line's target resolves to the local
// user.
type EmitTargetSelf struct{}

func (EmitTargetSelf) isEmit() {}

// EmitText carries a human-readable payload: a message body, a part/kick
// reason, or a MOTD line.
type EmitText struct {
	Text string
}

func (EmitText) isEmit() {}
