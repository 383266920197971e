package irc

import "time"

// User is a known IRC user: either the local user, or a remote user visible
// through at least one joined channel (spec §3 lifecycle rule).
type User struct {
	// Nickname is the display form, as last seen on the wire.
	Nickname string
	// NicknameCf is the casefolded form, and the key this user is stored
	// under in Session.Users().
	NicknameCf string

	Username string
	Hostname string
	Realname string
	Account  string
	Away     string
}

func newUser(nickname, nicknameCf string) *User {
	return &User{Nickname: nickname, NicknameCf: nicknameCf}
}

func (u *User) setNickname(nickname, nicknameCf string) {
	u.Nickname = nickname
	u.NicknameCf = nicknameCf
}

// Channel is a channel the local user has joined.
type Channel struct {
	// Name is the display form, as received on JOIN.
	Name string
	// NameCf is the casefolded form, and the key this channel is stored
	// under in Session.Channels().
	NameCf string

	Topic      string
	TopicSetBy string
	TopicTime  time.Time
	Created    time.Time

	// modes holds the simple (non-list) modes currently set, keyed by mode
	// character; the value is the mode's parameter, or "" if it takes none.
	modes map[byte]string
	// listModes holds list-type (CHANMODES class A) modes, keyed by mode
	// character, each with its accumulated parameter list.
	listModes map[byte][]string
}

func newChannel(name, nameCf string) *Channel {
	return &Channel{
		Name:      name,
		NameCf:    nameCf,
		modes:     map[byte]string{},
		listModes: map[byte][]string{},
	}
}

// Mode returns the parameter associated with a simple channel mode, and
// whether it is set at all.
func (c *Channel) Mode(mode byte) (param string, ok bool) {
	param, ok = c.modes[mode]
	return
}

// ListMode returns the accumulated parameter list for a list-type channel
// mode (e.g. ban masks for 'b').
func (c *Channel) ListMode(mode byte) []string {
	return c.listModes[mode]
}

// addMode records a mode being set. When list is true, param is appended to
// the mode's list (entries are not deduplicated: servers are trusted not to
// re-announce an existing list entry). When list is false, param (possibly
// empty) replaces the single stored value for mode.
func (c *Channel) addMode(mode byte, param string, list bool) {
	if list {
		c.listModes[mode] = append(c.listModes[mode], param)
		return
	}
	c.modes[mode] = param
}

// removeMode records a mode being unset. With a non-empty param, only that
// entry is removed from the mode's list; a simple mode stored under the
// same character (e.g. a class B key set via addMode with list false) is
// left set. With an empty param, the simple mode is cleared outright.
func (c *Channel) removeMode(mode byte, param string) {
	if param == "" {
		delete(c.modes, mode)
		return
	}
	entries := c.listModes[mode]
	for i, e := range entries {
		if e == param {
			c.listModes[mode] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// ChannelUser is one user's membership in one channel: the mode list they
// currently hold there (e.g. "ov" for an op who is also voiced), in
// first-seen order. ChannelUser holds no reference to its Channel or User
// by design (spec §9): the owning Session's channel_users/user_channels
// maps are the only place that association lives, so there is no ownership
// cycle to break.
type ChannelUser struct {
	// Modes holds the prefix-mode characters currently held, in the order
	// they were first observed.
	Modes []byte
}

func newChannelUser() *ChannelUser {
	return &ChannelUser{}
}

// HasMode reports whether mode is currently held.
func (cu *ChannelUser) HasMode(mode byte) bool {
	for _, m := range cu.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

func (cu *ChannelUser) addMode(mode byte) {
	if !cu.HasMode(mode) {
		cu.Modes = append(cu.Modes, mode)
	}
}

func (cu *ChannelUser) removeMode(mode byte) {
	for i, m := range cu.Modes {
		if m == mode {
			cu.Modes = append(cu.Modes[:i], cu.Modes[i+1:]...)
			return
		}
	}
}
