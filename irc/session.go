package irc

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrDisconnected is returned by Recv when the byte decoder has signaled
// that the underlying stream ended (an empty chunk, by this tracker's
// convention — see DESIGN.md's Open Question decisions). No further state
// is mutated once this is returned; everything accumulated so far remains
// readable through the accessors below.
var ErrDisconnected = errors.New("irc: disconnected")

// handlerFunc is one registration in the dispatch table: it mutates the
// Session according to one already-tokenized line and returns the Emits
// that describe the mutation (not yet prefixed with EmitCommand; Session
// adds that).
type handlerFunc func(*Session, Line) []Emit

// lineHandlers is the command-word-keyed dispatch table, grounded on
// original_source/ircstates/server.py's LINE_HANDLERS registry (and, in
// Go idiom, lrstanley-girc's Caller/nestedHandlers and
// belak-seabird-state's BasicMux.Event registrations). Multiple handlers
// per command word are preserved deliberately: "375" registers both the
// MOTD-buffer-clear handler and the MOTD-line-append handler, exactly as
// the source composes them.
var lineHandlers = map[string][]handlerFunc{
	"001":     {handleWelcome},
	"005":     {handleISupport},
	"375":     {handleMotdClear, handleMotdAppend},
	"372":     {handleMotdAppend},
	"NICK":    {handleNick},
	"JOIN":    {handleJoin},
	"PART":    {handlePart},
	"KICK":    {handleKick},
	"QUIT":    {handleQuit},
	"ERROR":   {handleSessionError},
	"353":     {handleNames},
	"329":     {handleChannelCreated},
	"TOPIC":   {handleTopic},
	"332":     {handleTopicText},
	"333":     {handleTopicSetBy},
	"MODE":    {handleMode},
	"324":     {handleChannelModes},
	"211":     {handleUserModesReply},
	"PRIVMSG": {handleMessage},
	"NOTICE":  {handleMessage},
	"TAGMSG":  {handleMessage},
	"396":     {handleHostHidden},
	"352":     {handleWho},
	"311":     {handleWhois},
	"CHGHOST": {handleChghost},
	"SETNAME": {handleSetname},
	"AWAY":    {handleAway},
	"ACCOUNT": {handleAccount},
	"CAP":     {handleCap},
}

// Session is the full state of one tracked IRC connection: the local
// identity, the MOTD buffer, the negotiated ISUPPORT and capability sets,
// and the four cross-indexed maps describing which users are visible
// through which joined channels (spec §3). It is single-threaded and
// fully synchronous: Recv/ParseTokens are the only mutators, and neither
// suspends or retains a reference to the input after returning.
type Session struct {
	name string

	nickname   string
	nicknameCf string

	username string
	hostname string
	realname string
	account  string
	away     string

	modes map[byte]struct{}
	motd  []string

	users        map[string]*User
	channels     map[string]*Channel
	userChannels map[*User]map[*Channel]struct{}
	channelUsers map[*Channel]map[*User]*ChannelUser

	isupport ISupport

	tempCaps  map[string]*string
	caps      map[string]*string
	agreedCaps []string

	decoder StatefulDecoder
}

// NewSession constructs a Session for a connection named name. The name is
// carried through unchanged (it is not derived from the first "001" line)
// and surfaces only via String, matching the original's
// Server.__init__(self, name) / __repr__ pair.
func NewSession(name string) *Session {
	return &Session{
		name:         name,
		isupport:     NewISupport(),
		modes:        map[byte]struct{}{},
		users:        map[string]*User{},
		channels:     map[string]*Channel{},
		userChannels: map[*User]map[*Channel]struct{}{},
		channelUsers: map[*Channel]map[*User]*ChannelUser{},
	}
}

// String implements fmt.Stringer for debugging and test failure output.
func (s *Session) String() string {
	return fmt.Sprintf("Session(name=%q)", s.name)
}

// Recv feeds newly-received bytes through the byte-stream decoder and
// dispatches every whole line it yields, returning the parsed lines in
// byte-stream order. Malformed lines (ones gopkg.in/irc.v3 itself can't
// parse) are skipped rather than surfaced, per the tokenizer being an
// external, trusted boundary (spec §7). By this tracker's convention, an
// empty chunk is the caller's signal that the underlying stream has
// closed; Recv returns ErrDisconnected in that case without touching any
// other state.
func (s *Session) Recv(data []byte) ([]Line, error) {
	if len(data) == 0 {
		return nil, ErrDisconnected
	}

	raws := s.decoder.Feed(data)
	lines := make([]Line, 0, len(raws))
	for _, raw := range raws {
		line, err := ParseLine(raw)
		if err != nil {
			continue
		}
		lines = append(lines, line)
		s.ParseTokens(line)
	}
	return lines, nil
}

// ParseTokens advances the session state machine from a single
// already-tokenized line (bypassing the byte decoder) and returns the full
// Emit sequence for it: EmitCommand followed by that handler's own Emits,
// concatenated across every handler registered for the line's command
// word. Unknown commands produce no Emits and no mutation.
func (s *Session) ParseTokens(line Line) []Emit {
	handlers, ok := lineHandlers[line.Command]
	if !ok {
		return nil
	}

	var all []Emit
	for _, h := range handlers {
		all = append(all, EmitCommand{Command: line.Command})
		all = append(all, h(s, line)...)
	}
	return all
}

// --- read-only accessors (spec §6) ---

func (s *Session) Nickname() string       { return s.nickname }
func (s *Session) NicknameFolded() string { return s.nicknameCf }
func (s *Session) Username() string       { return s.username }
func (s *Session) Hostname() string       { return s.hostname }
func (s *Session) Realname() string       { return s.realname }
func (s *Session) Account() string        { return s.account }
func (s *Session) Away() string           { return s.away }

// Modes returns the local user's mode characters, sorted for a
// deterministic read (the underlying set has no order of its own).
func (s *Session) Modes() []byte {
	out := make([]byte, 0, len(s.modes))
	for m := range s.modes {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Motd returns the text lines accumulated since the most recent "375".
func (s *Session) Motd() []string { return s.motd }

func (s *Session) Users() map[string]*User       { return s.users }
func (s *Session) Channels() map[string]*Channel { return s.channels }

func (s *Session) UserChannels() map[*User]map[*Channel]struct{} { return s.userChannels }
func (s *Session) ChannelUsers() map[*Channel]map[*User]*ChannelUser {
	return s.channelUsers
}

func (s *Session) ISupport() ISupport { return s.isupport }

// Caps returns the advertised capability set, or nil if no complete CAP LS
// has been seen yet ("caps is None" in spec terms).
func (s *Session) Caps() map[string]*string { return s.caps }

// AgreedCaps returns the capabilities currently ACKed, in ACK order.
func (s *Session) AgreedCaps() []string { return s.agreedCaps }

// --- helpers (spec §6) ---

// Casefold folds s under the session's current casemapping.
func (s *Session) Casefold(str string) string {
	return Casefold(s.isupport.Casemapping, str)
}

// CasefoldEquals reports whether a and b fold to the same canonical form.
func (s *Session) CasefoldEquals(a, b string) bool {
	return s.Casefold(a) == s.Casefold(b)
}

// IsChannel reports whether target's first byte is one of the server's
// advertised CHANTYPES.
func (s *Session) IsChannel(target string) bool {
	return len(target) > 0 && strings.IndexByte(s.isupport.Chantypes, target[0]) >= 0
}

func (s *Session) HasUser(nick string) bool {
	_, ok := s.users[s.Casefold(nick)]
	return ok
}

func (s *Session) HasChannel(name string) bool {
	_, ok := s.channels[s.Casefold(name)]
	return ok
}

func (s *Session) GetChannel(name string) (*Channel, bool) {
	c, ok := s.channels[s.Casefold(name)]
	return c, ok
}

// --- internal membership/lifecycle plumbing ---

// userJoin records user as a member of channel, creating the ChannelUser
// the first time the pair is seen and reusing it on any subsequent call
// (e.g. a second 353 line naming the same member) so an in-progress mode
// list is never reset out from under itself — spec §3's "a membership
// creation never duplicates an existing ChannelUser".
func (s *Session) userJoin(channel *Channel, user *User) *ChannelUser {
	roster := s.channelUsers[channel]
	if roster == nil {
		roster = map[*User]*ChannelUser{}
		s.channelUsers[channel] = roster
	}
	cu, ok := roster[user]
	if !ok {
		cu = newChannelUser()
		roster[user] = cu
	}

	memberships := s.userChannels[user]
	if memberships == nil {
		memberships = map[*Channel]struct{}{}
		s.userChannels[user] = memberships
	}
	memberships[channel] = struct{}{}

	return cu
}

// clearAll empties all four cross-indexed maps, used on a self QUIT or
// ERROR (spec §4.5).
func (s *Session) clearAll() {
	s.users = map[string]*User{}
	s.channels = map[string]*Channel{}
	s.userChannels = map[*User]map[*Channel]struct{}{}
	s.channelUsers = map[*Channel]map[*User]*ChannelUser{}
}

// forgetMembership removes user from channel's roster and channel from the
// user's memberships. When that was the user's last membership, the user
// is also removed from the users map.
func (s *Session) forgetMembership(user *User, channel *Channel) {
	if roster := s.channelUsers[channel]; roster != nil {
		delete(roster, user)
	}
	if memberships := s.userChannels[user]; memberships != nil {
		delete(memberships, channel)
		if len(memberships) == 0 {
			delete(s.userChannels, user)
			delete(s.users, user.NicknameCf)
		}
	}
}

func stripStar(s string) string {
	return strings.Trim(s, "*")
}

// --- command handlers (spec §4.5) ---

func handleWelcome(s *Session, line Line) []Emit {
	if len(line.Params) < 1 {
		return nil
	}
	s.nickname = line.Params[0]
	s.nicknameCf = s.Casefold(s.nickname)
	return nil
}

func handleISupport(s *Session, line Line) []Emit {
	if len(line.Params) < 2 {
		return nil
	}
	s.isupport.Tokens(line.Params[1 : len(line.Params)-1])
	return nil
}

func handleMotdClear(s *Session, line Line) []Emit {
	s.motd = nil
	return nil
}

func handleMotdAppend(s *Session, line Line) []Emit {
	if len(line.Params) < 2 {
		return nil
	}
	text := line.Params[1]
	s.motd = append(s.motd, text)
	return []Emit{EmitText{Text: text}}
}

func handleNick(s *Session, line Line) []Emit {
	if line.Source.Nickname == "" || len(line.Params) < 1 {
		return nil
	}

	oldCf := s.Casefold(line.Source.Nickname)
	newNick := line.Params[0]
	newCf := s.Casefold(newNick)

	var emits []Emit
	if user, ok := s.users[oldCf]; ok {
		delete(s.users, oldCf)
		user.setNickname(newNick, newCf)
		s.users[newCf] = user
		emits = append(emits, EmitSourceUser{User: user})
	}
	if oldCf == s.nicknameCf {
		emits = append(emits, EmitSourceSelf{})
		s.nickname = newNick
		s.nicknameCf = newCf
	}
	return emits
}

func handleJoin(s *Session, line Line) []Emit {
	if line.Source.Nickname == "" || len(line.Params) < 1 {
		return nil
	}

	channelDisp := line.Params[0]
	channelCf := s.Casefold(channelDisp)
	nickCf := s.Casefold(line.Source.Nickname)

	extended := len(line.Params) == 3
	var account, realname string
	if extended {
		account = stripStar(line.Params[1])
		realname = line.Params[2]
	}

	var emits []Emit
	if nickCf == s.nicknameCf {
		emits = append(emits, EmitSourceSelf{})
		if _, ok := s.channels[channelCf]; !ok {
			ch := newChannel(channelDisp, channelCf)
			s.channels[channelCf] = ch
			s.channelUsers[ch] = map[*User]*ChannelUser{}
		}
		if line.Source.Username != "" {
			s.username = line.Source.Username
		}
		if line.Source.Hostname != "" {
			s.hostname = line.Source.Hostname
		}
		if extended {
			s.account = account
			s.realname = realname
		}
	}

	if ch, ok := s.channels[channelCf]; ok {
		emits = append(emits, EmitChannel{Channel: ch})

		user, ok := s.users[nickCf]
		if !ok {
			user = newUser(line.Source.Nickname, nickCf)
			s.users[nickCf] = user
		}
		emits = append(emits, EmitSourceUser{User: user})
		if line.Source.Username != "" {
			user.Username = line.Source.Username
		}
		if line.Source.Hostname != "" {
			user.Hostname = line.Source.Hostname
		}
		if extended {
			user.Account = account
			user.Realname = realname
		}

		s.userJoin(ch, user)
	}
	return emits
}

// handlePartCommon is the shared PART/KICK routine (spec §4.5).
func handlePartCommon(s *Session, nickname, channelName string, reason string, hasReason bool) []Emit {
	if channelName == "" {
		return nil
	}
	channelCf := s.Casefold(channelName)

	var emits []Emit
	if hasReason {
		emits = append(emits, EmitText{Text: reason})
	}

	ch, ok := s.channels[channelCf]
	if !ok {
		return emits
	}
	emits = append(emits, EmitChannel{Channel: ch})

	nickCf := s.Casefold(nickname)
	if nickCf == s.nicknameCf {
		emits = append(emits, EmitSourceSelf{})
		delete(s.channels, channelCf)
		roster := s.channelUsers[ch]
		delete(s.channelUsers, ch)
		for u := range roster {
			memberships := s.userChannels[u]
			delete(memberships, ch)
			if len(memberships) == 0 {
				delete(s.userChannels, u)
				delete(s.users, u.NicknameCf)
			}
		}
		return emits
	}

	if user, ok := s.users[nickCf]; ok {
		emits = append(emits, EmitSourceUser{User: user})
		s.forgetMembership(user, ch)
	}
	return emits
}

func handlePart(s *Session, line Line) []Emit {
	if line.Source.Nickname == "" || len(line.Params) < 1 {
		return nil
	}
	reason := ""
	hasReason := len(line.Params) > 1
	if hasReason {
		reason = line.Params[1]
	}
	return handlePartCommon(s, line.Source.Nickname, line.Params[0], reason, hasReason)
}

func handleKick(s *Session, line Line) []Emit {
	if len(line.Params) < 2 {
		return nil
	}
	reason := ""
	hasReason := len(line.Params) > 2
	if hasReason {
		reason = line.Params[2]
	}
	return handlePartCommon(s, line.Params[1], line.Params[0], reason, hasReason)
}

func handleQuit(s *Session, line Line) []Emit {
	nickCf := s.Casefold(line.Source.Nickname)

	var emits []Emit
	if len(line.Params) > 0 {
		emits = append(emits, EmitText{Text: line.Params[0]})
	}

	if nickCf == s.nicknameCf {
		emits = append(emits, EmitSourceSelf{})
		s.clearAll()
		return emits
	}

	if user, ok := s.users[nickCf]; ok {
		delete(s.users, nickCf)
		emits = append(emits, EmitSourceUser{User: user})
		for ch := range s.userChannels[user] {
			delete(s.channelUsers[ch], user)
		}
		delete(s.userChannels, user)
	}
	return emits
}

func handleSessionError(s *Session, line Line) []Emit {
	s.clearAll()
	return nil
}

func peelPrefixSigils(p Prefix, entry string) (modes []byte, rest string) {
	i := 0
	for i < len(entry) {
		mode, ok := p.ModeFromSigil(entry[i])
		if !ok {
			break
		}
		modes = append(modes, mode)
		i++
	}
	return modes, entry[i:]
}

func handleNames(s *Session, line Line) []Emit {
	if len(line.Params) < 4 {
		return nil
	}
	ch, ok := s.channels[s.Casefold(line.Params[2])]
	if !ok {
		return nil
	}

	emits := []Emit{EmitChannel{Channel: ch}}
	for _, entry := range strings.Fields(line.Params[3]) {
		modes, rest := peelPrefixSigils(s.isupport.Prefix, entry)
		hm := ParseHostmask(rest)
		nickCf := s.Casefold(hm.Nickname)

		user, ok := s.users[nickCf]
		if !ok {
			user = newUser(hm.Nickname, nickCf)
			s.users[nickCf] = user
		}
		emits = append(emits, EmitUser{User: user})

		cu := s.userJoin(ch, user)

		if hm.Username != "" {
			user.Username = hm.Username
			if nickCf == s.nicknameCf {
				s.username = hm.Username
			}
		}
		if hm.Hostname != "" {
			user.Hostname = hm.Hostname
			if nickCf == s.nicknameCf {
				s.hostname = hm.Hostname
			}
		}

		for _, m := range modes {
			cu.addMode(m)
		}
	}
	return emits
}

func handleChannelCreated(s *Session, line Line) []Emit {
	if len(line.Params) < 3 {
		return nil
	}
	ch, ok := s.channels[s.Casefold(line.Params[1])]
	if !ok {
		return nil
	}
	if ts, err := strconv.ParseInt(line.Params[2], 10, 64); err == nil {
		ch.Created = time.Unix(ts, 0).UTC()
	}
	return []Emit{EmitChannel{Channel: ch}}
}

func handleTopic(s *Session, line Line) []Emit {
	if line.Source.Nickname == "" || len(line.Params) < 2 {
		return nil
	}
	ch, ok := s.channels[s.Casefold(line.Params[0])]
	if !ok {
		return nil
	}
	ch.Topic = line.Params[1]
	ch.TopicSetBy = line.Source.String()
	ch.TopicTime = time.Now().UTC()
	return []Emit{EmitChannel{Channel: ch}}
}

func handleTopicText(s *Session, line Line) []Emit {
	if len(line.Params) < 3 {
		return nil
	}
	ch, ok := s.channels[s.Casefold(line.Params[1])]
	if !ok {
		return nil
	}
	ch.Topic = line.Params[2]
	return []Emit{EmitChannel{Channel: ch}}
}

func handleTopicSetBy(s *Session, line Line) []Emit {
	if len(line.Params) < 4 {
		return nil
	}
	ch, ok := s.channels[s.Casefold(line.Params[1])]
	if !ok {
		return nil
	}
	ch.TopicSetBy = line.Params[2]
	if ts, err := strconv.ParseInt(line.Params[3], 10, 64); err == nil {
		ch.TopicTime = time.Unix(ts, 0).UTC()
	}
	return []Emit{EmitChannel{Channel: ch}}
}

type modeChange struct {
	Add  bool
	Char byte
}

// parseModeChars splits a MODE string like "+o-v" into (add, char) pairs,
// with an initial implied "+" (spec §4.5).
func parseModeChars(modeStr string) []modeChange {
	add := true
	var out []modeChange
	for i := 0; i < len(modeStr); i++ {
		switch modeStr[i] {
		case '+':
			add = true
		case '-':
			add = false
		default:
			out = append(out, modeChange{Add: add, Char: modeStr[i]})
		}
	}
	return out
}

func (s *Session) applyUserModes(changes []modeChange) {
	for _, c := range changes {
		if c.Add {
			s.modes[c.Char] = struct{}{}
		} else {
			delete(s.modes, c.Char)
		}
	}
}

// applyChannelModes is the shared MODE/324 routine (spec §4.5's table).
func (s *Session) applyChannelModes(ch *Channel, changes []modeChange, params *[]string) {
	pop := func() (string, bool) {
		if len(*params) == 0 {
			return "", false
		}
		p := (*params)[0]
		*params = (*params)[1:]
		return p, true
	}

	for _, c := range changes {
		if s.isupport.Prefix.IsPrefixMode(c.Char) {
			nick, ok := pop()
			if !ok {
				continue
			}
			user, ok := s.users[s.Casefold(nick)]
			if !ok {
				continue
			}
			cu, ok := s.channelUsers[ch][user]
			if !ok {
				continue
			}
			if c.Add {
				cu.addMode(c.Char)
			} else {
				cu.removeMode(c.Char)
			}
			continue
		}

		isList, isB, isC := s.isupport.classOf(c.Char)

		if c.Add && (isList || isB || isC) {
			param, ok := pop()
			if !ok {
				continue
			}
			ch.addMode(c.Char, param, isList)
			continue
		}
		if !c.Add && (isList || isB) {
			param, ok := pop()
			if !ok {
				continue
			}
			ch.removeMode(c.Char, param)
			continue
		}
		if !c.Add && isC {
			// Class C modes take no parameter on unset and have no effect:
			// the channel stays set from whenever it was last enabled.
			continue
		}
		if c.Add {
			ch.addMode(c.Char, "", false)
		} else {
			ch.removeMode(c.Char, "")
		}
	}
}

func handleMode(s *Session, line Line) []Emit {
	if len(line.Params) < 2 {
		return nil
	}
	target := line.Params[0]
	changes := parseModeChars(line.Params[1])
	targetCf := s.Casefold(target)

	if targetCf == s.nicknameCf {
		s.applyUserModes(changes)
		return []Emit{EmitTargetSelf{}}
	}

	ch, ok := s.channels[targetCf]
	if !ok {
		return nil
	}
	params := append([]string(nil), line.Params[2:]...)
	s.applyChannelModes(ch, changes, &params)
	return []Emit{EmitChannel{Channel: ch}}
}

func handleChannelModes(s *Session, line Line) []Emit {
	if len(line.Params) < 3 {
		return nil
	}
	ch, ok := s.channels[s.Casefold(line.Params[1])]
	if !ok {
		return nil
	}

	letters := strings.TrimLeft(line.Params[2], "+")
	changes := make([]modeChange, 0, len(letters))
	for i := 0; i < len(letters); i++ {
		changes = append(changes, modeChange{Add: true, Char: letters[i]})
	}
	params := append([]string(nil), line.Params[3:]...)
	s.applyChannelModes(ch, changes, &params)
	return []Emit{EmitChannel{Channel: ch}}
}

func handleUserModesReply(s *Session, line Line) []Emit {
	if len(line.Params) < 2 {
		return nil
	}
	letters := strings.TrimLeft(line.Params[1], "+")
	for i := 0; i < len(letters); i++ {
		s.modes[letters[i]] = struct{}{}
	}
	return nil
}

func handleMessage(s *Session, line Line) []Emit {
	if len(line.Params) < 1 || line.Source.Nickname == "" {
		return nil
	}

	var emits []Emit
	if len(line.Params) >= 2 {
		emits = append(emits, EmitText{Text: line.Params[1]})
	}

	nickCf := s.Casefold(line.Source.Nickname)
	if nickCf == s.nicknameCf {
		emits = append(emits, EmitSourceSelf{})
		if line.Source.Username != "" {
			s.username = line.Source.Username
		}
		if line.Source.Hostname != "" {
			s.hostname = line.Source.Hostname
		}
	}

	user, ok := s.users[nickCf]
	if !ok {
		user = newUser(line.Source.Nickname, nickCf)
	}
	emits = append(emits, EmitSourceUser{User: user})
	if line.Source.Username != "" {
		user.Username = line.Source.Username
	}
	if line.Source.Hostname != "" {
		user.Hostname = line.Source.Hostname
	}

	targetRaw := line.Params[0]
	target := targetRaw
	for len(target) > 0 && strings.IndexByte(s.isupport.Statusmsg, target[0]) >= 0 {
		target = target[1:]
	}
	emits = append(emits, EmitTarget{Target: targetRaw})

	targetCf := s.Casefold(target)
	if s.IsChannel(target) {
		if ch, ok := s.channels[targetCf]; ok {
			emits = append(emits, EmitChannel{Channel: ch})
		}
	} else if targetCf == s.nicknameCf {
		emits = append(emits, EmitTargetSelf{})
	}
	return emits
}

func handleHostHidden(s *Session, line Line) []Emit {
	if len(line.Params) < 2 {
		return nil
	}
	val := line.Params[1]
	user, host := "", val
	if i := strings.LastIndexByte(val, '@'); i >= 0 {
		user = val[:i]
		host = val[i+1:]
	}
	s.hostname = host
	if user != "" {
		s.username = user
	}
	return nil
}

func handleWho(s *Session, line Line) []Emit {
	if len(line.Params) < 8 {
		return nil
	}
	emits := []Emit{EmitTarget{Target: line.Params[1]}}

	username := line.Params[2]
	hostname := line.Params[3]
	nickname := line.Params[5]
	realname := ""
	if parts := strings.SplitN(line.Params[7], " ", 2); len(parts) == 2 {
		realname = parts[1]
	}

	nickCf := s.Casefold(nickname)
	if nickCf == s.nicknameCf {
		emits = append(emits, EmitSelf{})
		s.username = username
		s.hostname = hostname
		s.realname = realname
	}

	if user, ok := s.users[nickCf]; ok {
		emits = append(emits, EmitUser{User: user})
		user.Username = username
		user.Hostname = hostname
		user.Realname = realname
	}
	return emits
}

func handleWhois(s *Session, line Line) []Emit {
	if len(line.Params) < 6 {
		return nil
	}
	nickname := line.Params[1]
	username := line.Params[2]
	hostname := line.Params[3]
	realname := line.Params[5]

	var emits []Emit
	nickCf := s.Casefold(nickname)
	if nickCf == s.nicknameCf {
		emits = append(emits, EmitSelf{})
		s.username = username
		s.hostname = hostname
		s.realname = realname
	}

	if user, ok := s.users[nickCf]; ok {
		emits = append(emits, EmitUser{User: user})
		user.Username = username
		user.Hostname = hostname
		user.Realname = realname
	}
	return emits
}

func handleChghost(s *Session, line Line) []Emit {
	if line.Source.Nickname == "" || len(line.Params) < 2 {
		return nil
	}
	username := line.Params[0]
	hostname := line.Params[1]

	var emits []Emit
	nickCf := s.Casefold(line.Source.Nickname)
	if nickCf == s.nicknameCf {
		emits = append(emits, EmitSourceSelf{})
		s.username = username
		s.hostname = hostname
	}
	if user, ok := s.users[nickCf]; ok {
		emits = append(emits, EmitSourceUser{User: user})
		user.Username = username
		user.Hostname = hostname
	}
	return emits
}

func handleSetname(s *Session, line Line) []Emit {
	if line.Source.Nickname == "" || len(line.Params) < 1 {
		return nil
	}
	realname := line.Params[0]

	var emits []Emit
	nickCf := s.Casefold(line.Source.Nickname)
	if nickCf == s.nicknameCf {
		emits = append(emits, EmitSourceSelf{})
		s.realname = realname
	}
	if user, ok := s.users[nickCf]; ok {
		emits = append(emits, EmitSourceUser{User: user})
		user.Realname = realname
	}
	return emits
}

func handleAway(s *Session, line Line) []Emit {
	if line.Source.Nickname == "" {
		return nil
	}
	away := ""
	if len(line.Params) > 0 {
		away = line.Params[0]
	}

	var emits []Emit
	nickCf := s.Casefold(line.Source.Nickname)
	if nickCf == s.nicknameCf {
		emits = append(emits, EmitSourceSelf{})
		s.away = away
	}
	if user, ok := s.users[nickCf]; ok {
		emits = append(emits, EmitSourceUser{User: user})
		user.Away = away
	}
	return emits
}

func handleAccount(s *Session, line Line) []Emit {
	if line.Source.Nickname == "" || len(line.Params) < 1 {
		return nil
	}
	account := stripStar(line.Params[0])

	var emits []Emit
	nickCf := s.Casefold(line.Source.Nickname)
	if nickCf == s.nicknameCf {
		emits = append(emits, EmitSourceSelf{})
		s.account = account
	}
	if user, ok := s.users[nickCf]; ok {
		emits = append(emits, EmitSourceUser{User: user})
		user.Account = account
	}
	return emits
}

type capToken struct {
	Key   string
	Value *string
}

// parseCapTokens splits a space-separated CAP token list into key/value
// pairs in order. "key=" (empty RHS) and bare "key" both store a nil
// value; "key=v" stores a pointer to "v" (spec §4.5's CAP table).
func parseCapTokens(raw string) []capToken {
	var out []capToken
	for _, tok := range strings.Fields(raw) {
		key, value, hasEq := strings.Cut(tok, "=")
		var v *string
		if hasEq && value != "" {
			value := value
			v = &value
		}
		out = append(out, capToken{Key: key, Value: v})
	}
	return out
}

func (s *Session) hasAgreedCap(key string) bool {
	for _, c := range s.agreedCaps {
		if c == key {
			return true
		}
	}
	return false
}

func (s *Session) removeAgreedCap(key string) {
	for i, c := range s.agreedCaps {
		if c == key {
			s.agreedCaps = append(s.agreedCaps[:i], s.agreedCaps[i+1:]...)
			return
		}
	}
}

func handleCap(s *Session, line Line) []Emit {
	if len(line.Params) < 3 {
		return nil
	}
	subcommand := strings.ToUpper(line.Params[1])

	continuation := line.Params[2] == "*"
	tokenIdx := 2
	if continuation {
		tokenIdx = 3
	}
	if len(line.Params) <= tokenIdx {
		return nil
	}
	tokens := parseCapTokens(line.Params[tokenIdx])

	switch subcommand {
	case "LS":
		if s.tempCaps == nil {
			s.tempCaps = map[string]*string{}
		}
		for _, t := range tokens {
			s.tempCaps[t.Key] = t.Value
		}
		if !continuation {
			s.caps = s.tempCaps
			s.tempCaps = map[string]*string{}
		}
	case "NEW":
		if s.caps != nil {
			for _, t := range tokens {
				s.caps[t.Key] = t.Value
			}
		}
	case "DEL":
		if s.caps != nil {
			for _, t := range tokens {
				if _, ok := s.caps[t.Key]; ok {
					delete(s.caps, t.Key)
					s.removeAgreedCap(t.Key)
				}
			}
		}
	case "ACK":
		for _, t := range tokens {
			key := t.Key
			if strings.HasPrefix(key, "-") {
				s.removeAgreedCap(strings.TrimPrefix(key, "-"))
				continue
			}
			if s.hasAgreedCap(key) {
				continue
			}
			if s.caps == nil {
				continue
			}
			if _, ok := s.caps[key]; ok {
				s.agreedCaps = append(s.agreedCaps, key)
			}
		}
	}
	return nil
}
