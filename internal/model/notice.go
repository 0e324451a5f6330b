package model

// NoticeKind identifies a player-facing message. Rendering and localization
// happen on the game server; the core only says which message and with what values.
type NoticeKind string

const (
	NoticeGracePeriod  NoticeKind = "grace_period"
	NoticeLifeLost     NoticeKind = "life_lost"
	NoticeLastLife     NoticeKind = "last_life"
	NoticeSentToLimbo  NoticeKind = "sent_to_limbo"
	NoticeLimboWelcome NoticeKind = "limbo_welcome"
	NoticeReleased     NoticeKind = "released"
)

// Notice is a message to show a single player
type Notice struct {
	Kind          NoticeKind `json:"kind"`
	Lives         int        `json:"lives,omitempty"`
	TimeRemaining string     `json:"time_remaining,omitempty"`
}

// NoticeForOutcome maps a death outcome to the message the player should see.
// The second return is false for outcomes that are handled without a notice.
func NoticeForOutcome(outcome DeathOutcome, graceRemaining string) (Notice, bool) {
	switch outcome.Kind {
	case OutcomeGracePeriodProtected:
		return Notice{Kind: NoticeGracePeriod, TimeRemaining: graceRemaining}, true
	case OutcomeLivesRemaining:
		return Notice{Kind: NoticeLifeLost, Lives: outcome.Lives}, true
	case OutcomeLastLifeWarning:
		return Notice{Kind: NoticeLastLife, Lives: 1}, true
	default:
		return Notice{}, false
	}
}
