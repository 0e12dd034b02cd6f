package pickem

import (
	"fmt"
	"time"
)

// Feed event types.
const (
	EventWinner         = "winner"
	EventEntryOrder     = "entry_order"
	EventTimeAnswer     = "answer.time"
	EventCountAnswer    = "answer.count"
	EventTextAnswer     = "answer.text"
	EventTiebreaker     = "tiebreaker"
	EventTimerStarted   = "timer.started"
	EventTimerStopped   = "timer.stopped"
	EventTimerReset     = "timer.reset"
	EventOverride       = "override"
	EventLockGlobal     = "lock.global"
	EventLockMatch      = "lock.match"
	EventLockMatchBonus = "lock.match_bonus"
	EventLockEventBonus = "lock.event_bonus"
	EventGameStatus     = "game.status"
	EventGameEntries    = "game.entries"
	EventPlayerJoined   = "player.joined"
	EventPlayerSubmit   = "player.submitted"
	EventCollapsed      = "feed.collapsed"
)

// FeedCap bounds the detailed events a single mutation may emit.
const FeedCap = 30

// DiffKeyMutation describes what changed between two key payloads, walking
// every scoreable field, timer and override. Values are compared the way
// grading compares them, so reformatting an answer is not a change.
func DiffKeyMutation(card Card, prev, next KeyPayload) []FeedEvent {
	return capEvents(diffKey(card, prev, next))
}

// DiffLockMutation describes lock flag changes for the fields on card.
func DiffLockMutation(card Card, prev, next LockState) []FeedEvent {
	return capEvents(diffLocks(card, prev, next))
}

// DiffGameMutation describes a key update together with the locks it
// triggered. The cap applies to the combined list.
func DiffGameMutation(card Card, prevKey, nextKey KeyPayload, prevLocks, nextLocks LockState) []FeedEvent {
	events := diffKey(card, prevKey, nextKey)
	events = append(events, diffLocks(card, prevLocks, nextLocks)...)
	return capEvents(events)
}

func diffKey(card Card, prev, next KeyPayload) []FeedEvent {
	var events []FeedEvent
	add := func(typ, msg string) {
		events = append(events, FeedEvent{Type: typ, Message: msg})
	}

	for _, m := range card.Matches {
		before, _ := prev.MatchResult(m.ID)
		after, _ := next.MatchResult(m.ID)
		title := matchLabel(m)

		if msg, ok := describeChange(ValueString, "Winner of "+title, before.WinnerName, after.WinnerName); ok {
			add(EventWinner, msg)
		}
		if msg, ok := describeEntryOrder(title, before.BattleRoyalEntryOrder, after.BattleRoyalEntryOrder); ok {
			add(EventEntryOrder, msg)
		}
		for _, q := range m.BonusQuestions {
			subject := fmt.Sprintf("%s (%s)", questionLabel(q), title)
			if msg, ok := describeChange(q.ValueType, subject,
				findAnswer(before.BonusAnswers, q.ID), findAnswer(after.BonusAnswers, q.ID)); ok {
				add(answerEventType(q.ValueType), msg)
			}
		}
	}

	for _, q := range card.EventBonusQuestions {
		if msg, ok := describeChange(q.ValueType, questionLabel(q),
			findAnswer(prev.EventBonusAnswers, q.ID), findAnswer(next.EventBonusAnswers, q.ID)); ok {
			add(answerEventType(q.ValueType), msg)
		}
	}

	label := card.TiebreakerLabel
	if label == "" {
		label = "Tiebreaker"
	}
	if msg, ok := describeChange(card.TiebreakerValueType(), label, prev.TiebreakerAnswer, next.TiebreakerAnswer); ok {
		add(EventTiebreaker, msg)
	}

	events = append(events, diffTimers(prev.Timers, next.Timers)...)
	return append(events, diffOverrides(card, prev, next)...)
}

func diffLocks(card Card, prev, next LockState) []FeedEvent {
	var events []FeedEvent
	flag := func(typ, subject string, before, after LockFlag) {
		if before.Locked == after.Locked {
			return
		}
		msg := "Picks for " + subject + " unlocked"
		if after.Locked {
			msg = "Picks for " + subject + " locked"
			if after.Source == LockByTimer {
				msg += " (timer started)"
			}
		}
		events = append(events, FeedEvent{Type: typ, Message: msg})
	}

	if prev.GlobalLocked != next.GlobalLocked {
		msg := "All picks unlocked"
		if next.GlobalLocked {
			msg = "All picks locked"
		}
		events = append(events, FeedEvent{Type: EventLockGlobal, Message: msg})
	}
	for _, m := range card.Matches {
		flag(EventLockMatch, matchLabel(m), prev.MatchLocks[m.ID], next.MatchLocks[m.ID])
		for _, q := range m.BonusQuestions {
			k := BonusKey(m.ID, q.ID)
			flag(EventLockMatchBonus, fmt.Sprintf("%s (%s)", questionLabel(q), matchLabel(m)),
				prev.MatchBonusLocks[k], next.MatchBonusLocks[k])
		}
	}
	for _, q := range card.EventBonusQuestions {
		flag(EventLockEventBonus, questionLabel(q), prev.EventBonusLocks[q.ID], next.EventBonusLocks[q.ID])
	}
	return events
}

func capEvents(events []FeedEvent) []FeedEvent {
	if len(events) <= FeedCap {
		return events
	}
	extra := len(events) - FeedCap
	out := append(events[:FeedCap:FeedCap], FeedEvent{
		Type:    EventCollapsed,
		Message: fmt.Sprintf("%d more changes not shown", extra),
	})
	return out
}

func describeChange(vt ValueType, subject, before, after string) (string, bool) {
	if AnswersEqual(vt, before, after) {
		return "", false
	}
	switch {
	case IsEmpty(before):
		return fmt.Sprintf("%s set to %s", subject, after), true
	case IsEmpty(after):
		return fmt.Sprintf("%s cleared", subject), true
	default:
		return fmt.Sprintf("%s changed from %s to %s", subject, before, after), true
	}
}

func describeEntryOrder(title string, before, after []string) (string, bool) {
	before, after = nonEmpty(before), nonEmpty(after)
	if sameOrder(before, after) {
		return "", false
	}
	switch {
	case len(after) == len(before)+1 && sameOrder(before, after[:len(before)]):
		return fmt.Sprintf("Entrant #%d in %s recorded: %s", len(after), title, after[len(after)-1]), true
	case len(after) == 0:
		return fmt.Sprintf("Entry order for %s cleared", title), true
	default:
		return fmt.Sprintf("Entry order for %s updated (%d entrants)", title, len(after)), true
	}
}

func sameOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if NormalizeText(a[i]) != NormalizeText(b[i]) {
			return false
		}
	}
	return true
}

func diffTimers(prev, next []Timer) []FeedEvent {
	before := make(map[string]Timer, len(prev))
	for _, t := range prev {
		before[t.ID] = t
	}
	var events []FeedEvent
	for _, t := range next {
		p, existed := before[t.ID]
		label := t.Label
		if label == "" {
			label = t.ID
		}
		wasRunning := existed && p.IsRunning
		switch {
		case !wasRunning && t.IsRunning:
			events = append(events, FeedEvent{Type: EventTimerStarted, Message: "Timer " + label + " started"})
		case wasRunning && !t.IsRunning && t.ElapsedMs == 0:
			events = append(events, FeedEvent{Type: EventTimerReset, Message: "Timer " + label + " reset"})
		case wasRunning && !t.IsRunning:
			events = append(events, FeedEvent{
				Type:    EventTimerStopped,
				Message: fmt.Sprintf("Timer %s stopped at %s", label, formatElapsed(t.ElapsedMs)),
			})
		case existed && !t.IsRunning && p.ElapsedMs > 0 && t.ElapsedMs == 0:
			events = append(events, FeedEvent{Type: EventTimerReset, Message: "Timer " + label + " reset"})
		}
	}
	return events
}

func diffOverrides(card Card, prev, next KeyPayload) []FeedEvent {
	var events []FeedEvent
	verdict := func(accepted bool, src OverrideSource) string {
		s := "not credited"
		if accepted {
			s = "credited"
		}
		if src == OverrideByAuto {
			s += " automatically"
		}
		return s
	}

	wBefore := map[string]WinnerOverride{}
	for _, o := range prev.WinnerOverrides {
		wBefore[winnerOverrideID(o)] = o
	}
	for _, o := range next.WinnerOverrides {
		if p, ok := wBefore[winnerOverrideID(o)]; ok && p.Accepted == o.Accepted {
			continue
		}
		subject := o.MatchID
		if m, ok := card.FindMatch(o.MatchID); ok {
			subject = matchLabel(m)
		}
		events = append(events, FeedEvent{
			Type:    EventOverride,
			Message: fmt.Sprintf("%s's winner pick for %s %s", o.PlayerNickname, subject, verdict(o.Accepted, o.Source)),
		})
	}

	sBefore := map[string]ScoreOverride{}
	for _, o := range prev.ScoreOverrides {
		sBefore[scoreOverrideID(o)] = o
	}
	for _, o := range next.ScoreOverrides {
		if p, ok := sBefore[scoreOverrideID(o)]; ok && p.Accepted == o.Accepted {
			continue
		}
		subject := o.QuestionID
		if q, ok := card.findQuestion(o.MatchID, o.QuestionID); ok {
			subject = questionLabel(q)
		}
		events = append(events, FeedEvent{
			Type:    EventOverride,
			Message: fmt.Sprintf("%s's answer to %s %s", o.PlayerNickname, subject, verdict(o.Accepted, o.Source)),
		})
	}
	return events
}

// HasQuestion reports whether the card carries a bonus question. matchID is
// empty for event-level questions.
func (c Card) HasQuestion(matchID, questionID string) bool {
	_, ok := c.findQuestion(matchID, questionID)
	return ok
}

func (c Card) findQuestion(matchID, questionID string) (BonusQuestion, bool) {
	qs := c.EventBonusQuestions
	if matchID != "" {
		m, ok := c.FindMatch(matchID)
		if !ok {
			return BonusQuestion{}, false
		}
		qs = m.BonusQuestions
	}
	for _, q := range qs {
		if q.ID == questionID {
			return q, true
		}
	}
	return BonusQuestion{}, false
}

func answerEventType(vt ValueType) string {
	switch vt {
	case ValueTime:
		return EventTimeAnswer
	case ValueNumerical:
		return EventCountAnswer
	}
	return EventTextAnswer
}

func matchLabel(m Match) string {
	if m.Title != "" {
		return fmt.Sprintf("%q", m.Title)
	}
	return m.ID
}

func questionLabel(q BonusQuestion) string {
	if q.Prompt != "" {
		return fmt.Sprintf("%q", q.Prompt)
	}
	return q.ID
}

func formatElapsed(ms int64) string {
	d := (time.Duration(ms) * time.Millisecond).Round(time.Second)
	m := int(d / time.Minute)
	s := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%d:%02d", m, s)
}
