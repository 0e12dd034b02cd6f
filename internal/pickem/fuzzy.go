package pickem

import (
	"cmp"
	"slices"
	"unicode"

	"github.com/xrash/smetrics"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// ReviewThreshold is the lowest confidence that still surfaces a candidate.
	ReviewThreshold = 0.60
	// AutoAcceptThreshold is the confidence at which a candidate is credited
	// without a reviewer.
	AutoAcceptThreshold = 0.90
)

// Confidence returns a similarity in [0,1] between two free-text answers,
// ignoring case, whitespace and diacritics. Edits are counted per character.
// It is a review signal only; scoring never reads it.
func Confidence(a, b string) float64 {
	na, nb := foldMarks(NormalizeText(a)), foldMarks(NormalizeText(b))
	if na == nb {
		return 1
	}
	ra, rb := []rune(na), []rune(nb)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	ea, eb := runeBytes(ra, rb)
	dist := smetrics.WagnerFischer(ea, eb, 1, 1, 1)
	c := 1 - float64(dist)/float64(longest)
	if c < 0 {
		return 0
	}
	return c
}

// foldMarks strips combining marks, so "José" reads as "Jose".
func foldMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// runeBytes maps each distinct rune of a and b to one byte so a byte-wise
// edit distance counts characters. Past 256 distinct runes the UTF-8 text is
// returned as is.
func runeBytes(a, b []rune) (string, string) {
	alphabet := map[rune]byte{}
	encode := func(rs []rune) ([]byte, bool) {
		out := make([]byte, len(rs))
		for i, r := range rs {
			c, ok := alphabet[r]
			if !ok {
				if len(alphabet) == 256 {
					return nil, false
				}
				c = byte(len(alphabet))
				alphabet[r] = c
			}
			out[i] = c
		}
		return out, true
	}
	ea, okA := encode(a)
	eb, okB := encode(b)
	if !okA || !okB {
		return string(a), string(b)
	}
	return string(ea), string(eb)
}

type CandidateKind string

const (
	CandidateWinner CandidateKind = "winner"
	CandidateBonus  CandidateKind = "bonus"
)

// ReviewCandidate is a player answer that is close to, but not exactly, the
// key. MatchID is empty for event-level questions; QuestionID is empty for
// winners.
type ReviewCandidate struct {
	Kind           CandidateKind `json:"kind"`
	MatchID        string        `json:"matchId,omitempty"`
	QuestionID     string        `json:"questionId,omitempty"`
	Prompt         string        `json:"prompt"`
	PlayerID       string        `json:"playerId"`
	Nickname       string        `json:"nickname"`
	PlayerAnswer   string        `json:"playerAnswer"`
	KeyAnswer      string        `json:"keyAnswer"`
	Confidence     float64       `json:"confidence"`
	IsAutoAccepted bool          `json:"isAutoAccepted"`
}

// OverrideDecision is a reviewer's verdict on one candidate.
type OverrideDecision struct {
	Kind       CandidateKind  `json:"kind"`
	MatchID    string         `json:"matchId,omitempty"`
	QuestionID string         `json:"questionId,omitempty"`
	Nickname   string         `json:"nickname"`
	Accepted   bool           `json:"accepted"`
	Source     OverrideSource `json:"source"`
	Confidence *float64       `json:"confidence,omitempty"`
}

// reviewable reports whether a bonus question takes free text worth fuzzy
// matching.
func reviewable(q BonusQuestion) bool {
	return !q.ValueType.Numeric() && q.AnswerShape != ShapeMultipleChoice
}

// ReviewCandidates lists submitted players' free-text answers that are not
// exact matches, have no override yet, and score at least ReviewThreshold.
// Results are ordered by confidence, highest first.
func ReviewCandidates(card Card, key KeyPayload, players []Player) []ReviewCandidate {
	var out []ReviewCandidate
	consider := func(c ReviewCandidate) {
		if IsEmpty(c.PlayerAnswer) || IsEmpty(c.KeyAnswer) {
			return
		}
		if NormalizeText(c.PlayerAnswer) == NormalizeText(c.KeyAnswer) {
			return
		}
		if hasOverride(key, c.Kind, c.MatchID, c.QuestionID, c.Nickname) {
			return
		}
		c.Confidence = Confidence(c.PlayerAnswer, c.KeyAnswer)
		if c.Confidence < ReviewThreshold {
			return
		}
		c.IsAutoAccepted = c.Confidence >= AutoAcceptThreshold
		out = append(out, c)
	}

	for _, p := range players {
		if !p.IsSubmitted {
			continue
		}
		for _, m := range card.Matches {
			res, _ := key.MatchResult(m.ID)
			pick, _ := p.Picks.MatchPick(m.ID)
			consider(ReviewCandidate{
				Kind:         CandidateWinner,
				MatchID:      m.ID,
				Prompt:       m.Title,
				PlayerID:     p.ID,
				Nickname:     p.Nickname,
				PlayerAnswer: pick.WinnerName,
				KeyAnswer:    res.WinnerName,
			})
			for _, q := range m.BonusQuestions {
				if !reviewable(q) {
					continue
				}
				consider(ReviewCandidate{
					Kind:         CandidateBonus,
					MatchID:      m.ID,
					QuestionID:   q.ID,
					Prompt:       q.Prompt,
					PlayerID:     p.ID,
					Nickname:     p.Nickname,
					PlayerAnswer: findAnswer(pick.BonusAnswers, q.ID),
					KeyAnswer:    findAnswer(res.BonusAnswers, q.ID),
				})
			}
		}
		for _, q := range card.EventBonusQuestions {
			if !reviewable(q) {
				continue
			}
			consider(ReviewCandidate{
				Kind:         CandidateBonus,
				QuestionID:   q.ID,
				Prompt:       q.Prompt,
				PlayerID:     p.ID,
				Nickname:     p.Nickname,
				PlayerAnswer: findAnswer(p.Picks.EventBonusAnswers, q.ID),
				KeyAnswer:    findAnswer(key.EventBonusAnswers, q.ID),
			})
		}
	}

	slices.SortStableFunc(out, func(a, b ReviewCandidate) int {
		if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
			return c
		}
		return cmp.Compare(NormalizeText(a.Nickname), NormalizeText(b.Nickname))
	})
	return out
}

func hasOverride(key KeyPayload, kind CandidateKind, matchID, questionID, nickname string) bool {
	if kind == CandidateWinner {
		_, ok := WinnerOverrideFor(key, matchID, nickname)
		return ok
	}
	_, ok := ScoreOverrideFor(key, matchID, questionID, nickname)
	return ok
}

// WinnerOverrideFor returns the override recorded for a player's winner pick.
func WinnerOverrideFor(key KeyPayload, matchID, nickname string) (WinnerOverride, bool) {
	n := NormalizeNickname(nickname)
	for _, o := range key.WinnerOverrides {
		if o.MatchID == matchID && NormalizeNickname(o.PlayerNickname) == n {
			return o, true
		}
	}
	return WinnerOverride{}, false
}

// ScoreOverrideFor returns the override recorded for a player's bonus answer.
func ScoreOverrideFor(key KeyPayload, matchID, questionID, nickname string) (ScoreOverride, bool) {
	n := NormalizeNickname(nickname)
	for _, o := range key.ScoreOverrides {
		if o.MatchID == matchID && o.QuestionID == questionID && NormalizeNickname(o.PlayerNickname) == n {
			return o, true
		}
	}
	return ScoreOverride{}, false
}

// ApplyOverride records d in a copy of key, replacing any earlier override for
// the same subject and nickname.
func ApplyOverride(key KeyPayload, d OverrideDecision) KeyPayload {
	next := cloneKey(key)
	if d.Source == "" {
		d.Source = OverrideByHost
	}
	if d.Kind == CandidateWinner {
		o := WinnerOverride{
			MatchID:        d.MatchID,
			PlayerNickname: d.Nickname,
			Accepted:       d.Accepted,
			Source:         d.Source,
			Confidence:     d.Confidence,
		}
		next.WinnerOverrides = mergeByID(next.WinnerOverrides, []WinnerOverride{o}, winnerOverrideID, replace)
		return next
	}
	o := ScoreOverride{
		MatchID:        d.MatchID,
		QuestionID:     d.QuestionID,
		PlayerNickname: d.Nickname,
		Accepted:       d.Accepted,
		Source:         d.Source,
		Confidence:     d.Confidence,
	}
	next.ScoreOverrides = mergeByID(next.ScoreOverrides, []ScoreOverride{o}, scoreOverrideID, replace)
	return next
}

// AutoAccept records an accepted auto override for every auto-accepted
// candidate and returns the decisions it applied.
func AutoAccept(key KeyPayload, candidates []ReviewCandidate) (KeyPayload, []OverrideDecision) {
	var applied []OverrideDecision
	for _, c := range candidates {
		if !c.IsAutoAccepted {
			continue
		}
		conf := c.Confidence
		d := OverrideDecision{
			Kind:       c.Kind,
			MatchID:    c.MatchID,
			QuestionID: c.QuestionID,
			Nickname:   c.Nickname,
			Accepted:   true,
			Source:     OverrideByAuto,
			Confidence: &conf,
		}
		key = ApplyOverride(key, d)
		applied = append(applied, d)
	}
	return key, applied
}

// PruneOverrides drops the overrides whose subject's key answer changed
// between prev and next. A verdict was made against the old answer, so it is
// reviewed again against the new one.
func PruneOverrides(card Card, prev, next KeyPayload) KeyPayload {
	staleWinner := map[string]bool{}
	staleScore := map[string]bool{}
	for _, m := range card.Matches {
		before, _ := prev.MatchResult(m.ID)
		after, _ := next.MatchResult(m.ID)
		if !AnswersEqual(ValueString, before.WinnerName, after.WinnerName) {
			staleWinner[m.ID] = true
		}
		for _, q := range m.BonusQuestions {
			if !AnswersEqual(q.ValueType, findAnswer(before.BonusAnswers, q.ID), findAnswer(after.BonusAnswers, q.ID)) {
				staleScore[BonusKey(m.ID, q.ID)] = true
			}
		}
	}
	for _, q := range card.EventBonusQuestions {
		if !AnswersEqual(q.ValueType, findAnswer(prev.EventBonusAnswers, q.ID), findAnswer(next.EventBonusAnswers, q.ID)) {
			staleScore[BonusKey("", q.ID)] = true
		}
	}
	if len(staleWinner) == 0 && len(staleScore) == 0 {
		return next
	}

	out := cloneKey(next)
	out.WinnerOverrides = slices.DeleteFunc(out.WinnerOverrides, func(o WinnerOverride) bool {
		return staleWinner[o.MatchID]
	})
	out.ScoreOverrides = slices.DeleteFunc(out.ScoreOverrides, func(o ScoreOverride) bool {
		return staleScore[BonusKey(o.MatchID, o.QuestionID)]
	})
	return out
}

func winnerOverrideID(o WinnerOverride) string {
	return o.MatchID + KeyDelimiter + NormalizeNickname(o.PlayerNickname)
}

func scoreOverrideID(o ScoreOverride) string {
	return o.MatchID + KeyDelimiter + o.QuestionID + KeyDelimiter + NormalizeNickname(o.PlayerNickname)
}

func findAnswer(answers []Answer, questionID string) string {
	for _, a := range answers {
		if a.QuestionID == questionID {
			return a.Answer
		}
	}
	return ""
}
