// Package review merges a user's session history into the current wrong and
// bookmarked question lists per exam and set.
package review

import (
	"bytes"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cloudmaster/examprep/internal/model"
)

// WrongEntry is a question whose latest ordinary answer is incorrect.
type WrongEntry struct {
	Question       model.Question `json:"question"`
	ChosenOptionID string         `json:"chosen_option_id"`
	AnsweredAt     time.Time      `json:"answered_at"`
	SessionID      uuid.UUID      `json:"session_id"`
}

// BookmarkEntry is a question whose most recent touch left it bookmarked.
type BookmarkEntry struct {
	Question  model.Question `json:"question"`
	TouchedAt time.Time      `json:"touched_at"`
	SessionID uuid.UUID      `json:"session_id"`
}

// SetReview holds the review lists of one (exam, set label) key.
type SetReview struct {
	Label      string          `json:"label"`
	Wrong      []WrongEntry    `json:"wrong"`
	Bookmarked []BookmarkEntry `json:"bookmarked"`
}

// ExamReview groups set reviews under their exam.
type ExamReview struct {
	ExamID    string      `json:"exam_id"`
	ExamTitle string      `json:"exam_title"`
	Sets      []SetReview `json:"sets"`
}

// Key identifies a group of sessions taken on the same exam and set.
type Key struct {
	ExamID string
	Label  string
}

// stamp orders sessions: later start wins, ties go to the larger id.
type stamp struct {
	at time.Time
	id uuid.UUID
}

func (s stamp) after(o stamp) bool {
	if !s.at.Equal(o.at) {
		return s.at.After(o.at)
	}
	return bytes.Compare(s.id[:], o.id[:]) > 0
}

type latestAnswer struct {
	stamp
	question model.Question
	chosen   string
}

type bookmarkState struct {
	stamp
	bookmarked bool
}

type touch struct {
	stamp
	question model.Question
}

type keyState struct {
	answers  map[string]latestAnswer
	mastered map[string]stamp
	touched  map[string]touch
}

// SetLabel derives the set label of a session title by removing the exam
// title prefix and the separator that follows it.
func SetLabel(examTitle, sessionTitle string) string {
	title := strings.TrimSpace(sessionTitle)
	base := strings.TrimSpace(examTitle)
	if base != "" && strings.HasPrefix(title, base) {
		title = title[len(base):]
	}
	return strings.Trim(title, " \t-–—:|·")
}

// KeyOf returns the reconciliation key of a session.
func KeyOf(s *model.ExamSession, examTitles map[string]string) Key {
	return Key{ExamID: s.ExamID, Label: SetLabel(examTitles[s.ExamID], s.Title)}
}

// Reconcile computes the current wrong and bookmarked questions for every
// exam and set the sessions cover. examTitles maps exam id to its catalog
// title and is used to derive set labels; unknown exams fall back to the id.
// Exams and sets with nothing to review are omitted.
func Reconcile(sessions []model.ExamSession, examTitles map[string]string) []ExamReview {
	keys := make(map[Key]*keyState)
	global := make(map[string]bookmarkState)

	state := func(k Key) *keyState {
		ks, ok := keys[k]
		if !ok {
			ks = &keyState{
				answers:  make(map[string]latestAnswer),
				mastered: make(map[string]stamp),
				touched:  make(map[string]touch),
			}
			keys[k] = ks
		}
		return ks
	}

	for i := range sessions {
		s := &sessions[i]
		ks := state(KeyOf(s, examTitles))
		st := stamp{at: s.StartedAt, id: s.ID}

		for qid := range s.Touched() {
			q, ok := s.Question(qid)
			if !ok {
				continue
			}

			if prev, seen := global[qid]; !seen || st.after(prev.stamp) {
				global[qid] = bookmarkState{stamp: st, bookmarked: s.IsBookmarked(qid)}
			}
			if prev, seen := ks.touched[qid]; !seen || st.after(prev.stamp) {
				ks.touched[qid] = touch{stamp: st, question: *q}
			}
		}

		for qid, chosen := range s.Answers {
			q, ok := s.Question(qid)
			if !ok {
				continue
			}

			if s.Kind.IsReview() {
				if prev, seen := ks.mastered[qid]; chosen == q.CorrectOptionID && (!seen || st.after(prev)) {
					ks.mastered[qid] = st
				}
				continue
			}

			if prev, seen := ks.answers[qid]; !seen || st.after(prev.stamp) {
				ks.answers[qid] = latestAnswer{stamp: st, question: *q, chosen: chosen}
			}
		}
	}

	byExam := make(map[string]*ExamReview)
	for k, ks := range keys {
		set := SetReview{Label: k.Label}

		for qid, a := range ks.answers {
			if a.chosen == a.question.CorrectOptionID {
				continue
			}
			// A review only clears answers given before it.
			if m, ok := ks.mastered[qid]; ok && m.after(a.stamp) {
				continue
			}
			set.Wrong = append(set.Wrong, WrongEntry{
				Question:       a.question,
				ChosenOptionID: a.chosen,
				AnsweredAt:     a.at,
				SessionID:      a.id,
			})
		}

		for qid, t := range ks.touched {
			if !global[qid].bookmarked {
				continue
			}
			set.Bookmarked = append(set.Bookmarked, BookmarkEntry{
				Question:  t.question,
				TouchedAt: t.at,
				SessionID: t.id,
			})
		}

		if len(set.Wrong) == 0 && len(set.Bookmarked) == 0 {
			continue
		}

		sort.Slice(set.Wrong, func(i, j int) bool {
			a, b := set.Wrong[i], set.Wrong[j]
			if !a.AnsweredAt.Equal(b.AnsweredAt) {
				return a.AnsweredAt.After(b.AnsweredAt)
			}
			return a.Question.ID < b.Question.ID
		})
		sort.Slice(set.Bookmarked, func(i, j int) bool {
			a, b := set.Bookmarked[i], set.Bookmarked[j]
			if !a.TouchedAt.Equal(b.TouchedAt) {
				return a.TouchedAt.After(b.TouchedAt)
			}
			return a.Question.ID < b.Question.ID
		})

		er, ok := byExam[k.ExamID]
		if !ok {
			title := examTitles[k.ExamID]
			if title == "" {
				title = k.ExamID
			}
			er = &ExamReview{ExamID: k.ExamID, ExamTitle: title}
			byExam[k.ExamID] = er
		}
		er.Sets = append(er.Sets, set)
	}

	out := make([]ExamReview, 0, len(byExam))
	for _, er := range byExam {
		sort.Slice(er.Sets, func(i, j int) bool { return er.Sets[i].Label < er.Sets[j].Label })
		out = append(out, *er)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExamTitle != out[j].ExamTitle {
			return out[i].ExamTitle < out[j].ExamTitle
		}
		return out[i].ExamID < out[j].ExamID
	})
	return out
}

// Find returns the set review for key, if any.
func Find(reviews []ExamReview, key Key) (SetReview, bool) {
	for _, er := range reviews {
		if er.ExamID != key.ExamID {
			continue
		}
		for _, s := range er.Sets {
			if s.Label == key.Label {
				return s, true
			}
		}
	}
	return SetReview{}, false
}
