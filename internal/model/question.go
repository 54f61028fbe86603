package model

// Option is a single answer choice of a question.
type Option struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Explanation string `json:"explanation,omitempty"`
}

// Question is one multiple-choice item of an exam's question bank.
// Sessions keep their own copy, so edits here never reach past attempts.
type Question struct {
	ID              string   `json:"id"`
	ExamID          string   `json:"exam_id"`
	Text            string   `json:"text"`
	TextTranslated  string   `json:"text_translated,omitempty"`
	Options         []Option `json:"options"`
	CorrectOptionID string   `json:"correct_option_id"`
	Explanation     string   `json:"explanation"`
	Tags            []string `json:"tags"`
	KeyPoints       []string `json:"key_points,omitempty"`
	ImageURLs       []string `json:"image_urls,omitempty"`
	ReferenceLinks  []string `json:"reference_links,omitempty"`
	Difficulty      int      `json:"difficulty"`
}

// HasOption reports whether optionID is one of the question's choices.
func (q *Question) HasOption(optionID string) bool {
	for _, o := range q.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

// OptionRequest is an answer choice in an admin question payload.
type OptionRequest struct {
	ID          string `json:"id" binding:"required,max=10"`
	Text        string `json:"text" binding:"required,max=2000"`
	Explanation string `json:"explanation" binding:"omitempty,max=4000"`
}

// UpsertQuestionRequest is the payload for creating or replacing a question.
type UpsertQuestionRequest struct {
	ID              string          `json:"id" binding:"required,min=1,max=64"`
	Text            string          `json:"text" binding:"required,min=1,max=8000"`
	TextTranslated  string          `json:"text_translated" binding:"omitempty,max=8000"`
	Options         []OptionRequest `json:"options" binding:"required,min=2,max=10,dive"`
	CorrectOptionID string          `json:"correct_option_id" binding:"required,max=10"`
	Explanation     string          `json:"explanation" binding:"omitempty,max=8000"`
	Tags            []string        `json:"tags" binding:"omitempty,max=20,dive,min=1,max=64"`
	KeyPoints       []string        `json:"key_points" binding:"omitempty,max=20,dive,max=1000"`
	ImageURLs       []string        `json:"image_urls" binding:"omitempty,max=10,dive,url"`
	ReferenceLinks  []string        `json:"reference_links" binding:"omitempty,max=20,dive,url"`
	Difficulty      int             `json:"difficulty" binding:"omitempty,min=1,max=3"`
}

// ToQuestion converts the request into a Question of the given exam.
func (r *UpsertQuestionRequest) ToQuestion(examID string) Question {
	opts := make([]Option, 0, len(r.Options))
	for _, o := range r.Options {
		opts = append(opts, Option{ID: o.ID, Text: o.Text, Explanation: o.Explanation})
	}
	difficulty := r.Difficulty
	if difficulty == 0 {
		difficulty = 1
	}
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return Question{
		ID:              r.ID,
		ExamID:          examID,
		Text:            r.Text,
		TextTranslated:  r.TextTranslated,
		Options:         opts,
		CorrectOptionID: r.CorrectOptionID,
		Explanation:     r.Explanation,
		Tags:            tags,
		KeyPoints:       r.KeyPoints,
		ImageURLs:       r.ImageURLs,
		ReferenceLinks:  r.ReferenceLinks,
		Difficulty:      difficulty,
	}
}
