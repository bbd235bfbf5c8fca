package entities

// QuizType is the closed set of quiz presentations a card can be shown as.
// The scheduler never sees the quiz type; only the correctness signal it
// produced flows into review processing.
type QuizType string

const (
	QuizWordToMeaning QuizType = "word_to_meaning"
	QuizMeaningToWord QuizType = "meaning_to_word"
	QuizCloze         QuizType = "cloze"
	QuizListening     QuizType = "listening"
)

// IsValid reports whether t is a known quiz type.
func (t QuizType) IsValid() bool {
	switch t {
	case QuizWordToMeaning, QuizMeaningToWord, QuizCloze, QuizListening:
		return true
	}
	return false
}

// ClozeQuestion is the payload for cloze-style quizzes: a sentence with the
// target word blanked out.
type ClozeQuestion struct {
	SentenceWithBlank string
	Hint              string
	Answer            string
	BlankPosition     int
}

// QuizPrompt is a tagged variant over quiz presentation. Options is set for
// multiple-choice types, Cloze only when Type is QuizCloze.
type QuizPrompt struct {
	Type     QuizType
	CardID   int64
	Question string
	Options  []string
	Cloze    *ClozeQuestion
}
