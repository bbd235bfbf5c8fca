package entities

// CEFRLevel is the Common European Framework level of a vocabulary card,
// used as the difficulty tier for new-card selection.
type CEFRLevel string

const (
	LevelA1 CEFRLevel = "A1"
	LevelA2 CEFRLevel = "A2"
	LevelB1 CEFRLevel = "B1"
	LevelB2 CEFRLevel = "B2"
	LevelC1 CEFRLevel = "C1"
	LevelC2 CEFRLevel = "C2"
)

// cefrOrder defines the ordinal progression A1 -> C2.
var cefrOrder = []CEFRLevel{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2}

// IsValid reports whether l is one of the six CEFR levels.
func (l CEFRLevel) IsValid() bool {
	for _, lvl := range cefrOrder {
		if l == lvl {
			return true
		}
	}
	return false
}

// Next returns the next level up (i+1). C2 stays at C2, and unknown
// values fall back to A1.
func (l CEFRLevel) Next() CEFRLevel {
	for i, lvl := range cefrOrder {
		if l != lvl {
			continue
		}
		if i < len(cefrOrder)-1 {
			return cefrOrder[i+1]
		}
		return l
	}
	return LevelA1
}

// VocabularyCard is the read-only card entity the core selects from.
// FrequencyRank is nil for unranked cards; a lower rank means a more
// common word. DeckID is nil for cards outside any deck.
type VocabularyCard struct {
	ID            int64
	DeckID        *int64
	CEFRLevel     CEFRLevel
	FrequencyRank *int
}

// ReviewScope controls which learned cards are eligible for review.
type ReviewScope string

const (
	// ReviewSelectedDecksOnly restricts reviews to the user's deck selection.
	ReviewSelectedDecksOnly ReviewScope = "selected_decks_only"
	// ReviewAllLearned reviews every learned card regardless of deck selection.
	ReviewAllLearned ReviewScope = "all_learned"
)

// DeckScope is the effective set of decks a user studies from.
// When AllPublic is true the user studies all public decks plus their own,
// and DeckIDs is ignored for new-card selection.
type DeckScope struct {
	AllPublic   bool
	DeckIDs     []int64
	ReviewScope ReviewScope
}
