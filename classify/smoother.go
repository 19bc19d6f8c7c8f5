package classify

// DefaultHistorySize is the number of decisions the smoother votes over.
const DefaultHistorySize = 10

// Smoother resolves a bounded FIFO history of decisions by majority vote.
type Smoother struct {
	history []Category
	size    int
}

// NewSmoother returns a smoother remembering at most size decisions.
func NewSmoother(size int) *Smoother {
	if size < 1 {
		size = 1
	}
	return &Smoother{history: make([]Category, 0, size), size: size}
}

// Observe appends c, evicting the oldest entry when full.
func (s *Smoother) Observe(c Category) {
	if len(s.history) == s.size {
		copy(s.history, s.history[1:])
		s.history = s.history[:s.size-1]
	}
	s.history = append(s.history, c)
}

// Resolve returns the most frequent category in the history. Ties go to
// the category listed first in enumeration order; an empty history is
// Unknown.
func (s *Smoother) Resolve() Category {
	var counts [numCategories]int
	for _, c := range s.history {
		if c.Valid() {
			counts[c]++
		}
	}
	best, bestCount := Unknown, 0
	for _, c := range voteOrder {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	return best
}

// Len returns the number of remembered decisions.
func (s *Smoother) Len() int {
	return len(s.history)
}

// History returns a copy of the remembered decisions, oldest first.
func (s *Smoother) History() []Category {
	return append([]Category(nil), s.history...)
}

// Reset forgets every decision.
func (s *Smoother) Reset() {
	s.history = s.history[:0]
}
