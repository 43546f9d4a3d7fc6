package domain

import (
	"maps"
	"slices"
)

// Quote is one literary quote bound to a minute of the day.
// Quotes are loaded once at startup and never mutated.
type Quote struct {
	// Time is the exact lookup key, formatted "HH:MM".
	Time string

	// Text is the full quote.
	Text string

	// TimeString is the literal substring of Text that names the time.
	// It may be formatted differently from Time ("nine forty-one" vs "09:41").
	TimeString string

	// Title of the work the quote comes from.
	Title string

	// Author of the work.
	Author string
}

// QuoteIndex is a read-only table of quotes keyed by time of day.
// When the dataset holds several quotes for the same minute the first one wins.
type QuoteIndex struct {
	byTime map[string]Quote
	count  int
}

// NewQuoteIndex builds the index from quotes in dataset order.
func NewQuoteIndex(quotes []Quote) *QuoteIndex {
	idx := &QuoteIndex{
		byTime: make(map[string]Quote, len(quotes)),
		count:  len(quotes),
	}

	for _, q := range quotes {
		if _, exists := idx.byTime[q.Time]; exists {
			continue
		}
		idx.byTime[q.Time] = q
	}

	return idx
}

// FindExact returns the quote for timeOfDay ("HH:MM").
// The boolean is false when no quote exists for that minute, which is an
// expected outcome and not an error.
func (idx *QuoteIndex) FindExact(timeOfDay string) (Quote, bool) {
	if idx == nil {
		return Quote{}, false
	}

	q, ok := idx.byTime[timeOfDay]

	return q, ok
}

// Len returns the number of records the index was built from, duplicates included.
func (idx *QuoteIndex) Len() int {
	if idx == nil {
		return 0
	}

	return idx.count
}

// Times returns the distinct covered minutes in ascending order.
func (idx *QuoteIndex) Times() []string {
	if idx == nil {
		return nil
	}

	return slices.Sorted(maps.Keys(idx.byTime))
}
