package session

import "math/rand/v2"

// DefaultCorpus is the fixed set of suggestions surfaced while listening.
var DefaultCorpus = []string{
	"Ask them how their week has been going.",
	"Mention something you have in common.",
	"Try summarizing what they just said.",
	"Ask a follow-up question about their last point.",
	"Share a short story related to the topic.",
	"Give them a genuine compliment.",
	"Pause and let them finish their thought.",
	"Suggest moving on to a new topic.",
}

// Picker returns an index in [0, n).
type Picker func(n int) int

// Feed selects suggestions from a corpus.
type Feed struct {
	corpus []string
	pick   Picker
}

// NewFeed builds a Feed. An empty corpus falls back to DefaultCorpus and a
// nil picker to a uniform pseudo-random one.
func NewFeed(corpus []string, pick Picker) *Feed {
	if len(corpus) == 0 {
		corpus = DefaultCorpus
	}
	if pick == nil {
		pick = rand.IntN
	}
	c := make([]string, len(corpus))
	copy(c, corpus)
	return &Feed{corpus: c, pick: pick}
}

// Next returns the next suggestion.
func (f *Feed) Next() string {
	i := f.pick(len(f.corpus))
	if i < 0 || i >= len(f.corpus) {
		i = 0
	}
	return f.corpus[i]
}

func (f *Feed) Corpus() []string {
	out := make([]string, len(f.corpus))
	copy(out, f.corpus)
	return out
}
