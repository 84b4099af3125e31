package session

// History is a bounded list of committed suggestions, most recent first.
type History struct {
	items    []string
	capacity int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = HistoryCapacity
	}
	return &History{items: make([]string, 0, capacity), capacity: capacity}
}

// Push inserts text at the front, dropping the oldest entries past capacity.
func (h *History) Push(text string) {
	h.items = append(h.items, "")
	copy(h.items[1:], h.items)
	h.items[0] = text
	if len(h.items) > h.capacity {
		h.items = h.items[:h.capacity]
	}
}

// Items returns a copy of the entries, most recent first.
func (h *History) Items() []string {
	out := make([]string, len(h.items))
	copy(out, h.items)
	return out
}

func (h *History) Len() int { return len(h.items) }

func (h *History) Cap() int { return h.capacity }
