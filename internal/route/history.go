package route

import "sync"

// History is the location bar: an ordered list of fragments with a cursor,
// the way a browser tab keeps its session history. Writing a fragment is the
// only way to ask for a different view.
type History struct {
	mu      sync.Mutex
	entries []string
	index   int
}

func NewHistory(initial string) *History {
	if initial == "" {
		initial = HomeFragment
	}
	return &History{entries: []string{initial}}
}

func (h *History) Fragment() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index]
}

func (h *History) State() State {
	return Parse(h.Fragment())
}

// Push records fragment as the new current entry and drops any forward
// entries. Pushing the current fragment again leaves history untouched.
func (h *History) Push(fragment string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.entries[h.index] == fragment {
		return
	}
	h.entries = append(h.entries[:h.index+1], fragment)
	h.index = len(h.entries) - 1
}

// Back moves the cursor one entry back. It reports false at the oldest entry.
func (h *History) Back() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index == 0 {
		return false
	}
	h.index--
	return true
}

func (h *History) Forward() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index >= len(h.entries)-1 {
		return false
	}
	h.index++
	return true
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
