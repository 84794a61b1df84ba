package repo

// Selection is the active-thread state: either no selection or one thread id.
type Selection struct {
	threadID string
}

func (s Selection) ThreadID() string { return s.threadID }

// OnAdded selects a newly created thread.
func (s *Selection) OnAdded(id string) { s.threadID = id }

// Repair re-points the selection after the thread collection changed.
func (s *Selection) Repair(r *Repository) {
	s.threadID = r.RepairSelection(s.threadID)
}

// Pick selects id if it names an existing thread; otherwise nothing changes.
func (s *Selection) Pick(r *Repository, id string) bool {
	if _, ok := r.Thread(id); !ok {
		return false
	}
	s.threadID = id
	return true
}
