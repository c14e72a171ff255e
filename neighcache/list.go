package neighcache

// The active list is MRU-first: head is the most-recently promoted entry,
// tail the oldest. These helpers assume the caller already holds the
// owning Cache's lock.

// listInsert links e at the head of the list, updating tail if empty.
func listInsert(head, tail **Entry, e *Entry) {
	e.prev = nil
	e.next = *head
	if *head != nil {
		(*head).prev = e
	}
	*head = e
	if *tail == nil {
		*tail = e
	}
}

// listUnlink removes e from the list, updating head/tail as needed.
// e's own prev/next are cleared on return.
func listUnlink(head, tail **Entry, e *Entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else if *head == e {
		*head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else if *tail == e {
		*tail = e.prev
	}
	e.prev, e.next = nil, nil
}

// listPromote unlinks e and reinserts it at the head (MRU promotion).
func listPromote(head, tail **Entry, e *Entry) {
	if *head == e {
		return // already at head
	}
	listUnlink(head, tail, e)
	listInsert(head, tail, e)
}
