package cache

// lruNode is a node in a doubly-linked LRU list of fingerprints.
type lruNode struct {
	key  uint64
	prev *lruNode
	next *lruNode
}

// lruList orders fingerprints from most (head) to least (tail) recently used.
// The list is not thread-safe; the owning shard holds its lock.
type lruList struct {
	head *lruNode
	tail *lruNode
	len  int
}

// Len returns the number of nodes in the list.
func (l *lruList) Len() int { return l.len }

// PushFront adds key as the most recently used entry.
func (l *lruList) PushFront(key uint64) *lruNode {
	node := &lruNode{key: key}
	l.pushFront(node)
	return node
}

// MoveToFront marks an existing node as most recently used.
func (l *lruList) MoveToFront(node *lruNode) {
	if node == nil || node == l.head {
		return
	}
	l.unlink(node)
	l.pushFront(node)
}

// RemoveOldest unlinks the least recently used node and returns its key.
func (l *lruList) RemoveOldest() (uint64, bool) {
	if l.tail == nil {
		return 0, false
	}
	node := l.tail
	l.unlink(node)
	return node.key, true
}

// Clear drops every node.
func (l *lruList) Clear() {
	l.head, l.tail, l.len = nil, nil, 0
}

func (l *lruList) pushFront(node *lruNode) {
	node.prev = nil
	node.next = l.head
	if l.head != nil {
		l.head.prev = node
	}
	l.head = node
	if l.tail == nil {
		l.tail = node
	}
	l.len++
}

func (l *lruList) unlink(node *lruNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = nil
	l.len--
}
