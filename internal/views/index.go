package views

import (
	"time"

	"tasktrail/internal/domain"
)

// Order selects the key an OrderedIndex keeps its records sorted by.
type Order int

const (
	// ByPriority sorts highest priority first.
	ByPriority Order = iota
	// ByDueDate sorts earliest due date first.
	ByDueDate
)

// Tasks without a due date sort last in due-date order.
const dueDateNone = "9999-12-31"

type node struct {
	task domain.Task
	next *node
}

// OrderedIndex is a singly linked list of task snapshots kept sorted by one
// key. A new record with a key equal to existing ones lands after them, so
// equal-key records keep insertion order.
type OrderedIndex struct {
	order Order
	head  *node
	tail  *node
	size  int
}

func NewOrderedIndex(order Order) *OrderedIndex {
	return &OrderedIndex{order: order}
}

func dueKey(t domain.Task) string {
	if t.DueDate == "" {
		return dueDateNone
	}
	return t.DueDate
}

// before reports whether a record with t's key sorts strictly before u.
func (ix *OrderedIndex) before(t, u domain.Task) bool {
	if ix.order == ByDueDate {
		return dueKey(t) < dueKey(u)
	}
	return t.Priority > u.Priority
}

// Insert places a snapshot at its sorted position. O(n).
func (ix *OrderedIndex) Insert(t domain.Task) {
	n := &node{task: t}
	ix.size++
	if ix.head == nil {
		ix.head = n
		ix.tail = n
		return
	}
	if ix.before(t, ix.head.task) {
		n.next = ix.head
		ix.head = n
		return
	}
	cur := ix.head
	for cur.next != nil && !ix.before(t, cur.next.task) {
		cur = cur.next
	}
	n.next = cur.next
	cur.next = n
	if n.next == nil {
		ix.tail = n
	}
}

// RemoveByID unlinks and returns the record with the given id.
func (ix *OrderedIndex) RemoveByID(id int64) (domain.Task, bool) {
	if ix.head == nil {
		return domain.Task{}, false
	}
	if ix.head.task.ID == id {
		removed := ix.head.task
		ix.head = ix.head.next
		if ix.head == nil {
			ix.tail = nil
		}
		ix.size--
		return removed, true
	}
	for cur := ix.head; cur.next != nil; cur = cur.next {
		if cur.next.task.ID == id {
			removed := cur.next.task
			cur.next = cur.next.next
			if cur.next == nil {
				ix.tail = cur
			}
			ix.size--
			return removed, true
		}
	}
	return domain.Task{}, false
}

// Get returns the record with the given id.
func (ix *OrderedIndex) Get(id int64) (domain.Task, bool) {
	for cur := ix.head; cur != nil; cur = cur.next {
		if cur.task.ID == id {
			return cur.task, true
		}
	}
	return domain.Task{}, false
}

// At returns the record at a zero-based position in sort order.
func (ix *OrderedIndex) At(i int) (domain.Task, bool) {
	if i < 0 || i >= ix.size {
		return domain.Task{}, false
	}
	cur := ix.head
	for ; i > 0; i-- {
		cur = cur.next
	}
	return cur.task, true
}

// Tasks returns all records head to tail.
func (ix *OrderedIndex) Tasks() []domain.Task {
	out := make([]domain.Task, 0, ix.size)
	for cur := ix.head; cur != nil; cur = cur.next {
		out = append(out, cur.task)
	}
	return out
}

func (ix *OrderedIndex) Len() int { return ix.size }

func (ix *OrderedIndex) Clear() {
	ix.head = nil
	ix.tail = nil
	ix.size = 0
}

// ByStatus returns records with the given status, in index order.
func (ix *OrderedIndex) ByStatus(status string) []domain.Task {
	var out []domain.Task
	for cur := ix.head; cur != nil; cur = cur.next {
		if cur.task.Status == status {
			out = append(out, cur.task)
		}
	}
	return out
}

// ByMinPriority returns records with priority >= min, in index order.
func (ix *OrderedIndex) ByMinPriority(min int) []domain.Task {
	var out []domain.Task
	for cur := ix.head; cur != nil; cur = cur.next {
		if cur.task.Priority >= min {
			out = append(out, cur.task)
		}
	}
	return out
}

// Overdue returns records whose due date has passed and that are not
// completed. Records without a due date are never overdue.
func (ix *OrderedIndex) Overdue(now time.Time) []domain.Task {
	today := now.Format("2006-01-02")
	var out []domain.Task
	for cur := ix.head; cur != nil; cur = cur.next {
		t := cur.task
		if t.DueDate != "" && t.DueDate < today && t.Status != domain.StatusCompleted {
			out = append(out, t)
		}
	}
	return out
}

// DueWithin returns records due between today and now+days inclusive,
// regardless of status.
func (ix *OrderedIndex) DueWithin(now time.Time, days int) []domain.Task {
	today := now.Format("2006-01-02")
	limit := now.AddDate(0, 0, days).Format("2006-01-02")
	var out []domain.Task
	for cur := ix.head; cur != nil; cur = cur.next {
		t := cur.task
		if t.DueDate != "" && t.DueDate >= today && t.DueDate <= limit {
			out = append(out, t)
		}
	}
	return out
}

type SummaryOptions struct {
	Now         time.Time
	MinPriority int
	DueSoonDays int
}

type Summary struct {
	Total        int            `json:"total"`
	Completed    int            `json:"completed"`
	InProgress   int            `json:"in_progress"`
	Todo         int            `json:"todo"`
	Overdue      int            `json:"overdue"`
	HighPriority int            `json:"high_priority"`
	DueSoon      int            `json:"due_soon"`
	ByCategory   map[string]int `json:"by_category"`
}

// Summarize counts records by status, category, and the overdue / high
// priority / due-soon buckets in one pass. Unknown statuses count as todo.
func (ix *OrderedIndex) Summarize(opts SummaryOptions) Summary {
	today := opts.Now.Format("2006-01-02")
	limit := opts.Now.AddDate(0, 0, opts.DueSoonDays).Format("2006-01-02")
	s := Summary{ByCategory: map[string]int{}}
	for cur := ix.head; cur != nil; cur = cur.next {
		t := cur.task
		s.Total++
		switch t.Status {
		case domain.StatusCompleted:
			s.Completed++
		case domain.StatusInProgress:
			s.InProgress++
		default:
			s.Todo++
		}
		if t.DueDate != "" && t.DueDate < today && t.Status != domain.StatusCompleted {
			s.Overdue++
		}
		if t.Priority >= opts.MinPriority {
			s.HighPriority++
		}
		if t.DueDate != "" && t.DueDate >= today && t.DueDate <= limit {
			s.DueSoon++
		}
		cat := t.Category
		if cat == "" {
			cat = "uncategorized"
		}
		s.ByCategory[cat]++
	}
	return s
}
