package views

import "tasktrail/internal/domain"

// TaskQueue is a FIFO of task snapshots.
type TaskQueue struct {
	items []domain.Task
}

func (q *TaskQueue) Enqueue(t domain.Task) {
	q.items = append(q.items, t)
}

func (q *TaskQueue) Dequeue() (domain.Task, bool) {
	if len(q.items) == 0 {
		return domain.Task{}, false
	}
	t := q.items[0]
	q.items = q.items[1:]
	return t, true
}

func (q *TaskQueue) Peek() (domain.Task, bool) {
	if len(q.items) == 0 {
		return domain.Task{}, false
	}
	return q.items[0], true
}

func (q *TaskQueue) Len() int { return len(q.items) }
