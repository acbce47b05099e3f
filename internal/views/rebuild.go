package views

import "tasktrail/internal/domain"

// The builders take tasks in store order (ascending id), so equal-key
// records end up ordered by id in every view.

func BuildPriorityIndex(tasks []domain.Task) *OrderedIndex {
	ix := NewOrderedIndex(ByPriority)
	for _, t := range tasks {
		ix.Insert(t)
	}
	return ix
}

func BuildDueDateIndex(tasks []domain.Task) *OrderedIndex {
	ix := NewOrderedIndex(ByDueDate)
	for _, t := range tasks {
		ix.Insert(t)
	}
	return ix
}

func BuildPriorityTree(tasks []domain.Task) *PriorityTree {
	tr := NewPriorityTree()
	for _, t := range tasks {
		tr.Insert(t)
	}
	return tr
}
