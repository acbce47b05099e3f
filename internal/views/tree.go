package views

import "tasktrail/internal/domain"

type treeNode struct {
	task  domain.Task
	left  *treeNode
	right *treeNode
}

// PriorityTree is a binary search tree keyed by priority. Duplicate
// priorities chain into the right subtree. The tree is never rebalanced;
// a degenerate shape costs time, not correctness.
type PriorityTree struct {
	root *treeNode
	size int
}

func NewPriorityTree() *PriorityTree {
	return &PriorityTree{}
}

func (t *PriorityTree) Insert(task domain.Task) {
	n := &treeNode{task: task}
	t.size++
	if t.root == nil {
		t.root = n
		return
	}
	cur := t.root
	for {
		if task.Priority < cur.task.Priority {
			if cur.left == nil {
				cur.left = n
				return
			}
			cur = cur.left
		} else {
			if cur.right == nil {
				cur.right = n
				return
			}
			cur = cur.right
		}
	}
}

// Search returns the first record found with the exact priority. With
// duplicates that is the one nearest the root, the earliest inserted.
func (t *PriorityTree) Search(priority int) (domain.Task, bool) {
	cur := t.root
	for cur != nil {
		switch {
		case priority == cur.task.Priority:
			return cur.task, true
		case priority < cur.task.Priority:
			cur = cur.left
		default:
			cur = cur.right
		}
	}
	return domain.Task{}, false
}

// InOrder returns all records ascending by priority.
func (t *PriorityTree) InOrder() []domain.Task {
	out := make([]domain.Task, 0, t.size)
	var walk func(n *treeNode)
	walk = func(n *treeNode) {
		if n == nil {
			return
		}
		walk(n.left)
		out = append(out, n.task)
		walk(n.right)
	}
	walk(t.root)
	return out
}

func (t *PriorityTree) Len() int { return t.size }
