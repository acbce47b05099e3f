package history

import (
	"fmt"

	"tasktrail/internal/domain"
)

// Kind tags what a recorded action did to the store.
type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Action is one reversible mutation. Task holds the record as the mutation
// left it; for deletes, the record as it stood when deleted. Previous is set
// on updates only and holds the pre-update record. Task.ID is what undo of a
// create deletes, whatever else happened to the store since.
type Action struct {
	Kind       Kind         `json:"kind"`
	Task       domain.Task  `json:"task"`
	Previous   *domain.Task `json:"previous,omitempty"`
	RecordedAt string       `json:"recorded_at"`
}

func (a Action) Describe() string {
	return fmt.Sprintf("%s #%d %q", a.Kind, a.Task.ID, a.Task.Title)
}
