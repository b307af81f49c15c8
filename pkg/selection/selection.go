// Package selection tracks which rows of one displayed list are selected for
// bulk deletion.
package selection

import (
	"errors"
	"sort"
)

type State string

const (
	Idle      State = "idle"
	Selecting State = "selecting"
	Deleting  State = "deleting"
)

var (
	ErrEmpty      = errors.New("nothing selected")
	ErrInProgress = errors.New("a delete is already in progress")
)

// List is not safe for concurrent use; callers own the locking.
type List struct {
	state State
	ids   map[int64]struct{}
}

func New() *List {
	return &List{state: Idle, ids: make(map[int64]struct{})}
}

func (l *List) State() State { return l.state }

func (l *List) Len() int { return len(l.ids) }

func (l *List) Has(id int64) bool {
	_, ok := l.ids[id]
	return ok
}

// IDs returns the selection in ascending order.
func (l *List) IDs() []int64 {
	out := make([]int64, 0, len(l.ids))
	for id := range l.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Toggle flips one row. It is ignored while a delete is in flight.
func (l *List) Toggle(id int64) {
	if l.state == Deleting {
		return
	}
	if _, ok := l.ids[id]; ok {
		delete(l.ids, id)
	} else {
		l.ids[id] = struct{}{}
	}
	l.settle()
}

// SelectAll toggles the whole loaded list: if every visible row is already
// selected the selection is cleared, otherwise every visible row is selected.
func (l *List) SelectAll(visible []int64) {
	if l.state == Deleting {
		return
	}
	if len(visible) > 0 && l.covers(visible) {
		l.ids = make(map[int64]struct{})
	} else {
		l.ids = make(map[int64]struct{}, len(visible))
		for _, id := range visible {
			l.ids[id] = struct{}{}
		}
	}
	l.settle()
}

// Reset drops the selection, e.g. after the list was refetched.
func (l *List) Reset() {
	l.ids = make(map[int64]struct{})
	l.state = Idle
}

// Begin moves to Deleting and returns the ids to delete.
func (l *List) Begin() ([]int64, error) {
	switch {
	case l.state == Deleting:
		return nil, ErrInProgress
	case len(l.ids) == 0:
		return nil, ErrEmpty
	}
	l.state = Deleting
	return l.IDs(), nil
}

// Finish ends a delete started with Begin. On success the selection is
// cleared; on failure it is kept so the user can retry.
func (l *List) Finish(ok bool) {
	if l.state != Deleting {
		return
	}
	if ok {
		l.Reset()
		return
	}
	l.state = Idle
	l.settle()
}

func (l *List) covers(visible []int64) bool {
	for _, id := range visible {
		if _, ok := l.ids[id]; !ok {
			return false
		}
	}
	return true
}

func (l *List) settle() {
	if len(l.ids) == 0 {
		l.state = Idle
	} else {
		l.state = Selecting
	}
}
