package note

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNotFound signals that a repository operation named an ID that is
// not present in the collection it targets.
var ErrNotFound = errors.New("note not found")

// ErrDuplicateID signals a Create with an ID already held in either
// collection. IDs are generated at creation time, so hitting this is a
// caller bug rather than a user-visible condition.
var ErrDuplicateID = errors.New("note id already exists")

// Repository holds the authoritative in-memory state for the active and
// trashed collections and is the sole writer of the Store. Active notes
// are ordered by CreatedAt descending; trashed notes by recency of
// deletion, most recent first.
//
// Every successful mutation writes the affected collections through to
// the store and bumps the generation counter that conversational
// sessions use to detect stale context. A failed write-through does not
// revert the in-memory change; the error is returned for surfacing and
// the user keeps working.
type Repository struct {
	store      *Store
	active     []Note
	trashed    []Note
	generation uint64
}

// NewRepository loads both collections from the store. Corrupt or
// missing slots degrade to empty collections; the first such warning is
// returned alongside the repository so the caller can surface it.
func NewRepository(store *Store) (*Repository, error) {
	active, activeErr := store.Load(CollectionActive)
	trashed, trashErr := store.Load(CollectionTrash)
	repo := &Repository{
		store:   store,
		active:  active,
		trashed: trashed,
	}
	repo.sortActive()
	if activeErr != nil {
		return repo, activeErr
	}
	return repo, trashErr
}

// Create inserts a note into the active collection and re-sorts it.
func (r *Repository) Create(n Note) error {
	if r.indexOf(r.active, n.ID) >= 0 || r.indexOf(r.trashed, n.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, n.ID)
	}
	r.active = append(r.active, n)
	r.sortActive()
	r.generation++
	return r.store.Save(CollectionActive, r.active)
}

// SoftDelete moves the note to the front of the trashed collection. The
// note itself is untouched; only membership changes.
func (r *Repository) SoftDelete(id string) error {
	idx := r.indexOf(r.active, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	n := r.active[idx]
	r.active = append(r.active[:idx], r.active[idx+1:]...)
	r.trashed = append([]Note{n}, r.trashed...)
	r.generation++
	return r.saveBoth()
}

// Restore moves a trashed note back into the active collection, which
// is re-sorted so the note lands at the position its CreatedAt dictates
// no matter how long it sat in trash.
func (r *Repository) Restore(id string) error {
	idx := r.indexOf(r.trashed, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	n := r.trashed[idx]
	r.trashed = append(r.trashed[:idx], r.trashed[idx+1:]...)
	r.active = append(r.active, n)
	r.sortActive()
	r.generation++
	return r.saveBoth()
}

// Purge removes a trashed note permanently. There is no recovery.
func (r *Repository) Purge(id string) error {
	idx := r.indexOf(r.trashed, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.trashed = append(r.trashed[:idx], r.trashed[idx+1:]...)
	r.generation++
	return r.store.Save(CollectionTrash, r.trashed)
}

// Active returns the ordered active collection as a copy.
func (r *Repository) Active() []Note {
	return append([]Note(nil), r.active...)
}

// Trashed returns the ordered trashed collection as a copy.
func (r *Repository) Trashed() []Note {
	return append([]Note(nil), r.trashed...)
}

// Get looks a note up by ID in either collection.
func (r *Repository) Get(id string) (Note, bool) {
	if idx := r.indexOf(r.active, id); idx >= 0 {
		return r.active[idx], true
	}
	if idx := r.indexOf(r.trashed, id); idx >= 0 {
		return r.trashed[idx], true
	}
	return Note{}, false
}

// Generation is the context-version tag. It moves forward on every
// successful mutation; sessions capture it when their context is built
// and treat a mismatch as staleness.
func (r *Repository) Generation() uint64 {
	return r.generation
}

func (r *Repository) saveBoth() error {
	activeErr := r.store.Save(CollectionActive, r.active)
	trashErr := r.store.Save(CollectionTrash, r.trashed)
	if activeErr != nil {
		return activeErr
	}
	return trashErr
}

func (r *Repository) sortActive() {
	sort.SliceStable(r.active, func(i, j int) bool {
		return r.active[i].CreatedAt.After(r.active[j].CreatedAt)
	})
}

func (r *Repository) indexOf(list []Note, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
