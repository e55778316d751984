// Package store is the in-memory aggregate root for papers and the paper
// currently being edited.
//
// State is copy-on-write: every mutation builds a new State and publishes
// it with a single atomic store, so a reader holding an older State never
// observes a partial update. Writers are serialised; reads take no lock.
// Operations on unknown ids are silent no-ops and do not notify listeners.
package store

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paperbuilder/paper-builder/backend/go-services/internal/paper"
)

// Op names a store mutation.
type Op string

const (
	OpAddPaper      Op = "add_paper"
	OpUpdatePaper   Op = "update_paper"
	OpDeletePaper   Op = "delete_paper"
	OpSetCurrent    Op = "set_current"
	OpAddSection    Op = "add_section"
	OpRemoveSection Op = "remove_section"
)

// State is one immutable snapshot of the store. Version increases by one
// with every applied mutation.
type State struct {
	Version uint64        `json:"version"`
	Papers  []paper.Paper `json:"papers"`
	Current *paper.Paper  `json:"currentPaper"`
}

func (s State) clone() State {
	out := State{Version: s.Version, Papers: make([]paper.Paper, len(s.Papers))}
	for i, p := range s.Papers {
		out.Papers[i] = p.Clone()
	}
	if s.Current != nil {
		c := s.Current.Clone()
		out.Current = &c
	}
	return out
}

// inUse reports whether id names any paper or section in s.
func (s State) inUse(id string) bool {
	for _, p := range s.Papers {
		if p.ID == id {
			return true
		}
		if _, ok := p.Section(id); ok {
			return true
		}
	}
	return false
}

func (s State) index(id string) int {
	for i, p := range s.Papers {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Change describes one applied mutation.
type Change struct {
	Op        Op        `json:"op"`
	PaperID   string    `json:"paperId,omitempty"`
	SectionID string    `json:"sectionId,omitempty"`
	Version   uint64    `json:"version"`
	At        time.Time `json:"at"`
}

// Listener is called after every applied mutation with the change and a
// copy of the resulting state. The copy is shared by every listener of
// that change and must be treated as read-only. Listeners run on the writer's goroutine
// after the write lock is released, so they may read or mutate the store;
// with concurrent writers they may observe changes out of Version order.
type Listener func(Change, State)

type Option func(*Store)

// WithIDGenerator replaces the default uuid generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) { s.ids = g }
}

// WithClock replaces time.Now for creation and update timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithPapers starts the store with the given papers. Papers with an empty
// or repeated id are dropped, as are sections whose id is already taken.
func WithPapers(papers ...paper.Paper) Option {
	return func(s *Store) {
		st := State{Papers: make([]paper.Paper, 0, len(papers))}
		seen := make(map[string]bool)
		for _, p := range papers {
			if p.ID == "" || seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			c := p.Clone()
			c.Sections = c.Sections[:0]
			for _, sec := range p.Sections {
				if sec.ID == "" || seen[sec.ID] {
					continue
				}
				seen[sec.ID] = true
				c.Sections = append(c.Sections, sec.Clone())
			}
			st.Papers = append(st.Papers, c)
		}
		s.state.Store(&st)
	}
}

type Store struct {
	mu    sync.Mutex
	state atomic.Pointer[State]
	ids   IDGenerator
	now   func() time.Time

	lmu          sync.RWMutex
	listeners    map[uint64]Listener
	nextListener uint64
}

// New constructs an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		ids:       UUIDGenerator{},
		now:       time.Now,
		listeners: make(map[uint64]Listener),
	}
	s.state.Store(&State{Papers: []paper.Paper{}})
	for _, o := range opts {
		o(s)
	}
	return s
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	return s.state.Load().clone()
}

// Papers returns a copy of all papers in insertion order.
func (s *Store) Papers() []paper.Paper {
	return s.Snapshot().Papers
}

// Paper returns a copy of the paper with the given id.
func (s *Store) Paper(id string) (paper.Paper, bool) {
	cur := s.state.Load()
	if i := cur.index(id); i >= 0 {
		return cur.Papers[i].Clone(), true
	}
	return paper.Paper{}, false
}

// CurrentPaper returns a copy of the paper being edited, or nil.
func (s *Store) CurrentPaper() *paper.Paper {
	return s.Snapshot().Current
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.lmu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = l
	s.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lmu.Lock()
			delete(s.listeners, id)
			s.lmu.Unlock()
		})
	}
}

// AddPaper appends a new draft paper built from form. Any supplied
// sections receive their own ids and timestamps.
func (s *Store) AddPaper(form paper.PaperForm) paper.Paper {
	var created paper.Paper
	s.apply(func(next *State, now time.Time) (Change, bool) {
		created = paper.Paper{
			ID:          s.newID(next),
			Title:       form.Title,
			Description: form.Description,
			Duration:    form.Duration,
			TotalMarks:  form.TotalMarks,
			Sections:    make([]paper.Section, 0, len(form.Sections)),
			Status:      paper.StatusDraft,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		taken := []string{created.ID}
		for _, sf := range form.Sections {
			sec := s.newSection(sf, s.newID(next, taken...), now)
			taken = append(taken, sec.ID)
			created.Sections = append(created.Sections, sec)
		}
		next.Papers = append(next.Papers, created)
		return Change{Op: OpAddPaper, PaperID: created.ID}, true
	})
	return created.Clone()
}

// UpdatePaper merges the set fields of u over the paper with the given id.
// The paper keeps its position. It reports whether the paper existed.
func (s *Store) UpdatePaper(id string, u paper.PaperUpdate) bool {
	return s.apply(func(next *State, now time.Time) (Change, bool) {
		i := next.index(id)
		if i < 0 {
			return Change{}, false
		}
		p := next.Papers[i].Clone()
		u.Apply(&p)
		p.UpdatedAt = now
		next.Papers[i] = p
		return Change{Op: OpUpdatePaper, PaperID: id}, true
	})
}

// DeletePaper removes the paper and the sections it owns. It reports
// whether the paper existed.
func (s *Store) DeletePaper(id string) bool {
	return s.apply(func(next *State, _ time.Time) (Change, bool) {
		i := next.index(id)
		if i < 0 {
			return Change{}, false
		}
		next.Papers = append(next.Papers[:i:i], next.Papers[i+1:]...)
		return Change{Op: OpDeletePaper, PaperID: id}, true
	})
}

// SetCurrentPaper replaces the paper being edited. p is copied; nil clears
// the selection. It is not checked against the stored papers.
func (s *Store) SetCurrentPaper(p *paper.Paper) {
	s.apply(func(next *State, _ time.Time) (Change, bool) {
		ch := Change{Op: OpSetCurrent}
		if p == nil {
			next.Current = nil
			return ch, true
		}
		c := p.Clone()
		next.Current = &c
		ch.PaperID = c.ID
		return ch, true
	})
}

// AddSectionToPaper appends a new section built from form to the paper.
// The returned bool is false when the paper does not exist.
func (s *Store) AddSectionToPaper(paperID string, form paper.SectionForm) (paper.Section, bool) {
	var created paper.Section
	applied := s.apply(func(next *State, now time.Time) (Change, bool) {
		i := next.index(paperID)
		if i < 0 {
			return Change{}, false
		}
		created = s.newSection(form, s.newID(next), now)
		p := next.Papers[i].Clone()
		p.Sections = append(p.Sections, created)
		p.UpdatedAt = now
		next.Papers[i] = p
		return Change{Op: OpAddSection, PaperID: paperID, SectionID: created.ID}, true
	})
	return created.Clone(), applied
}

// RemoveSectionFromPaper removes one section from the paper. It reports
// whether both the paper and the section existed.
func (s *Store) RemoveSectionFromPaper(paperID, sectionID string) bool {
	return s.apply(func(next *State, now time.Time) (Change, bool) {
		i := next.index(paperID)
		if i < 0 {
			return Change{}, false
		}
		p := next.Papers[i].Clone()
		for j, sec := range p.Sections {
			if sec.ID != sectionID {
				continue
			}
			p.Sections = append(p.Sections[:j:j], p.Sections[j+1:]...)
			p.UpdatedAt = now
			next.Papers[i] = p
			return Change{Op: OpRemoveSection, PaperID: paperID, SectionID: sectionID}, true
		}
		return Change{}, false
	})
}

// newID draws ids until one is free in st and not in taken. Generators
// never repeat, so only ids supplied through WithPapers cause a retry.
func (s *Store) newID(st *State, taken ...string) string {
	for {
		id := s.ids.NewID()
		if !st.inUse(id) && !slices.Contains(taken, id) {
			return id
		}
	}
}

func (s *Store) newSection(f paper.SectionForm, id string, now time.Time) paper.Section {
	sec := paper.Section{
		ID:           id,
		Title:        f.Title,
		Instructions: f.Instructions,
		Marks:        f.Marks,
		Questions:    append([]string{}, f.Questions...),
		CreatedAt:    now,
	}
	if f.TimeLimit != nil {
		v := *f.TimeLimit
		sec.TimeLimit = &v
	}
	return sec
}

// apply runs mutate against a shallow copy of the current state. The paper
// slice header is copied so appends and removals never touch the published
// backing array; mutate must replace, not edit, any paper it changes.
func (s *Store) apply(mutate func(next *State, now time.Time) (Change, bool)) bool {
	s.mu.Lock()
	cur := s.state.Load()
	next := &State{
		Version: cur.Version + 1,
		Papers:  append([]paper.Paper(nil), cur.Papers...),
		Current: cur.Current,
	}
	now := s.now()
	ch, ok := mutate(next, now)
	if !ok {
		s.mu.Unlock()
		return false
	}
	if next.Papers == nil {
		next.Papers = []paper.Paper{}
	}
	s.state.Store(next)
	s.mu.Unlock()

	ch.Version = next.Version
	ch.At = now
	s.notify(ch, next)
	return true
}

func (s *Store) notify(ch Change, st *State) {
	s.lmu.RLock()
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.lmu.RUnlock()
	if len(ls) == 0 {
		return
	}
	shared := st.clone()
	for _, l := range ls {
		l(ch, shared)
	}
}
