package service

import (
	"errors"

	"github.com/paperbuilder/paper-builder/backend/go-services/internal/paper"
	"github.com/paperbuilder/paper-builder/backend/go-services/internal/paper/store"
	"github.com/paperbuilder/paper-builder/backend/go-services/internal/paper/validation"
	"github.com/paperbuilder/paper-builder/backend/go-services/pkg/logger"
	"github.com/paperbuilder/paper-builder/backend/go-services/pkg/metrics"
)

var (
	ErrNotFound = errors.New("not found")
)

// Service defines the paper operations used by the handler layer. Raw
// input maps are validated before the store is touched; validation
// failures are returned as validation.FieldErrors.
type Service interface {
	CreatePaper(input map[string]any) (paper.Paper, error)
	UpdatePaper(id string, input map[string]any) (paper.Paper, error)
	DeletePaper(id string) error
	AddSection(paperID string, input map[string]any) (paper.Section, error)
	RemoveSection(paperID, sectionID string) error
	GetSection(paperID, sectionID string) (paper.Section, error)
	SelectPaper(id string) (paper.Paper, error)
	ClearSelection()
	List() []paper.Paper
	Get(id string) (paper.Paper, error)
	Current() *paper.Paper
	Summaries() []paper.Summary
	Subscribe(l store.Listener) (unsubscribe func())
}

// New returns a Service over st and keeps the papers gauge in step with it.
func New(st *store.Store) Service {
	metrics.Papers.Set(float64(len(st.Papers())))
	st.Subscribe(func(ch store.Change, s store.State) {
		metrics.StoreMutations.WithLabelValues(string(ch.Op)).Inc()
		metrics.Papers.Set(float64(len(s.Papers)))
	})
	return &paperService{store: st}
}

type paperService struct {
	store *store.Store
}

func (s *paperService) CreatePaper(input map[string]any) (paper.Paper, error) {
	form, err := validation.ValidatePaper(input)
	if err != nil {
		rejected("paper", err)
		return paper.Paper{}, err
	}
	p := s.store.AddPaper(form)
	logger.Infof("paper created: id=%s title=%q sections=%d", p.ID, p.Title, len(p.Sections))
	return p, nil
}

func (s *paperService) UpdatePaper(id string, input map[string]any) (paper.Paper, error) {
	u, err := validation.ValidatePaperUpdate(input)
	if err != nil {
		rejected("paper_update", err)
		return paper.Paper{}, err
	}
	if u.Empty() {
		// nothing to merge: read without touching UpdatedAt or the version
		return s.Get(id)
	}
	if !s.store.UpdatePaper(id, u) {
		return paper.Paper{}, ErrNotFound
	}
	p, ok := s.store.Paper(id)
	if !ok {
		// deleted between the update and the read
		return paper.Paper{}, ErrNotFound
	}
	logger.Debugf("paper updated: id=%s", id)
	return p, nil
}

func (s *paperService) DeletePaper(id string) error {
	if !s.store.DeletePaper(id) {
		return ErrNotFound
	}
	logger.Infof("paper deleted: id=%s", id)
	return nil
}

func (s *paperService) AddSection(paperID string, input map[string]any) (paper.Section, error) {
	form, err := validation.ValidateSection(input)
	if err != nil {
		rejected("section", err)
		return paper.Section{}, err
	}
	sec, ok := s.store.AddSectionToPaper(paperID, form)
	if !ok {
		return paper.Section{}, ErrNotFound
	}
	logger.Infof("section added: paper=%s section=%s marks=%g", paperID, sec.ID, sec.Marks)
	return sec, nil
}

func (s *paperService) RemoveSection(paperID, sectionID string) error {
	if !s.store.RemoveSectionFromPaper(paperID, sectionID) {
		return ErrNotFound
	}
	logger.Infof("section removed: paper=%s section=%s", paperID, sectionID)
	return nil
}

func (s *paperService) GetSection(paperID, sectionID string) (paper.Section, error) {
	p, ok := s.store.Paper(paperID)
	if !ok {
		return paper.Section{}, ErrNotFound
	}
	sec, ok := p.Section(sectionID)
	if !ok {
		return paper.Section{}, ErrNotFound
	}
	return sec, nil
}

// SelectPaper copies the stored paper into the current-paper slot.
func (s *paperService) SelectPaper(id string) (paper.Paper, error) {
	p, ok := s.store.Paper(id)
	if !ok {
		return paper.Paper{}, ErrNotFound
	}
	s.store.SetCurrentPaper(&p)
	return p, nil
}

func (s *paperService) ClearSelection() {
	s.store.SetCurrentPaper(nil)
}

func (s *paperService) List() []paper.Paper {
	return s.store.Papers()
}

func (s *paperService) Get(id string) (paper.Paper, error) {
	p, ok := s.store.Paper(id)
	if !ok {
		return paper.Paper{}, ErrNotFound
	}
	return p, nil
}

func (s *paperService) Current() *paper.Paper {
	return s.store.CurrentPaper()
}

func (s *paperService) Summaries() []paper.Summary {
	papers := s.store.Papers()
	out := make([]paper.Summary, 0, len(papers))
	for _, p := range papers {
		out = append(out, paper.Summarize(p))
	}
	return out
}

func (s *paperService) Subscribe(l store.Listener) func() {
	return s.store.Subscribe(l)
}

func rejected(form string, err error) {
	metrics.ValidationFailures.WithLabelValues(form).Inc()
	logger.Debugf("%s input rejected: %v", form, err)
}
