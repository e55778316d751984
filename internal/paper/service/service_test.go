package service

import (
	"errors"
	"testing"

	"github.com/paperbuilder/paper-builder/backend/go-services/internal/paper"
	"github.com/paperbuilder/paper-builder/backend/go-services/internal/paper/store"
	"github.com/paperbuilder/paper-builder/backend/go-services/internal/paper/validation"
	"github.com/paperbuilder/paper-builder/backend/go-services/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func validPaper() map[string]any {
	return map[string]any{"title": "Physics Quiz", "description": "Mechanics", "duration": 60, "totalMarks": 50}
}

func TestCreatePaper_RejectsInvalidWithoutTouchingStore(t *testing.T) {
	st := store.New()
	svc := New(st)
	before := testutil.ToFloat64(metrics.ValidationFailures.WithLabelValues("paper"))

	in := validPaper()
	in["title"] = ""
	_, err := svc.CreatePaper(in)
	fe, ok := validation.AsFieldErrors(err)
	require.True(t, ok)
	require.Equal(t, validation.MsgPaperTitleRequired, fe["title"])
	require.Empty(t, st.Papers())
	require.Equal(t, before+1, testutil.ToFloat64(metrics.ValidationFailures.WithLabelValues("paper")))
}

func TestCreatePaper_AppendsDraft(t *testing.T) {
	st := store.New()
	store.Seed(st)
	svc := New(st)
	before := testutil.ToFloat64(metrics.StoreMutations.WithLabelValues("add_paper"))

	p, err := svc.CreatePaper(validPaper())
	require.NoError(t, err)
	require.Equal(t, paper.StatusDraft, p.Status)
	require.Empty(t, p.Sections)

	list := svc.List()
	require.Len(t, list, 2)
	require.Equal(t, p.ID, list[1].ID)
	require.Equal(t, before+1, testutil.ToFloat64(metrics.StoreMutations.WithLabelValues("add_paper")))
	require.Equal(t, 2.0, testutil.ToFloat64(metrics.Papers))
}

func TestUpdatePaper(t *testing.T) {
	svc := New(store.New())
	p, err := svc.CreatePaper(validPaper())
	require.NoError(t, err)

	got, err := svc.UpdatePaper(p.ID, map[string]any{"status": "published", "totalMarks": "75"})
	require.NoError(t, err)
	require.Equal(t, paper.StatusPublished, got.Status)
	require.Equal(t, 75.0, got.TotalMarks)
	require.Equal(t, "Physics Quiz", got.Title)

	_, err = svc.UpdatePaper("missing", map[string]any{"title": "x"})
	require.True(t, errors.Is(err, ErrNotFound))

	_, err = svc.UpdatePaper(p.ID, map[string]any{"duration": 0})
	_, ok := validation.AsFieldErrors(err)
	require.True(t, ok)
}

func TestUpdatePaper_EmptyInputIsRead(t *testing.T) {
	st := store.New()
	svc := New(st)
	p, err := svc.CreatePaper(validPaper())
	require.NoError(t, err)
	version := st.Snapshot().Version

	got, err := svc.UpdatePaper(p.ID, map[string]any{"unknownField": 1})
	require.NoError(t, err)
	require.Equal(t, p, got)
	require.Equal(t, version, st.Snapshot().Version)

	_, err = svc.UpdatePaper("missing", map[string]any{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSections(t *testing.T) {
	svc := New(store.New())
	p, _ := svc.CreatePaper(validPaper())

	sec, err := svc.AddSection(p.ID, map[string]any{"title": "Kinematics", "instructions": "Answer all", "marks": 25})
	require.NoError(t, err)

	_, err = svc.AddSection("missing", map[string]any{"title": "Kinematics", "instructions": "Answer all", "marks": 25})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.AddSection(p.ID, map[string]any{"title": "", "instructions": "x", "marks": 0})
	fe, ok := validation.AsFieldErrors(err)
	require.True(t, ok)
	require.Len(t, fe, 2)

	got, err := svc.GetSection(p.ID, sec.ID)
	require.NoError(t, err)
	require.Equal(t, sec, got)
	_, err = svc.GetSection(p.ID, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.GetSection("missing", sec.ID)
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, svc.RemoveSection(p.ID, "missing"), ErrNotFound)
	require.NoError(t, svc.RemoveSection(p.ID, sec.ID))
	after, err := svc.Get(p.ID)
	require.NoError(t, err)
	require.Empty(t, after.Sections)
}

func TestDeleteAndSelection(t *testing.T) {
	svc := New(store.New())
	p, _ := svc.CreatePaper(validPaper())

	require.Nil(t, svc.Current())
	sel, err := svc.SelectPaper(p.ID)
	require.NoError(t, err)
	require.Equal(t, p.ID, sel.ID)
	require.Equal(t, p.ID, svc.Current().ID)

	_, err = svc.SelectPaper("missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.DeletePaper(p.ID))
	require.ErrorIs(t, svc.DeletePaper(p.ID), ErrNotFound)
	_, err = svc.Get(p.ID)
	require.ErrorIs(t, err, ErrNotFound)

	// the working copy outlives the stored paper until cleared
	require.NotNil(t, svc.Current())
	svc.ClearSelection()
	require.Nil(t, svc.Current())
}

func TestSummaries(t *testing.T) {
	st := store.New()
	store.Seed(st)
	svc := New(st)

	sums := svc.Summaries()
	require.Len(t, sums, 1)
	require.Equal(t, "Mathematics Final Exam", sums[0].Title)
	require.Equal(t, 2, sums[0].SectionCount)
	require.True(t, sums[0].MarksBalanced)
}
