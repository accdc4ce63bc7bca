package journal

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/daybook/internal/associations"
	"github.com/mesh-intelligence/daybook/internal/attachments"
	"github.com/mesh-intelligence/daybook/internal/blob"
	"github.com/mesh-intelligence/daybook/internal/cascade"
	"github.com/mesh-intelligence/daybook/internal/errs"
	"github.com/mesh-intelligence/daybook/internal/sqlite"
	"github.com/mesh-intelligence/daybook/pkg/types"
)

type fixture struct {
	b     *sqlite.Backend
	assoc *associations.Engine
	files *attachments.Store
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := sqlite.NewBackend()
	require.NoError(t, b.Attach(context.Background(), t.TempDir()))
	t.Cleanup(func() { b.Detach() })

	assoc := associations.New(b.Terms(), b.Links(), nil, nil)
	files := attachments.New(b.Attachments(), b.Entries(), blob.NewFS(afero.NewMemMapFs()), attachments.Options{})
	coord := cascade.New(cascade.Deps{
		Entries:      b.Entries(),
		Associations: assoc,
		Attachments:  files,
		Links:        b.Links(),
		Terms:        b.Terms(),
	})
	return &fixture{b: b, assoc: assoc, files: files, svc: New(b.Entries(), assoc, files, coord, nil)}
}

func refNames(refs []types.TermRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Name
	}
	return out
}

func intPtr(v int) *int { return &v }

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	e, err := f.svc.Create(ctx, "alice", "2026-02-13", "<b>Hello</b> &amp; <i>world</i>\xff<script>alert(1)</script>")
	require.NoError(t, err)
	assert.Equal(t, "Hello & world", e.Content)

	got, err := f.svc.Get(ctx, "alice", e.EntryID)
	require.NoError(t, err)
	assert.Equal(t, e, got)

	_, err = f.svc.Get(ctx, "bob", e.EntryID)
	assert.True(t, errs.Is(err, errs.PermissionDenied))
	_, err = f.svc.Get(ctx, "alice", "missing")
	assert.True(t, errs.Is(err, errs.NotFound))

	_, err = f.svc.Create(ctx, "alice", "2026-02-30", "x")
	assert.True(t, errs.Is(err, errs.InvalidArgument))
	_, err = f.svc.Create(ctx, "", "2026-02-13", "x")
	assert.True(t, errs.Is(err, errs.InvalidArgument))
}

func TestUpdate(t *testing.T) {
	tests := []struct {
		name  string
		check func(t *testing.T, f *fixture, e types.Entry)
	}{
		{
			name: "rewrites content, date, ratings and terms",
			check: func(t *testing.T, f *fixture, e types.Entry) {
				ctx := context.Background()
				date := "2026-02-12"
				created := time.Date(2026, 2, 12, 21, 30, 0, 0, time.UTC)
				got, err := f.svc.Update(ctx, "alice", e.EntryID, UpdateInput{
					Content:     "<p>better</p>",
					Ratings:     &types.Ratings{Mood: intPtr(4)},
					Date:        &date,
					CreatedAt:   &created,
					Tags:        []string{"Work"},
					Symptoms:    []string{"Headache"},
					Medications: []string{"Aspirin"},
				})
				require.NoError(t, err)
				assert.Equal(t, "better", got.Content)
				assert.Equal(t, date, got.Date)
				assert.True(t, created.Equal(got.CreatedAt))

				v, err := f.svc.View(ctx, "alice", e.EntryID)
				require.NoError(t, err)
				assert.Equal(t, got, v.Entry)
				assert.Equal(t, []string{"work"}, refNames(v.Tags))
				assert.Equal(t, []string{"Headache"}, refNames(v.Symptoms))
				assert.Equal(t, []string{"Aspirin"}, refNames(v.Medications))
				require.NotNil(t, v.Ratings)
				assert.Equal(t, 4, *v.Ratings.Mood)
				assert.Nil(t, v.Ratings.Wellbeing)
			},
		},
		{
			name: "nil term lists are left alone, empty ones clear",
			check: func(t *testing.T, f *fixture, e types.Entry) {
				ctx := context.Background()
				_, err := f.svc.Update(ctx, "alice", e.EntryID, UpdateInput{Content: "x", Tags: []string{"a"}, Symptoms: []string{"Cough"}})
				require.NoError(t, err)
				_, err = f.svc.Update(ctx, "alice", e.EntryID, UpdateInput{Content: "y", Symptoms: []string{}})
				require.NoError(t, err)

				v, err := f.svc.View(ctx, "alice", e.EntryID)
				require.NoError(t, err)
				assert.Equal(t, []string{"a"}, refNames(v.Tags))
				assert.Empty(t, v.Symptoms)
				_, err = f.b.Terms().Find(ctx, "alice", types.KindSymptom, "Cough")
				assert.ErrorIs(t, err, types.ErrNotFound)
			},
		},
		{
			name: "tags from content",
			check: func(t *testing.T, f *fixture, e types.Entry) {
				ctx := context.Background()
				_, err := f.svc.Update(ctx, "alice", e.EntryID, UpdateInput{Content: "ran #Outside then #reading", TagsFromContent: true})
				require.NoError(t, err)
				v, err := f.svc.View(ctx, "alice", e.EntryID)
				require.NoError(t, err)
				assert.Equal(t, []string{"outside", "reading"}, refNames(v.Tags))
			},
		},
		{
			name: "empty ratings are stored as null",
			check: func(t *testing.T, f *fixture, e types.Entry) {
				ctx := context.Background()
				got, err := f.svc.Update(ctx, "alice", e.EntryID, UpdateInput{Content: "x", Ratings: &types.Ratings{}})
				require.NoError(t, err)
				assert.Nil(t, got.Ratings)
			},
		},
		{
			name: "validation errors",
			check: func(t *testing.T, f *fixture, e types.Entry) {
				ctx := context.Background()
				_, err := f.svc.Update(ctx, "alice", e.EntryID, UpdateInput{Ratings: &types.Ratings{Wellbeing: intPtr(6)}})
				assert.True(t, errs.Is(err, errs.InvalidArgument))
				bad := "2026-13-01"
				_, err = f.svc.Update(ctx, "alice", e.EntryID, UpdateInput{Date: &bad})
				assert.True(t, errs.Is(err, errs.InvalidArgument))
				_, err = f.svc.Update(ctx, "bob", e.EntryID, UpdateInput{})
				assert.True(t, errs.Is(err, errs.PermissionDenied))

				got, err := f.svc.Get(ctx, "alice", e.EntryID)
				require.NoError(t, err)
				assert.Equal(t, "first", got.Content)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			e, err := f.svc.Create(context.Background(), "alice", "2026-02-13", "first")
			require.NoError(t, err)
			tt.check(t, f, e)
		})
	}
}

func TestWriteForDate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.svc.WriteForDate(ctx, "alice", "2026-02-13", "walked #outside")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := f.svc.WriteForDate(ctx, "alice", "2026-02-13", "read a book #Reading")
	require.NoError(t, err)
	assert.Equal(t, first.EntryID, second.EntryID)
	assert.Equal(t, "read a book #Reading", second.Content)

	tags, err := f.assoc.TermsForEntry(ctx, first.EntryID, types.KindTag)
	require.NoError(t, err)
	assert.Equal(t, []string{"reading"}, refNames(tags))

	gone, err := f.svc.WriteForDate(ctx, "alice", "2026-02-13", "")
	require.NoError(t, err)
	assert.Nil(t, gone)

	list, err := f.svc.ByDate(ctx, "alice", "2026-02-13")
	require.NoError(t, err)
	assert.Empty(t, list)
	cloud, err := f.assoc.TermCloud(ctx, "alice", types.KindTag)
	require.NoError(t, err)
	assert.Empty(t, cloud)
}

func TestListings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, d := range []string{"2026-02-11", "2026-02-13", "2026-02-12", "2026-02-13"} {
		_, err := f.svc.Create(ctx, "alice", d, strings.Repeat("é", 45))
		require.NoError(t, err)
	}

	dates, err := f.svc.Dates(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-02-11", "2026-02-12", "2026-02-13"}, dates)

	list, err := f.svc.Range(ctx, "alice", "2026-02-12", "2026-02-13")
	require.NoError(t, err)
	assert.Len(t, list, 3)
	_, err = f.svc.Range(ctx, "alice", "2026-02-13", "2026-02-12")
	assert.True(t, errs.Is(err, errs.InvalidArgument))

	last, err := f.svc.Last(ctx, "alice", 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "2026-02-13", last[0].Date)
	assert.Equal(t, strings.Repeat("é", ExcerptLength), last[0].Excerpt)
	_, err = f.svc.Last(ctx, "alice", -1)
	assert.True(t, errs.Is(err, errs.InvalidArgument))
}

func TestEntriesByTerm(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	var ids []string
	for i := 0; i < 3; i++ {
		e, err := f.svc.WriteForDate(ctx, "alice", "2026-02-1"+string(rune('1'+i)), "#work day")
		require.NoError(t, err)
		ids = append(ids, e.EntryID)
	}
	tags, err := f.assoc.TermsForEntry(ctx, ids[0], types.KindTag)
	require.NoError(t, err)
	termID := tags[0].ID

	_, err = f.b.Links().Attach(ctx, types.KindTag, "ghost-entry", termID)
	require.NoError(t, err)
	bob, err := f.svc.Create(ctx, "bob", "2026-02-11", "x")
	require.NoError(t, err)
	_, err = f.b.Links().Attach(ctx, types.KindTag, bob.EntryID, termID)
	require.NoError(t, err)

	got, err := f.svc.EntriesByTerm(ctx, "alice", termID, 0, 0)
	require.NoError(t, err)
	gotIDs := make([]string, len(got))
	for i, e := range got {
		gotIDs[i] = e.EntryID
	}
	assert.Equal(t, ids, gotIDs)

	page, err := f.svc.EntriesByTerm(ctx, "alice", termID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[2], page[0].EntryID)

	_, err = f.svc.EntriesByTerm(ctx, "bob", termID, 0, 0)
	assert.True(t, errs.Is(err, errs.PermissionDenied))
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", Excerpt("short"))
	assert.Equal(t, strings.Repeat("a", ExcerptLength), Excerpt(strings.Repeat("a", 100)))
	assert.Equal(t, "", Excerpt(""))
}
