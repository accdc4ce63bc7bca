package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/daybook/pkg/types"
)

func createTerm(t *testing.T, b *Backend, owner string, kind types.Kind, name string) types.Term {
	t.Helper()
	term := types.Term{OwnerID: owner, Kind: kind, Name: name}
	require.NoError(t, b.Terms().Create(context.Background(), &term))
	return term
}

func TestTermsTable(t *testing.T) {
	tests := []struct {
		name  string
		check func(t *testing.T, b *Backend)
	}{
		{
			name: "create then find and get",
			check: func(t *testing.T, b *Backend) {
				ctx := context.Background()
				term := createTerm(t, b, "alice", types.KindTag, "work")
				assert.NotEmpty(t, term.TermID)

				found, err := b.Terms().Find(ctx, "alice", types.KindTag, "work")
				require.NoError(t, err)
				assert.Equal(t, term, found)

				got, err := b.Terms().Get(ctx, term.TermID)
				require.NoError(t, err)
				assert.Equal(t, term, got)
			},
		},
		{
			name: "duplicate (owner, kind, name) returns ErrDuplicate",
			check: func(t *testing.T, b *Backend) {
				createTerm(t, b, "alice", types.KindSymptom, "Headache")
				dup := types.Term{OwnerID: "alice", Kind: types.KindSymptom, Name: "Headache"}
				assert.ErrorIs(t, b.Terms().Create(context.Background(), &dup), types.ErrDuplicate)
			},
		},
		{
			name: "uniqueness is case sensitive and scoped by owner and kind",
			check: func(t *testing.T, b *Backend) {
				createTerm(t, b, "alice", types.KindSymptom, "Headache")
				createTerm(t, b, "alice", types.KindSymptom, "headache")
				createTerm(t, b, "alice", types.KindMedication, "Headache")
				createTerm(t, b, "bob", types.KindSymptom, "Headache")
			},
		},
		{
			name: "find missing returns ErrNotFound",
			check: func(t *testing.T, b *Backend) {
				_, err := b.Terms().Find(context.Background(), "alice", types.KindTag, "nope")
				assert.ErrorIs(t, err, types.ErrNotFound)
			},
		},
		{
			name: "create rejects invalid kind and empty name",
			check: func(t *testing.T, b *Backend) {
				ctx := context.Background()
				bad := types.Term{OwnerID: "alice", Kind: "mood", Name: "x"}
				assert.ErrorIs(t, b.Terms().Create(ctx, &bad), types.ErrInvalidKind)
				empty := types.Term{OwnerID: "alice", Kind: types.KindTag}
				assert.ErrorIs(t, b.Terms().Create(ctx, &empty), types.ErrInvalidData)
			},
		},
		{
			name: "set category and clear it",
			check: func(t *testing.T, b *Backend) {
				ctx := context.Background()
				term := createTerm(t, b, "alice", types.KindMedication, "Ibuprofen")
				cat := "painkiller"
				require.NoError(t, b.Terms().SetCategory(ctx, term.TermID, &cat))
				got, err := b.Terms().Get(ctx, term.TermID)
				require.NoError(t, err)
				require.NotNil(t, got.Category)
				assert.Equal(t, "painkiller", *got.Category)

				require.NoError(t, b.Terms().SetCategory(ctx, term.TermID, nil))
				got, err = b.Terms().Get(ctx, term.TermID)
				require.NoError(t, err)
				assert.Nil(t, got.Category)

				assert.ErrorIs(t, b.Terms().SetCategory(ctx, "missing", &cat), types.ErrNotFound)
			},
		},
		{
			name: "cloud counts links, hides unlinked terms, orders by count",
			check: func(t *testing.T, b *Backend) {
				ctx := context.Background()
				work := createTerm(t, b, "alice", types.KindTag, "work")
				home := createTerm(t, b, "alice", types.KindTag, "home")
				createTerm(t, b, "alice", types.KindTag, "idle")
				for _, entry := range []string{"e1", "e2", "e3"} {
					_, err := b.Links().Attach(ctx, types.KindTag, entry, work.TermID)
					require.NoError(t, err)
				}
				_, err := b.Links().Attach(ctx, types.KindTag, "e1", home.TermID)
				require.NoError(t, err)

				cloud, err := b.Terms().Cloud(ctx, "alice", types.KindTag)
				require.NoError(t, err)
				require.Len(t, cloud, 2)
				assert.Equal(t, "work", cloud[0].Name)
				assert.Equal(t, 3, cloud[0].Count)
				assert.Equal(t, "home", cloud[1].Name)
				assert.Equal(t, 1, cloud[1].Count)
			},
		},
		{
			name: "delete unused removes only linkless terms of the kind",
			check: func(t *testing.T, b *Backend) {
				ctx := context.Background()
				used := createTerm(t, b, "alice", types.KindTag, "used")
				createTerm(t, b, "alice", types.KindTag, "unused")
				otherKind := createTerm(t, b, "alice", types.KindSymptom, "unlinked symptom")
				_, err := b.Links().Attach(ctx, types.KindTag, "e1", used.TermID)
				require.NoError(t, err)

				n, err := b.Terms().DeleteUnused(ctx, "alice", types.KindTag)
				require.NoError(t, err)
				assert.Equal(t, int64(1), n)

				_, err = b.Terms().Get(ctx, used.TermID)
				assert.NoError(t, err)
				_, err = b.Terms().Get(ctx, otherKind.TermID)
				assert.NoError(t, err)
			},
		},
		{
			name: "delete by owner removes linked terms too",
			check: func(t *testing.T, b *Backend) {
				ctx := context.Background()
				term := createTerm(t, b, "alice", types.KindTag, "work")
				createTerm(t, b, "bob", types.KindTag, "work")
				_, err := b.Links().Attach(ctx, types.KindTag, "e1", term.TermID)
				require.NoError(t, err)

				n, err := b.Terms().DeleteByOwner(ctx, "alice")
				require.NoError(t, err)
				assert.Equal(t, int64(1), n)

				left, err := b.Terms().ListByOwner(ctx, "bob")
				require.NoError(t, err)
				assert.Len(t, left, 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, newTestBackend(t))
		})
	}
}
