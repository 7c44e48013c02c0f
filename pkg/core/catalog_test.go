package core

import (
	"context"
	"testing"

	"arbor/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture gives every category the heights 10..50.
func fixture() []common.Record {
	var recs []common.Record
	id := uint32(1)
	for _, c := range common.Categories {
		for _, h := range []uint32{30, 10, 50, 20, 40} {
			recs = append(recs, common.Record{
				ID:         id,
				Age:        c,
				TrunkWidth: 4,
				Ward:       "Stockton",
				Species:    "Sycamore",
				Height:     h,
			})
			id++
		}
	}
	return recs
}

func TestBuildCatalogLookup(t *testing.T) {
	cat, err := BuildCatalog(context.Background(), fixture())
	require.NoError(t, err)

	for _, c := range common.Categories {
		min, err := cat.Lookup(c, Minimum)
		require.NoError(t, err)
		assert.Equal(t, uint32(10), min.Height)
		assert.Equal(t, c, min.Age)

		max, err := cat.Lookup(c, Maximum)
		require.NoError(t, err)
		assert.Equal(t, uint32(50), max.Height)
		assert.Equal(t, c, max.Age)

		assert.Equal(t, 5, cat.Size(c))
	}
}

func TestBuildCatalogDropsUnmeasured(t *testing.T) {
	recs := fixture()
	recs = append(recs,
		common.Record{ID: 900, Age: common.Young, TrunkWidth: 0, Height: 999},
		common.Record{ID: 901, Age: common.Young, TrunkWidth: 5, Height: 0},
	)

	cat, err := BuildCatalog(context.Background(), recs)
	require.NoError(t, err)

	max, err := cat.Lookup(common.Young, Maximum)
	require.NoError(t, err)
	assert.Equal(t, uint32(50), max.Height)

	min, err := cat.Lookup(common.Young, Minimum)
	require.NoError(t, err)
	assert.NotEqual(t, uint32(901), min.ID)

	assert.Equal(t, 5, cat.Size(common.Young))

	st := cat.Stats()
	assert.Equal(t, 2, st.Dropped)
	assert.Equal(t, len(recs), st.Received)
	require.Len(t, st.Categories, 4)
}

func TestBuildCatalogEmptyCategory(t *testing.T) {
	var recs []common.Record
	for _, r := range fixture() {
		if r.Age != common.SemiMature {
			recs = append(recs, r)
		}
	}
	// Present but unmeasured still counts as empty.
	recs = append(recs, common.Record{ID: 77, Age: common.SemiMature, TrunkWidth: 0, Height: 3})

	_, err := BuildCatalog(context.Background(), recs)
	require.ErrorIs(t, err, ErrEmptyCategory)
	assert.Contains(t, err.Error(), "SemiMature")
}

func TestBuildCatalogCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := BuildCatalog(ctx, fixture())
	require.ErrorIs(t, err, context.Canceled)
}

func TestCatalogLookupUnknown(t *testing.T) {
	cat, err := BuildCatalog(context.Background(), fixture())
	require.NoError(t, err)

	_, err = cat.Lookup(common.AgeCategory(17), Minimum)
	require.ErrorIs(t, err, ErrUnknownCategory)

	_, err = cat.Lookup(common.Young, QueryKind(9))
	require.ErrorIs(t, err, ErrUnknownQuery)

	assert.Zero(t, cat.Size(common.AgeCategory(17)))
}
