package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
)

func sampleRecords(urls ...string) []model.Record {
	out := make([]model.Record, len(urls))
	for i, u := range urls {
		out[i] = model.Record{
			Timestamp:   "2025-01-02T03:04:05Z",
			SearchQuery: "roofing Denver",
			Title:       "Title " + u,
			URL:         u,
			Snippet:     "snippet for " + u,
		}
	}
	return out
}

// runLedgerContract exercises behavior every backend must share.
func runLedgerContract(t *testing.T, l Ledger) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, l.EnsureHeader(ctx))

	n, err := l.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	keys, err := l.ListExistingKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	empty, err := l.ReadRange(ctx, 1, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, l.AppendRecords(ctx, sampleRecords("https://a.example", "https://b.example", "https://c.example")))
	require.NoError(t, l.AppendRecords(ctx, nil))

	n, err = l.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	keys, err = l.ListExistingKeys(ctx)
	require.NoError(t, err)
	assert.True(t, keys.Has("https://a.example"))
	assert.True(t, keys.Has("https://c.example"))
	assert.Len(t, keys, 3)

	// End past the last row is clamped.
	recs, err := l.ReadRange(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 2, recs[0].RowKey)
	assert.Equal(t, "https://b.example", recs[0].URL)
	assert.Equal(t, "Title https://b.example", recs[0].Title)
	assert.Equal(t, "roofing Denver", recs[0].SearchQuery)
	assert.False(t, recs[0].Attempted())
	assert.Equal(t, 3, recs[1].RowKey)

	contact := model.Contact{CompanyName: "Acme", Telephone: "+1 555", ContactEmail: "hi@acme.example"}
	require.NoError(t, l.UpdateFields(ctx, 2, model.ContactFields(contact)))
	require.NoError(t, l.UpdateFields(ctx, 3, model.Fields{model.ColSalesEmail: "Hi Acme,\n\nThanks"}))

	recs, err = l.ReadRange(ctx, 1, 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.False(t, recs[0].Attempted())
	assert.Empty(t, recs[0].CompanyName)

	assert.True(t, recs[1].Attempted())
	assert.Equal(t, "Acme", recs[1].CompanyName)
	assert.Equal(t, "+1 555", recs[1].Telephone)
	assert.Equal(t, "hi@acme.example", recs[1].ContactEmail)
	assert.Equal(t, "https://b.example", recs[1].URL, "untouched cells survive a partial update")
	assert.Empty(t, recs[1].SalesEmail)

	assert.Equal(t, "Hi Acme,\n\nThanks", recs[2].SalesEmail)
	assert.False(t, recs[2].Attempted())

	none, err := l.ReadRange(ctx, 7, 9)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = l.ReadRange(ctx, 0, 2)
	assert.ErrorIs(t, err, model.ErrInvalidRange)

	_, err = l.ReadRange(ctx, 3, 2)
	assert.ErrorIs(t, err, model.ErrInvalidRange)

	assert.Error(t, l.UpdateFields(ctx, 1, nil))

	require.NoError(t, l.AppendRecords(ctx, sampleRecords("https://d.example")))
	recs, err = l.ReadRange(ctx, 4, 4)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 4, recs[0].RowKey)
	assert.Equal(t, "https://d.example", recs[0].URL)

	// Header maintenance never moves data.
	require.NoError(t, l.EnsureHeader(ctx))
	n, err = l.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
