package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adpulse/internal/domain"
	"adpulse/internal/storage"
)

func factDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testFact(channelID, sourceID, labelID int64, date time.Time, value float64) *domain.MetricFact {
	return &domain.MetricFact{
		CustomerID:  1,
		ConnectorID: 1,
		ChannelID:   channelID,
		SourceID:    sourceID,
		LabelID:     labelID,
		Date:        date,
		Value:       value,
	}
}

func TestFactStore_AppendAndQuery(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFactStore(conn)
	ctx := context.Background()

	err := store.Append(ctx, []*domain.MetricFact{
		testFact(1, 11, 1, factDate(2024, 3, 2), 50),
		testFact(1, 11, 1, factDate(2024, 3, 1), 100),
		testFact(2, 21, 1, factDate(2024, 3, 1), 30),
	})
	require.NoError(t, err)

	facts, err := store.Query(ctx, storage.FactQuery{
		CustomerID: 1,
		From:       factDate(2024, 3, 1),
		To:         factDate(2024, 3, 31),
	})
	require.NoError(t, err)
	require.Len(t, facts, 3)

	// Date ASC, id ASC; ids were assigned from the max-id watermark.
	assert.Equal(t, factDate(2024, 3, 1), facts[0].Date)
	assert.Equal(t, factDate(2024, 3, 1), facts[1].Date)
	assert.Equal(t, factDate(2024, 3, 2), facts[2].Date)
	for _, f := range facts {
		assert.Positive(t, f.ID)
		assert.Equal(t, domain.FactStatusActive, f.Status)
	}
}

func TestFactStore_AppendRejectsDuplicates(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFactStore(conn)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, []*domain.MetricFact{
		testFact(1, 11, 1, factDate(2024, 3, 1), 100),
	}))

	// Same natural key as an existing row.
	err := store.Append(ctx, []*domain.MetricFact{
		testFact(1, 11, 1, factDate(2024, 3, 1), 105),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Same key twice in one batch: rejected before anything lands.
	err = store.Append(ctx, []*domain.MetricFact{
		testFact(1, 11, 2, factDate(2024, 3, 1), 40),
		testFact(1, 11, 2, factDate(2024, 3, 1), 41),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	facts, err := store.Query(ctx, storage.FactQuery{
		CustomerID: 1,
		From:       factDate(2024, 3, 1),
		To:         factDate(2024, 3, 31),
	})
	require.NoError(t, err)
	assert.Len(t, facts, 1)
}

func TestFactStore_QueryFilters(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFactStore(conn)
	ctx := context.Background()

	predicted := testFact(1, 11, 1, factDate(2024, 3, 20), 110)
	predicted.Predicted = true

	err := store.Append(ctx, []*domain.MetricFact{
		testFact(1, 11, 1, factDate(2024, 3, 1), 100),
		testFact(1, 11, 2, factDate(2024, 3, 1), 40),
		testFact(2, 21, 1, factDate(2024, 3, 1), 30),
		predicted,
	})
	require.NoError(t, err)

	byChannel, err := store.Query(ctx, storage.FactQuery{
		CustomerID: 1,
		From:       factDate(2024, 3, 1),
		To:         factDate(2024, 3, 31),
		ChannelIDs: []int64{2},
	})
	require.NoError(t, err)
	require.Len(t, byChannel, 1)
	assert.Equal(t, int64(2), byChannel[0].ChannelID)

	byLabel, err := store.Query(ctx, storage.FactQuery{
		CustomerID: 1,
		From:       factDate(2024, 3, 1),
		To:         factDate(2024, 3, 31),
		LabelIDs:   []int64{2},
	})
	require.NoError(t, err)
	require.Len(t, byLabel, 1)
	assert.Equal(t, int64(2), byLabel[0].LabelID)

	onlyPredicted, err := store.Query(ctx, storage.FactQuery{
		CustomerID: 1,
		From:       factDate(2024, 3, 1),
		To:         factDate(2024, 3, 31),
		Predicted:  ptr(true),
	})
	require.NoError(t, err)
	require.Len(t, onlyPredicted, 1)
	assert.Equal(t, 110.0, onlyPredicted[0].Value)
}

func TestFactStore_Deactivate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFactStore(conn)
	ctx := context.Background()

	err := store.Append(ctx, []*domain.MetricFact{
		testFact(1, 11, 1, factDate(2024, 3, 1), 100),
		testFact(1, 11, 1, factDate(2024, 4, 1), 120),
	})
	require.NoError(t, err)

	err = store.Deactivate(ctx, 1, 1, factDate(2024, 3, 1), factDate(2024, 3, 31))
	require.NoError(t, err)

	// The mutation is applied asynchronously.
	assert.Eventually(t, func() bool {
		facts, err := store.Query(ctx, storage.FactQuery{
			CustomerID: 1,
			From:       factDate(2024, 3, 1),
			To:         factDate(2024, 4, 30),
		})
		return err == nil && len(facts) == 1 && facts[0].Date.Equal(factDate(2024, 4, 1))
	}, 10*time.Second, 100*time.Millisecond)
}

func TestFactStore_DistinctSourcePairs(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFactStore(conn)
	ctx := context.Background()

	predicted := testFact(9, 91, 1, factDate(2024, 3, 20), 10)
	predicted.Predicted = true

	err := store.Append(ctx, []*domain.MetricFact{
		testFact(2, 21, 1, factDate(2024, 3, 1), 30),
		testFact(1, 11, 1, factDate(2024, 3, 1), 100),
		testFact(1, 11, 2, factDate(2024, 3, 1), 40),
		predicted,
	})
	require.NoError(t, err)

	pairs, err := store.DistinctSourcePairs(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, []domain.ChannelSource{
		{ChannelID: 1, SourceID: 11},
		{ChannelID: 2, SourceID: 21},
	}, pairs)
}
