package hydrate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strrl/chat-history/pkg/models"
)

func TestCreationFromHeader(t *testing.T) {
	f := newFakeFetcher()
	f.bodies["chat-1"] = `[{"create_date":"2024-01-02T03:04:05Z"},{"send_date":1}]`
	c := NewCreationCache(f)

	recs := records("chat-1")
	c.Hydrate(context.Background(), recs, aliceScope, HydrateOptions{})

	at, raw := recs[0].CreatedAt()
	require.NotNil(t, at)
	assert.Equal(t, int64(1704164645000), at.UnixMilli())
	assert.Equal(t, "2024-01-02T03:04:05Z", raw)
}

func TestCreationFallsBackToFirstMessage(t *testing.T) {
	f := newFakeFetcher()
	f.bodies["chat-1"] = `[{"user_name":"me"},{"name":"Alice","send_date":1700000000}]`
	c := NewCreationCache(f)

	recs := records("chat-1")
	c.Hydrate(context.Background(), recs, aliceScope, HydrateOptions{})

	at, raw := recs[0].CreatedAt()
	require.NotNil(t, at)
	assert.Equal(t, int64(1700000000000), at.UnixMilli())
	assert.Equal(t, "2023-11-14T22:13:20Z", raw)
}

func TestCreationParsesHumanizedDate(t *testing.T) {
	f := newFakeFetcher()
	f.bodies["chat-1"] = `[{"create_date":"2024-1-2@15h04m05s"}]`
	c := NewCreationCache(f)

	recs := records("chat-1")
	c.Hydrate(context.Background(), recs, aliceScope, HydrateOptions{})

	at, raw := recs[0].CreatedAt()
	require.NotNil(t, at)
	assert.True(t, time.Date(2024, 1, 2, 15, 4, 5, 0, time.Local).Equal(*at))
	assert.Equal(t, "2024-1-2@15h04m05s", raw)
}

func TestCreationKeepsUnparseableRaw(t *testing.T) {
	f := newFakeFetcher()
	f.bodies["chat-1"] = `[{"create_date":"the dawn of time"}]`
	c := NewCreationCache(f)

	recs := records("chat-1")
	c.Hydrate(context.Background(), recs, aliceScope, HydrateOptions{})

	at, raw := recs[0].CreatedAt()
	assert.Nil(t, at)
	assert.Equal(t, "the dawn of time", raw)
}

func TestCreationRejectsOutOfRangeEpoch(t *testing.T) {
	f := newFakeFetcher()
	f.bodies["chat-1"] = `[{"create_date":1e20},{"send_date":1700000000}]`
	f.bodies["chat-2"] = `[{"create_date":1e20}]`
	c := NewCreationCache(f)

	recs := records("chat-1", "chat-2")
	c.Hydrate(context.Background(), recs, aliceScope, HydrateOptions{})

	at, _ := recs[0].CreatedAt()
	require.NotNil(t, at)
	assert.Equal(t, int64(1700000000000), at.UnixMilli())

	at, raw := recs[1].CreatedAt()
	assert.Nil(t, at)
	assert.Empty(t, raw)
}

func TestCreationGroupMetadataSkipsFetch(t *testing.T) {
	f := newFakeFetcher()
	groups := staticGroups{
		"g1": {ID: "g1", ChatMetadata: map[string]models.ChatMetadata{
			"party.jsonl": {CreateDate: "2024-03-01T00:00:00Z"},
		}},
	}
	c := NewCreationCache(f, WithGroups(groups))

	recs := records("Party")
	c.Hydrate(context.Background(), recs, models.GroupScope("g1"), HydrateOptions{})

	assert.Equal(t, 0, f.totalCalls())
	at, _ := recs[0].CreatedAt()
	require.NotNil(t, at)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), at.UnixMilli())
}

func TestCreationGroupFetchesWhenMetadataUnparseable(t *testing.T) {
	f := newFakeFetcher()
	f.bodies["party"] = `[{"name":"Bob","send_date":"2024-05-06 07:08:09"}]`
	groups := staticGroups{
		"g1": {ID: "g1", ChatMetadata: map[string]models.ChatMetadata{
			"party": {CreateDate: "soon"},
		}},
	}
	c := NewCreationCache(f, WithGroups(groups))

	recs := records("party")
	c.Hydrate(context.Background(), recs, models.GroupScope("g1"), HydrateOptions{})

	assert.Equal(t, 1, f.callCount("party"))
	at, raw := recs[0].CreatedAt()
	require.NotNil(t, at)
	assert.True(t, time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local).Equal(*at))
	assert.Equal(t, "2024-05-06 07:08:09", raw)
}

func TestCreationFailureClearsStaleValue(t *testing.T) {
	f := newFakeFetcher()
	f.failures["chat-1"] = errors.New("boom")
	c := NewCreationCache(f)

	recs := records("chat-1")
	ms := int64(1)
	recs[0].SetCreation(&models.CreationEntry{Timestamp: &ms, Raw: "stale"})

	c.Hydrate(context.Background(), recs, aliceScope, HydrateOptions{})
	at, raw := recs[0].CreatedAt()
	assert.Nil(t, at)
	assert.Empty(t, raw)

	// failures stay cached until invalidated
	c.Hydrate(context.Background(), recs, aliceScope, HydrateOptions{})
	assert.Equal(t, 1, f.callCount("chat-1"))
}
