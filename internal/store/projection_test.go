package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupByDateSingleDayBucket(t *testing.T) {
	registry := NewRegistry()
	morning := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	evening := time.Date(2024, time.March, 1, 18, 0, 0, 0, time.UTC)
	registry.Upsert(activityFixture("late", evening))
	registry.Upsert(activityFixture("early", morning))

	groups := GroupByDate(registry.Values())

	require.Len(t, groups, 1)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), groups[0].Day)
	require.Len(t, groups[0].Activities, 2)
	assert.Equal(t, "early", groups[0].Activities[0].ID)
	assert.Equal(t, "late", groups[0].Activities[1].ID)
}

func TestGroupByDateBucketsAscending(t *testing.T) {
	registry := NewRegistry()
	registry.Upsert(activityFixture("b", time.Date(2024, time.April, 2, 9, 0, 0, 0, time.UTC)))
	registry.Upsert(activityFixture("a", time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC)))
	registry.Upsert(activityFixture("c", time.Date(2024, time.April, 3, 9, 0, 0, 0, time.UTC)))

	groups := GroupByDate(registry.Values())

	require.Len(t, groups, 3)
	assert.Equal(t, "a", groups[0].Activities[0].ID)
	assert.Equal(t, "b", groups[1].Activities[0].ID)
	assert.Equal(t, "c", groups[2].Activities[0].ID)
}

func TestGroupByDateIsPure(t *testing.T) {
	registry := NewRegistry()
	registry.Upsert(activityFixture("a1", time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)))
	registry.Upsert(activityFixture("a2", time.Date(2024, time.March, 2, 10, 0, 0, 0, time.UTC)))

	first := GroupByDate(registry.Values())
	second := GroupByDate(registry.Values())
	assert.Equal(t, first, second)

	// An unrelated mutation leaves existing buckets intact.
	registry.Upsert(activityFixture("a3", time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)))
	third := GroupByDate(registry.Values())
	require.Len(t, third, 3)
	assert.Equal(t, first[0], third[0])
	assert.Equal(t, first[1], third[1])
}

func TestGroupByDateEmpty(t *testing.T) {
	registry := NewRegistry()
	assert.Empty(t, GroupByDate(registry.Values()))
}
