package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestDerive(t *testing.T) {
	t.Run("open entry has no total hours", func(t *testing.T) {
		e := Entry{
			CheckIn: at(10, 9, 0),
			Breaks:  []Break{{Start: at(10, 10, 0), End: ptr(at(10, 10, 15))}, {Start: at(10, 12, 0)}},
		}
		Derive(&e)

		assert.Equal(t, 15, e.TotalBreakMinutes)
		assert.Nil(t, e.TotalHours)
	})

	t.Run("net hours exclude breaks and prayers", func(t *testing.T) {
		e := Entry{
			CheckIn:  at(10, 9, 0),
			CheckOut: ptr(at(10, 17, 0)),
			Breaks:   []Break{{Start: at(10, 12, 0), End: ptr(at(10, 12, 45)), Category: BreakCategoryMeal}},
			Namaz:    []Namaz{{Start: at(10, 13, 0), End: ptr(at(10, 13, 15)), Type: NamazDhuhr}},
		}
		Derive(&e)

		assert.Equal(t, 45, e.TotalBreakMinutes)
		assert.Equal(t, 15, e.TotalNamazMinutes)
		require.NotNil(t, e.TotalHours)
		assert.Equal(t, 7.0, *e.TotalHours)
	})

	t.Run("night shift crossing midnight", func(t *testing.T) {
		e := Entry{
			CheckIn:  at(10, 23, 50),
			CheckOut: ptr(at(11, 7, 10)),
			Breaks:   []Break{{Start: at(11, 0, 10), End: ptr(at(11, 0, 40))}},
		}
		Derive(&e)

		assert.Equal(t, 30, e.TotalBreakMinutes)
		require.NotNil(t, e.TotalHours)
		assert.Equal(t, 6.83, *e.TotalHours)
	})

	t.Run("total hours never negative", func(t *testing.T) {
		e := Entry{
			CheckIn:  at(10, 9, 0),
			CheckOut: ptr(at(10, 9, 10)),
			Breaks:   []Break{{Start: at(10, 9, 0), End: ptr(at(10, 9, 30))}},
		}
		Derive(&e)

		require.NotNil(t, e.TotalHours)
		assert.Zero(t, *e.TotalHours)
	})
}

func TestCloseAt(t *testing.T) {
	e := Entry{
		CheckIn: at(10, 9, 0),
		Breaks:  []Break{{Start: at(10, 16, 30)}},
		Namaz:   []Namaz{{Start: at(10, 15, 0), End: ptr(at(10, 15, 10))}, {Start: at(10, 16, 50)}},
	}
	CloseAt(&e, at(10, 17, 0))

	require.NotNil(t, e.CheckOut)
	assert.Equal(t, -1, e.OpenBreak())
	assert.Equal(t, -1, e.OpenNamaz())
	assert.Equal(t, 30, e.TotalBreakMinutes)
	assert.Equal(t, 20, e.TotalNamazMinutes)
	require.NotNil(t, e.TotalHours)
	assert.Equal(t, 7.17, *e.TotalHours)
}

func TestEntry_Clone(t *testing.T) {
	e := Entry{
		CheckIn: at(10, 9, 0),
		Breaks:  []Break{{Start: at(10, 10, 0)}},
	}
	c := e.Clone()
	c.Breaks[0].End = ptr(at(10, 10, 5))
	c.Breaks = append(c.Breaks, Break{Start: at(10, 11, 0)})

	assert.Nil(t, e.Breaks[0].End)
	assert.Len(t, e.Breaks, 1)
}
