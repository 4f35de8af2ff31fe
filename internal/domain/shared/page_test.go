package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFilter(t *testing.T) {
	tests := []struct {
		name             string
		page, size       int
		wantPage, wantSz int
	}{
		{"defaults", 0, 0, 1, DefaultPageSize},
		{"explicit", 3, 50, 3, 50},
		{"negative page", -2, 10, 1, 10},
		{"clamped", 1, 10_000, 1, MaxPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFilter(tt.page, tt.size)
			assert.Equal(t, tt.wantPage, f.Page)
			assert.Equal(t, tt.wantSz, f.PageSize)
			assert.NotNil(t, f.Where)
		})
	}
}

func TestFilter_WhereEqAndOffset(t *testing.T) {
	f := NewFilter(3, 20).WhereEq("vendor_id", "V1").WhereEq("status", "")
	assert.Equal(t, map[string]any{"vendor_id": "V1"}, f.Where)
	assert.Equal(t, 40, f.Offset())

	var zero Filter
	assert.Equal(t, 0, zero.Offset())
	assert.Equal(t, "V2", zero.WhereEq("vendor_id", "V2").Where["vendor_id"])

	assert.Zero(t, Unpaged().PageSize)
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2}, 41, 1, 20)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, int64(41), p.Total)

	assert.Zero(t, NewPaginated([]int{}, 5, 1, 0).TotalPages)
	assert.Equal(t, 1, NewPaginated([]int{1}, 20, 1, 20).TotalPages)
}

func TestBaseAggregateRoot(t *testing.T) {
	a := NewBaseAggregateRoot()
	assert.Equal(t, 1, a.GetVersion())
	assert.Equal(t, a.CreatedAt, a.UpdatedAt)

	a.IncrementVersion()
	assert.Equal(t, 2, a.Version)

	ev := NewBaseDomainEvent("thing.happened", "Thing", a.ID)
	a.AddDomainEvent(&ev)
	assert.Len(t, a.GetDomainEvents(), 1)
	assert.Equal(t, a.ID, a.GetDomainEvents()[0].AggregateID())
	a.ClearDomainEvents()
	assert.Empty(t, a.GetDomainEvents())
}
