package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/tradedesk/internal/domain"
)

func numbered(n int) []domain.LoggedAction {
	list := make([]domain.LoggedAction, n)
	for i := range list {
		list[i] = domain.LoggedAction{ID: i + 1, ActionType: "chat_query"}
	}
	return list
}

func TestFetchLimit(t *testing.T) {
	assert.Equal(t, 51, FetchLimit(1, 50))
	assert.Equal(t, 151, FetchLimit(3, 50))
	assert.Equal(t, 51, FetchLimit(-4, 50))
	assert.Equal(t, MaxPage*10+1, FetchLimit(MaxPage+7, 10))
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name      string
		fetched   int
		page      int
		wantFirst int
		wantLen   int
		wantPrev  bool
		wantNext  bool
	}{
		{"first page with more", 51, 1, 1, 50, false, true},
		{"first page exact", 50, 1, 1, 50, false, false},
		{"second page partial", 73, 2, 51, 23, true, false},
		{"third page with more", 151, 3, 101, 50, true, true},
		{"past the end", 20, 4, 0, 0, true, false},
		{"invalid page", 5, 0, 1, 5, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Paginate(numbered(tt.fetched), tt.page, 50)
			require.Len(t, p.Actions, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.wantFirst, p.Actions[0].ID)
			}
			assert.Equal(t, tt.wantPrev, p.HasPrev)
			assert.Equal(t, tt.wantNext, p.HasNext)
			assert.Equal(t, p.Number-1, p.Prev())
			assert.Equal(t, p.Number+1, p.Next())
		})
	}
}

func TestForPair(t *testing.T) {
	one, two := 1, 2
	list := []domain.LoggedAction{
		{ID: 1, TradingPairID: &one},
		{ID: 2},
		{ID: 3, TradingPairID: &two},
		{ID: 4, TradingPairID: &one},
		{ID: 5, TradingPairID: &one},
	}

	got := ForPair(list, 1, 2)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, 4, got[1].ID)

	assert.Empty(t, ForPair(list, 9, 20))
}
