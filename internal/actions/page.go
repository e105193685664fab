package actions

import "github.com/ashureev/tradedesk/internal/domain"

// MaxPage bounds how deep the action log may be paged, since every page is
// cut from a single newest-first fetch.
const MaxPage = 200

// Page is one page of the newest-first action log.
type Page struct {
	Number  int
	Size    int
	Actions []domain.LoggedAction
	HasPrev bool
	HasNext bool
}

// Prev returns the previous page number.
func (p Page) Prev() int { return p.Number - 1 }

// Next returns the next page number.
func (p Page) Next() int { return p.Number + 1 }

// ClampPage maps any requested page number onto [1, MaxPage].
func ClampPage(n int) int {
	switch {
	case n < 1:
		return 1
	case n > MaxPage:
		return MaxPage
	default:
		return n
	}
}

// FetchLimit is how many newest actions must be fetched to render page n
// and know whether a further page exists.
func FetchLimit(n, size int) int {
	return ClampPage(n)*size + 1
}

// Paginate cuts page n of the given size out of a newest-first list that was
// fetched with FetchLimit(n, size).
func Paginate(list []domain.LoggedAction, n, size int) Page {
	n = ClampPage(n)
	p := Page{Number: n, Size: size, HasPrev: n > 1}
	start := (n - 1) * size
	if start >= len(list) {
		return p
	}
	end := start + size
	if end >= len(list) {
		end = len(list)
	} else {
		p.HasNext = true
	}
	p.Actions = list[start:end]
	return p
}

// ForPair keeps at most limit actions logged against the given trading pair,
// preserving order.
func ForPair(list []domain.LoggedAction, pairID, limit int) []domain.LoggedAction {
	out := make([]domain.LoggedAction, 0, limit)
	for _, a := range list {
		if len(out) == limit {
			break
		}
		if a.TradingPairID != nil && *a.TradingPairID == pairID {
			out = append(out, a)
		}
	}
	return out
}
