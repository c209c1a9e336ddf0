package lifecycle

import "errors"

// Ledger errors.
var (
	ErrNoCashCards  = errors.New("no cash cards available")
	ErrNoTokenCards = errors.New("no token cards available")
	ErrBadSizing    = errors.New("invalid ledger sizing")
)

// Ledger is the discretized position allocation for one token: a fixed
// number of cards split between a cash bucket and a token bucket. A buy
// converts cash cards to token cards at the current price, a sell
// reverses. Invariant: cash + token == total at all times.
type Ledger struct {
	total int
	cash  int
	token int
}

// NewLedger creates a ledger of total cards with initialCash in the cash
// bucket and the remainder in the token bucket.
func NewLedger(total, initialCash int) (*Ledger, error) {
	if total <= 0 || initialCash < 0 || initialCash > total {
		return nil, ErrBadSizing
	}
	return &Ledger{total: total, cash: initialCash, token: total - initialCash}, nil
}

// Buy moves cards from cash to token and returns the count moved. A
// request larger than the cash balance rejects with ErrNoCashCards and
// leaves the ledger untouched; moves are all or nothing.
func (l *Ledger) Buy(cards int) (int, error) {
	if cards <= 0 {
		return 0, ErrBadSizing
	}
	if cards > l.cash {
		return 0, ErrNoCashCards
	}
	l.cash -= cards
	l.token += cards
	return cards, nil
}

// Sell moves cards from token to cash and returns the count moved. Like
// Buy, an over-sized request rejects with ErrNoTokenCards.
func (l *Ledger) Sell(cards int) (int, error) {
	if cards <= 0 {
		return 0, ErrBadSizing
	}
	if cards > l.token {
		return 0, ErrNoTokenCards
	}
	l.token -= cards
	l.cash += cards
	return cards, nil
}

// Cash returns the cash bucket balance.
func (l *Ledger) Cash() int { return l.cash }

// Tokens returns the token bucket balance.
func (l *Ledger) Tokens() int { return l.token }

// Total returns the fixed card count.
func (l *Ledger) Total() int { return l.total }
