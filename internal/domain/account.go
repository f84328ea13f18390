package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Roles and memberships assigned at signup.
const (
	RoleUser          = "USER"
	MembershipRegular = "REGULAR"
	MembershipGold    = "GOLD"
)

// Account is one user's trading state: cash, share holdings, option
// holdings, watchlist and goals.
type Account struct {
	ID         string
	Username   string
	Email      string
	FirstName  string
	LastName   string
	DOB        string
	Role       string
	Membership string
	Cash       decimal.Decimal
	Holdings   map[string]decimal.Decimal // symbol → shares
	Options    map[string]decimal.Decimal // OptionContract.Key() → contracts
	Watchlist  []string
	Goals      []Goal
	CreatedAt  time.Time
}

// Holding is a positive share quantity of one symbol.
type Holding struct {
	Symbol   string
	Quantity decimal.Decimal
}

// Quantity returns the shares held for symbol; entries ≤ 0 count as zero.
func (a *Account) Quantity(symbol string) decimal.Decimal {
	q, ok := a.Holdings[symbol]
	if !ok || !q.IsPositive() {
		return decimal.Zero
	}
	return q
}

// ActiveHoldings returns the holdings with quantity > 0 ordered by symbol.
func (a *Account) ActiveHoldings() []Holding {
	out := make([]Holding, 0, len(a.Holdings))
	for symbol, q := range a.Holdings {
		if q.IsPositive() {
			out = append(out, Holding{Symbol: symbol, Quantity: q})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// ActiveOptions returns option holdings with a positive contract count,
// ordered by key. Keys that fail to parse are skipped.
func (a *Account) ActiveOptions() []OptionHolding {
	out := make([]OptionHolding, 0, len(a.Options))
	for key, n := range a.Options {
		if !n.IsPositive() {
			continue
		}
		c, err := ParseOptionKey(key)
		if err != nil {
			continue
		}
		out = append(out, OptionHolding{Contract: c, Contracts: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Contract.Key() < out[j].Contract.Key() })
	return out
}

// Clone returns a deep copy so callers can't mutate store-owned state.
func (a *Account) Clone() *Account {
	c := *a
	c.Holdings = make(map[string]decimal.Decimal, len(a.Holdings))
	for k, v := range a.Holdings {
		c.Holdings[k] = v
	}
	c.Options = make(map[string]decimal.Decimal, len(a.Options))
	for k, v := range a.Options {
		c.Options[k] = v
	}
	c.Watchlist = append([]string(nil), a.Watchlist...)
	c.Goals = append([]Goal(nil), a.Goals...)
	return &c
}

// AccountDelta is a conditionless increment applied to one account: cash
// and the share count of a single symbol move together.
type AccountDelta struct {
	Cash     decimal.Decimal
	Symbol   string
	Quantity decimal.Decimal
}

// Reverse returns the delta that undoes d.
func (d AccountDelta) Reverse() AccountDelta {
	return AccountDelta{Cash: d.Cash.Neg(), Symbol: d.Symbol, Quantity: d.Quantity.Neg()}
}

// OptionType is CALL or PUT.
type OptionType string

const (
	OptionCall OptionType = "CALL"
	OptionPut  OptionType = "PUT"
)

// OptionContract identifies an option series.
type OptionContract struct {
	Symbol     string
	Type       OptionType
	Strike     decimal.Decimal
	Expiration string // YYYY-MM-DD
}

// OptionHolding is a positive contract count of one option series.
type OptionHolding struct {
	Contract  OptionContract
	Contracts decimal.Decimal
}

// Key is the composite map key used in Account.Options. The strike is
// written in thousandths as in OCC symbology so the key has no dots.
func (c OptionContract) Key() string {
	mills := c.Strike.Shift(3).IntPart()
	return strings.Join([]string{c.Symbol, string(c.Type), strconv.FormatInt(mills, 10), c.Expiration}, "_")
}

// ParseOptionKey reverses OptionContract.Key.
func ParseOptionKey(key string) (OptionContract, error) {
	parts := strings.Split(key, "_")
	if len(parts) != 4 {
		return OptionContract{}, fmt.Errorf("malformed option key %q", key)
	}
	typ := OptionType(parts[1])
	if typ != OptionCall && typ != OptionPut {
		return OptionContract{}, fmt.Errorf("malformed option type in %q", key)
	}
	mills, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return OptionContract{}, fmt.Errorf("malformed strike in %q: %w", key, err)
	}
	strike := decimal.New(mills, -3)
	if _, err := time.Parse(time.DateOnly, parts[3]); err != nil {
		return OptionContract{}, fmt.Errorf("malformed expiration in %q: %w", key, err)
	}
	return OptionContract{Symbol: parts[0], Type: typ, Strike: strike, Expiration: parts[3]}, nil
}
