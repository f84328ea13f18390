package mongostore

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/efreitasn/papertrader/internal/domain"
)

// accountDoc is the users collection document. Amounts are Decimal128 so
// $inc keeps exact decimal arithmetic on the server.
type accountDoc struct {
	ID               primitive.ObjectID              `bson:"_id,omitempty"`
	Username         string                          `bson:"username"`
	Email            string                          `bson:"email"`
	FirstName        string                          `bson:"firstName"`
	LastName         string                          `bson:"lastName"`
	DOB              string                          `bson:"dob"`
	Role             string                          `bson:"role"`
	Membership       string                          `bson:"membership"`
	Cash             primitive.Decimal128            `bson:"cash"`
	Portfolio        map[string]primitive.Decimal128 `bson:"portfolio"`
	OptionsPortfolio map[string]primitive.Decimal128 `bson:"options_portfolio"`
	Watchlist        []string                        `bson:"watchlist"`
	Goals            []goalDoc                       `bson:"goals"`
	CreatedAt        time.Time                       `bson:"created_at"`
}

type goalDoc struct {
	ID         string               `bson:"id"`
	Name       string               `bson:"name"`
	Current    primitive.Decimal128 `bson:"current"`
	Target     primitive.Decimal128 `bson:"target"`
	Category   string               `bson:"category"`
	TargetDate string               `bson:"targetDate"`
}

// tradeDoc is the trades collection document. Price is the requested
// price the trade settled at.
type tradeDoc struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	UserID      primitive.ObjectID   `bson:"user_id"`
	Symbol      string               `bson:"symbol"`
	Type        string               `bson:"type"`
	Quantity    primitive.Decimal128 `bson:"quantity"`
	Price       primitive.Decimal128 `bson:"price"`
	MarketPrice primitive.Decimal128 `bson:"market_price"`
	Total       primitive.Decimal128 `bson:"total"`
	Timestamp   time.Time            `bson:"timestamp"`
}

func toD128(d decimal.Decimal) primitive.Decimal128 {
	// A decimal's string form always parses; the error path is unreachable.
	v, _ := primitive.ParseDecimal128(d.String())
	return v
}

func fromD128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("decimal128 %s: %w", v, err)
	}
	return d, nil
}

func toD128Map(m map[string]decimal.Decimal) map[string]primitive.Decimal128 {
	out := make(map[string]primitive.Decimal128, len(m))
	for k, v := range m {
		out[k] = toD128(v)
	}
	return out
}

func fromD128Map(m map[string]primitive.Decimal128) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		d, err := fromD128(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = d
	}
	return out, nil
}

func toGoalDocs(goals []domain.Goal) []goalDoc {
	out := make([]goalDoc, len(goals))
	for i, g := range goals {
		out[i] = goalDoc{
			ID:         g.ID,
			Name:       g.Name,
			Current:    toD128(g.Current),
			Target:     toD128(g.Target),
			Category:   g.Category,
			TargetDate: g.TargetDate,
		}
	}
	return out
}

func toAccountDoc(a *domain.Account) (accountDoc, error) {
	doc := accountDoc{
		Username:         a.Username,
		Email:            a.Email,
		FirstName:        a.FirstName,
		LastName:         a.LastName,
		DOB:              a.DOB,
		Role:             a.Role,
		Membership:       a.Membership,
		Cash:             toD128(a.Cash),
		Portfolio:        toD128Map(a.Holdings),
		OptionsPortfolio: toD128Map(a.Options),
		Watchlist:        append([]string{}, a.Watchlist...),
		Goals:            toGoalDocs(a.Goals),
		CreatedAt:        a.CreatedAt.UTC(),
	}
	if a.ID != "" {
		id, err := primitive.ObjectIDFromHex(a.ID)
		if err != nil {
			return accountDoc{}, fmt.Errorf("account id %q: %w", a.ID, err)
		}
		doc.ID = id
	}
	return doc, nil
}

func fromAccountDoc(doc accountDoc) (*domain.Account, error) {
	cash, err := fromD128(doc.Cash)
	if err != nil {
		return nil, fmt.Errorf("cash: %w", err)
	}
	holdings, err := fromD128Map(doc.Portfolio)
	if err != nil {
		return nil, fmt.Errorf("portfolio: %w", err)
	}
	options, err := fromD128Map(doc.OptionsPortfolio)
	if err != nil {
		return nil, fmt.Errorf("options_portfolio: %w", err)
	}
	goals := make([]domain.Goal, len(doc.Goals))
	for i, g := range doc.Goals {
		current, err := fromD128(g.Current)
		if err != nil {
			return nil, fmt.Errorf("goal %s current: %w", g.ID, err)
		}
		target, err := fromD128(g.Target)
		if err != nil {
			return nil, fmt.Errorf("goal %s target: %w", g.ID, err)
		}
		goals[i] = domain.Goal{
			ID:         g.ID,
			Name:       g.Name,
			Current:    current,
			Target:     target,
			Category:   g.Category,
			TargetDate: g.TargetDate,
		}
	}
	watchlist := doc.Watchlist
	if watchlist == nil {
		watchlist = []string{}
	}
	return &domain.Account{
		ID:         doc.ID.Hex(),
		Username:   doc.Username,
		Email:      doc.Email,
		FirstName:  doc.FirstName,
		LastName:   doc.LastName,
		DOB:        doc.DOB,
		Role:       doc.Role,
		Membership: doc.Membership,
		Cash:       cash,
		Holdings:   holdings,
		Options:    options,
		Watchlist:  watchlist,
		Goals:      goals,
		CreatedAt:  doc.CreatedAt,
	}, nil
}

func toTradeDoc(t *domain.Trade) (tradeDoc, error) {
	userID, err := primitive.ObjectIDFromHex(t.AccountID)
	if err != nil {
		return tradeDoc{}, fmt.Errorf("account id %q: %w", t.AccountID, err)
	}
	return tradeDoc{
		UserID:      userID,
		Symbol:      t.Symbol,
		Type:        string(t.Type),
		Quantity:    toD128(t.Quantity),
		Price:       toD128(t.RequestedPrice),
		MarketPrice: toD128(t.MarketPrice),
		Total:       toD128(t.Total),
		Timestamp:   t.ExecutedAt.UTC(),
	}, nil
}

func fromTradeDoc(doc tradeDoc) (*domain.Trade, error) {
	var (
		t   = &domain.Trade{TradeID: doc.ID.Hex(), AccountID: doc.UserID.Hex(), Symbol: doc.Symbol, Type: domain.TradeType(doc.Type), ExecutedAt: doc.Timestamp}
		err error
	)
	if t.Quantity, err = fromD128(doc.Quantity); err != nil {
		return nil, fmt.Errorf("quantity: %w", err)
	}
	if t.RequestedPrice, err = fromD128(doc.Price); err != nil {
		return nil, fmt.Errorf("price: %w", err)
	}
	if t.MarketPrice, err = fromD128(doc.MarketPrice); err != nil {
		return nil, fmt.Errorf("market_price: %w", err)
	}
	if t.Total, err = fromD128(doc.Total); err != nil {
		return nil, fmt.Errorf("total: %w", err)
	}
	return t, nil
}

// incrementUpdate builds the single $inc that settles a trade: cash and
// the symbol's portfolio entry move in one document update.
func incrementUpdate(delta domain.AccountDelta) bson.M {
	inc := bson.M{"cash": toD128(delta.Cash)}
	if delta.Symbol != "" {
		inc["portfolio."+delta.Symbol] = toD128(delta.Quantity)
	}
	return bson.M{"$inc": inc}
}

// tradeQuery translates a TradeFilter into a find filter.
func tradeQuery(userID primitive.ObjectID, f domain.TradeFilter) bson.M {
	q := bson.M{"user_id": userID}
	if f.Symbol != "" {
		q["symbol"] = f.Symbol
	}
	if f.Type != "" {
		q["type"] = string(f.Type)
	}
	if !f.Since.IsZero() {
		q["timestamp"] = bson.M{"$gte": f.Since.UTC()}
	}
	return q
}
