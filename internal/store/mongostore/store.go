// Package mongostore persists accounts and trade records in MongoDB.
// Account settlement is a single-document $inc; trades live in their own
// collection, so recording a trade is a second, separate write.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/efreitasn/papertrader/internal/domain"
)

const (
	usersCollection  = "users"
	tradesCollection = "trades"
)

// Store implements the account and trade repositories on MongoDB.
type Store struct {
	client *mongo.Client
	users  *mongo.Collection
	trades *mongo.Collection
}

// Connect dials uri, pings the primary and ensures indexes.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client: client,
		users:  db.Collection(usersCollection),
		trades: db.Collection(tradesCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users index: %w", err)
	}
	_, err = s.trades.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("trades index: %w", err)
	}
	return nil
}

// CreateAccount inserts a; the generated ObjectID is written back to
// a.ID. A duplicate username yields domain.ErrUsernameTaken.
func (s *Store) CreateAccount(ctx context.Context, a *domain.Account) error {
	doc, err := toAccountDoc(a)
	if err != nil {
		return err
	}
	res, err := s.users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUsernameTaken
		}
		return fmt.Errorf("insert account: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		a.ID = id.Hex()
	}
	return nil
}

// FindAccount loads an account by hex ObjectID. Malformed IDs are
// reported as domain.ErrAccountNotFound.
func (s *Store) FindAccount(ctx context.Context, id string) (*domain.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

// FindAccountByUsername loads an account by username.
func (s *Store) FindAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	var doc accountDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return fromAccountDoc(doc)
}

// Increment applies delta with one conditionless $inc.
func (s *Store) Increment(ctx context.Context, id string, delta domain.AccountDelta) error {
	return s.updateAccount(ctx, id, incrementUpdate(delta))
}

// AddToWatchlist adds symbol with $addToSet.
func (s *Store) AddToWatchlist(ctx context.Context, id, symbol string) error {
	return s.updateAccount(ctx, id, bson.M{"$addToSet": bson.M{"watchlist": symbol}})
}

// RemoveFromWatchlist removes symbol with $pull.
func (s *Store) RemoveFromWatchlist(ctx context.Context, id, symbol string) error {
	return s.updateAccount(ctx, id, bson.M{"$pull": bson.M{"watchlist": symbol}})
}

// SetGoals replaces the goals array.
func (s *Store) SetGoals(ctx context.Context, id string, goals []domain.Goal) error {
	return s.updateAccount(ctx, id, bson.M{"$set": bson.M{"goals": toGoalDocs(goals)}})
}

func (s *Store) updateAccount(ctx context.Context, id string, update bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAccountNotFound
	}
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// InsertTrade appends a trade record; the generated ObjectID is written
// back to t.TradeID.
func (s *Store) InsertTrade(ctx context.Context, t *domain.Trade) error {
	doc, err := toTradeDoc(t)
	if err != nil {
		return err
	}
	res, err := s.trades.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		t.TradeID = id.Hex()
	}
	return nil
}

// FindTrades returns the account's trades matching filter, newest first.
func (s *Store) FindTrades(ctx context.Context, accountID string, filter domain.TradeFilter) ([]*domain.Trade, error) {
	oid, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	cur, err := s.trades.Find(ctx, tradeQuery(oid, filter), opts)
	if err != nil {
		return nil, fmt.Errorf("find trades: %w", err)
	}
	var docs []tradeDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode trades: %w", err)
	}

	out := make([]*domain.Trade, 0, len(docs))
	for _, doc := range docs {
		t, err := fromTradeDoc(doc)
		if err != nil {
			return nil, fmt.Errorf("trade %s: %w", doc.ID.Hex(), err)
		}
		out = append(out, t)
	}
	return out, nil
}
