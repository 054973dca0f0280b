package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/okian/cinerec/internal/domain/model"
	"github.com/okian/cinerec/internal/domain/popularity"
	"github.com/okian/cinerec/pkg/logger"
	"github.com/okian/cinerec/pkg/metrics"
)

// MongoStore is a Store backed by MongoDB. Items live in one collection keyed
// by itemId, interactions in another.
type MongoStore struct {
	client           *mongo.Client
	database         string
	itemsName        string
	interactionsName string
	items            *mongo.Collection
	interactions     *mongo.Collection
	timeout          time.Duration
	logger           logger.Logger
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore connects to uri and verifies the connection with a ping. The
// caller owns the returned store and must Close it.
func NewMongoStore(ctx context.Context, uri string, opts ...Option) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("%w: empty mongo uri", ErrStore)
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %w", ErrStore, err)
	}

	s := newMongoStore(client, opts...)
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	s.logger.Info(ctx, "connected to mongo",
		logger.String("database", s.database),
		logger.String("items", s.itemsName),
		logger.String("interactions", s.interactionsName),
	)
	return s, nil
}

func newMongoStore(client *mongo.Client, opts ...Option) *MongoStore {
	s := &MongoStore{
		client:           client,
		database:         defaultDatabase,
		itemsName:        defaultItemsCollection,
		interactionsName: defaultInteractionsCollection,
		timeout:          defaultOperationTimeout,
		logger:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	db := client.Database(s.database)
	s.items = db.Collection(s.itemsName)
	s.interactions = db.Collection(s.interactionsName)
	return s
}

// EnsureIndexes creates the indexes the queries rely on: a unique index on
// itemId, a text index on title and lookup indexes on interactions.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.items.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "itemId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "title", Value: "text"}}},
	}); err != nil {
		return fmt.Errorf("%w: item indexes: %w", ErrStore, err)
	}
	if _, err := s.interactions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{{Key: "itemId", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("%w: interaction indexes: %w", ErrStore, err)
	}
	return nil
}

func (s *MongoStore) FindPage(ctx context.Context, offset, limit int) (out []model.Item, total int64, err error) {
	defer observe(opFindPage, time.Now(), &err)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	total, err = s.items.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, 0, wrap(opFindPage, err)
	}

	out = make([]model.Item, 0)
	if limit <= 0 || int64(offset) >= total {
		return out, total, nil
	}
	cur, err := s.items.Find(ctx, bson.D{}, options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, 0, wrap(opFindPage, err)
	}
	if err = cur.All(ctx, &out); err != nil {
		return nil, 0, wrap(opFindPage, err)
	}
	return out, total, nil
}

func (s *MongoStore) FindByID(ctx context.Context, itemID string) (it model.Item, err error) {
	defer observe(opFindByID, time.Now(), &err)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err = s.items.FindOne(ctx, bson.D{{Key: "itemId", Value: itemID}}).Decode(&it)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Item{}, ErrNotFound
	}
	if err != nil {
		return model.Item{}, wrap(opFindByID, err)
	}
	return it, nil
}

func (s *MongoStore) FindByIDs(ctx context.Context, ids []string) (out []model.Item, err error) {
	defer observe(opFindByIDs, time.Now(), &err)
	out = make([]model.Item, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	filter := bson.D{{Key: "itemId", Value: bson.D{{Key: "$in", Value: ids}}}}
	cur, err := s.items.Find(ctx, filter)
	if err != nil {
		return nil, wrap(opFindByIDs, err)
	}
	if err = cur.All(ctx, &out); err != nil {
		return nil, wrap(opFindByIDs, err)
	}
	return out, nil
}

// Search runs a $text query over titles, restricted to items with a
// non-empty imageUrl, ordered by text score.
func (s *MongoStore) Search(ctx context.Context, query string, limit int) (out []model.SearchHit, err error) {
	defer observe(opSearch, time.Now(), &err)
	out = make([]model.SearchHit, 0)
	if limit <= 0 {
		return out, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	score := bson.D{{Key: "score", Value: bson.D{{Key: "$meta", Value: "textScore"}}}}
	filter := bson.D{
		{Key: "$text", Value: bson.D{{Key: "$search", Value: query}}},
		{Key: "imageUrl", Value: bson.D{{Key: "$nin", Value: bson.A{nil, ""}}}},
	}
	cur, err := s.items.Find(ctx, filter, options.Find().
		SetProjection(score).
		SetSort(score).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, wrap(opSearch, err)
	}
	if err = cur.All(ctx, &out); err != nil {
		return nil, wrap(opSearch, err)
	}
	return out, nil
}

// popularRow is the raw aggregation output before the catalog join is
// resolved. Matched is zero when the grouped itemId has no catalog entry.
type popularRow struct {
	ItemID      string     `bson:"itemId"`
	RatingCount int64      `bson:"ratingCount"`
	Matched     int        `bson:"matched"`
	Item        model.Item `bson:"item"`
}

// Popular groups interactions by itemId, keeps the top limit groups and
// joins them to items. Groups with no catalog entry are dropped after the
// limit, so fewer than limit rows may come back.
func (s *MongoStore) Popular(ctx context.Context, limit int) (out []model.PopularItem, err error) {
	defer observe(opPopular, time.Now(), &err)
	if limit <= 0 {
		limit = popularity.DefaultLimit
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$itemId"},
			{Key: "ratingCount", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "ratingCount", Value: -1},
			{Key: "_id", Value: 1},
		}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: s.itemsName},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "itemId"},
			{Key: "as", Value: "itemDetails"},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "itemId", Value: "$_id"},
			{Key: "ratingCount", Value: 1},
			{Key: "matched", Value: bson.D{{Key: "$size", Value: "$itemDetails"}}},
			{Key: "item", Value: bson.D{{Key: "$arrayElemAt", Value: bson.A{"$itemDetails", 0}}}},
		}}},
	}
	cur, err := s.interactions.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, wrap(opPopular, err)
	}
	var rows []popularRow
	if err = cur.All(ctx, &rows); err != nil {
		return nil, wrap(opPopular, err)
	}

	out = make([]model.PopularItem, 0, len(rows))
	dropped := 0
	for _, r := range rows {
		if r.Matched == 0 {
			dropped++
			continue
		}
		out = append(out, model.PopularItem{
			ItemID:      r.ItemID,
			Title:       r.Item.Title,
			RatingCount: r.RatingCount,
			ImageURL:    r.Item.ImageURL,
		})
	}
	if dropped > 0 {
		metrics.RecordPopularDroppedRows(dropped)
		s.logger.Debug(ctx, "popular rows without catalog entry dropped", logger.Int("dropped", dropped))
	}
	return out, nil
}

func (s *MongoStore) Ping(ctx context.Context) (err error) {
	defer observe(opPing, time.Now(), &err)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return wrap(opPing, err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("%w: disconnect: %w", ErrStore, err)
	}
	return nil
}

func wrap(op string, err error) error {
	metrics.RecordErrorByComponent("store", op)
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
