package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go_signals_project/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB database and collection names
const (
	MongoDBName          = "signals_bot"
	MongoStateCollection = "state"
	MongoStateDocID      = "signals"

	mongoOpTimeout = 10 * time.Second
)

// mongoStateDoc mirrors the single-document layout of the file store
type mongoStateDoc struct {
	ID       string                 `bson:"_id"`
	Ativos   []string               `bson:"ativos"`
	Disparos []models.ScheduleEntry `bson:"disparos"`
}

// MongoStore is a SignalStore backed by a single MongoDB document. It is
// selected over the file store when MONGODB_URI is configured.
type MongoStore struct {
	mu     sync.Mutex
	client *mongo.Client
	state  *mongo.Collection
}

// NewMongoStore connects to MongoDB and seeds the state document if missing
func NewMongoStore(uri string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetMaxPoolSize(10).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("MongoDB ping failed: %w", err)
	}

	s := &MongoStore{
		client: client,
		state:  client.Database(MongoDBName).Collection(MongoStateCollection),
	}

	if err := s.seedIfMissing(ctx); err != nil {
		return nil, err
	}

	log.Println("MongoDB store connected")
	return s, nil
}

// Close disconnects the underlying client
func (s *MongoStore) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		log.Printf("MongoDB disconnect error: %v", err)
	}
}

func (s *MongoStore) seedIfMissing(ctx context.Context) error {
	err := s.state.FindOne(ctx, bson.M{"_id": MongoStateDocID}).Err()
	if err == nil {
		return nil
	}
	if err != mongo.ErrNoDocuments {
		return fmt.Errorf("failed to read state document: %w", err)
	}

	seed := mongoStateDoc{
		ID:       MongoStateDocID,
		Ativos:   append([]string{}, DefaultAssets...),
		Disparos: []models.ScheduleEntry{},
	}
	if _, err := s.state.InsertOne(ctx, seed); err != nil {
		return fmt.Errorf("failed to seed state document: %w", err)
	}
	log.Printf("Seeded MongoDB state document with %d default assets", len(seed.Ativos))
	return nil
}

func (s *MongoStore) load(ctx context.Context) (mongoStateDoc, error) {
	var doc mongoStateDoc
	if err := s.state.FindOne(ctx, bson.M{"_id": MongoStateDocID}).Decode(&doc); err != nil {
		return doc, fmt.Errorf("failed to load state document: %w", err)
	}
	if doc.Ativos == nil {
		doc.Ativos = []string{}
	}
	if doc.Disparos == nil {
		doc.Disparos = []models.ScheduleEntry{}
	}
	return doc, nil
}

func (s *MongoStore) persist(ctx context.Context, doc mongoStateDoc) error {
	doc.ID = MongoStateDocID
	opts := options.Replace().SetUpsert(true)
	if _, err := s.state.ReplaceOne(ctx, bson.M{"_id": MongoStateDocID}, doc, opts); err != nil {
		return fmt.Errorf("failed to persist state document: %w", err)
	}
	return nil
}

// ListAssets returns the configured assets in insertion order
func (s *MongoStore) ListAssets() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Ativos, nil
}

// AddAsset appends a new asset and persists
func (s *MongoStore) AddAsset(ativo string) ([]string, error) {
	if err := models.ValidateAsset(ativo); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAsset, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range doc.Ativos {
		if a == ativo {
			return nil, ErrDuplicateAsset
		}
	}
	doc.Ativos = append(doc.Ativos, ativo)
	if err := s.persist(ctx, doc); err != nil {
		return nil, err
	}
	return doc.Ativos, nil
}

// ListPendingEntries returns a snapshot of the pending schedule entries
func (s *MongoStore) ListPendingEntries() ([]models.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Disparos, nil
}

// AddEntry appends a new schedule entry and persists
func (s *MongoStore) AddEntry(entry models.ScheduleEntry) ([]models.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range doc.Disparos {
		if d.Key() == entry.Key() {
			return nil, ErrDuplicateEntry
		}
	}
	doc.Disparos = append(doc.Disparos, entry)
	if err := s.persist(ctx, doc); err != nil {
		return nil, err
	}
	return doc.Disparos, nil
}

// PrunePendingEntries partitions the pending set under the store lock and
// persists only the kept entries, returning them
func (s *MongoStore) PrunePendingEntries(keep func(models.ScheduleEntry) bool) ([]models.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	kept := make([]models.ScheduleEntry, 0, len(doc.Disparos))
	for _, entry := range doc.Disparos {
		if keep(entry) {
			kept = append(kept, entry)
		}
	}
	if len(kept) == len(doc.Disparos) {
		return kept, nil
	}

	doc.Disparos = kept
	if err := s.persist(ctx, doc); err != nil {
		return nil, err
	}
	return kept, nil
}

// RecordEntryPrice locates the entry by identity and records the price
// captured at fire time
func (s *MongoStore) RecordEntryPrice(entry models.ScheduleEntry, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	for i := range doc.Disparos {
		if doc.Disparos[i].Key() == entry.Key() {
			doc.Disparos[i].SetEntryPrice(price)
			return s.persist(ctx, doc)
		}
	}
	return ErrEntryNotFound
}
