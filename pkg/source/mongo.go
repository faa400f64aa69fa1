package source

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	cerrors "github.com/matzehuels/clustermap/pkg/errors"
	"github.com/matzehuels/clustermap/pkg/model"
)

// Collection names read by MongoSource.
const (
	CollClusters     = "clusters"
	CollConfigs      = "configs"
	CollSearchModels = "searchModels"
	CollFilters      = "filters"
	CollStats        = "stats"
	CollResults      = "results"
)

// statsDoc is one document of the stats collection.
type statsDoc struct {
	SubclusterID string `bson:"subclusterId"`
	model.Stats  `bson:",inline"`
}

// resultsDoc is one document of the results collection.
type resultsDoc struct {
	SubclusterID       string `bson:"subclusterId"`
	model.ResultSample `bson:",inline"`
}

// MongoSource reads the dataset from one MongoDB database.
type MongoSource struct {
	client *mongo.Client
	db     *mongo.Database
	owned  bool
}

// A fresh replica set may refuse pings for a moment after Connect.
const (
	pingAttempts = 3
	pingDelay    = 500 * time.Millisecond
)

// ConnectMongo connects to uri and reads from database. The returned
// source owns the client; Close disconnects it.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoSource, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeStoreUnavailable, err, "connect mongo")
	}
	ping := func() error { return retryable(client.Ping(ctx, nil)) }
	if err := retry(ctx, pingAttempts, pingDelay, ping); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, cerrors.Wrap(cerrors.ErrCodeStoreUnavailable, err, "ping mongo")
	}
	return &MongoSource{client: client, db: client.Database(database), owned: true}, nil
}

// NewMongoSource reads from db through a caller-owned client.
func NewMongoSource(db *mongo.Database) *MongoSource {
	return &MongoSource{client: db.Client(), db: db}
}

// Load reads all six collections into a dataset. Cluster order follows
// the optional "order" field, then insertion order.
func (s *MongoSource) Load(ctx context.Context) (*model.Dataset, error) {
	ds := &model.Dataset{}

	clusterOpts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "_id", Value: 1}})
	if err := s.all(ctx, CollClusters, &ds.Clusters, clusterOpts); err != nil {
		return nil, err
	}
	if err := s.all(ctx, CollConfigs, &ds.Configs); err != nil {
		return nil, err
	}
	if err := s.all(ctx, CollSearchModels, &ds.SearchModels); err != nil {
		return nil, err
	}
	if err := s.all(ctx, CollFilters, &ds.Filters); err != nil {
		return nil, err
	}

	var stats []statsDoc
	if err := s.all(ctx, CollStats, &stats); err != nil {
		return nil, err
	}
	ds.Stats = make(map[string]model.Stats, len(stats))
	for _, d := range stats {
		ds.Stats[d.SubclusterID] = d.Stats
	}

	var results []resultsDoc
	if err := s.all(ctx, CollResults, &results); err != nil {
		return nil, err
	}
	ds.Results = make(map[string]model.ResultSample, len(results))
	for _, d := range results {
		ds.Results[d.SubclusterID] = d.ResultSample
	}

	if err := ds.Validate(); err != nil {
		return nil, err
	}
	ds.Prepare()
	return ds, nil
}

func (s *MongoSource) all(ctx context.Context, coll string, out any, opts ...*options.FindOptions) error {
	cur, err := s.db.Collection(coll).Find(ctx, bson.D{}, opts...)
	if err != nil {
		return cerrors.Wrap(cerrors.ErrCodeStoreUnavailable, err, "find %s", coll)
	}
	if err := cur.All(ctx, out); err != nil {
		return cerrors.Wrap(cerrors.ErrCodeInvalidDataset, err, "decode %s", coll)
	}
	return nil
}

// Close disconnects an owned client.
func (s *MongoSource) Close(ctx context.Context) error {
	if !s.owned {
		return nil
	}
	return s.client.Disconnect(ctx)
}
