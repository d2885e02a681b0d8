// Package mongo reads gateway configuration from the gateway's MongoDB
// database: API definitions with their policy chains, IP groups, and the
// registered log-store connections.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/gateguard/gateguard/internal/models"
)

// Gateway collection names.
const (
	collectionAPIProxy       = "api_proxy"
	collectionIPGroup        = "ip_group"
	collectionElasticConfigs = "connection_config_elasticsearch"
)

// Store reads gateway configuration documents.
type Store struct {
	client *driver.Client
	db     *driver.Database
}

// Connect dials the configuration database. Callers own the returned Store
// and must Close it.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := driver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to configuration store: %w", err)
	}
	return &Store{client: client, db: client.Database(dbName)}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping checks connectivity to the configuration store.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// FetchConfiguration loads the full security-relevant configuration of one
// API. A malformed or unknown identifier reports models.ErrNotFound.
func (s *Store) FetchConfiguration(ctx context.Context, apiID string) (*models.APIConfig, error) {
	oid, err := primitive.ObjectIDFromHex(apiID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid id %q", models.ErrNotFound, apiID)
	}

	var doc proxyDocument
	err = s.db.Collection(collectionAPIProxy).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, driver.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, apiID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading api %s: %w", apiID, err)
	}
	return doc.toConfig(), nil
}

// ListAPIs returns the list-view projection of every API.
func (s *Store) ListAPIs(ctx context.Context) ([]models.APISummary, error) {
	projection := bson.M{
		"name":               1,
		"apiProxyDeployList": 1,
		"requestPolicyList":  1,
		"responsePolicyList": 1,
		"createdDate":        1,
		"updatedDate":        1,
	}
	cursor, err := s.db.Collection(collectionAPIProxy).Find(ctx, bson.M{}, options.Find().SetProjection(projection))
	if err != nil {
		return nil, fmt.Errorf("listing apis: %w", err)
	}
	defer cursor.Close(ctx)

	var summaries []models.APISummary
	for cursor.Next(ctx) {
		var doc proxyDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding api document: %w", err)
		}
		summaries = append(summaries, doc.toSummary())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("listing apis: %w", err)
	}
	return summaries, nil
}

// PolicyStatistics computes gateway-wide policy adoption counts across every
// API's request, response and error policy chains.
func (s *Store) PolicyStatistics(ctx context.Context) (*models.PolicyStatistics, error) {
	projection := bson.M{
		"requestPolicyList._class":  1,
		"responsePolicyList._class": 1,
		"errorPolicyList._class":    1,
	}
	cursor, err := s.db.Collection(collectionAPIProxy).Find(ctx, bson.M{}, options.Find().SetProjection(projection))
	if err != nil {
		return nil, fmt.Errorf("loading policy statistics: %w", err)
	}
	defer cursor.Close(ctx)

	stats := &models.PolicyStatistics{}
	for cursor.Next(ctx) {
		var doc proxyDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding api document: %w", err)
		}
		accumulatePolicyStats(stats, &doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("loading policy statistics: %w", err)
	}

	if stats.TotalAPIs > 0 {
		total := float64(stats.TotalAPIs)
		stats.SecurityPercentage = float64(stats.WithSecurity) / total * 100
		stats.ThrottlingPercentage = float64(stats.WithThrottling) / total * 100
		stats.AuthPercentage = float64(stats.WithAuth) / total * 100
	}
	return stats, nil
}

// IPGroups returns every named IP set.
func (s *Store) IPGroups(ctx context.Context) ([]models.IPGroup, error) {
	cursor, err := s.db.Collection(collectionIPGroup).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("listing ip groups: %w", err)
	}
	defer cursor.Close(ctx)

	var groups []models.IPGroup
	for cursor.Next(ctx) {
		var doc ipGroupDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding ip group: %w", err)
		}
		groups = append(groups, doc.toGroup())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("listing ip groups: %w", err)
	}
	return groups, nil
}

// ElasticConfigs returns every enabled read-write log-store connection.
func (s *Store) ElasticConfigs(ctx context.Context) ([]models.ElasticConnection, error) {
	filter := bson.M{"enabled": true, "type": "READ_WRITE"}
	cursor, err := s.db.Collection(collectionElasticConfigs).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing log store connections: %w", err)
	}
	defer cursor.Close(ctx)

	var conns []models.ElasticConnection
	for cursor.Next(ctx) {
		var doc esConnDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding log store connection: %w", err)
		}
		conn, ok := doc.toConnection()
		if !ok {
			continue
		}
		conns = append(conns, conn)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("listing log store connections: %w", err)
	}
	return conns, nil
}
