package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
	"github.com/vignesh-goutham/bondstress/pkg/signals"
	"github.com/vignesh-goutham/bondstress/pkg/store"
	"github.com/vignesh-goutham/bondstress/pkg/stress"
	"github.com/vignesh-goutham/bondstress/pkg/types"
)

const (
	stressPartition  = "STRESS"
	tradingPrefix    = "TRADING#"
	batchWriteLimit  = 25
	maxBatchAttempts = 5
)

// API is the subset of the DynamoDB client used by Service
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Service stores signals in a single table. Stress signals share one
// partition and trading signals are partitioned per symbol; sort keys are
// the RFC 3339 UTC timestamp followed by the record id, so key order is
// chronological.
type Service struct {
	client    API
	tableName string
	now       func() time.Time
	logger    zerolog.Logger
}

// NewService creates a new DynamoDB service instance
func NewService(ctx context.Context, region, tableName string, logger zerolog.Logger) (*Service, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewWithClient(dynamodb.NewFromConfig(cfg), tableName, logger), nil
}

func NewWithClient(client API, tableName string, logger zerolog.Logger) *Service {
	return &Service{
		client:    client,
		tableName: tableName,
		now:       time.Now,
		logger:    logger,
	}
}

func sortKey(ts time.Time, id string) string {
	return ts.UTC().Format(time.RFC3339) + "#" + id
}

// SaveStress saves a single stress signal
func (d *Service) SaveStress(ctx context.Context, sig stress.Signal) (types.StressRecord, error) {
	rec := types.NewStressRecord(sig, d.now())
	item, err := d.item(stressPartition, sortKey(rec.Timestamp, rec.ID.String()), types.ItemTypeStress, rec, rec.CreatedAt)
	if err != nil {
		return types.StressRecord{}, err
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      item,
	})
	if err != nil {
		return types.StressRecord{}, fmt.Errorf("failed to put item: %w", err)
	}
	return rec, nil
}

// SaveTrading saves trading signals in batches of 25
func (d *Service) SaveTrading(ctx context.Context, sigs []signals.TradingSignal) ([]types.TradingRecord, error) {
	records := make([]types.TradingRecord, 0, len(sigs))
	writeRequests := make([]dynamodbtypes.WriteRequest, 0, len(sigs))

	for _, sig := range sigs {
		if sig.Symbol == "" {
			return nil, store.ErrSymbolRequired
		}
		rec := types.NewTradingRecord(sig, d.now())
		item, err := d.item(tradingPrefix+rec.Symbol, sortKey(rec.Timestamp, rec.ID.String()), types.ItemTypeTrading, rec, rec.CreatedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
		writeRequests = append(writeRequests, dynamodbtypes.WriteRequest{
			PutRequest: &dynamodbtypes.PutRequest{Item: item},
		})
	}

	for i := 0; i < len(writeRequests); i += batchWriteLimit {
		end := min(i+batchWriteLimit, len(writeRequests))
		if err := d.batchWrite(ctx, writeRequests[i:end]); err != nil {
			return nil, err
		}
	}

	d.logger.Debug().Int("records", len(records)).Msg("Saved trading signals")
	return records, nil
}

// batchWrite writes one batch, resubmitting unprocessed items
func (d *Service) batchWrite(ctx context.Context, requests []dynamodbtypes.WriteRequest) error {
	pending := map[string][]dynamodbtypes.WriteRequest{d.tableName: requests}
	for attempt := 1; len(pending[d.tableName]) > 0; attempt++ {
		if attempt > maxBatchAttempts {
			return fmt.Errorf("failed to batch write items: %d unprocessed after %d attempts", len(pending[d.tableName]), maxBatchAttempts)
		}
		out, err := d.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return fmt.Errorf("failed to batch write items: %w", err)
		}
		pending = out.UnprocessedItems
		if n := len(pending[d.tableName]); n > 0 {
			d.logger.Warn().Int("unprocessed", n).Int("attempt", attempt).Msg("Retrying unprocessed items")
		}
	}
	return nil
}

// RecentStress returns the newest n stress records
func (d *Service) RecentStress(ctx context.Context, n int) ([]types.StressRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	items, err := d.query(ctx, stressPartition, "", n)
	if err != nil {
		return nil, err
	}
	return decodeAll[types.StressRecord](items)
}

// RecentTrading returns the newest n trading records for symbol
func (d *Service) RecentTrading(ctx context.Context, symbol string, n int) ([]types.TradingRecord, error) {
	if symbol == "" {
		return nil, store.ErrSymbolRequired
	}
	if n <= 0 {
		return nil, nil
	}
	items, err := d.query(ctx, tradingPrefix+symbol, "", n)
	if err != nil {
		return nil, err
	}
	return decodeAll[types.TradingRecord](items)
}

// TradingSince returns the trading records for symbol dated at or after since
func (d *Service) TradingSince(ctx context.Context, symbol string, since time.Time) ([]types.TradingRecord, error) {
	if symbol == "" {
		return nil, store.ErrSymbolRequired
	}
	items, err := d.query(ctx, tradingPrefix+symbol, since.UTC().Format(time.RFC3339), 0)
	if err != nil {
		return nil, err
	}
	return decodeAll[types.TradingRecord](items)
}

// query reads a partition. With a lower sort key bound it pages forward
// through everything after it; otherwise it reads the newest limit items.
func (d *Service) query(ctx context.Context, pk, fromSK string, limit int) ([]types.UnifiedItem, error) {
	input := &dynamodb.QueryInput{
		TableName:                aws.String(d.tableName),
		KeyConditionExpression:   aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{"#pk": "pk"},
		ExpressionAttributeValues: map[string]dynamodbtypes.AttributeValue{
			":pk": &dynamodbtypes.AttributeValueMemberS{Value: pk},
		},
		ScanIndexForward: aws.Bool(fromSK != ""),
	}
	if fromSK != "" {
		input.KeyConditionExpression = aws.String("#pk = :pk AND #sk >= :sk")
		input.ExpressionAttributeNames["#sk"] = "sk"
		input.ExpressionAttributeValues[":sk"] = &dynamodbtypes.AttributeValueMemberS{Value: fromSK}
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	var out []types.UnifiedItem
	for {
		result, err := d.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", pk, err)
		}
		for _, raw := range result.Items {
			var item types.UnifiedItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				d.logger.Warn().Err(err).Str("pk", pk).Msg("Skipping undecodable item")
				continue
			}
			out = append(out, item)
		}
		if limit > 0 && len(out) >= limit {
			return out[:limit], nil
		}
		if len(result.LastEvaluatedKey) == 0 {
			return out, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}

func (d *Service) item(pk, sk string, itemType types.ItemType, record any, createdAt time.Time) (map[string]dynamodbtypes.AttributeValue, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	item, err := attributevalue.MarshalMap(types.UnifiedItem{
		PK:        pk,
		SK:        sk,
		Type:      itemType,
		Data:      string(data),
		CreatedAt: createdAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}
	return item, nil
}

func decodeAll[T any](items []types.UnifiedItem) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		var rec T
		if err := json.Unmarshal([]byte(item.Data), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s record %s: %w", item.Type, item.SK, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
