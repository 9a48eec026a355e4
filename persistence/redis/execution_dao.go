package redis

import (
	"context"
	"errors"

	rd "github.com/go-redis/redis/v9"
	"github.com/richarddahl/ruleflow/model"
	"github.com/richarddahl/ruleflow/persistence"
	"github.com/richarddahl/ruleflow/recorder"
	"github.com/richarddahl/ruleflow/util"
)

const EXECUTION_KEY string = "EXECUTION"
const EXECUTION_INDEX_KEY string = "EXECUTION_IDX"

var _ recorder.Storage = new(executionDao)

// executionDao stores execution records in a hash keyed by execution id and
// keeps a second hash mapping workflow:event to execution id for duplicate
// detection.
type executionDao struct {
	*baseDao
	encoderDecoder util.EncoderDecoder[model.ExecutionRecord]
}

func NewExecutionDao(conf Config) *executionDao {
	return &executionDao{
		baseDao:        newBaseDao(conf),
		encoderDecoder: util.NewJsonEncoderDecoder[model.ExecutionRecord](),
	}
}

func (dao *executionDao) Save(ctx context.Context, record model.ExecutionRecord) error {
	data, err := dao.encoderDecoder.Encode(record)
	if err != nil {
		return err
	}
	key := dao.getNamespaceKey(EXECUTION_KEY)
	indexKey := dao.getNamespaceKey(EXECUTION_INDEX_KEY)
	_, err = dao.redisClient.TxPipelined(ctx, func(pipe rd.Pipeliner) error {
		if err := pipe.HSet(ctx, key, []string{record.Id, string(data)}).Err(); err != nil {
			return err
		}
		return pipe.HSet(ctx, indexKey, []string{record.WorkflowId + ":" + record.TriggerEventId, record.Id}).Err()
	})
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (dao *executionDao) Get(ctx context.Context, id string) (*model.ExecutionRecord, error) {
	key := dao.getNamespaceKey(EXECUTION_KEY)
	data, err := dao.redisClient.HGet(ctx, key, id).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, recorder.ErrNotFound
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return dao.encoderDecoder.Decode([]byte(data))
}

func (dao *executionDao) GetByWorkflowEvent(ctx context.Context, workflowId string, triggerEventId string) (*model.ExecutionRecord, error) {
	indexKey := dao.getNamespaceKey(EXECUTION_INDEX_KEY)
	id, err := dao.redisClient.HGet(ctx, indexKey, workflowId+":"+triggerEventId).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, recorder.ErrNotFound
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return dao.Get(ctx, id)
}
