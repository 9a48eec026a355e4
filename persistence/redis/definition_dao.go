package redis

import (
	"context"

	"github.com/richarddahl/ruleflow/logger"
	"github.com/richarddahl/ruleflow/model"
	"github.com/richarddahl/ruleflow/persistence"
	"github.com/richarddahl/ruleflow/util"
	"go.uber.org/zap"
)

const DEFINITION_KEY string = "DEFINITIONS"

// definitionDao reads workflow definitions written by the management API into
// a hash of JSON documents keyed by definition id.
type definitionDao struct {
	*baseDao
	encoderDecoder util.EncoderDecoder[model.WorkflowDefinition]
}

func NewDefinitionDao(conf Config) *definitionDao {
	return &definitionDao{
		baseDao:        newBaseDao(conf),
		encoderDecoder: util.NewJsonEncoderDecoder[model.WorkflowDefinition](),
	}
}

func (dao *definitionDao) ListActiveDefinitions(ctx context.Context) ([]model.WorkflowDefinition, error) {
	key := dao.getNamespaceKey(DEFINITION_KEY)
	entries, err := dao.redisClient.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	definitions := make([]model.WorkflowDefinition, 0, len(entries))
	for id, data := range entries {
		def, err := dao.encoderDecoder.Decode([]byte(data))
		if err != nil {
			logger.Error("malformed workflow definition, skipping", zap.String("id", id), zap.Error(err))
			continue
		}
		if def.Status != model.WORKFLOW_STATUS_ACTIVE {
			continue
		}
		definitions = append(definitions, *def)
	}
	return definitions, nil
}

// SaveDefinition exists for seeding and ops tooling; the engine itself never
// writes definitions.
func (dao *definitionDao) SaveDefinition(ctx context.Context, def model.WorkflowDefinition) error {
	data, err := dao.encoderDecoder.Encode(def)
	if err != nil {
		return err
	}
	key := dao.getNamespaceKey(DEFINITION_KEY)
	if err := dao.redisClient.HSet(ctx, key, []string{def.Id, string(data)}).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}
