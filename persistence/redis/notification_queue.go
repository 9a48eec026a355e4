package redis

import (
	"context"

	"github.com/richarddahl/ruleflow/executor"
	"github.com/richarddahl/ruleflow/logger"
	"github.com/richarddahl/ruleflow/persistence"
	"github.com/richarddahl/ruleflow/util"
	"go.uber.org/zap"
)

const NOTIFICATION_QUEUE string = "NOTIFICATIONS"

var _ executor.NotificationQueue = new(notificationQueue)

// notificationQueue hands notifications to the delivery workers over a redis
// list. Enqueue success is all the engine needs; delivery itself belongs to
// the consumer on the other side.
type notificationQueue struct {
	*baseDao
	encoderDecoder util.EncoderDecoder[executor.Notification]
}

func NewNotificationQueue(conf Config) *notificationQueue {
	return &notificationQueue{
		baseDao:        newBaseDao(conf),
		encoderDecoder: util.NewJsonEncoderDecoder[executor.Notification](),
	}
}

func (q *notificationQueue) Push(ctx context.Context, n executor.Notification) error {
	data, err := q.encoderDecoder.Encode(n)
	if err != nil {
		return err
	}
	queueName := q.getNamespaceKey(NOTIFICATION_QUEUE)
	if err := q.redisClient.LPush(ctx, queueName, data).Err(); err != nil {
		logger.Error("error while push to redis list", zap.String("queue", queueName), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}
