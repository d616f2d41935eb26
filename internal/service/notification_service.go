package service

import (
	"context"
	"course_study_backend/pkg/email"
	"course_study_backend/pkg/logger"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Notifier 通知出口，调用方只记录失败，不回滚业务状态
type Notifier interface {
	Notify(ctx context.Context, recipients []string, kind email.Kind, data map[string]string) error
}

// Mailer 由 email.SMTPClient 实现
type Mailer interface {
	Send(to []string, kind email.Kind, data map[string]string) error
}

// Publisher 由 messaging.RabbitMQClient 实现
type Publisher interface {
	Publish(ctx context.Context, queueName string, body []byte) error
}

// NotificationEnvelope 队列中的消息体
type NotificationEnvelope struct {
	Kind       email.Kind        `json:"kind"`
	Recipients []string          `json:"recipients"`
	Data       map[string]string `json:"data"`
	CreatedAt  time.Time         `json:"created_at"`
}

// QueueNotifier 发布到 RabbitMQ，由 MailDispatcher 异步发送
type QueueNotifier struct {
	Publisher Publisher
	Queue     string
}

func NewQueueNotifier(publisher Publisher, queue string) *QueueNotifier {
	return &QueueNotifier{Publisher: publisher, Queue: queue}
}

func (n *QueueNotifier) Notify(ctx context.Context, recipients []string, kind email.Kind, data map[string]string) error {
	if len(recipients) == 0 {
		return nil
	}
	body, err := json.Marshal(NotificationEnvelope{
		Kind:       kind,
		Recipients: recipients,
		Data:       data,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		return err
	}
	if err := n.Publisher.Publish(ctx, n.Queue, body); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// MailNotifier 未启用队列时直接发送邮件
type MailNotifier struct {
	Mailer Mailer
}

func NewMailNotifier(mailer Mailer) *MailNotifier {
	return &MailNotifier{Mailer: mailer}
}

func (n *MailNotifier) Notify(_ context.Context, recipients []string, kind email.Kind, data map[string]string) error {
	return n.Mailer.Send(recipients, kind, data)
}

// notify 失败只记日志
func notify(ctx context.Context, n Notifier, recipients []string, kind email.Kind, data map[string]string) {
	if n == nil || len(recipients) == 0 {
		return
	}
	if err := n.Notify(ctx, recipients, kind, data); err != nil {
		logger.Log.Warn("Failed to send notification",
			zap.String("kind", string(kind)),
			zap.Strings("recipients", recipients),
			zap.Error(err),
		)
	}
}

// MailDispatcher 消费通知队列并发送邮件
type MailDispatcher struct {
	Mailer Mailer
}

func NewMailDispatcher(mailer Mailer) *MailDispatcher {
	return &MailDispatcher{Mailer: mailer}
}

func (d *MailDispatcher) HandleMessage(body []byte) error {
	var env NotificationEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode notification: %w", err)
	}
	logger.Log.Info("Dispatching notification",
		zap.String("kind", string(env.Kind)),
		zap.Int("recipients", len(env.Recipients)),
	)
	return d.Mailer.Send(env.Recipients, env.Kind, env.Data)
}

// Run 阻塞直到 ctx 取消或通道关闭；处理失败的消息不重新入队
func (d *MailDispatcher) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-deliveries:
			if !ok {
				logger.Log.Warn("Notification queue closed")
				return
			}
			if err := d.HandleMessage(msg.Body); err != nil {
				logger.Log.Error("Failed to dispatch notification", zap.Error(err))
				msg.Nack(false, false)
				continue
			}
			msg.Ack(false)
		}
	}
}
