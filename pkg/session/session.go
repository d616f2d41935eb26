package session

import (
	"context"

	"github.com/google/uuid"
)

// Store 按会话令牌保存少量键值（当前打开的页面浏览、进行中的测试等）
type Store interface {
	Get(ctx context.Context, token, key string) (string, bool, error)
	Set(ctx context.Context, token, key, value string) error
	// Pop 读取并删除
	Pop(ctx context.Context, token, key string) (string, bool, error)
	Delete(ctx context.Context, token, key string) error
}

func NewToken() string {
	return uuid.New().String()
}
