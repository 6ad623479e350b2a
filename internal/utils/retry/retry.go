package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// 上游失败分类：只有瞬时类错误才重试
var (
	ErrTimeout     = errors.New("上游请求超时")
	ErrRateLimited = errors.New("上游限流(429)")
	ErrUpstream    = errors.New("上游服务错误(5xx)")
)

// IsTransient 判断错误是否属于可重试的瞬时失败
func IsTransient(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstream)
}

// Policy 显式重试策略：每次调用前先做固定延迟+随机抖动（反限流），
// 瞬时失败按 base * 2^attempt 指数退避，尝试次数用尽后把最后一次错误抛给调用方
type Policy struct {
	MaxAttempts  int           // 最大尝试次数（含首次）
	BackoffBase  time.Duration // 退避基数
	RequestDelay time.Duration // 每次调用前的固定延迟
	Jitter       time.Duration // 叠加在固定延迟上的随机抖动上限
}

// Do 执行 fn；fetch 均为纯读操作，重试总是安全的
func (p Policy) Do(ctx context.Context, logger *logrus.Logger, op string, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := p.throttle(ctx); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
		if attempt == attempts-1 {
			break
		}

		wait := p.BackoffBase * (1 << attempt)
		logger.WithError(lastErr).WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt + 1,
			"wait":    wait.String(),
		}).Warn("上游调用失败，退避后重试")
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
	return fmt.Errorf("%s重试%d次后仍失败: %w", op, attempts, lastErr)
}

// throttle 调用前的限速等待
func (p Policy) throttle(ctx context.Context) error {
	delay := p.RequestDelay
	if p.Jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	if delay <= 0 {
		return nil
	}
	return sleep(ctx, delay)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
