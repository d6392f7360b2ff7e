package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrNoStrategies 链中没有任何策略
var ErrNoStrategies = errors.New("upload chain has no strategies")

// Strategy 是一种图片托管方式，返回可展示的 URL
type Strategy interface {
	Name() string
	Upload(ctx context.Context, img *Prepared) (string, error)
}

// Attempt 记录单次尝试
type Attempt struct {
	Provider string `json:"provider"`
	Error    string `json:"error,omitempty"`
	err      error
}

// Result 是成功上传的结果
type Result struct {
	URL      string    `json:"url"`
	Provider string    `json:"provider"`
	Attempts []Attempt `json:"attempts"`
}

// AggregateError 汇总所有失败的尝试
type AggregateError struct {
	Attempts []Attempt
}

func (e *AggregateError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Provider, a.Error))
	}
	return "all upload strategies failed: " + strings.Join(parts, "; ")
}

func (e *AggregateError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.err != nil {
			errs = append(errs, a.err)
		}
	}
	return errs
}

// Chain 依次尝试每个策略，每个策略只尝试一次
type Chain struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewChain 按给定顺序构造上传链
func NewChain(logger *zap.Logger, strategies ...Strategy) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{strategies: strategies, logger: logger}
}

// Providers 返回策略名称，按尝试顺序
func (c *Chain) Providers() []string {
	names := make([]string, 0, len(c.strategies))
	for _, s := range c.strategies {
		names = append(names, s.Name())
	}
	return names
}

// Upload 返回第一个成功策略的结果；全部失败时返回 *AggregateError
func (c *Chain) Upload(ctx context.Context, img *Prepared) (*Result, error) {
	if len(c.strategies) == 0 {
		return nil, ErrNoStrategies
	}

	attempts := make([]Attempt, 0, len(c.strategies))
	for _, strategy := range c.strategies {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, Attempt{Provider: strategy.Name(), Error: err.Error(), err: err})
			break
		}

		url, err := strategy.Upload(ctx, img)
		if err == nil && url != "" {
			attempts = append(attempts, Attempt{Provider: strategy.Name()})
			c.logger.Info("image uploaded", zap.String("provider", strategy.Name()), zap.Int("attempts", len(attempts)))
			return &Result{URL: url, Provider: strategy.Name(), Attempts: attempts}, nil
		}
		if err == nil {
			err = errors.New("empty url returned")
		}

		c.logger.Warn("upload strategy failed, trying next", zap.String("provider", strategy.Name()), zap.Error(err))
		attempts = append(attempts, Attempt{Provider: strategy.Name(), Error: err.Error(), err: err})
	}
	return nil, &AggregateError{Attempts: attempts}
}
