package scanner

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"mtf-signal-scanner/internal/model"
)

// Evaluator 对单个标的求值。实现方自行保证任何失败都收敛为 NoSignal。
type Evaluator func(ctx context.Context, symbol string) model.SignalResult

// Scanner 用有界并发遍历标的清单。
// 各标的的评估相互独立，除只读配置外不共享任何可变状态。
type Scanner struct {
	workers int
	logger  *zap.Logger
}

func New(workers int, logger *zap.Logger) *Scanner {
	if workers < 1 {
		workers = 1
	}
	return &Scanner{workers: workers, logger: logger}
}

// Scan 并发评估所有标的，返回 symbol -> 结果 的映射。
// 空清单直接返回空映射，不发起任何数据请求；结果顺序无意义。
func (s *Scanner) Scan(ctx context.Context, symbols []string, eval Evaluator) map[string]model.SignalResult {
	results := make(map[string]model.SignalResult, len(symbols))
	if len(symbols) == 0 {
		return results
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.workers)

	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()

			// 已取消的扫描不再开始新的评估
			select {
			case <-ctx.Done():
				return
			default:
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			res := eval(ctx, symbol)

			mu.Lock()
			results[symbol] = res
			mu.Unlock()
		}(symbol)
	}

	wg.Wait()
	return results
}

// LoadTickers 读取标的清单文件：UTF-8 纯文本，每行一个标识，
// 空行与 # 开头的行跳过。
func LoadTickers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ticker list: %w", err)
	}
	defer f.Close()

	var tickers []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tickers = append(tickers, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read ticker list: %w", err)
	}
	return tickers, nil
}
