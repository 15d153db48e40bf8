package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

const slowRedisCommand = 50 * time.Millisecond

// MonitorRedis instruments r with OpenTelemetry tracing and metrics and logs every command.
func MonitorRedis(r redis.UniversalClient) error {
	if err := redisotel.InstrumentTracing(r); err != nil {
		return fmt.Errorf("instrument tracing: %w", err)
	}
	if err := redisotel.InstrumentMetrics(r); err != nil {
		return fmt.Errorf("instrument metrics: %w", err)
	}
	r.AddHook(redisLog{slow: slowRedisCommand})
	return nil
}

type redisLog struct {
	slow time.Duration
}

func (redisLog) DialHook(hook redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := hook(ctx, network, addr)
		if err != nil {
			slog.ErrorContext(ctx, "redis: dial failed", "network", network, "addr", addr, "error", err)
			return nil, err
		}
		slog.InfoContext(ctx, "redis: connected", "network", network, "addr", addr)
		return conn, nil
	}
}

func (l redisLog) ProcessHook(hook redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := hook(ctx, cmd)
		l.log(ctx, cmd.Name(), 1, time.Since(start), err)
		return err
	}
}

func (l redisLog) ProcessPipelineHook(hook redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := hook(ctx, cmds)
		l.log(ctx, "pipeline", len(cmds), time.Since(start), err)
		return err
	}
}

func (l redisLog) log(ctx context.Context, name string, n int, elapsed time.Duration, err error) {
	switch {
	case err != nil && err != redis.Nil:
		slog.ErrorContext(ctx, "redis: command failed", "cmd", name, "cmds", n, "latency", elapsed, "error", err)
	case elapsed > l.slow:
		slog.WarnContext(ctx, "redis: slow command", "cmd", name, "cmds", n, "latency", elapsed)
	default:
		slog.DebugContext(ctx, "redis: command", "cmd", name, "cmds", n, "latency", elapsed)
	}
}
