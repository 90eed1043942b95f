package cache_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"studynotes/internal/cache"
)

func TestKey(t *testing.T) {
	a := cache.Key("Qwen/Qwen2.5-72B-Instruct", "Net (rorewet")
	b := cache.Key("Qwen/Qwen2.5-72B-Instruct", "Net (rorewet")
	if a != b {
		t.Errorf("Key() not deterministic: %q != %q", a, b)
	}
	if !strings.HasPrefix(a, "studynotes:artifact:") || len(a) != len("studynotes:artifact:")+64 {
		t.Errorf("Key() = %q, want prefixed sha256 hex", a)
	}
	if a == cache.Key("other-model", "Net (rorewet") {
		t.Error("Key() ignores the model")
	}
	if cache.Key("m", "ab") == cache.Key("ma", "b") {
		t.Error("Key() collides on model/prompt boundary")
	}
}

func TestNewRedisCacheErrors(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := cache.NewRedisCache(ctx, "not a url", time.Hour); err == nil {
		t.Error("NewRedisCache() with invalid URL: want error")
	}
	if _, err := cache.NewRedisCache(ctx, "redis://127.0.0.1:1/0", time.Hour); err == nil {
		t.Error("NewRedisCache() with unreachable server: want error")
	}
}
