package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// Still a miss after Set
	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if _, hit, _ := c.Get(ctx, "missing"); hit {
		t.Error("Get(missing) should miss")
	}

	if err := c.Set(ctx, "svg", []byte("<svg/>"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "svg")
	if err != nil || !hit {
		t.Fatalf("Get = (hit %v, err %v), want hit", hit, err)
	}
	if string(data) != "<svg/>" {
		t.Errorf("Get = %q, want %q", data, "<svg/>")
	}

	if err := c.Delete(ctx, "svg"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "svg"); hit {
		t.Error("Get after Delete should miss")
	}
	if err := c.Delete(ctx, "svg"); err != nil {
		t.Errorf("Delete(missing) = %v, want nil", err)
	}
}

func TestFileCacheExpired(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry should miss")
	}

	if err := c.Set(ctx, "forever", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "forever"); !hit {
		t.Error("entry without ttl should hit")
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// SHA-256 produces 64 hex chars
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
	if HashString("hello") != h1 {
		t.Error("HashString should match Hash of the same bytes")
	}
}

func TestHashKeyKinds(t *testing.T) {
	schema := hashKey("schema", "abc")
	artifact := hashKey("artifact", "abc")
	if !strings.HasPrefix(schema, "schema:") || !strings.HasPrefix(artifact, "artifact:") {
		t.Errorf("hashKey prefixes = %q, %q", schema, artifact)
	}
	if strings.TrimPrefix(schema, "schema:") != strings.TrimPrefix(artifact, "artifact:") {
		t.Error("hashKey should hash parts independently of kind")
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	sk1 := k.SchemaKey("hash123", SchemaKeyOpts{Format: "yaml"})
	sk2 := k.SchemaKey("hash123", SchemaKeyOpts{Format: "yaml", InferForeignKeys: true})
	if sk1 == sk2 {
		t.Error("Different SchemaKeyOpts should produce different keys")
	}
	if !strings.HasPrefix(sk1, "schema:") {
		t.Errorf("SchemaKey = %q, want schema: prefix", sk1)
	}

	ak1 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "svg"})
	ak2 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "png"})
	if ak1 == ak2 {
		t.Error("Different ArtifactKeyOpts should produce different keys")
	}
	if ak3 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "SVG"}); ak3 != ak1 {
		t.Error("ArtifactKey should ignore format case")
	}
	if ak4 := k.ArtifactKey("hash456", ArtifactKeyOpts{Format: "svg"}); ak4 == ak1 {
		t.Error("Different hashes should produce different keys")
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "erd:v1:")

	opts := ArtifactKeyOpts{Format: "svg"}
	if got, want := scoped.ArtifactKey("h", opts), "erd:v1:"+inner.ArtifactKey("h", opts); got != want {
		t.Errorf("ArtifactKey = %q, want %q", got, want)
	}

	schemaKey := scoped.SchemaKey("h", SchemaKeyOpts{})
	if !strings.HasPrefix(schemaKey, "erd:v1:schema:") {
		t.Errorf("SchemaKey should be prefixed: %s", schemaKey)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	scoped := NewScopedKeyer(nil, "prefix:")
	key := scoped.ArtifactKey("h", ArtifactKeyOpts{Format: "png"})
	if want := "prefix:" + NewDefaultKeyer().ArtifactKey("h", ArtifactKeyOpts{Format: "png"}); key != want {
		t.Errorf("key with nil inner = %q, want %q", key, want)
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	err := Retryable(ErrNetwork)
	if err == nil {
		t.Fatal("Retryable should return wrapped error")
	}
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}
	if err.Error() != ErrNetwork.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should call once: %d", calls)
	}

	// Non-retryable error stops immediately
	permanent := errors.New("permanent")
	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		return permanent
	})
	if err != permanent {
		t.Errorf("Should return non-retryable error: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should not retry non-retryable error: %d", calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(ErrNetwork)
		}
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed after retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("Should retry once: %d", calls)
	}
}

func TestRetryPolicy(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		policy    RetryPolicy
		failures  int
		wantCalls int
		wantErr   bool
	}{
		{"succeeds first try", RetryPolicy{Attempts: 3, Delay: time.Millisecond}, 0, 1, false},
		{"recovers", RetryPolicy{Attempts: 3, Delay: time.Millisecond}, 2, 3, false},
		{"gives up", RetryPolicy{Attempts: 2, Delay: time.Millisecond}, 5, 2, true},
		{"single attempt", RetryPolicy{Attempts: 1, Delay: time.Millisecond}, 1, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := tt.policy.Do(ctx, func() error {
				calls++
				if calls <= tt.failures {
					return Retryable(ErrNetwork)
				}
				return nil
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("Do() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrNetwork) {
				t.Errorf("Do() error = %v, want ErrNetwork", err)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestRetryPolicyDefaults(t *testing.T) {
	if got := (RetryPolicy{}).withDefaults(); got != DefaultRetryPolicy {
		t.Errorf("withDefaults() = %+v, want %+v", got, DefaultRetryPolicy)
	}
	custom := RetryPolicy{Attempts: 5, Delay: time.Millisecond}
	if got := custom.withDefaults(); got != custom {
		t.Errorf("withDefaults() = %+v, want %+v", got, custom)
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"timeout", timeoutError{}, true},
		{"wrapped timeout", fmt.Errorf("dial: %w", timeoutError{}), true},
		{"closed client", redis.ErrClosed, true},
		{"server reply", errors.New("WRONGTYPE Operation against a key"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err)
			if tt.err == nil {
				if err != nil {
					t.Errorf("classify(nil) = %v, want nil", err)
				}
				return
			}
			if got := IsRetryable(err); got != tt.retryable {
				t.Errorf("IsRetryable(classify(%v)) = %v, want %v", tt.err, got, tt.retryable)
			}
			if tt.retryable && !errors.Is(err, ErrNetwork) {
				t.Errorf("classify(%v) should wrap ErrNetwork", tt.err)
			}
		})
	}
}

func TestNewRedisCacheBadURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), RedisOptions{URL: "http://not-redis"})
	if err == nil {
		t.Fatal("NewRedisCache should reject a non-redis URL")
	}
	if !strings.Contains(err.Error(), "parse redis url") {
		t.Errorf("error = %v, want parse failure", err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}

	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear() = %d, want 3", n)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("Get after Clear should miss")
	}
	if n, _ := c.Clear(); n != 0 {
		t.Errorf("second Clear() = %d, want 0", n)
	}
}
