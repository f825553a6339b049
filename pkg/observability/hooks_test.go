package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	g := NoopGraphHooks{}
	g.OnEntityRegistered("person", 3)
	g.OnEdgeDeferred("student:person_id", "person", "person")
	g.OnEdgeEmitted("student:person_id", "person")
	g.OnEdgeDuplicate("student:person_id", "person")

	r := NoopRenderHooks{}
	r.OnRenderStart(ctx, "svg")
	r.OnRenderComplete(ctx, "svg", 1024, time.Second, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "artifact")
	c.OnCacheMiss(ctx, "artifact")
	c.OnCacheSet(ctx, "artifact", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "POST", "/v1/render")
	h.OnResponse(ctx, "POST", "/v1/render", 200, time.Second)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Graph().(NoopGraphHooks); !ok {
		t.Error("Graph() should return NoopGraphHooks by default")
	}
	if _, ok := Render().(NoopRenderHooks); !ok {
		t.Error("Render() should return NoopRenderHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customGraph := &testGraphHooks{}
	SetGraphHooks(customGraph)
	if Graph() != customGraph {
		t.Error("SetGraphHooks should set custom hooks")
	}

	customRender := &testRenderHooks{}
	SetRenderHooks(customRender)
	if Render() != customRender {
		t.Error("SetRenderHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	Reset()
	if _, ok := Graph().(NoopGraphHooks); !ok {
		t.Error("Reset() should restore NoopGraphHooks")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("Reset() should restore NoopHTTPHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testGraphHooks{}
	SetGraphHooks(custom)
	SetGraphHooks(nil)

	if Graph() != custom {
		t.Error("SetGraphHooks(nil) should be ignored")
	}

	Reset()
}

type testGraphHooks struct{ NoopGraphHooks }
type testRenderHooks struct{ NoopRenderHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
