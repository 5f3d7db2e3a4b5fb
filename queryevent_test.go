package res_test

import (
	"testing"
	"time"

	res "github.com/boekfors/csharp-res"
	"github.com/boekfors/csharp-res/restest"
)

func newQueryService(cb func(r res.QueryRequest)) *res.Service {
	s := res.NewService("test")
	s.Handle("collection",
		res.Collection(),
		res.GetCollection(func(r res.CollectionRequest) {
			r.QueryCollection([]string{"foo", "bar"}, r.Query())
		}),
		res.Call("update", func(r res.CallRequest) {
			// The callback is also invoked with nil on expiration.
			r.QueryEvent(func(r res.QueryRequest) {
				if r != nil {
					cb(r)
				}
			})
			r.OK(nil)
		}),
	)
	return s
}

// Test that QueryEvent sends a query event with a request subject.
func TestQueryEvent_SendsQueryEventWithSubject(t *testing.T) {
	c := restest.NewSession(t, newQueryService(func(r res.QueryRequest) {}))
	defer c.Close()

	req := c.Call("test.collection", "update", nil)
	var subject string
	c.GetMsg().AssertQueryEvent("test.collection", &subject)
	if subject == "" {
		t.Fatalf("expected query event subject to be non-empty")
	}
	req.Response().AssertResult(nil)
}

// Test that a query request responds with the events for the query.
func TestQueryRequest_WithEvents_SendsEventsResult(t *testing.T) {
	c := restest.NewSession(t, newQueryService(func(r res.QueryRequest) {
		restest.AssertEqualJSON(t, "Query", r.Query(), "q=foo")
		r.AddEvent("bar", 1)
		r.RemoveEvent(0)
	}))
	defer c.Close()

	req := c.Call("test.collection", "update", nil)
	var subject string
	c.GetMsg().AssertQueryEvent("test.collection", &subject)
	req.Response().AssertResult(nil)

	c.QueryRequest(subject, "q=foo").
		Response().
		AssertEvents(
			restest.Event{Name: "add", Value: "bar", Idx: 1},
			restest.Event{Name: "remove", Idx: 0},
		)
}

// Test that a query request on a model resource responds with its change
// events.
func TestQueryRequest_ModelChangeEvent_SendsEventsResult(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model",
		res.GetModel(func(r res.ModelRequest) {
			r.QueryModel(map[string]string{"foo": "bar"}, r.Query())
		}),
		res.Call("update", func(r res.CallRequest) {
			r.QueryEvent(func(r res.QueryRequest) {
				if r != nil {
					r.ChangeEvent(map[string]interface{}{"foo": "baz"})
				}
			})
			r.OK(nil)
		}),
	)
	c := restest.NewSession(t, s)
	defer c.Close()

	req := c.Call("test.model", "update", nil)
	var subject string
	c.GetMsg().AssertQueryEvent("test.model", &subject)
	req.Response().AssertResult(nil)

	c.QueryRequest(subject, "q=foo").
		Response().
		AssertEvents(restest.Event{Name: "change", Changed: map[string]interface{}{"foo": "baz"}})
}

// Test that a query request without any events responds with an empty event
// list.
func TestQueryRequest_WithoutEvents_SendsEmptyEventsResult(t *testing.T) {
	c := restest.NewSession(t, newQueryService(func(r res.QueryRequest) {}))
	defer c.Close()

	req := c.Call("test.collection", "update", nil)
	var subject string
	c.GetMsg().AssertQueryEvent("test.collection", &subject)
	req.Response().AssertResult(nil)

	c.QueryRequest(subject, "q=foo").
		Response().
		AssertEvents()
}

// Test that a query request can respond with a collection.
func TestQueryRequest_CollectionResponse_SendsCollectionResult(t *testing.T) {
	c := restest.NewSession(t, newQueryService(func(r res.QueryRequest) {
		r.Collection([]string{"baz"})
	}))
	defer c.Close()

	req := c.Call("test.collection", "update", nil)
	var subject string
	c.GetMsg().AssertQueryEvent("test.collection", &subject)
	req.Response().AssertResult(nil)

	c.QueryRequest(subject, "q=foo").
		Response().
		AssertCollection([]string{"baz"})
}

// Test that a query request can respond with a system.notFound error.
func TestQueryRequest_NotFound_SendsNotFoundError(t *testing.T) {
	c := restest.NewSession(t, newQueryService(func(r res.QueryRequest) {
		r.NotFound()
	}))
	defer c.Close()

	req := c.Call("test.collection", "update", nil)
	var subject string
	c.GetMsg().AssertQueryEvent("test.collection", &subject)
	req.Response().AssertResult(nil)

	c.QueryRequest(subject, "q=foo").
		Response().
		AssertError(res.ErrNotFound)
}

// Test that a query request without a query responds with an error.
func TestQueryRequest_MissingQuery_SendsError(t *testing.T) {
	c := restest.NewSession(t, newQueryService(func(r res.QueryRequest) {}))
	defer c.Close()

	req := c.Call("test.collection", "update", nil)
	var subject string
	c.GetMsg().AssertQueryEvent("test.collection", &subject)
	req.Response().AssertResult(nil)

	c.QueryRequest(subject, "").
		Response().
		AssertError(&res.Error{
			Code:    res.CodeInternalError,
			Message: "Internal error: missing query",
		})
}

// Test that a non-query event on a query request panics and responds with an
// internal error.
func TestQueryRequest_NonQueryEvent_SendsInternalError(t *testing.T) {
	c := restest.NewSession(t, newQueryService(func(r res.QueryRequest) {
		r.ReaccessEvent()
	}))
	defer c.Close()

	req := c.Call("test.collection", "update", nil)
	var subject string
	c.GetMsg().AssertQueryEvent("test.collection", &subject)
	req.Response().AssertResult(nil)

	c.QueryRequest(subject, "q=foo").
		Response().
		AssertErrorCode(res.CodeInternalError)
}

// Test that the expiration nil call is serialized with other work on the
// resource's worker group.
func TestQueryEvent_ExpirationCallback_SerializedWithWorkerGroup(t *testing.T) {
	done := make(chan struct{})
	s := res.NewService("test")
	s.Handle("collection",
		res.Collection(),
		res.GetCollection(func(r res.CollectionRequest) {
			r.Collection([]string{"foo"})
		}),
		res.Call("update", func(r res.CallRequest) {
			r.QueryEvent(func(r res.QueryRequest) {
				if r == nil {
					close(done)
				}
			})
			r.OK(nil)
		}),
	)
	s.SetQueryEventDuration(100 * time.Millisecond)
	c := restest.NewSession(t, s)
	defer c.Close()

	req := c.Call("test.collection", "update", nil)
	c.GetMsg().AssertQueryEvent("test.collection", nil)
	req.Response().AssertResult(nil)

	release := make(chan struct{})
	parked := make(chan struct{})
	restest.AssertNoError(t, c.Service().With("test.collection", func(r res.Resource) {
		close(parked)
		<-release
	}))
	<-parked

	// Wait out the query event duration while the group is occupied.
	time.Sleep(250 * time.Millisecond)
	select {
	case <-done:
		t.Fatalf("expected nil callback to wait for the worker group")
	default:
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected nil callback after the worker group was released")
	}
}

// Test that the query event callback is called with nil when the query event
// expires.
func TestQueryEvent_Expiration_CallsCallbackWithNil(t *testing.T) {
	done := make(chan struct{})
	s := res.NewService("test")
	s.Handle("collection",
		res.Collection(),
		res.GetCollection(func(r res.CollectionRequest) {
			r.Collection([]string{"foo"})
		}),
		res.Call("update", func(r res.CallRequest) {
			r.QueryEvent(func(r res.QueryRequest) {
				if r == nil {
					close(done)
				}
			})
			r.OK(nil)
		}),
	)
	s.SetQueryEventDuration(time.Millisecond)
	c := restest.NewSession(t, s)
	defer c.Close()

	req := c.Call("test.collection", "update", nil)
	c.GetMsg().AssertQueryEvent("test.collection", nil)
	req.Response().AssertResult(nil)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected query event callback to be called with nil")
	}
}
