package res_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	res "github.com/boekfors/csharp-res"
	"github.com/boekfors/csharp-res/restest"
)

// Test that a get request on a model resource responds with the model.
func TestGetRequest_Model_SendsModelResponse(t *testing.T) {
	c := restest.NewSession(t, newTestService())
	defer c.Close()

	c.Get("test.model").
		Response().
		AssertModel(map[string]string{"foo": "bar"})
}

// Test that a get request on a collection resource responds with the
// collection.
func TestGetRequest_Collection_SendsCollectionResponse(t *testing.T) {
	s := res.NewService("test")
	s.Handle("collection",
		res.Collection(),
		res.GetCollection(func(r res.CollectionRequest) {
			r.Collection([]string{"foo", "bar"})
		}),
	)
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Get("test.collection").
		Response().
		AssertCollection([]string{"foo", "bar"})
}

// Test that a get request on a query resource responds with the normalized
// query.
func TestGetRequest_QueryModel_SendsQueryInResponse(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model",
		res.Model(),
		res.GetModel(func(r res.ModelRequest) {
			r.QueryModel(map[string]string{"foo": "bar"}, "limit=10")
		}),
	)
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Get("test.model?limit=10&extra").
		Response().
		AssertModel(map[string]string{"foo": "bar"}).
		AssertQuery("limit=10")
}

// Test that the query part of the resource ID is passed to the handler.
func TestGetRequest_Query_PassedToHandler(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model",
		res.Model(),
		res.GetModel(func(r res.ModelRequest) {
			r.QueryModel(map[string]string{"q": r.Query()}, r.Query())
		}),
	)
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Get("test.model?foo=baz").
		Response().
		AssertModel(map[string]string{"q": "foo=baz"})
}

// Test that a get request for an unregistered resource responds with
// system.notFound.
func TestGetRequest_UnmatchedResourceName_SendsNotFound(t *testing.T) {
	c := restest.NewSession(t, newTestService())
	defer c.Close()

	c.Get("test.unknown").
		Response().
		AssertError(res.ErrNotFound)
}

// Test that a get request on a handler without a get callback responds with
// system.notFound.
func TestGetRequest_NoGetHandler_SendsNotFound(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model", res.Call("method", func(r res.CallRequest) {
		r.OK(nil)
	}))
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Get("test.model").
		Response().
		AssertError(res.ErrNotFound)
}

// Test that path params are derived from the resource name placeholders.
func TestGetRequest_PathParams_PassedToHandler(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model.$id.$type",
		res.Model(),
		res.GetModel(func(r res.ModelRequest) {
			r.Model(map[string]string{
				"id":   r.PathParam("id"),
				"type": r.PathParam("type"),
			})
		}),
	)
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Get("test.model.42.foo").
		Response().
		AssertModel(map[string]string{"id": "42", "type": "foo"})
}

// Test that a call request responds with the result.
func TestCallRequest_Result_SendsResultResponse(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model", res.Call("method", func(r res.CallRequest) {
		r.OK(map[string]string{"foo": "bar"})
	}))
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Call("test.model", "method", nil).
		Response().
		AssertResult(map[string]string{"foo": "bar"})
}

// Test that a call request with a nil result responds with a null result.
func TestCallRequest_NilResult_SendsNullResult(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model", res.Call("method", func(r res.CallRequest) {
		r.OK(nil)
	}))
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Call("test.model", "method", nil).
		Response().
		AssertResult(nil)
}

// Test that call methods are matched case-insensitively.
func TestCallRequest_MethodCase_MatchedCaseInsensitively(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model", res.Call("fooBar", func(r res.CallRequest) {
		r.OK(r.Method())
	}))
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Call("test.model", "FOOBAR", nil).
		Response().
		AssertResult("FOOBAR")
}

// Test that the "*" method handles calls to any method without its own
// callback.
func TestCallRequest_WildcardMethod_HandlesAnyMethod(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model",
		res.Call("foo", func(r res.CallRequest) {
			r.OK("foo")
		}),
		res.Call("*", func(r res.CallRequest) {
			r.OK("wildcard")
		}),
	)
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Call("test.model", "foo", nil).
		Response().
		AssertResult("foo")
	c.Call("test.model", "bar", nil).
		Response().
		AssertResult("wildcard")
}

// Test that a call request for an unregistered method responds with
// system.methodNotFound.
func TestCallRequest_UnknownMethod_SendsMethodNotFound(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model", res.Call("method", func(r res.CallRequest) {
		r.OK(nil)
	}))
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Call("test.model", "unknown", nil).
		Response().
		AssertError(res.ErrMethodNotFound)
}

// Test that call parameters are parsed with ParseParams.
func TestCallRequest_ParseParams_UnmarshalsParams(t *testing.T) {
	s := res.NewService("test")
	s.Handle("math", res.Call("double", func(r res.CallRequest) {
		var p struct {
			Value int `json:"value"`
		}
		r.ParseParams(&p)
		r.OK(p.Value * 2)
	}))
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Call("test.math", "double", &restest.Request{
		CID:    "testcid",
		Params: json.RawMessage(`{"value":21}`),
	}).
		Response().
		AssertResult(42)
}

// Test that ParseParams on malformed params ends the handler with a
// system.invalidParams response.
func TestCallRequest_ParseInvalidParams_SendsInvalidParams(t *testing.T) {
	s := res.NewService("test")
	s.Handle("math", res.Call("double", func(r res.CallRequest) {
		var p struct {
			Value int `json:"value"`
		}
		r.ParseParams(&p)
		r.OK(p.Value * 2)
	}))
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Call("test.math", "double", &restest.Request{
		CID:    "testcid",
		Params: json.RawMessage(`{"value":"not a number"}`),
	}).
		Response().
		AssertErrorCode(res.CodeInvalidParams)
}

// Test that events emitted before the response are sent in order, before the
// response.
func TestCallRequest_EventBeforeResponse_SentBeforeResponse(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model",
		res.Model(),
		res.Call("set", func(r res.CallRequest) {
			r.ChangeEvent(map[string]interface{}{"foo": "baz"})
			r.OK(nil)
		}),
	)
	c := restest.NewSession(t, s)
	defer c.Close()

	req := c.Call("test.model", "set", nil)
	c.GetMsg().AssertChangeEvent("test.model", map[string]interface{}{"foo": "baz"})
	req.Response().AssertResult(nil)
}

// Test that requests to distinct resources complete even when there are
// fewer workers than active resources and one handler is blocked.
func TestCallRequest_MoreResourcesThanWorkers_AllRequestsComplete(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	s := res.NewService("test")
	s.Handle("model.$id", res.Call("method", func(r res.CallRequest) {
		if r.PathParam("id") == "a" {
			close(entered)
			<-release
		}
		r.OK(r.PathParam("id"))
	}))
	s.SetWorkerCount(1)
	c := restest.NewSession(t, s)
	defer c.Close()

	reqA := c.Call("test.model.a", "method", nil)
	<-entered
	reqB := c.Call("test.model.b", "method", nil)

	// Give the dispatcher time to hand the second resource's work record
	// to the occupied worker pool before releasing the first handler.
	time.Sleep(50 * time.Millisecond)
	close(release)

	reqA.Response().AssertResult("a")
	reqB.Response().AssertResult("b")
}

// Test that a second response on a request panics, while the first response
// remains the one sent.
func TestCallRequest_SecondResponse_Panics(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model", res.Call("method", func(r res.CallRequest) {
		r.OK("first")
		restest.AssertPanic(t, func() { r.OK("second") })
	}))
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Call("test.model", "method", nil).
		Response().
		AssertResult("first")
}

// Test that a handler ending without a response sends a missing response
// error.
func TestCallRequest_MissingResponse_SendsInternalError(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model", res.Call("method", func(r res.CallRequest) {}))
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Call("test.model", "method", nil).
		Response().
		AssertError(&res.Error{
			Code:    res.CodeInternalError,
			Message: "Internal error: missing response",
		})
}

// Test that a handler panicking with a *res.Error sends the error as
// response.
func TestCallRequest_PanicWithResError_SendsError(t *testing.T) {
	rerr := &res.Error{Code: "test.custom", Message: "Custom error"}
	s := res.NewService("test")
	s.Handle("model", res.Call("method", func(r res.CallRequest) {
		panic(rerr)
	}))
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Call("test.model", "method", nil).
		Response().
		AssertError(rerr)
}

// Test that a handler panicking with a plain error sends an internal error
// response.
func TestCallRequest_PanicWithError_SendsInternalError(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model", res.Call("method", func(r res.CallRequest) {
		panic(errors.New("boom"))
	}))
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Call("test.model", "method", nil).
		Response().
		AssertErrorCode(res.CodeInternalError)
}

// Test that a handler panicking with a string sends an internal error
// response.
func TestCallRequest_PanicWithString_SendsInternalError(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model", res.Call("method", func(r res.CallRequest) {
		panic("boom")
	}))
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Call("test.model", "method", nil).
		Response().
		AssertErrorCode(res.CodeInternalError)
}

// Test that a call request can respond with a reference to another resource.
func TestCallRequest_ResourceResponse_SendsResourceReference(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model", res.Call("method", func(r res.CallRequest) {
		r.Resource("test.model.foo")
	}))
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Call("test.model", "method", nil).
		Response().
		AssertResource("test.model.foo")
}

// Test that a new call request is handled by the new handler.
func TestNewRequest_NewHandler_SendsNewResourceResult(t *testing.T) {
	s := res.NewService("test")
	s.Handle("collection", res.New(func(r res.NewRequest) {
		r.New("test.model.42")
	}))
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Call("test.collection", "new", nil).
		Response().
		AssertResult(res.Ref("test.model.42"))
}

// Test that a new call request without a new handler falls through to the
// call map.
func TestNewRequest_NoNewHandler_FallsThroughToCallMap(t *testing.T) {
	s := res.NewService("test")
	s.Handle("collection", res.Call("new", func(r res.CallRequest) {
		r.OK("called")
	}))
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Call("test.collection", "new", nil).
		Response().
		AssertResult("called")
}

// Test that a timeout pre-response is sent on Timeout.
func TestCallRequest_Timeout_SendsPreResponse(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model", res.Call("method", func(r res.CallRequest) {
		r.Timeout(42 * time.Second)
		r.OK(nil)
	}))
	c := restest.NewSession(t, s)
	defer c.Close()

	req := c.Call("test.model", "method", nil)
	c.GetMsg().AssertRawPayload([]byte(`timeout:"42000"`))
	req.Response().AssertResult(nil)
}

// Test that a negative timeout duration panics.
func TestCallRequest_NegativeTimeout_Panics(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model", res.Call("method", func(r res.CallRequest) {
		restest.AssertPanic(t, func() { r.Timeout(-time.Second) })
		r.OK(nil)
	}))
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Call("test.model", "method", nil).
		Response().
		AssertResult(nil)
}

// Test that events are not allowed in get request handlers.
func TestGetRequest_EventInHandler_Panics(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model",
		res.Model(),
		res.GetModel(func(r res.ModelRequest) {
			r.ChangeEvent(map[string]interface{}{"foo": "baz"})
		}),
	)
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Get("test.model").
		Response().
		AssertErrorCode(res.CodeInternalError)
}

// Test that Value fetches the resource value through the get handler.
func TestResourceValue_ModelResource_ReturnsModel(t *testing.T) {
	model := map[string]string{"foo": "bar"}
	s := res.NewService("test")
	s.Handle("model",
		res.Model(),
		res.GetModel(func(r res.ModelRequest) {
			r.Model(model)
		}),
		res.Call("value", func(r res.CallRequest) {
			v, err := r.Value()
			restest.AssertNoError(t, err)
			r.OK(v)
		}),
	)
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Call("test.model", "value", nil).
		Response().
		AssertResult(model)
}

// Test that Value returns a system.notFound error when the resource has no
// get handler.
func TestResourceValue_NoGetHandler_ReturnsNotFound(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model", res.Call("value", func(r res.CallRequest) {
		_, err := r.Value()
		restest.AssertResError(t, err, res.ErrNotFound)
		r.OK(nil)
	}))
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Call("test.model", "value", nil).
		Response().
		AssertResult(nil)
}
