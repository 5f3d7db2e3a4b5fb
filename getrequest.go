package res

import (
	"errors"
	"fmt"
	"time"
)

// getRequest is a get request made internally to fetch a resource value
// without an external requester.
type getRequest struct {
	resource
	replied bool
	value   interface{}
	err     *Error
}

var _ GetRequest = (*getRequest)(nil)

// Value gets the resource value as provided by its get handler.
//
// Returns a system.notFound error if the resource has no get handler, or if
// the handler responds with NotFound.
func (r *resource) Value() (interface{}, error) {
	gr := &getRequest{resource: *r}
	gr.inGet = true
	gr.executeHandler()
	if gr.err != nil {
		return nil, gr.err
	}
	return gr.value, nil
}

// RequireValue gets the resource value as provided by its get handler, and
// panics if the value could not be fetched.
func (r *resource) RequireValue() interface{} {
	v, err := r.Value()
	if err != nil {
		panic(err)
	}
	return v
}

// Model sets the model value.
func (r *getRequest) Model(model interface{}) {
	r.model(model)
}

// QueryModel sets the model value. The normalized query is unused when
// fetching the value internally.
func (r *getRequest) QueryModel(model interface{}, query string) {
	r.model(model)
}

func (r *getRequest) model(model interface{}) {
	if r.h.Type == TypeCollection {
		panic("res: model response on collection handler")
	}
	r.reply()
	r.value = model
}

// Collection sets the collection value.
func (r *getRequest) Collection(collection interface{}) {
	r.collection(collection)
}

// QueryCollection sets the collection value. The normalized query is unused
// when fetching the value internally.
func (r *getRequest) QueryCollection(collection interface{}, query string) {
	r.collection(collection)
}

func (r *getRequest) collection(collection interface{}) {
	if r.h.Type == TypeModel {
		panic("res: collection response on model handler")
	}
	r.reply()
	r.value = collection
}

// NotFound sets a system.notFound error as the response.
func (r *getRequest) NotFound() {
	r.reply()
	r.err = ErrNotFound
}

// InvalidQuery sets a system.invalidQuery error as the response. An empty
// message defaults to "Invalid query".
func (r *getRequest) InvalidQuery(message string) {
	r.reply()
	if message == "" {
		r.err = ErrInvalidQuery
	} else {
		r.err = &Error{Code: CodeInvalidQuery, Message: message}
	}
}

// Error sets a custom error as the response.
func (r *getRequest) Error(err error) {
	r.reply()
	r.err = ToError(err)
}

// Timeout does nothing, as an internal get request has no requester waiting.
func (r *getRequest) Timeout(d time.Duration) {
	if d < 0 {
		panic("res: negative timeout duration")
	}
}

// ForValue reports whether the get request is made internally to get the
// resource value. Always true for getRequest.
func (r *getRequest) ForValue() bool {
	return true
}

func (r *getRequest) reply() {
	if r.replied {
		panic("res: response already sent on request")
	}
	r.replied = true
}

func (r *getRequest) executeHandler() {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		if r.replied {
			return
		}
		switch e := v.(type) {
		case *Error:
			r.err = e
		case error:
			r.err = ToError(e)
		case string:
			r.err = ToError(errors.New(e))
		default:
			r.err = ToError(fmt.Errorf("%v", e))
		}
	}()

	if r.h.Get == nil {
		r.err = ErrNotFound
		return
	}
	r.h.Get(r)

	if !r.replied {
		r.err = &Error{Code: CodeInternalError, Message: "Internal error: missing response"}
	}
}
