package res

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	nats "github.com/nats-io/nats.go"
)

// Request types
const (
	RequestTypeAccess = "access"
	RequestTypeGet    = "get"
	RequestTypeCall   = "call"
	RequestTypeAuth   = "auth"
)

// Request represents a request for a resource.
type Request struct {
	resource
	rtype   string
	method  string
	msg     *nats.Msg
	replied bool // Flag telling if a reply has been made

	cid        string
	params     json.RawMessage
	token      json.RawMessage
	header     map[string][]string
	host       string
	remoteAddr string
	uri        string
}

// AccessRequest has methods for responding to access requests.
type AccessRequest interface {
	Resource
	CID() string
	RawToken() json.RawMessage
	ParseToken(interface{})
	Access(get bool, call string)
	AccessDenied()
	AccessGranted()
	NotFound()
	InvalidQuery(message string)
	Error(err error)
	Timeout(d time.Duration)
}

// ModelRequest has methods for responding to model get requests.
type ModelRequest interface {
	Resource
	Model(model interface{})
	QueryModel(model interface{}, query string)
	NotFound()
	InvalidQuery(message string)
	Error(err error)
	Timeout(d time.Duration)
	ForValue() bool
}

// CollectionRequest has methods for responding to collection get requests.
type CollectionRequest interface {
	Resource
	Collection(collection interface{})
	QueryCollection(collection interface{}, query string)
	NotFound()
	InvalidQuery(message string)
	Error(err error)
	Timeout(d time.Duration)
	ForValue() bool
}

// GetRequest has methods for responding to untyped get requests, and
// embeds the methods of both ModelRequest and CollectionRequest.
type GetRequest interface {
	Resource
	Model(model interface{})
	QueryModel(model interface{}, query string)
	Collection(collection interface{})
	QueryCollection(collection interface{}, query string)
	NotFound()
	InvalidQuery(message string)
	Error(err error)
	Timeout(d time.Duration)
	ForValue() bool
}

// CallRequest has methods for responding to call requests.
type CallRequest interface {
	Resource
	Method() string
	CID() string
	RawParams() json.RawMessage
	RawToken() json.RawMessage
	ParseParams(interface{})
	ParseToken(interface{})
	OK(result interface{})
	Resource(rid string)
	NotFound()
	MethodNotFound()
	InvalidParams(message string)
	InvalidQuery(message string)
	Error(err error)
	Timeout(d time.Duration)
}

// NewRequest has methods for responding to new call requests.
type NewRequest interface {
	Resource
	CID() string
	RawParams() json.RawMessage
	RawToken() json.RawMessage
	ParseParams(interface{})
	ParseToken(interface{})
	New(rid Ref)
	NotFound()
	MethodNotFound()
	InvalidParams(message string)
	InvalidQuery(message string)
	Error(err error)
	Timeout(d time.Duration)
}

// AuthRequest has methods for responding to auth requests.
type AuthRequest interface {
	Resource
	Method() string
	CID() string
	RawParams() json.RawMessage
	RawToken() json.RawMessage
	ParseParams(interface{})
	ParseToken(interface{})
	Header() map[string][]string
	Host() string
	RemoteAddr() string
	URI() string
	OK(result interface{})
	Resource(rid string)
	NotFound()
	MethodNotFound()
	InvalidParams(message string)
	InvalidQuery(message string)
	Error(err error)
	Timeout(d time.Duration)
	TokenEvent(token interface{})
}

// Type returns the request type. May be "access", "get", "call", or "auth".
func (r *Request) Type() string {
	return r.rtype
}

// Method returns the method of a call or auth request, or an empty string
// for other request types.
func (r *Request) Method() string {
	return r.method
}

// CID returns the connection ID of the requesting client connection.
//
// Empty string for get requests.
func (r *Request) CID() string {
	return r.cid
}

// RawParams returns the JSON encoded method parameters, or nil if the
// request had no parameters.
//
// Only valid for call and auth requests.
func (r *Request) RawParams() json.RawMessage {
	return r.params
}

// RawToken returns the JSON encoded access token, or nil if the request had
// no token.
//
// Only valid for access, call, and auth requests.
func (r *Request) RawToken() json.RawMessage {
	return r.token
}

// ParseParams unmarshals the JSON encoded method parameters and stores the
// result in p. If the request had no parameters, ParseParams does nothing.
// On any error, ParseParams panics with a system.invalidParams *Error,
// making it a valid way of ending the handler on malformed input:
//
//	var p struct {
//		Foo string `json:"foo"`
//	}
//	r.ParseParams(&p)
func (r *Request) ParseParams(p interface{}) {
	if len(r.params) > 0 {
		if err := json.Unmarshal(r.params, p); err != nil {
			panic(&Error{Code: CodeInvalidParams, Message: err.Error()})
		}
	}
}

// ParseToken unmarshals the JSON encoded token and stores the result in t.
// If the request had no token, ParseToken does nothing. On any error,
// ParseToken panics with a system.internalError *Error.
func (r *Request) ParseToken(t interface{}) {
	if len(r.token) > 0 {
		if err := json.Unmarshal(r.token, t); err != nil {
			panic(InternalError(err))
		}
	}
}

// Header returns the HTTP headers sent by the client on connect.
//
// Only valid for auth requests.
func (r *Request) Header() map[string][]string {
	return r.header
}

// Host returns the host on which the URL is sought by the client. Per RFC
// 2616, this is either the value of the "Host" header or the host name given
// in the URL itself.
//
// Only valid for auth requests.
func (r *Request) Host() string {
	return r.host
}

// RemoteAddr returns the network address of the client, in "IP:port" format.
//
// Only valid for auth requests.
func (r *Request) RemoteAddr() string {
	return r.remoteAddr
}

// URI returns the unmodified Request-URI of the Request-Line (RFC 2616,
// Section 5.1) as sent by the client when connecting to the gateway.
//
// Only valid for auth requests.
func (r *Request) URI() string {
	return r.uri
}

// OK sends a successful result response to a request. A nil result means no
// result payload.
//
// Only valid for call and auth requests.
func (r *Request) OK(result interface{}) {
	if result == nil {
		r.reply(responseSuccess)
	} else {
		r.success(result)
	}
}

// Resource sends a successful resource response to a request, redirecting
// the client to the resource ID.
//
// Only valid for call and auth requests.
func (r *Request) Resource(rid string) {
	ref := Ref(rid)
	if !ref.IsValid() {
		panic("res: invalid resource ID: " + rid)
	}
	data, err := json.Marshal(resourceResponse{Resource: ref})
	if err != nil {
		r.error(ToError(err))
		return
	}
	r.reply(data)
}

// New sends a successful response to a new call request, with a reference to
// the newly created resource.
//
// Panics if the reference is invalid.
func (r *Request) New(rid Ref) {
	if !rid.IsValid() {
		panic("res: invalid reference RID: " + string(rid))
	}
	r.success(rid)
}

// NotFound sends a system.notFound response.
func (r *Request) NotFound() {
	r.reply(responseNotFound)
}

// MethodNotFound sends a system.methodNotFound response.
//
// Only valid for call and auth requests.
func (r *Request) MethodNotFound() {
	r.reply(responseMethodNotFound)
}

// InvalidParams sends a system.invalidParams response. An empty message
// defaults to "Invalid parameters".
//
// Only valid for call and auth requests.
func (r *Request) InvalidParams(message string) {
	if message == "" {
		r.reply(responseInvalidParams)
	} else {
		r.error(&Error{Code: CodeInvalidParams, Message: message})
	}
}

// InvalidQuery sends a system.invalidQuery response. An empty message
// defaults to "Invalid query".
func (r *Request) InvalidQuery(message string) {
	if message == "" {
		r.reply(responseInvalidQuery)
	} else {
		r.error(&Error{Code: CodeInvalidQuery, Message: message})
	}
}

// Error sends a custom error response.
func (r *Request) Error(err error) {
	r.error(ToError(err))
}

// Access sends a successful response for an access request. The get flag
// tells if the client has access to the resource, and call is a comma
// separated list of allowed methods, where an asterisk (*) allows all:
//
//	r.Access(true, "set,foo")
//	r.Access(true, "*")
//
// Only valid for access requests.
func (r *Request) Access(get bool, call string) {
	if !get && call == "" {
		r.reply(responseAccessDenied)
		return
	}
	r.success(accessResponse{Get: get, Call: call})
}

// AccessDenied sends a system.accessDenied response.
//
// Only valid for access requests.
func (r *Request) AccessDenied() {
	r.reply(responseAccessDenied)
}

// AccessGranted sends a successful response granting full access to the
// resource:
//
//	Access(true, "*")
//
// Only valid for access requests.
func (r *Request) AccessGranted() {
	r.reply(responseAccessGranted)
}

// Model sends a successful model response for a get request.
//
// Only valid for get requests of a model resource.
func (r *Request) Model(model interface{}) {
	r.model(model, "")
}

// QueryModel sends a successful query model response for a get request, with
// the normalized query the model is based on.
//
// Only valid for get requests of a model query resource.
func (r *Request) QueryModel(model interface{}, query string) {
	r.model(model, query)
}

func (r *Request) model(model interface{}, query string) {
	if r.h.Type == TypeCollection {
		panic("res: model response on collection handler")
	}
	r.success(modelResponse{Model: model, Query: query})
}

// Collection sends a successful collection response for a get request.
//
// Only valid for get requests of a collection resource.
func (r *Request) Collection(collection interface{}) {
	r.collection(collection, "")
}

// QueryCollection sends a successful query collection response for a get
// request, with the normalized query the collection is based on.
//
// Only valid for get requests of a collection query resource.
func (r *Request) QueryCollection(collection interface{}, query string) {
	r.collection(collection, query)
}

func (r *Request) collection(collection interface{}, query string) {
	if r.h.Type == TypeModel {
		panic("res: collection response on model handler")
	}
	r.success(collectionResponse{Collection: collection, Query: query})
}

// ForValue reports whether the get request is made internally to get the
// resource value, and not to respond to an external request.
func (r *Request) ForValue() bool {
	return false
}

// Timeout lets the requester know that the current request handler has
// prolonged the default timeout, and that the response may be delayed for
// the given duration.
func (r *Request) Timeout(d time.Duration) {
	if d < 0 {
		panic("res: negative timeout duration")
	}
	out := []byte(`timeout:"` + timeoutDurationTag(d) + `"`)
	r.s.rawEvent(r.msg.Reply, out)
}

// timeoutDurationTag formats a duration as the millisecond count used in
// timeout pre-responses.
func timeoutDurationTag(d time.Duration) string {
	return strconv.FormatInt(int64(d/time.Millisecond), 10)
}

// TokenEvent sends a connection token event on behalf of the client
// connection that made the request, discarding any previously set token. A
// nil token clears it.
//
// Only valid for auth requests.
func (r *Request) TokenEvent(token interface{}) {
	if !isValidPart(r.cid) {
		panic("res: invalid connection ID: " + r.cid)
	}
	r.s.event("conn."+r.cid+".token", tokenEvent{Token: token})
}

// success sends a successful result response.
func (r *Request) success(result interface{}) {
	data, err := json.Marshal(successResponse{Result: result})
	if err != nil {
		r.error(ToError(err))
		return
	}
	r.reply(data)
}

// error sends an error response.
func (r *Request) error(e *Error) {
	data, err := json.Marshal(errorResponse{Error: e})
	if err != nil {
		data = responseInternalError
	}
	r.reply(data)
}

// reply sends an encoded payload as a reply. Only one reply may be sent per
// request; reply panics on a second call.
func (r *Request) reply(payload []byte) {
	if r.replied {
		panic("res: response already sent on request")
	}
	r.replied = true
	r.s.tracef("<== %s: %s", r.msg.Subject, payload)
	r.s.publish(r.msg.Reply, payload)
}

// processRequest is executed by a worker to process an incoming request.
func (s *Service) processRequest(m *nats.Msg, rtype, rname, method string, match *Match) {
	r := &Request{
		resource: resource{
			rname: rname,
			s:     s,
		},
		rtype:  rtype,
		method: method,
		msg:    m,
	}

	if match == nil {
		r.reply(responseNotFound)
		return
	}
	r.pathParams = match.Params
	r.group = match.workerKey(rname)
	r.h = match.Handler

	var rc requestMsg
	if err := json.Unmarshal(m.Data, &rc); err != nil {
		s.errorf("Error unmarshaling incoming request: %s", err)
		r.error(ToError(err))
		return
	}

	r.cid = rc.CID
	r.params = rc.Params
	r.token = rc.Token
	r.header = rc.Header
	r.host = rc.Host
	r.remoteAddr = rc.RemoteAddr
	r.uri = rc.URI
	r.query = rc.Query

	r.executeHandler()
}

func (r *Request) executeHandler() {
	// Handlers may panic to end processing. A *Error panic is a valid way
	// of sending an error response, and is not logged.
	defer func() {
		v := recover()
		if v == nil {
			return
		}

		var str string

		switch e := v.(type) {
		case *Error:
			if !r.replied {
				r.error(e)
				return
			}
			str = e.Message
		case error:
			str = e.Error()
			if !r.replied {
				r.error(ToError(e))
			}
		case string:
			str = e
			if !r.replied {
				r.error(ToError(errors.New(e)))
			}
		default:
			str = fmt.Sprintf("%v", e)
			if !r.replied {
				r.error(ToError(errors.New(str)))
			}
		}

		r.s.errorf("Error handling request %s: %s", r.msg.Subject, str)
	}()

	h := r.h

	switch r.rtype {
	case RequestTypeAccess:
		if h.Access == nil {
			// A resource without its own access handling is treated as
			// accessible to all.
			r.reply(responseAccessGranted)
			return
		}
		h.Access(r)
	case RequestTypeGet:
		if h.Get == nil {
			r.reply(responseNotFound)
			return
		}
		r.inGet = true
		h.Get(r)
	case RequestTypeCall:
		if strings.EqualFold(r.method, "new") && h.New != nil {
			h.New(r)
		} else {
			cb := h.callMethod(r.method)
			if cb == nil {
				r.reply(responseMethodNotFound)
				return
			}
			cb(r)
		}
	case RequestTypeAuth:
		cb := h.authMethod(r.method)
		if cb == nil {
			r.reply(responseMethodNotFound)
			return
		}
		cb(r)
	default:
		r.s.errorf("Unknown request type: %s", r.rtype)
		return
	}

	if !r.replied {
		r.reply(responseMissingResponse)
	}
}
