package resprot

import (
	"encoding/json"
	"errors"
	"reflect"
	"strconv"
	"time"

	res "github.com/boekfors/csharp-res"
	nats "github.com/nats-io/nats.go"
)

var (
	errInvalidResponse           = errors.New("invalid response")
	errResourceResponse          = errors.New("response is a resource response")
	errInvalidModelResponse      = errors.New("invalid model response")
	errInvalidCollectionResponse = errors.New("invalid collection response")
)

var emptyRequest = []byte(`{}`)

// Request represents the payload of a request.
//
// Reference:
// https://resgate.io/docs/specification/res-service-protocol/#requests
type Request struct {

	// CID is the requesting client's connection ID.
	//
	// Valid for access, call, and auth requests. May be omitted on
	// inter-service requests.
	CID string `json:"cid,omitempty"`

	// Params is the request parameters.
	//
	// Valid for call and auth requests. May be omitted.
	Params interface{} `json:"params,omitempty"`

	// Token is the RES client's access token.
	//
	// Valid for access, call, and auth requests. May be omitted.
	Token interface{} `json:"token,omitempty"`

	// Header is the HTTP headers of the client, provided on connect.
	//
	// Valid for auth requests. May be omitted on inter-service requests.
	Header map[string][]string `json:"header,omitempty"`

	// Host is the host on which the URL is sought by the client. Per RFC
	// 2616, this is either the value of the "Host" header or the host name
	// given in the URL itself.
	//
	// Valid for auth requests. May be omitted on inter-service requests.
	Host string `json:"host,omitempty"`

	// RemoteAddr is the network address of the client, provided on
	// connect.
	//
	// Valid for auth requests. May be omitted on inter-service requests.
	RemoteAddr string `json:"remoteAddr,omitempty"`

	// URI is the unmodified Request-URI of the Request-Line (RFC 2616,
	// Section 5.1) as provided by the client on connect.
	//
	// Valid for auth requests. May be omitted on inter-service requests.
	URI string `json:"uri,omitempty"`

	// Query is the query part of the resource ID without the question mark
	// separator.
	//
	// Valid for access, get, call, auth, and query requests. May be
	// omitted, except for on query requests.
	Query string `json:"query,omitempty"`
}

// Response represents the response to a request.
//
// Reference:
// https://resgate.io/docs/specification/res-service-protocol/#response
type Response struct {

	// Result is the successful result of a request.
	Result json.RawMessage `json:"result"`

	// Resource is a reference to a resource.
	//
	// Valid for responses to call and auth requests.
	Resource res.Ref `json:"resource"`

	// Error is the request error.
	Error *res.Error `json:"error"`
}

// ParseResponse unmarshals a JSON encoded RES response.
//
// If the response is not valid, the Error field will be set to a *res.Error
// with code system.internalError.
func ParseResponse(data []byte) Response {
	var r Response
	if len(data) > 0 {
		err := json.Unmarshal(data, &r)
		if err != nil {
			r.Error = res.InternalError(err)
			// A valid response MUST have one of the members set
		} else if r.Error == nil && r.Resource == "" && r.Result == nil {
			r.Error = res.InternalError(errInvalidResponse)
		}
	} else {
		r.Error = res.InternalError(errInvalidResponse)
	}
	return r
}

// HasError returns true if the response has an error.
func (r Response) HasError() bool {
	return r.Error != nil
}

// HasResource returns true if the response is a resource response.
func (r Response) HasResource() bool {
	return r.Error == nil && r.Resource != ""
}

// HasResult returns true if the response is a successful result response.
func (r Response) HasResult() bool {
	return r.Error == nil && r.Resource == ""
}

// ParseModel unmarshals the model from the response of a successful model
// get request.
//
// On success, the get response query value is returned, if one was set.
func (r Response) ParseModel(model interface{}) (string, error) {
	result, err := r.getResult()
	if err != nil {
		return "", err
	}

	if result.Model == nil || result.Collection != nil {
		return "", errInvalidModelResponse
	}

	if err := json.Unmarshal(result.Model, model); err != nil {
		return "", err
	}

	return result.Query, nil
}

// ParseCollection unmarshals the collection from the response of a
// successful collection get request.
//
// On success, the get response query value is returned, if one was set.
func (r Response) ParseCollection(collection interface{}) (string, error) {
	result, err := r.getResult()
	if err != nil {
		return "", err
	}

	if result.Collection == nil || result.Model != nil {
		return "", errInvalidCollectionResponse
	}

	if err := json.Unmarshal(result.Collection, collection); err != nil {
		return "", err
	}

	return result.Query, nil
}

func (r Response) getResult() (GetResult, error) {
	var result GetResult
	if r.Error != nil {
		return result, r.Error
	}
	if r.Resource != "" {
		return result, errResourceResponse
	}
	if len(r.Result) > 0 {
		if err := json.Unmarshal(r.Result, &result); err != nil {
			return result, err
		}
	}
	return result, nil
}

// AccessResult returns the get and call values from the response of a
// successful access request.
func (r Response) AccessResult() (bool, string, error) {
	if r.Error != nil {
		return false, "", r.Error
	}

	if r.Resource != "" {
		return false, "", errResourceResponse
	}

	var result AccessResult
	if len(r.Result) > 0 {
		if err := json.Unmarshal(r.Result, &result); err != nil {
			return false, "", err
		}
	}

	return result.Get, result.Call, nil
}

// ParseResult unmarshals the result from the response of a successful
// request.
func (r Response) ParseResult(v interface{}) error {
	if r.Error != nil {
		return r.Error
	}

	if r.Resource != "" {
		return errResourceResponse
	}

	if len(r.Result) > 0 {
		if err := json.Unmarshal(r.Result, v); err != nil {
			return err
		}
	}

	return nil
}

// AccessResult is the result of an access request.
//
// Reference:
// https://resgate.io/docs/specification/res-service-protocol/#access-request
type AccessResult struct {
	Get  bool   `json:"get,omitempty"`
	Call string `json:"call,omitempty"`
}

// GetResult is the result of a get request.
//
// Reference:
// https://resgate.io/docs/specification/res-service-protocol/#get-request
type GetResult struct {
	Model      json.RawMessage `json:"model,omitempty"`
	Collection json.RawMessage `json:"collection,omitempty"`
	Query      string          `json:"query,omitempty"`
}

// ResetEvent is the payload of a system reset event.
type ResetEvent struct {
	Resources []string `json:"resources,omitempty"`
	Access    []string `json:"access,omitempty"`
}

// TokenEvent is the payload of a connection token event.
type TokenEvent struct {
	Token interface{} `json:"token"`
}

// ChangeEvent is the payload of a model change event.
type ChangeEvent struct {
	Values map[string]interface{} `json:"values"`
}

// AddEvent is the payload of a collection add event.
type AddEvent struct {
	Value interface{} `json:"value"`
	Idx   int         `json:"idx"`
}

// RemoveEvent is the payload of a collection remove event.
type RemoveEvent struct {
	Idx int `json:"idx"`
}

// CreateEvent is the payload of a resource create event.
type CreateEvent struct {
	Data interface{} `json:"data"`
}

// QueryEvent is the payload of a query event.
type QueryEvent struct {
	Subject string `json:"subject"`
}

// EventEntry is a single event entry in a response to a query request.
type EventEntry struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// QueryResult is the result of a query request.
type QueryResult struct {
	Events []EventEntry `json:"events"`
}

// Get sends a get request for the given resource ID.
func Get(c res.Conn, rid string, timeout time.Duration) Response {
	rname, q := splitRID(rid)
	var req interface{}
	if q != "" {
		req = Request{Query: q}
	}
	return SendRequest(c, "get."+rname, req, timeout)
}

// Call sends a call request for a method on the given resource ID.
func Call(c res.Conn, rid string, method string, req Request, timeout time.Duration) Response {
	rname, q := splitRID(rid)
	if q != "" {
		req.Query = q
	}
	return SendRequest(c, "call."+rname+"."+method, req, timeout)
}

// Auth sends an auth request for a method on the given resource ID.
func Auth(c res.Conn, rid string, method string, req Request, timeout time.Duration) Response {
	rname, q := splitRID(rid)
	if q != "" {
		req.Query = q
	}
	return SendRequest(c, "auth."+rname+"."+method, req, timeout)
}

// Access sends an access request for the given resource ID.
func Access(c res.Conn, rid string, req Request, timeout time.Duration) Response {
	rname, q := splitRID(rid)
	if q != "" {
		req.Query = q
	}
	return SendRequest(c, "access."+rname, req, timeout)
}

// SendRequest sends a request over NATS and unmarshals the response before
// returning it.
//
// If any error is encountered, the Error field will be set.
//
// If req is nil, an empty json object, {}, will be sent as payload instead.
//
// SendRequest handles pre-responses that may extend the timeout. Reference:
// https://resgate.io/docs/specification/res-service-protocol/#pre-response
func SendRequest(c res.Conn, subject string, req interface{}, timeout time.Duration) Response {
	var r Response

	var data []byte
	if req != nil {
		dta, err := json.Marshal(req)
		if err != nil {
			r.Error = res.InternalError(err)
			return r
		}
		data = dta
	} else {
		data = emptyRequest
	}

	// Manually create a response inbox
	inbox := nats.NewInbox()

	ch := make(chan *nats.Msg, 1)
	sub, err := c.ChanSubscribe(inbox, ch)
	if err != nil {
		r.Error = res.InternalError(err)
		return r
	}
	defer func() { _ = sub.Unsubscribe() }()

	if err = c.PublishRequest(subject, inbox, data); err != nil {
		r.Error = res.InternalError(err)
		return r
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			r.Error = res.ErrTimeout
			return r
		case msg := <-ch:
			// A reply starting with a non-letter character is a
			// final response.
			if len(msg.Data) == 0 || (msg.Data[0]|32) < 'a' || (msg.Data[0]|32) > 'z' {
				return ParseResponse(msg.Data)
			}

			// Parse the pre-response using reflect.StructTag as it
			// uses the same format.
			tag := reflect.StructTag(msg.Data)

			if v, ok := tag.Lookup("timeout"); ok {
				if ms, err := strconv.Atoi(v); err == nil {
					timer.Stop()
					timer = time.NewTimer(time.Duration(ms) * time.Millisecond)
				}
			}
		}
	}
}

func splitRID(rid string) (string, string) {
	for i := 0; i < len(rid); i++ {
		if rid[i] == '?' {
			return rid[:i], rid[i+1:]
		}
	}
	return rid, ""
}
