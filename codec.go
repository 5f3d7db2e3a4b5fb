package res

import "encoding/json"

// requestMsg is the decoded payload of an incoming request message.
//
// Reference:
// https://resgate.io/docs/specification/res-service-protocol/#requests
type requestMsg struct {
	CID        string              `json:"cid"`
	Params     json.RawMessage     `json:"params"`
	Token      json.RawMessage     `json:"token"`
	Header     map[string][]string `json:"header"`
	Host       string              `json:"host"`
	RemoteAddr string              `json:"remoteAddr"`
	URI        string              `json:"uri"`
	Query      string              `json:"query"`
}

// queryMsg is the decoded payload of an incoming query request message,
// received on a transient query event subject.
type queryMsg struct {
	Query string `json:"query"`
}

// successResponse is a reply envelope with a successful result.
type successResponse struct {
	Result interface{} `json:"result"`
}

// resourceResponse is a reply envelope with a resource reference.
type resourceResponse struct {
	Resource Ref `json:"resource"`
}

// errorResponse is a reply envelope with an error.
type errorResponse struct {
	Error *Error `json:"error"`
}

// accessResponse is the result of a successful access request.
type accessResponse struct {
	Get  bool   `json:"get,omitempty"`
	Call string `json:"call,omitempty"`
}

// modelResponse is the result of a successful model get request.
type modelResponse struct {
	Model interface{} `json:"model"`
	Query string      `json:"query,omitempty"`
}

// collectionResponse is the result of a successful collection get request.
type collectionResponse struct {
	Collection interface{} `json:"collection"`
	Query      string      `json:"query,omitempty"`
}

// resetEvent is the payload of a system.reset event. The lists are always
// included, also when empty.
type resetEvent struct {
	Resources []string `json:"resources"`
	Access    []string `json:"access"`
}

// tokenEvent is the payload of a connection token event.
type tokenEvent struct {
	Token interface{} `json:"token"`
}

// changeEvent is the payload of a model change event.
type changeEvent struct {
	Values map[string]interface{} `json:"values"`
}

// addEvent is the payload of a collection add event.
type addEvent struct {
	Value interface{} `json:"value"`
	Idx   int         `json:"idx"`
}

// removeEvent is the payload of a collection remove event.
type removeEvent struct {
	Idx int `json:"idx"`
}

// createEvent is the payload of a resource create event.
type createEvent struct {
	Data interface{} `json:"data"`
}

// queryEventPayload is the payload of a query event, referencing the
// transient subject on which query requests are accepted.
type queryEventPayload struct {
	Subject string `json:"subject"`
}

// resEvent is a single event in the result of a query request.
type resEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// queryResponse is the result of a successful query request.
type queryResponse struct {
	Events []resEvent `json:"events"`
}

// Static response payloads
var (
	responseAccessDenied    = []byte(`{"error":{"code":"system.accessDenied","message":"Access denied"}}`)
	responseAccessGranted   = []byte(`{"result":{"get":true,"call":"*"}}`)
	responseInternalError   = []byte(`{"error":{"code":"system.internalError","message":"Internal error"}}`)
	responseInvalidParams   = []byte(`{"error":{"code":"system.invalidParams","message":"Invalid parameters"}}`)
	responseInvalidQuery    = []byte(`{"error":{"code":"system.invalidQuery","message":"Invalid query"}}`)
	responseMethodNotFound  = []byte(`{"error":{"code":"system.methodNotFound","message":"Method not found"}}`)
	responseMissingQuery    = []byte(`{"error":{"code":"system.internalError","message":"Internal error: missing query"}}`)
	responseMissingResponse = []byte(`{"error":{"code":"system.internalError","message":"Internal error: missing response"}}`)
	responseNoQueryEvents   = []byte(`{"result":{"events":[]}}`)
	responseNotFound        = []byte(`{"error":{"code":"system.notFound","message":"Not found"}}`)
	responseSuccess         = []byte(`{"result":null}`)
)

var emptyObject = []byte(`{}`)
