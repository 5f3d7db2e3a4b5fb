package res

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	nats "github.com/nats-io/nats.go"
	"github.com/rs/xid"
)

// queryEventChannelSize is the buffer size of the channel receiving query
// requests on a query event subject.
const queryEventChannelSize = 10

// queryEventSubjectPrefix is the subject prefix used for the transient query
// event subjects.
const queryEventSubjectPrefix = "_QUERY_."

// QueryRequest has methods for responding to query requests received after a
// query event. The ChangeEvent, AddEvent, and RemoveEvent methods do not
// send any event, but add the event to the query response.
type QueryRequest interface {
	Resource
	Model(model interface{})
	Collection(collection interface{})
	NotFound()
	InvalidQuery(message string)
	Error(err error)
	Timeout(d time.Duration)
}

// queryEvent is a resource's subscription to query requests following a
// query event. It lives until the service's query event duration passes.
type queryEvent struct {
	r   resource
	sub *nats.Subscription
	ch  chan *nats.Msg
	cb  func(QueryRequest)
}

// QueryEvent sends a query event on the resource, signaling that its
// underlying data has changed. The callback is called for each query request
// sent by the gateways in response. Once the query event duration passes,
// the callback is called with a nil QueryRequest to signal the end.
//
// Callback calls are scheduled on the resource's worker group. If the
// service stops before the final nil call can be scheduled, the callback is
// called with nil on the calling goroutine instead.
func (r *resource) QueryEvent(cb func(QueryRequest)) {
	r.assertCanEmit()
	s := r.s

	s.mu.Lock()
	nc := s.nc
	started := s.state == stateStarted
	s.mu.Unlock()
	if !started {
		s.errorf("Failed to send query event on %s: service not started", r.rname)
		cb(nil)
		return
	}

	subj := queryEventSubjectPrefix + xid.New().String()
	ch := make(chan *nats.Msg, queryEventChannelSize)
	sub, err := nc.ChanSubscribe(subj, ch)
	if err != nil {
		s.errorf("Failed to subscribe to query requests on %s: %s", subj, err)
		if !s.runWith(r.group, func() { cb(nil) }) {
			cb(nil)
		}
		return
	}

	qe := &queryEvent{r: *r, sub: sub, ch: ch, cb: cb}
	s.trackQueryEvent(qe)
	s.event("event."+r.rname+".query", queryEventPayload{Subject: subj})
	go qe.listen()
}

// listen schedules incoming query requests on the resource's worker group,
// and signals the end of the query event once the channel closes.
func (qe *queryEvent) listen() {
	for m := range qe.ch {
		m := m
		qe.r.s.runWith(qe.r.group, func() {
			qe.r.s.handleQueryRequest(m, qe)
		})
	}
	// The terminal nil call is serialized with the worker group. When the
	// service is stopping the workers are already drained, and the call
	// is made directly.
	if !qe.r.s.runWith(qe.r.group, func() { qe.cb(nil) }) {
		qe.cb(nil)
	}
}

// stop unsubscribes from the query subject and ends the listener.
func (qe *queryEvent) stop() {
	_ = qe.sub.Unsubscribe()
	close(qe.ch)
}

// trackQueryEvent registers a query event for expiration after the query
// event duration.
func (s *Service) trackQueryEvent(qe *queryEvent) {
	s.qmu.Lock()
	s.queryEvents[qe] = struct{}{}
	s.qmu.Unlock()
	s.queryTQ.Add(qe)
}

// queryEventExpire is the timerqueue callback expiring a query event.
func (s *Service) queryEventExpire(v interface{}) {
	qe := v.(*queryEvent)
	s.qmu.Lock()
	if _, ok := s.queryEvents[qe]; !ok {
		s.qmu.Unlock()
		return
	}
	delete(s.queryEvents, qe)
	s.qmu.Unlock()
	qe.stop()
}

// cancelQueryEvents stops all outstanding query events. Called on shutdown
// after the worker queues have drained.
func (s *Service) cancelQueryEvents() {
	s.qmu.Lock()
	qes := make([]*queryEvent, 0, len(s.queryEvents))
	for qe := range s.queryEvents {
		qes = append(qes, qe)
	}
	s.queryEvents = nil
	s.qmu.Unlock()
	for _, qe := range qes {
		s.queryTQ.Remove(qe)
		qe.stop()
	}
}

// queryRequest is a query request received on a query event subject.
type queryRequest struct {
	resource
	msg     *nats.Msg
	events  []resEvent
	replied bool
}

var _ QueryRequest = (*queryRequest)(nil)

// handleQueryRequest processes a query request for an active query event.
// Runs on the resource's worker group.
func (s *Service) handleQueryRequest(m *nats.Msg, qe *queryEvent) {
	s.tracef("=>> %s: %s", m.Subject, m.Data)

	qr := &queryRequest{resource: qe.r, msg: m}

	var q queryMsg
	err := json.Unmarshal(m.Data, &q)
	if err == nil && q.Query == "" {
		err = errors.New("missing query")
	}
	if err != nil {
		s.errorf("Error parsing query request %s: %s", m.Subject, err)
		qr.reply(responseMissingQuery)
		return
	}
	qr.query = q.Query

	qr.executeCallback(qe.cb)

	if qr.replied {
		return
	}
	if len(qr.events) == 0 {
		qr.reply(responseNoQueryEvents)
		return
	}
	qr.success(queryResponse{Events: qr.events})
}

func (qr *queryRequest) executeCallback(cb func(QueryRequest)) {
	// Same panic contract as for request handlers. A *Error panic is a
	// valid way of sending an error response.
	defer func() {
		v := recover()
		if v == nil {
			return
		}

		var str string

		switch e := v.(type) {
		case *Error:
			if !qr.replied {
				qr.error(e)
				return
			}
			str = e.Message
		case error:
			str = e.Error()
			if !qr.replied {
				qr.error(ToError(e))
			}
		case string:
			str = e
			if !qr.replied {
				qr.error(ToError(errors.New(e)))
			}
		default:
			str = fmt.Sprintf("%v", e)
			if !qr.replied {
				qr.error(ToError(errors.New(str)))
			}
		}

		qr.s.errorf("Error handling query request %s: %s", qr.msg.Subject, str)
	}()

	cb(qr)
}

// Model sends a model response for the query request.
//
// Only valid for a model query resource.
func (qr *queryRequest) Model(model interface{}) {
	if qr.h.Type == TypeCollection {
		panic("res: model response on collection handler")
	}
	qr.success(modelResponse{Model: model})
}

// Collection sends a collection response for the query request.
//
// Only valid for a collection query resource.
func (qr *queryRequest) Collection(collection interface{}) {
	if qr.h.Type == TypeModel {
		panic("res: collection response on model handler")
	}
	qr.success(collectionResponse{Collection: collection})
}

// ChangeEvent adds a change event to the query response. If ev is empty, no
// event is added.
//
// Only valid for a model query resource.
func (qr *queryRequest) ChangeEvent(ev map[string]interface{}) {
	if qr.h.Type == TypeCollection {
		panic("res: change event not allowed on collections")
	}
	if len(ev) == 0 {
		return
	}
	qr.events = append(qr.events, resEvent{Event: "change", Data: changeEvent{Values: ev}})
}

// AddEvent adds an add event to the query response, adding the value at the
// zero-based index idx.
//
// Only valid for a collection query resource.
func (qr *queryRequest) AddEvent(value interface{}, idx int) {
	if qr.h.Type == TypeModel {
		panic("res: add event not allowed on models")
	}
	if idx < 0 {
		panic("res: add event idx less than zero")
	}
	qr.events = append(qr.events, resEvent{Event: "add", Data: addEvent{Value: value, Idx: idx}})
}

// RemoveEvent adds a remove event to the query response, removing the value
// at the zero-based index idx.
//
// Only valid for a collection query resource.
func (qr *queryRequest) RemoveEvent(idx int) {
	if qr.h.Type == TypeModel {
		panic("res: remove event not allowed on models")
	}
	if idx < 0 {
		panic("res: remove event idx less than zero")
	}
	qr.events = append(qr.events, resEvent{Event: "remove", Data: removeEvent{Idx: idx}})
}

// Event panics. Only change, add, and remove events are allowed in a query
// response.
func (qr *queryRequest) Event(event string, payload interface{}) {
	panic(`res: only change, add, and remove events are allowed on a query request`)
}

// CreateEvent panics. Only change, add, and remove events are allowed in a
// query response.
func (qr *queryRequest) CreateEvent(data interface{}) {
	panic(`res: only change, add, and remove events are allowed on a query request`)
}

// DeleteEvent panics. Only change, add, and remove events are allowed in a
// query response.
func (qr *queryRequest) DeleteEvent() {
	panic(`res: only change, add, and remove events are allowed on a query request`)
}

// ReaccessEvent panics. Only change, add, and remove events are allowed in a
// query response.
func (qr *queryRequest) ReaccessEvent() {
	panic(`res: only change, add, and remove events are allowed on a query request`)
}

// QueryEvent panics. A new query event may not be sent from a query request.
func (qr *queryRequest) QueryEvent(cb func(QueryRequest)) {
	panic("res: query event not allowed on a query request")
}

// NotFound sends a system.notFound response for the query request.
func (qr *queryRequest) NotFound() {
	qr.reply(responseNotFound)
}

// InvalidQuery sends a system.invalidQuery response for the query request.
// An empty message defaults to "Invalid query".
func (qr *queryRequest) InvalidQuery(message string) {
	if message == "" {
		qr.reply(responseInvalidQuery)
	} else {
		qr.error(&Error{Code: CodeInvalidQuery, Message: message})
	}
}

// Error sends a custom error response for the query request.
func (qr *queryRequest) Error(err error) {
	qr.error(ToError(err))
}

// Timeout lets the requester know that the response may be delayed for the
// given duration.
func (qr *queryRequest) Timeout(d time.Duration) {
	if d < 0 {
		panic("res: negative timeout duration")
	}
	out := []byte(`timeout:"` + timeoutDurationTag(d) + `"`)
	qr.s.rawEvent(qr.msg.Reply, out)
}

func (qr *queryRequest) success(result interface{}) {
	data, err := json.Marshal(successResponse{Result: result})
	if err != nil {
		qr.error(ToError(err))
		return
	}
	qr.reply(data)
}

func (qr *queryRequest) error(e *Error) {
	data, err := json.Marshal(errorResponse{Error: e})
	if err != nil {
		data = responseInternalError
	}
	qr.reply(data)
}

func (qr *queryRequest) reply(payload []byte) {
	if qr.replied {
		panic("res: response already sent on request")
	}
	qr.replied = true
	qr.s.tracef("<== %s: %s", qr.msg.Subject, payload)
	qr.s.publish(qr.msg.Reply, payload)
}
