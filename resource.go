package res

// Resource represents a resource held by the service.
type Resource interface {
	// Service returns the service instance.
	Service() *Service

	// ResourceName returns the resource name.
	ResourceName() string

	// ResourceType returns the resource type.
	ResourceType() ResourceType

	// PathParams returns parameters that are derived from the resource
	// name.
	PathParams() map[string]string

	// PathParam returns the parameter derived from the resource name for
	// the placeholder with the given tag name.
	PathParam(tag string) string

	// Query returns the query part of the resource ID without the question
	// mark separator.
	Query() string

	// Group returns the worker group on which the resource requests and
	// events are serialized.
	Group() string

	// Value gets the resource value as provided by its get handler.
	Value() (interface{}, error)

	// RequireValue gets the resource value as provided by its get handler,
	// and panics if the resource has no value.
	RequireValue() interface{}

	// Event sends a custom event on the resource. Will panic if the event
	// is one of the protocol reserved events: change, delete, add, remove,
	// patch, reaccess, unsubscribe, or query.
	Event(event string, payload interface{})

	// ChangeEvent sends a change event with the changed property values.
	// If ev is empty, no event is sent. Only valid for model resources.
	ChangeEvent(ev map[string]interface{})

	// AddEvent sends an add event, adding the value at the zero-based
	// index idx. Only valid for collection resources.
	AddEvent(value interface{}, idx int)

	// RemoveEvent sends a remove event, removing the value at the
	// zero-based index idx. Only valid for collection resources.
	RemoveEvent(idx int)

	// CreateEvent sends a create event, telling the resource has been
	// created with the given data.
	CreateEvent(data interface{})

	// DeleteEvent sends a delete event, telling the resource has been
	// deleted.
	DeleteEvent()

	// ReaccessEvent sends a reaccess event, telling the gateways to
	// revalidate client access to the resource.
	ReaccessEvent()

	// ResetEvent sends a system.reset event for the resource, telling the
	// gateways to update their cached version of it.
	ResetEvent()

	// QueryEvent sends a query event on the resource, signaling that its
	// underlying data has changed. The callback is called for each query
	// request sent in response, and finally with nil once the query event
	// duration expires.
	QueryEvent(cb func(QueryRequest))
}

// Reserved event names
var reservedEvents = map[string]struct{}{
	"change":      {},
	"delete":      {},
	"add":         {},
	"remove":      {},
	"patch":       {},
	"reaccess":    {},
	"unsubscribe": {},
	"query":       {},
	"create":      {},
}

// resource is the internal representation of a handled resource.
type resource struct {
	rname      string
	pathParams map[string]string
	query      string
	group      string
	h          Handler
	s          *Service
	inGet      bool // Flag telling the resource is handling a get request
}

var _ Resource = (*resource)(nil)

// Service returns the service instance.
func (r *resource) Service() *Service {
	return r.s
}

// ResourceName returns the resource name.
func (r *resource) ResourceName() string {
	return r.rname
}

// ResourceType returns the resource type.
func (r *resource) ResourceType() ResourceType {
	return r.h.Type
}

// PathParams returns parameters that are derived from the resource name.
func (r *resource) PathParams() map[string]string {
	return r.pathParams
}

// PathParam returns the parameter derived from the resource name for the
// placeholder with the given tag name.
func (r *resource) PathParam(tag string) string {
	return r.pathParams[tag]
}

// Query returns the query part of the resource ID without the question mark
// separator.
func (r *resource) Query() string {
	return r.query
}

// Group returns the worker group on which the resource requests and events
// are serialized.
func (r *resource) Group() string {
	return r.group
}

// Event sends a custom event on the resource.
//
// Panics on reserved or invalid event names.
func (r *resource) Event(event string, payload interface{}) {
	if _, ok := reservedEvents[event]; ok {
		panic(`res: use the dedicated event method to send a "` + event + `" event`)
	}
	if !isValidPart(event) {
		panic("res: invalid event name: " + event)
	}
	r.assertCanEmit()
	if r.h.ApplyCustom != nil {
		if err := r.h.ApplyCustom(r, event, payload); err != nil {
			panic(err)
		}
	}
	if payload == nil {
		r.s.rawEvent("event."+r.rname+"."+event, nil)
	} else {
		r.s.event("event."+r.rname+"."+event, payload)
	}
}

// ChangeEvent sends a change event on the resource.
//
// Panics on collection resources.
func (r *resource) ChangeEvent(ev map[string]interface{}) {
	if r.h.Type == TypeCollection {
		panic("res: change event not allowed on collections")
	}
	r.assertCanEmit()
	if len(ev) == 0 {
		return
	}
	if r.h.ApplyChange != nil {
		rev, err := r.h.ApplyChange(r, ev)
		if err != nil {
			panic(err)
		}
		if rev == nil {
			return
		}
	}
	r.s.event("event."+r.rname+".change", changeEvent{Values: ev})
}

// AddEvent sends an add event on the resource.
//
// Panics on model resources and on a negative index.
func (r *resource) AddEvent(value interface{}, idx int) {
	if r.h.Type == TypeModel {
		panic("res: add event not allowed on models")
	}
	if idx < 0 {
		panic("res: add event idx less than zero")
	}
	r.assertCanEmit()
	if r.h.ApplyAdd != nil {
		if err := r.h.ApplyAdd(r, value, idx); err != nil {
			panic(err)
		}
	}
	r.s.event("event."+r.rname+".add", addEvent{Value: value, Idx: idx})
}

// RemoveEvent sends a remove event on the resource.
//
// Panics on model resources and on a negative index.
func (r *resource) RemoveEvent(idx int) {
	if r.h.Type == TypeModel {
		panic("res: remove event not allowed on models")
	}
	if idx < 0 {
		panic("res: remove event idx less than zero")
	}
	r.assertCanEmit()
	if r.h.ApplyRemove != nil {
		if _, err := r.h.ApplyRemove(r, idx); err != nil {
			panic(err)
		}
	}
	r.s.event("event."+r.rname+".remove", removeEvent{Idx: idx})
}

// CreateEvent sends a create event on the resource.
func (r *resource) CreateEvent(data interface{}) {
	r.assertCanEmit()
	if r.h.ApplyCreate != nil {
		if err := r.h.ApplyCreate(r, data); err != nil {
			panic(err)
		}
	}
	r.s.event("event."+r.rname+".create", createEvent{Data: data})
}

// DeleteEvent sends a delete event on the resource.
func (r *resource) DeleteEvent() {
	r.assertCanEmit()
	if r.h.ApplyDelete != nil {
		if _, err := r.h.ApplyDelete(r); err != nil {
			panic(err)
		}
	}
	r.s.rawEvent("event."+r.rname+".delete", emptyObject)
}

// ReaccessEvent sends a reaccess event on the resource.
func (r *resource) ReaccessEvent() {
	r.assertCanEmit()
	r.s.rawEvent("event."+r.rname+".reaccess", nil)
}

// ResetEvent sends a system.reset event for the resource.
func (r *resource) ResetEvent() {
	r.assertCanEmit()
	r.s.Reset([]string{r.rname}, nil)
}

// assertCanEmit panics if the resource is handling a get request. Get
// request handlers describe state and may not mutate it.
func (r *resource) assertCanEmit() {
	if r.inGet {
		panic("res: events not allowed in get request handlers")
	}
}
