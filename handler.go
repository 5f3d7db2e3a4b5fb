package res

import "strings"

// AccessHandler is a function called on resource access requests.
type AccessHandler func(AccessRequest)

// GetHandler is a function called on untyped resource get requests.
type GetHandler func(GetRequest)

// CallHandler is a function called on resource call requests.
type CallHandler func(CallRequest)

// NewHandler is a function called on new call requests.
type NewHandler func(NewRequest)

// AuthHandler is a function called on resource auth requests.
type AuthHandler func(AuthRequest)

// ApplyChangeHandler is a function called to apply a model change event.
// Must return a map of the values prior to the change, or nil if the event
// should be discarded. The returned map only needs to contain the changed
// properties, where a non-existing property is represented by DeleteAction.
type ApplyChangeHandler func(r Resource, changes map[string]interface{}) (map[string]interface{}, error)

// ApplyAddHandler is a function called to apply a collection add event.
type ApplyAddHandler func(r Resource, value interface{}, idx int) error

// ApplyRemoveHandler is a function called to apply a collection remove
// event. Must return the removed value.
type ApplyRemoveHandler func(r Resource, idx int) (interface{}, error)

// ApplyCreateHandler is a function called to apply a resource create event.
type ApplyCreateHandler func(r Resource, data interface{}) error

// ApplyDeleteHandler is a function called to apply a resource delete event.
// Must return the resource data prior to deletion.
type ApplyDeleteHandler func(r Resource) (interface{}, error)

// ApplyCustomHandler is a function called to apply a custom event.
type ApplyCustomHandler func(r Resource, name string, payload interface{}) error

// Capability is a bit field of the request kinds a handler supports.
type Capability int

// Handler capabilities
const (
	CapAccess Capability = 1 << iota
	CapGet
	CapCall
	CapNew
	CapAuth
	CapApplyChange
	CapApplyAdd
	CapApplyRemove
	CapApplyCreate
	CapApplyDelete
	CapApplyCustom
)

// Handler is an explicit record of the capabilities registered for a
// resource pattern. Any callback left as nil (or any empty method map) means
// the matching request kind is unsupported.
type Handler struct {
	// Type of resource. Adds behavioral constraints on events.
	Type ResourceType

	// Access is called on access requests.
	Access AccessHandler

	// Get is called on get requests.
	Get GetHandler

	// Call maps lower-case method names to call request callbacks. The
	// method "*" handles any method without its own entry.
	Call map[string]CallHandler

	// New is called on call requests with the method "new", taking
	// precedence over any Call entry for that method.
	New NewHandler

	// Auth maps lower-case method names to auth request callbacks. The
	// method "*" handles any method without its own entry.
	Auth map[string]AuthHandler

	// ApplyChange is called to apply model change events.
	ApplyChange ApplyChangeHandler

	// ApplyAdd is called to apply collection add events.
	ApplyAdd ApplyAddHandler

	// ApplyRemove is called to apply collection remove events.
	ApplyRemove ApplyRemoveHandler

	// ApplyCreate is called to apply resource create events.
	ApplyCreate ApplyCreateHandler

	// ApplyDelete is called to apply resource delete events.
	ApplyDelete ApplyDeleteHandler

	// ApplyCustom is called to apply custom events.
	ApplyCustom ApplyCustomHandler

	// Group is the worker group name, with any ${tag} resolved against
	// the pattern's placeholder values. Defaults to the resource name.
	Group string
}

// Capabilities returns the bit field of request kinds the handler supports.
func (h Handler) Capabilities() Capability {
	var c Capability
	if h.Access != nil {
		c |= CapAccess
	}
	if h.Get != nil {
		c |= CapGet
	}
	if len(h.Call) > 0 {
		c |= CapCall
	}
	if h.New != nil {
		c |= CapNew
	}
	if len(h.Auth) > 0 {
		c |= CapAuth
	}
	if h.ApplyChange != nil {
		c |= CapApplyChange
	}
	if h.ApplyAdd != nil {
		c |= CapApplyAdd
	}
	if h.ApplyRemove != nil {
		c |= CapApplyRemove
	}
	if h.ApplyCreate != nil {
		c |= CapApplyCreate
	}
	if h.ApplyDelete != nil {
		c |= CapApplyDelete
	}
	if h.ApplyCustom != nil {
		c |= CapApplyCustom
	}
	return c
}

// callMethod returns the call callback for a method, matched
// case-insensitively, falling back to any "*" entry.
func (h Handler) callMethod(method string) CallHandler {
	if h.Call == nil {
		return nil
	}
	cb := h.Call[strings.ToLower(method)]
	if cb == nil {
		cb = h.Call["*"]
	}
	return cb
}

// authMethod returns the auth callback for a method, matched
// case-insensitively, falling back to any "*" entry.
func (h Handler) authMethod(method string) AuthHandler {
	if h.Auth == nil {
		return nil
	}
	cb := h.Auth[strings.ToLower(method)]
	if cb == nil {
		cb = h.Auth["*"]
	}
	return cb
}

// Option is an option that sets a callback or a setting on a Handler.
type Option interface {
	SetOption(*Handler)
}

// OptionFunc is a function that sets an option on a Handler.
type OptionFunc func(*Handler)

// SetOption makes OptionFunc implement the Option interface.
func (f OptionFunc) SetOption(h *Handler) {
	f(h)
}

// Model sets the resource type to model.
func Model() Option {
	return OptionFunc(func(h *Handler) {
		if h.Type != TypeUnset {
			panic("res: resource type set multiple times")
		}
		h.Type = TypeModel
	})
}

// Collection sets the resource type to collection.
func Collection() Option {
	return OptionFunc(func(h *Handler) {
		if h.Type != TypeUnset {
			panic("res: resource type set multiple times")
		}
		h.Type = TypeCollection
	})
}

// Access sets the access callback.
func Access(cb AccessHandler) Option {
	return OptionFunc(func(h *Handler) {
		if h.Access != nil {
			panic("res: multiple access handlers")
		}
		h.Access = cb
	})
}

// Get sets an untyped get callback.
func Get(cb GetHandler) Option {
	return OptionFunc(func(h *Handler) {
		if h.Get != nil {
			panic("res: multiple get handlers")
		}
		h.Get = cb
	})
}

// GetModel sets a get callback for a model resource, and sets the resource
// type to model.
func GetModel(cb func(ModelRequest)) Option {
	return OptionFunc(func(h *Handler) {
		Get(func(r GetRequest) {
			cb(r)
		}).SetOption(h)
		if h.Type == TypeCollection {
			panic("res: resource type set multiple times")
		}
		h.Type = TypeModel
	})
}

// GetCollection sets a get callback for a collection resource, and sets the
// resource type to collection.
func GetCollection(cb func(CollectionRequest)) Option {
	return OptionFunc(func(h *Handler) {
		Get(func(r GetRequest) {
			cb(r)
		}).SetOption(h)
		if h.Type == TypeModel {
			panic("res: resource type set multiple times")
		}
		h.Type = TypeCollection
	})
}

// Call sets a callback for call requests with the given method. The method
// is matched case-insensitively. The method "*" handles any method without
// its own callback.
func Call(method string, cb CallHandler) Option {
	assertValidMethod(method)
	key := strings.ToLower(method)
	return OptionFunc(func(h *Handler) {
		if h.Call == nil {
			h.Call = make(map[string]CallHandler)
		}
		if _, ok := h.Call[key]; ok {
			panic("res: multiple call handlers for method " + method)
		}
		h.Call[key] = cb
	})
}

// New sets the callback for new call requests.
func New(cb NewHandler) Option {
	return OptionFunc(func(h *Handler) {
		if h.New != nil {
			panic("res: multiple new handlers")
		}
		h.New = cb
	})
}

// Auth sets a callback for auth requests with the given method. The method
// is matched case-insensitively. The method "*" handles any method without
// its own callback.
func Auth(method string, cb AuthHandler) Option {
	assertValidMethod(method)
	key := strings.ToLower(method)
	return OptionFunc(func(h *Handler) {
		if h.Auth == nil {
			h.Auth = make(map[string]AuthHandler)
		}
		if _, ok := h.Auth[key]; ok {
			panic("res: multiple auth handlers for method " + method)
		}
		h.Auth[key] = cb
	})
}

// ApplyChange sets the apply callback for change events.
func ApplyChange(cb ApplyChangeHandler) Option {
	return OptionFunc(func(h *Handler) {
		if h.ApplyChange != nil {
			panic("res: multiple apply change handlers")
		}
		h.ApplyChange = cb
	})
}

// ApplyAdd sets the apply callback for add events.
func ApplyAdd(cb ApplyAddHandler) Option {
	return OptionFunc(func(h *Handler) {
		if h.ApplyAdd != nil {
			panic("res: multiple apply add handlers")
		}
		h.ApplyAdd = cb
	})
}

// ApplyRemove sets the apply callback for remove events.
func ApplyRemove(cb ApplyRemoveHandler) Option {
	return OptionFunc(func(h *Handler) {
		if h.ApplyRemove != nil {
			panic("res: multiple apply remove handlers")
		}
		h.ApplyRemove = cb
	})
}

// ApplyCreate sets the apply callback for create events.
func ApplyCreate(cb ApplyCreateHandler) Option {
	return OptionFunc(func(h *Handler) {
		if h.ApplyCreate != nil {
			panic("res: multiple apply create handlers")
		}
		h.ApplyCreate = cb
	})
}

// ApplyDelete sets the apply callback for delete events.
func ApplyDelete(cb ApplyDeleteHandler) Option {
	return OptionFunc(func(h *Handler) {
		if h.ApplyDelete != nil {
			panic("res: multiple apply delete handlers")
		}
		h.ApplyDelete = cb
	})
}

// ApplyCustom sets the apply callback for custom events.
func ApplyCustom(cb ApplyCustomHandler) Option {
	return OptionFunc(func(h *Handler) {
		if h.ApplyCustom != nil {
			panic("res: multiple apply custom handlers")
		}
		h.ApplyCustom = cb
	})
}

// Group sets the worker group name for the handler. Requests and scheduled
// callbacks for resources in the same group are serialized on the same
// worker. Any ${tag} in the name is replaced with the matching placeholder
// value from the resource name.
func Group(name string) Option {
	return OptionFunc(func(h *Handler) {
		h.Group = name
	})
}

func assertValidMethod(method string) {
	if method != "*" && !isValidPart(method) {
		panic("res: invalid method name: " + method)
	}
}

// Predefined access handlers
var (
	// AccessGranted is an access handler that grants full get and call
	// access.
	AccessGranted AccessHandler = func(r AccessRequest) {
		r.AccessGranted()
	}

	// AccessDenied is an access handler that denies all access.
	AccessDenied AccessHandler = func(r AccessRequest) {
		r.AccessDenied()
	}
)
