package res

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jirenius/timerqueue"
	nats "github.com/nats-io/nats.go"

	"github.com/boekfors/csharp-res/logger"
)

// Service states
const (
	stateStopped int32 = iota
	stateStarting
	stateStarted
	stateStopping
)

// Default settings
const (
	defaultQueryEventDuration = 3 * time.Second
	defaultWorkerCount        = 32
	defaultInChannelSize      = 1024
)

// A Service handles incoming requests from the NATS server, routes them to
// the registered resource handlers, and sends the events and replies they
// produce.
type Service struct {
	router *Router

	mu    sync.Mutex // Protects state and rwork
	state int32

	nc           Conn              // NATS connection
	ncOwned      bool              // Flag telling if the service opened the connection itself
	subs         []*nats.Subscription // Request type subscriptions
	inCh         chan *nats.Msg    // Channel for incoming requests
	rwork        map[string]*work  // Work queues by worker group key
	workCh       chan *work        // Work channel listened to by the workers
	wg           sync.WaitGroup    // Wait group for the workers
	sendWG       sync.WaitGroup    // Counts pending work record handoffs on workCh
	listenerDone chan struct{}     // Closed when the listener has drained inCh
	stopped      chan struct{}     // Closed when a serving cycle has fully stopped

	logger         logger.Logger
	workerCount    int
	inChannelSize  int
	resetResources []string // Patterns used on system.reset for resources. Nil means derive from handlers.
	resetAccess    []string // Patterns used on system.reset for access. Nil means derive from handlers.

	queryDuration time.Duration
	queryTQ       *timerqueue.Queue
	qmu           sync.Mutex // Protects queryEvents
	queryEvents   map[*queryEvent]struct{}
}

// NewService creates a new Service, where name is the resource name prefix
// for all handled resources.
//
// Panics if name is not an empty string or a dot-separated list of
// non-wildcard parts.
func NewService(name string) *Service {
	return &Service{
		router:        NewRouter(name),
		logger:        logger.NewStdLogger(),
		workerCount:   defaultWorkerCount,
		inChannelSize: defaultInChannelSize,
		queryDuration: defaultQueryEventDuration,
	}
}

// Prefix returns the resource name prefix provided to NewService.
func (s *Service) Prefix() string {
	return s.router.Prefix()
}

// Logger returns the service logger.
func (s *Service) Logger() logger.Logger {
	return s.logger
}

// SetLogger sets the logger. A nil logger disables logging.
//
// Panics if the service is not stopped.
func (s *Service) SetLogger(l logger.Logger) *Service {
	s.assertStopped()
	s.logger = l
	return s
}

// SetQueryEventDuration sets the duration for which the service listens for
// query requests sent on a query event. Default is 3 seconds.
//
// Panics if the service is not stopped.
func (s *Service) SetQueryEventDuration(d time.Duration) *Service {
	if d <= 0 {
		panic("res: query event duration must be positive")
	}
	s.assertStopped()
	s.queryDuration = d
	return s
}

// SetOwnedResources sets the patterns which the service will handle requests
// for, and which are sent in the system.reset event. The resources patterns
// are subscribed to for get, call, and auth requests, and the access
// patterns for access requests.
//
// If set to nil (default), the patterns are derived from the registered
// handlers' capabilities, using the service prefix followed by a full
// wildcard (eg. "serviceName.>").
//
// Panics if the service is not stopped.
func (s *Service) SetOwnedResources(resources, access []string) *Service {
	s.assertStopped()
	s.resetResources = resources
	s.resetAccess = access
	return s
}

// SetWorkerCount sets the number of workers handling resource requests.
// Default is 32.
//
// Panics if the service is not stopped.
func (s *Service) SetWorkerCount(n int) *Service {
	if n <= 0 {
		n = defaultWorkerCount
	}
	s.assertStopped()
	s.workerCount = n
	return s
}

// SetInChannelSize sets the size of the channel receiving incoming requests.
// Default is 1024.
//
// Panics if the service is not stopped.
func (s *Service) SetInChannelSize(n int) *Service {
	if n <= 0 {
		n = defaultInChannelSize
	}
	s.assertStopped()
	s.inChannelSize = n
	return s
}

// Handle registers a handler for the given resource pattern, constructed
// from the options.
//
// A pattern may contain placeholders that acts as wildcards, and will be
// parsed and stored in the request.PathParams map. A placeholder is a
// resource name part starting with a dollar ($) character:
//
//	s.Handle("user.$id", handlers) // Will match "user.10", "user.foo", etc.
//
// An anonymous placeholder is a resource name part using an asterisk (*)
// character:
//
//	s.Handle("user.*", handlers) // Will match "user.10", "user.foo", etc.
//
// A full wildcard can be used as last part using a greater than (>)
// character:
//
//	s.Handle("data.>", handlers) // Will match "data.foo", "data.foo.bar", etc.
//
// Panics on an invalid pattern, a pattern conflicting with a previous
// registration, or conflicting options.
func (s *Service) Handle(pattern string, options ...Option) {
	var h Handler
	for _, o := range options {
		o.SetOption(&h)
	}
	s.AddHandler(pattern, h)
}

// AddHandler registers a handler for the given resource pattern. The pattern
// used is the same as described for Handle.
//
// Panics if the service is not stopped.
func (s *Service) AddHandler(pattern string, h Handler) {
	s.assertStopped()
	s.router.Add(pattern, h)
}

// ListenAndServe connects to the NATS server at the url, subscribes to all
// registered patterns, and serves incoming requests until Shutdown is
// called. In case of disconnect, it will try to reconnect until Close is
// called, or until successfully reconnecting, upon which Reset will be
// called.
//
// Blocks until the service is shut down, and returns any error encountered
// while starting.
func (s *Service) ListenAndServe(url string, options ...nats.Option) error {
	if err := s.transition(stateStopped, stateStarting); err != nil {
		return err
	}
	opts := append([]nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectHandler(s.handleReconnect),
	}, options...)
	s.infof("Connecting to NATS at %s", url)
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		s.errorf("Failed to connect to NATS: %s", err)
		s.forceState(stateStopped)
		return err
	}
	return s.serve(nc, true)
}

// Serve subscribes to all registered patterns on the provided connection and
// serves incoming requests until Shutdown is called.
//
// Blocks until the service is shut down, and returns any error encountered
// while starting.
func (s *Service) Serve(c Conn) error {
	if err := s.transition(stateStopped, stateStarting); err != nil {
		return err
	}
	if rc, ok := c.(interface{ SetReconnectHandler(nats.ConnHandler) }); ok {
		rc.SetReconnectHandler(s.handleReconnect)
	}
	return s.serve(c, false)
}

func (s *Service) serve(c Conn, owned bool) error {
	s.infof("Starting service")

	s.mu.Lock()
	s.nc = c
	s.ncOwned = owned
	s.inCh = make(chan *nats.Msg, s.inChannelSize)
	s.workCh = make(chan *work)
	s.rwork = make(map[string]*work)
	s.listenerDone = make(chan struct{})
	s.stopped = make(chan struct{})
	s.queryTQ = timerqueue.New(s.queryEventExpire, s.queryDuration)
	s.queryEvents = make(map[*queryEvent]struct{})
	s.mu.Unlock()

	s.wg.Add(s.workerCount)
	for i := 0; i < s.workerCount; i++ {
		go s.startWorker(s.workCh)
	}
	go s.startListener(s.inCh, s.listenerDone)

	resources, access := s.resetPatterns()
	if err := s.subscribe(resources, access); err != nil {
		s.errorf("Failed to subscribe: %s", err)
		s.close()
		return err
	}

	s.forceState(stateStarted)
	s.infof("Listening for requests")
	s.sendReset(resources, access)

	<-s.stopped
	return nil
}

// Shutdown closes any existing connection to NATS server, stops accepting
// new requests, and waits for all pending work to complete.
//
// Returns an error if the service is not started.
func (s *Service) Shutdown() error {
	if err := s.transition(stateStarted, stateStopping); err != nil {
		return err
	}
	s.infof("Stopping service...")
	s.close()
	s.infof("Stopped")
	return nil
}

// close tears a serving cycle down. The service state must be starting or
// stopping when called.
func (s *Service) close() {
	// Stop accepting requests.
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = nil
	close(s.inCh)
	<-s.listenerDone

	// Drain the worker queues. Pending work record handoffs must be
	// received before the work channel may close.
	s.sendWG.Wait()
	close(s.workCh)
	s.wg.Wait()

	// Tear down any outstanding query event subscriptions.
	s.cancelQueryEvents()

	if s.ncOwned {
		s.nc.Close()
	}

	s.mu.Lock()
	s.state = stateStopped
	s.inCh = nil
	s.workCh = nil
	s.rwork = nil
	s.nc = nil
	s.queryTQ = nil
	stopped := s.stopped
	s.stopped = nil
	s.mu.Unlock()

	close(stopped)
}

// Reset sends a system.reset event with the given resource and access
// patterns, telling the gateways to invalidate their cache for anything
// matching them. Does nothing if both lists are empty.
func (s *Service) Reset(resources []string, access []string) {
	if len(resources) == 0 && len(access) == 0 {
		return
	}
	s.sendReset(resources, access)
}

// TokenEvent sends a connection token event that sets the connection's
// access token, discarding any previously set token. A change of token will
// invalidate any previous access response received using the old token. A
// nil token clears any previously set token.
//
// Panics if cid is not a valid connection ID. A connection ID may not
// contain dots (.) or wildcard characters (*, >).
func (s *Service) TokenEvent(cid string, token interface{}) {
	if !isValidPart(cid) {
		panic("res: invalid connection ID: " + cid)
	}
	s.event("conn."+cid+".token", tokenEvent{Token: token})
}

// Resource returns the resource with the given resource ID. The ID may
// contain a query part:
//
//	s.Resource("library.books?sort=title")
//
// Returns an error if no registered pattern matches the resource name.
func (s *Service) Resource(rid string) (Resource, error) {
	rname, q := parseRID(rid)
	match := s.router.Lookup(rname)
	if match == nil {
		return nil, errors.New("res: no matching pattern found for " + rname)
	}
	return &resource{
		rname:      rname,
		pathParams: match.Params,
		query:      q,
		group:      match.workerKey(rname),
		h:          match.Handler,
		s:          s,
	}, nil
}

// With schedules a callback to be called on the resource's worker group,
// passing the resource matching the resource ID. The callback may emit
// events on the resource without an inbound request context.
//
// Returns an error if no registered pattern matches the resource name.
func (s *Service) With(rid string, cb func(r Resource)) error {
	r, err := s.Resource(rid)
	if err != nil {
		return err
	}
	s.runWith(r.Group(), func() {
		cb(r)
	})
	return nil
}

// WithResource schedules a callback to be called on the resource's worker
// group.
func (s *Service) WithResource(r Resource, cb func()) error {
	if r.Service() != s {
		return errors.New("res: resource belongs to another service")
	}
	s.runWith(r.Group(), cb)
	return nil
}

// WithGroup schedules a callback to be called on the given worker group.
func (s *Service) WithGroup(group string, cb func(s *Service)) error {
	s.runWith(group, func() {
		cb(s)
	})
	return nil
}

// transition moves the service from one state to another, or returns an
// error if the service is not in the from state.
func (s *Service) transition(from, to int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		switch s.state {
		case stateStopped:
			return errors.New("res: service not started")
		default:
			return errors.New("res: service already started")
		}
	}
	s.state = to
	return nil
}

func (s *Service) forceState(to int32) {
	s.mu.Lock()
	s.state = to
	s.mu.Unlock()
}

// assertStopped panics unless the service is stopped. Configuration may only
// be changed while stopped.
func (s *Service) assertStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateStopped {
		panic("res: service is not stopped")
	}
}

// startListener takes incoming messages off the channel and dispatches them
// onto the worker groups.
func (s *Service) startListener(ch chan *nats.Msg, done chan struct{}) {
	for m := range ch {
		s.handleRequest(m)
	}
	close(done)
}

// handleRequest parses the subject of an incoming request and schedules its
// processing on the matching resource's worker group.
func (s *Service) handleRequest(m *nats.Msg) {
	s.tracef("==> %s: %s", m.Subject, m.Data)

	if m.Reply == "" {
		s.errorf("Missing reply subject on request: %s", m.Subject)
		return
	}

	idx := strings.IndexByte(m.Subject, '.')
	if idx < 0 {
		s.errorf("Invalid request subject: %s", m.Subject)
		return
	}
	rtype := m.Subject[:idx]
	rname := m.Subject[idx+1:]

	var method string
	if rtype == RequestTypeCall || rtype == RequestTypeAuth {
		idx = strings.LastIndexByte(rname, '.')
		if idx < 0 {
			s.errorf("Invalid request subject: %s", m.Subject)
			return
		}
		method = rname[idx+1:]
		rname = rname[:idx]
	}

	match := s.router.Lookup(rname)

	key := rname
	if match != nil {
		key = match.workerKey(rname)
	}
	s.runWith(key, func() {
		s.processRequest(m, rtype, rname, method, match)
	})
}

// subscribe makes the NATS subscriptions for the given resource and access
// patterns.
func (s *Service) subscribe(resources, access []string) error {
	for _, t := range []string{RequestTypeGet, RequestTypeCall, RequestTypeAuth} {
		for _, p := range resources {
			sub, err := s.nc.ChanSubscribe(t+"."+p, s.inCh)
			if err != nil {
				return err
			}
			s.subs = append(s.subs, sub)
		}
	}
	for _, p := range access {
		sub, err := s.nc.ChanSubscribe(RequestTypeAccess+"."+p, s.inCh)
		if err != nil {
			return err
		}
		s.subs = append(s.subs, sub)
	}
	return nil
}

// resetPatterns returns the resource and access pattern lists to subscribe
// to and to send in system.reset events. Unless explicitly set with
// SetOwnedResources, the lists are derived from the registered handlers'
// capabilities.
func (s *Service) resetPatterns() ([]string, []string) {
	resources := s.resetResources
	access := s.resetAccess
	if resources == nil {
		resources = []string{}
		if s.router.Contains(func(h Handler) bool {
			return h.Capabilities()&(CapGet|CapCall|CapNew|CapAuth) != 0
		}) {
			resources = []string{mergePattern(s.router.Prefix(), ">")}
		}
	}
	if access == nil {
		access = []string{}
		if s.router.Contains(func(h Handler) bool {
			return h.Capabilities()&CapAccess != 0
		}) {
			access = []string{mergePattern(s.router.Prefix(), ">")}
		}
	}
	return resources, access
}

// sendReset publishes a system.reset event, unless both pattern lists are
// empty.
func (s *Service) sendReset(resources, access []string) {
	if len(resources) == 0 && len(access) == 0 {
		return
	}
	if resources == nil {
		resources = []string{}
	}
	if access == nil {
		access = []string{}
	}
	s.event("system.reset", resetEvent{Resources: resources, Access: access})
}

// handleReconnect is called when NATS has reconnected. It sends a
// system.reset to have the gateways update their caches.
func (s *Service) handleReconnect(_ *nats.Conn) {
	s.infof("Reconnected to NATS. Sending system reset.")
	s.sendReset(s.resetPatterns())
}

// event marshals the payload and publishes it on the subject.
func (s *Service) event(subject string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.errorf("Error marshaling event %s: %s", subject, err)
		return
	}
	s.rawEvent(subject, data)
}

// rawEvent publishes a raw payload on the subject. Publish failures are
// logged but not surfaced; gateways recover through system.reset.
func (s *Service) rawEvent(subject string, data []byte) {
	s.tracef("<-- %s: %s", subject, data)
	s.publish(subject, data)
}

// publish sends a message on the service connection, if there is one.
func (s *Service) publish(subject string, data []byte) {
	s.mu.Lock()
	nc := s.nc
	s.mu.Unlock()
	if nc == nil {
		s.errorf("Failed to send %s: service not started", subject)
		return
	}
	if err := nc.Publish(subject, data); err != nil {
		s.errorf("Error sending %s: %s", subject, err)
	}
}

func (s *Service) infof(format string, v ...interface{}) {
	if s.logger != nil {
		s.logger.Infof(format, v...)
	}
}

func (s *Service) errorf(format string, v ...interface{}) {
	if s.logger != nil {
		s.logger.Errorf(format, v...)
	}
}

func (s *Service) tracef(format string, v ...interface{}) {
	if s.logger != nil {
		s.logger.Tracef(format, v...)
	}
}

// workerKey returns the worker group key for a matched resource name.
func (m *Match) workerKey(rname string) string {
	if m.Group != "" {
		return m.Group
	}
	return rname
}

// parseRID splits a resource ID into its resource name and query parts.
func parseRID(rid string) (string, string) {
	i := strings.IndexByte(rid, '?')
	if i < 0 {
		return rid, ""
	}
	return rid[:i], rid[i+1:]
}
