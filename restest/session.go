package restest

import (
	"log"
	"testing"
	"time"

	res "github.com/boekfors/csharp-res"
	"github.com/boekfors/csharp-res/logger"
)

// DefaultTimeoutDuration is the duration the session awaits any message
// before timing out.
const DefaultTimeoutDuration = 1 * time.Second

// Session represents a test session with a res service.
type Session struct {
	*MockConn
	s          *res.Service
	cfg        *SessionConfig
	cl         chan struct{}
	logPrinted bool
}

// SessionConfig represents the configuration for a session.
type SessionConfig struct {
	TestName         string
	KeepLogger       bool
	NoReset          bool
	ValidateReset    bool
	ResetResources   []string
	ResetAccess      []string
	FailSubscription bool
	MockConnConfig
}

// NewSession creates a new Session and connects the service to a mock NATS
// connection.
//
// The service logger is by default replaced with a MemLogger. To keep the
// logger set on the service, add the option:
//
//	WithKeepLogger
//
// A real NATS instance may be used instead of the default mock connection,
// which is slower but tests the actual wire behavior:
//
//	WithGnatsd
func NewSession(t *testing.T, service *res.Service, opts ...func(*SessionConfig)) *Session {
	cfg := &SessionConfig{
		MockConnConfig: MockConnConfig{TimeoutDuration: DefaultTimeoutDuration},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	c := NewMockConn(t, &cfg.MockConnConfig)
	s := &Session{
		MockConn: c,
		s:        service,
		cl:       make(chan struct{}),
		cfg:      cfg,
	}

	if cfg.FailSubscription {
		c.FailNextSubscription()
	}

	if !cfg.KeepLogger {
		service.SetLogger(logger.NewMemLogger().SetTrace(true).SetFlags(log.Ltime))
	}

	go func() {
		defer s.StopServer()
		defer close(s.cl)
		if err := s.s.Serve(c); err != nil {
			panic("test: failed to start service: " + err.Error())
		}
	}()

	if !s.cfg.NoReset {
		msg := s.GetMsg()
		if s.cfg.ValidateReset {
			msg.AssertSystemReset(cfg.ResetResources, cfg.ResetAccess)
		} else {
			msg.AssertSubject("system.reset")
		}
	}

	return s
}

// Service returns the associated res.Service.
func (s *Session) Service() *res.Service {
	return s.s
}

// Close closes the session.
func (s *Session) Close() error {
	// Check for panics
	e := recover()
	defer func() {
		// Re-panic
		if e != nil {
			panic(e)
		}
	}()
	// Output memlog if the test failed or we are panicking
	if e != nil || s.t.Failed() {
		s.printLog()
	}

	// Try to shut the service down
	ch := make(chan error)
	go func() {
		ch <- s.s.Shutdown()
	}()

	// Await the closing
	var err error
	select {
	case err = <-ch:
	case <-time.After(s.cfg.TimeoutDuration):
		s.t.Fatalf("failed to shutdown service: timeout")
	}
	return err
}

// WithKeepLogger sets the KeepLogger option, to prevent Session from
// overriding the service logger with its own MemLogger.
func WithKeepLogger(cfg *SessionConfig) { cfg.KeepLogger = true }

// WithGnatsd sets the UseGnatsd option to use a real NATS instance.
func WithGnatsd(cfg *SessionConfig) { cfg.UseGnatsd = true }

// WithTest sets the TestName option.
//
// The test name will be outputted when logging test errors.
func WithTest(name string) func(*SessionConfig) {
	return func(cfg *SessionConfig) { cfg.TestName = name }
}

// WithoutReset sets the NoReset option to not expect an initial system.reset
// event on service start.
func WithoutReset(cfg *SessionConfig) { cfg.NoReset = true }

// WithFailSubscription sets FailSubscription to make the first subscription
// fail.
func WithFailSubscription(cfg *SessionConfig) { cfg.FailSubscription = true }

// WithReset sets the ValidateReset option to validate that the system.reset
// event contains the specific resources and access pattern lists.
func WithReset(resources []string, access []string) func(*SessionConfig) {
	return func(cfg *SessionConfig) {
		cfg.ResetResources = resources
		cfg.ResetAccess = access
		cfg.ValidateReset = true
	}
}

func (s *Session) printLog() {
	if s.logPrinted {
		return
	}
	s.logPrinted = true
	if s.cfg.TestName != "" {
		s.t.Logf("Failed test %s", s.cfg.TestName)
	}
	// Print log if we have a MemLogger
	if l, ok := s.s.Logger().(*logger.MemLogger); ok {
		s.t.Logf("Trace log:\n%s", l)
	}
}
