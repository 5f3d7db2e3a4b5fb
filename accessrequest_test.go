package res_test

import (
	"encoding/json"
	"testing"

	res "github.com/boekfors/csharp-res"
	"github.com/boekfors/csharp-res/restest"
)

// Test that an access request responds with the granted permissions.
func TestAccessRequest_Access_SendsAccessResponse(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model", res.Access(func(r res.AccessRequest) {
		r.Access(true, "set")
	}))
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Access("test.model", nil).
		Response().
		AssertAccess(true, "set")
}

// Test that AccessGranted grants full access.
func TestAccessRequest_AccessGranted_SendsFullAccessResponse(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model", res.Access(func(r res.AccessRequest) {
		r.AccessGranted()
	}))
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Access("test.model", nil).
		Response().
		AssertAccess(true, "*")
}

// Test that the predefined AccessGranted handler grants full access.
func TestAccessRequest_AccessGrantedHandler_SendsFullAccessResponse(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model", res.Access(res.AccessGranted))
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Access("test.model", nil).
		Response().
		AssertAccess(true, "*")
}

// Test that AccessDenied responds with a system.accessDenied error.
func TestAccessRequest_AccessDenied_SendsAccessDeniedError(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model", res.Access(func(r res.AccessRequest) {
		r.AccessDenied()
	}))
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Access("test.model", nil).
		Response().
		AssertError(res.ErrAccessDenied)
}

// Test that Access without any permission responds with a
// system.accessDenied error.
func TestAccessRequest_AccessNoPermission_SendsAccessDeniedError(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model", res.Access(func(r res.AccessRequest) {
		r.Access(false, "")
	}))
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Access("test.model", nil).
		Response().
		AssertError(res.ErrAccessDenied)
}

// Test that a matched resource without an access handler responds with full
// access.
func TestAccessRequest_NoAccessHandler_SendsFullAccessResponse(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model",
		res.Model(),
		res.GetModel(func(r res.ModelRequest) {
			r.Model(map[string]string{"foo": "bar"})
		}),
	)
	s.Handle("guarded", res.Access(res.AccessGranted))
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Access("test.model", nil).
		Response().
		AssertAccess(true, "*")
}

// Test that the access token is parsed with ParseToken.
func TestAccessRequest_ParseToken_UnmarshalsToken(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model", res.Access(func(r res.AccessRequest) {
		var token struct {
			Role string `json:"role"`
		}
		r.ParseToken(&token)
		r.Access(token.Role == "admin", "")
	}))
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Access("test.model", &restest.Request{
		CID:   "testcid",
		Token: json.RawMessage(`{"role":"admin"}`),
	}).
		Response().
		AssertAccess(true, "")
}

// Test that a panic in the access handler responds with an internal error.
func TestAccessRequest_PanicInHandler_SendsInternalError(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model", res.Access(func(r res.AccessRequest) {
		panic("boom")
	}))
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Access("test.model", nil).
		Response().
		AssertErrorCode(res.CodeInternalError)
}

// Test that an access handler ending without a response sends a missing
// response error.
func TestAccessRequest_MissingResponse_SendsInternalError(t *testing.T) {
	s := res.NewService("test")
	s.Handle("model", res.Access(func(r res.AccessRequest) {}))
	c := restest.NewSession(t, s)
	defer c.Close()

	c.Access("test.model", nil).
		Response().
		AssertErrorCode(res.CodeInternalError)
}
