package resprot

import (
	"encoding/json"
	"testing"

	res "github.com/boekfors/csharp-res"
)

func TestParseResponse_Result_SetsResult(t *testing.T) {
	r := ParseResponse([]byte(`{"result":{"foo":"bar"}}`))
	if r.HasError() {
		t.Fatalf("expected no error, but got %s", r.Error)
	}
	if !r.HasResult() {
		t.Fatalf("expected a result response")
	}
	var result struct {
		Foo string `json:"foo"`
	}
	if err := r.ParseResult(&result); err != nil {
		t.Fatalf("expected no error, but got %s", err)
	}
	if result.Foo != "bar" {
		t.Errorf(`expected result foo to be "bar", but got %q`, result.Foo)
	}
}

func TestParseResponse_Error_SetsError(t *testing.T) {
	r := ParseResponse([]byte(`{"error":{"code":"system.notFound","message":"Not found"}}`))
	if !r.HasError() {
		t.Fatalf("expected an error response")
	}
	if r.Error.Code != res.CodeNotFound {
		t.Errorf("expected error code %q, but got %q", res.CodeNotFound, r.Error.Code)
	}
}

func TestParseResponse_Resource_SetsResource(t *testing.T) {
	r := ParseResponse([]byte(`{"resource":{"rid":"example.model"}}`))
	if !r.HasResource() {
		t.Fatalf("expected a resource response")
	}
	if r.Resource != res.Ref("example.model") {
		t.Errorf(`expected resource "example.model", but got %q`, r.Resource)
	}
}

func TestParseResponse_InvalidResponses_SetsInternalError(t *testing.T) {
	tbl := [][]byte{
		nil,
		[]byte(``),
		[]byte(`{}`),
		[]byte(`broken json`),
	}
	for _, data := range tbl {
		r := ParseResponse(data)
		if !r.HasError() {
			t.Fatalf("expected an error response for %q", data)
		}
		if r.Error.Code != res.CodeInternalError {
			t.Errorf("expected error code %q for %q, but got %q", res.CodeInternalError, data, r.Error.Code)
		}
	}
}

func TestParseModel_ModelResult_ReturnsQuery(t *testing.T) {
	r := ParseResponse([]byte(`{"result":{"model":{"foo":"bar"},"query":"q=foo"}}`))
	var model struct {
		Foo string `json:"foo"`
	}
	query, err := r.ParseModel(&model)
	if err != nil {
		t.Fatalf("expected no error, but got %s", err)
	}
	if model.Foo != "bar" {
		t.Errorf(`expected model foo to be "bar", but got %q`, model.Foo)
	}
	if query != "q=foo" {
		t.Errorf(`expected query "q=foo", but got %q`, query)
	}
}

func TestParseModel_CollectionResult_ReturnsError(t *testing.T) {
	r := ParseResponse([]byte(`{"result":{"collection":["foo"]}}`))
	var model json.RawMessage
	if _, err := r.ParseModel(&model); err == nil {
		t.Fatalf("expected an error")
	}
}

func TestParseCollection_CollectionResult_ReturnsCollection(t *testing.T) {
	r := ParseResponse([]byte(`{"result":{"collection":["foo","bar"]}}`))
	var collection []string
	query, err := r.ParseCollection(&collection)
	if err != nil {
		t.Fatalf("expected no error, but got %s", err)
	}
	if len(collection) != 2 || collection[0] != "foo" || collection[1] != "bar" {
		t.Errorf(`expected collection ["foo","bar"], but got %v`, collection)
	}
	if query != "" {
		t.Errorf(`expected empty query, but got %q`, query)
	}
}

func TestParseCollection_ModelResult_ReturnsError(t *testing.T) {
	r := ParseResponse([]byte(`{"result":{"model":{"foo":"bar"}}}`))
	var collection []string
	if _, err := r.ParseCollection(&collection); err == nil {
		t.Fatalf("expected an error")
	}
}

func TestAccessResult_GrantedAccess_ReturnsPermissions(t *testing.T) {
	r := ParseResponse([]byte(`{"result":{"get":true,"call":"set"}}`))
	get, call, err := r.AccessResult()
	if err != nil {
		t.Fatalf("expected no error, but got %s", err)
	}
	if !get {
		t.Errorf("expected get access to be true")
	}
	if call != "set" {
		t.Errorf(`expected call access "set", but got %q`, call)
	}
}

func TestAccessResult_Error_ReturnsError(t *testing.T) {
	r := ParseResponse([]byte(`{"error":{"code":"system.accessDenied","message":"Access denied"}}`))
	if _, _, err := r.AccessResult(); err == nil {
		t.Fatalf("expected an error")
	}
}

func TestSplitRID_WithAndWithoutQuery(t *testing.T) {
	tbl := []struct {
		RID   string
		Name  string
		Query string
	}{
		{"example.model", "example.model", ""},
		{"example.model?q=foo", "example.model", "q=foo"},
		{"example.model?", "example.model", ""},
	}
	for _, l := range tbl {
		name, query := splitRID(l.RID)
		if name != l.Name || query != l.Query {
			t.Errorf("expected splitRID(%q) to return (%q, %q), but got (%q, %q)", l.RID, l.Name, l.Query, name, query)
		}
	}
}
