package spec

import (
	"encoding/json"
	"errors"
	"testing"
)

const sampleRouteTable = `title: User API
routes:
  /users:
    get:
      operationId: usersGetUsers
      responseCodes: [200]
      requestSchemas: [query]
      isIndex: true
      tags: [users]
      responses:
        "200":
          type: array
          items:
            type: object
            required: [id, name]
            properties:
              id: {type: string}
              name: {type: string}
  /users/{id}:
    get:
      operationId: usersGetById
      responseCodes: [200, 404]
      requestSchemas: [params]
      tags: [users]
      responses:
        200:
          type: object
          required: [id, name]
          properties:
            id: {type: string}
            name: {type: string}
  /tests/{day}:
    post:
      responseCodes: [201]
      requestSchemas: [params, body]
`

func TestParseRouteTable(t *testing.T) {
	t.Parallel()
	table, err := ParseRouteTable([]byte(sampleRouteTable))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if table.Title != "User API" {
		t.Errorf("title: got %q", table.Title)
	}
	if len(table.Operations) != 3 {
		t.Fatalf("operations: got %d", len(table.Operations))
	}

	// Document order is preserved.
	ids := []string{"usersGetUsers", "usersGetById", "testsPostByDay"}
	for i, want := range ids {
		if got := table.Operations[i].OperationID; got != want {
			t.Errorf("operation %d: got %q want %q", i, got, want)
		}
	}

	byID := table.Operations[1]
	if byID.Method != "GET" || byID.Path != "/users/{id}" {
		t.Errorf("byID: %s %s", byID.Method, byID.Path)
	}
	if byID.IsIndex {
		t.Errorf("byID should not be an index route")
	}
	if len(byID.ResponseCodes) != 2 || byID.ResponseCodes[0] != 200 || byID.ResponseCodes[1] != 404 {
		t.Errorf("codes: %v", byID.ResponseCodes)
	}
	var schema map[string]any
	if err := json.Unmarshal(byID.Schema(200), &schema); err != nil {
		t.Fatalf("schema json: %v", err)
	}
	if schema["type"] != "object" {
		t.Errorf("schema: %v", schema)
	}
	if string(byID.Schema(404)) != "{}" {
		t.Errorf("404 schema: %s", byID.Schema(404))
	}

	post := table.Operations[2]
	if !post.Has(PartParams) || !post.Has(PartBody) || post.Has(PartQuery) {
		t.Errorf("post parts: %v", post.RequestParts)
	}
	if ps := post.PathParams(); len(ps) != 1 || ps[0] != "day" {
		t.Errorf("path params: %v", ps)
	}
}

func TestParseRouteTable_JSON(t *testing.T) {
	t.Parallel()
	table, err := ParseRouteTable([]byte(`{"routes":{"/ping":{"GET":{"responses":{"204":{}}}}}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	op := table.Operations[0]
	if op.OperationID != "pingGet" || !op.IsIndex || op.Method != "GET" {
		t.Fatalf("unexpected operation: %+v", op)
	}
	if len(op.ResponseCodes) != 1 || op.ResponseCodes[0] != 204 {
		t.Fatalf("codes: %v", op.ResponseCodes)
	}
}

func TestParseRouteTable_Errors(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		doc  string
		code ErrorCode
	}{
		"not yaml":          {doc: "routes: [", code: ParseError},
		"missing routes":    {doc: "title: x", code: ParseError},
		"relative route":    {doc: "routes: {users: {get: {responseCodes: [200]}}}", code: ValidationError},
		"unknown method":    {doc: "routes: {/a: {fetch: {responseCodes: [200]}}}", code: ValidationError},
		"unknown part":      {doc: "routes: {/a: {get: {requestSchemas: [headers]}}}", code: ValidationError},
		"non numeric code":  {doc: "routes: {/a: {get: {responses: {ok: {}}}}}", code: ValidationError},
		"code out of range": {doc: "routes: {/a: {get: {responseCodes: [999]}}}", code: ValidationError},
		"duplicate id": {
			doc:  "routes: {/a: {get: {operationId: x}}, /b: {get: {operationId: x}}}",
			code: DuplicateError,
		},
		"duplicate route by case": {
			doc:  "routes: {/a: {get: {operationId: x}, GET: {operationId: y}}}",
			code: DuplicateError,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseRouteTable([]byte(tc.doc))
			var se *SpecError
			if !errors.As(err, &se) {
				t.Fatalf("expected SpecError, got %v", err)
			}
			if se.Code != tc.code {
				t.Fatalf("code: got %v want %v (%v)", se.Code, tc.code, err)
			}
		})
	}
}

func TestRouteTable_Filter(t *testing.T) {
	t.Parallel()
	table, err := ParseRouteTable([]byte(sampleRouteTable))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	users, err := table.Filter(WithIncludeTags([]string{"users"}), WithExcludeTags([]string{"admin"}))
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(users.Operations) != 2 {
		t.Fatalf("include: got %d", len(users.Operations))
	}
	posts, err := table.Filter(WithMethods([]string{"POST"}))
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(posts.Operations) != 1 || posts.Operations[0].OperationID != "testsPostByDay" {
		t.Fatalf("methods: %+v", posts.Operations)
	}
	if len(table.Operations) != 3 {
		t.Fatalf("filter must not modify the source table")
	}
}
