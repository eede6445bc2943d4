// Package apiclient is the runtime every generated client relies on.
//
// A generated method hands a RequestConfig to the RequestWrapper, which
// resolves the path template, strips the path parameters and delegates the
// round trip to an Executor. The returned Response is then checked against
// the operation's SchemaRegistry by the ResponseValidator:
//
//	resp, err := c.Execute(ctx, apiclient.RequestConfig{
//		Method:     "GET",
//		URL:        "/users/{id}",
//		PathParams: map[string]any{"id": 42},
//	})
//	if err != nil {
//		return err
//	}
//	var user User
//	err = c.ValidateResponse(ctx, resp, usersGetByIdSchemas, "/users/{id}", "GET", &user)
//
// Responses whose status code has no registered schema are rejected with an
// UnexpectedStatusError. Fields the schema does not declare are tolerated and
// reported as a warning on the client's logger.
package apiclient
