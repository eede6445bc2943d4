package spec

import "testing"

func TestDeriveOperationID(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		method, path, want string
	}{
		"collection":          {"GET", "/users", "usersGet"},
		"item":                {"GET", "/users/{id}", "usersGetById"},
		"post with param":     {"POST", "/tests/{day}", "testsPostByDay"},
		"nested":              {"GET", "/users/{id}/posts", "usersGetByIdPosts"},
		"dashed segment":      {"DELETE", "/user-groups/{groupId}", "userGroupsDeleteByGroupId"},
		"root":                {"GET", "/", "rootGet"},
		"leading placeholder": {"PUT", "/{tenant}/items", "rootPutByTenantItems"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := DeriveOperationID(tc.method, tc.path); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestGoName(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"usersGetById":   "UsersGetById",
		"list_pets":      "ListPets",
		"get-user":       "GetUser",
		"2fa":            "Op2fa",
		"":               "Op",
		"alreadyPascal":  "AlreadyPascal",
		"testsPostByDay": "TestsPostByDay",
	}
	for in, want := range tests {
		if got := GoName(in); got != want {
			t.Errorf("GoName(%q) = %q, want %q", in, got, want)
		}
	}
}
