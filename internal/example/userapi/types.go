package userapi

// User is an entry of the user listing.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// UsersGetUsersQuery pages and filters the user listing.
type UsersGetUsersQuery struct {
	Page    int    `json:"page,omitempty"`
	PerPage int    `json:"perPage,omitempty"`
	Search  string `json:"search,omitempty"`
}

// UsersGetUsers200 is one page of users.
type UsersGetUsers200 []User

// UsersGetByIdParams fills /users/{id}.
type UsersGetByIdParams struct {
	ID string `json:"id"`
}

// UsersGetById200 is the requested user.
type UsersGetById200 User

// UsersGetById404 is returned for an unknown id.
type UsersGetById404 struct {
	Message string `json:"message"`
}

// TestsPostByDayParams fills /tests/{day}. Day may be empty to post to
// /tests.
type TestsPostByDayParams struct {
	Day string `json:"day"`
}

// TestsPostByDayBody is the recorded test run.
type TestsPostByDayBody struct {
	Score float64 `json:"score"`
	Notes string  `json:"notes,omitempty"`
}

// TestsPostByDay201 echoes the stored run.
type TestsPostByDay201 struct {
	ID    int     `json:"id"`
	Day   string  `json:"day"`
	Score float64 `json:"score,omitempty"`
}
