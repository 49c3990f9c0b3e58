package model

// User is a household member. GroupIDs is the set of groups the user
// belongs to, sorted ascending.
type User struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	GroupIDs []int64 `json:"group_ids"`
}

// Group is a set of users sharing chores. UserIDs is sorted ascending.
type Group struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	UserIDs []int64 `json:"user_ids"`
}

// Account holds the login credentials for a user.
type Account struct {
	UserID       int64  `json:"user_id"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"`
}
