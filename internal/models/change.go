package models

// Entities observed by the live change relay. Values match the table names.
const (
	EntityPosts         = "posts"
	EntityLikes         = "likes"
	EntityComments      = "comments"
	EntityFollows       = "follows"
	EntityNotifications = "notifications"
	EntityMessages      = "messages"
)

// Change operations.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Change describes one row-level mutation. Fields carries the filterable columns of the row
// (e.g. "user_id", "post_id"); it is never sent to viewers.
type Change struct {
	Entity string            `json:"entity"`
	Op     string            `json:"op"`
	Fields map[string]string `json:"fields,omitempty"`
}
