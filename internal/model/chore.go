package model

type Chore struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	Description     *string `json:"description"`
	CreatedByUserID *int64  `json:"created_by_user_id"`
}
