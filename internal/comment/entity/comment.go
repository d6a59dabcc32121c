package entity

import "time"

// Comment is a row in the comments table. UserID is a weak reference to the author.
type Comment struct {
	ID        string    `db:"id" json:"id"`
	PostID    string    `db:"post_id" json:"postId"`
	UserID    string    `db:"user_id" json:"userId"`
	Text      string    `db:"comment" json:"comment"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// View is a comment joined to its author's display fields.
type View struct {
	IDComment       string `json:"idComment"`
	IDPost          string `json:"idPost"`
	IDUser          string `json:"idUser"`
	CommentUsername string `json:"commentUsername"`
	CommentAvatar   string `json:"commentAvatar"`
	Comment         string `json:"comment"`
}
