package entity

// Profile is the public projection of a user row. Users are owned by the
// identity subsystem; this service only reads the fields it denormalizes
// into comment and event views.
type Profile struct {
	ID        string `db:"id" json:"id"`
	Username  string `db:"username" json:"username"`
	FirstName string `db:"first_name" json:"firstName"`
	LastName  string `db:"last_name" json:"lastName"`
	Image     string `db:"image" json:"image"`
}

// FullName is "firstName lastName".
func (p Profile) FullName() string {
	return p.FirstName + " " + p.LastName
}
