package entity

// User is the aggregate root for the user directory.
//
// ID is assigned by the store on creation and never changes afterwards.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Age      int    `json:"age"`
	IsActive bool   `json:"is_active"`
}

// NewUser is the create input. Age and IsActive are pointers so that an
// absent age can be told apart from zero and an absent flag defaults to true.
type NewUser struct {
	Name     string `json:"name" validate:"required,username"`
	Email    string `json:"email" validate:"required,email"`
	Age      *int   `json:"age" validate:"required,userage"`
	IsActive *bool  `json:"is_active"`
}

// Build turns a validated input into a User without an ID.
func (n NewUser) Build() *User {
	u := &User{Name: n.Name, Email: n.Email, IsActive: true}
	if n.Age != nil {
		u.Age = *n.Age
	}
	if n.IsActive != nil {
		u.IsActive = *n.IsActive
	}
	return u
}

// UserPatch carries a partial update. A nil field means "leave unchanged";
// JSON null and an absent key decode to the same nil.
type UserPatch struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Age      *int    `json:"age"`
	IsActive *bool   `json:"is_active"`
}

// IsEmpty reports whether the patch sets no field at all.
func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Age == nil && p.IsActive == nil
}

// Fields returns only the provided fields keyed by their stored name.
func (p UserPatch) Fields() map[string]any {
	out := make(map[string]any, 4)
	if p.Name != nil {
		out["name"] = *p.Name
	}
	if p.Email != nil {
		out["email"] = *p.Email
	}
	if p.Age != nil {
		out["age"] = *p.Age
	}
	if p.IsActive != nil {
		out["is_active"] = *p.IsActive
	}
	return out
}

// Apply copies the provided fields onto u.
func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Age != nil {
		u.Age = *p.Age
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
}
