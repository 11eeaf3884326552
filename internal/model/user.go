package model

import (
	"time"
)

// User represents an account stored in the users table
type User struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Email      string    `json:"email" gorm:"type:text;uniqueIndex;not null"`
	Name       string    `json:"name" gorm:"type:text;not null"`
	Password   string    `json:"-" gorm:"type:text;not null"`
	ExternalID *string   `json:"-" gorm:"type:text;uniqueIndex"` // Identity id at the managed auth provider, if any
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TableName returns the database table name for the User model.
func (User) TableName() string {
	return "users"
}

// UserWithProfile is the combined view served by /users/:id/complete.
// Profile is nil when the user has not created one yet.
type UserWithProfile struct {
	User    *User        `json:"user"`
	Profile *UserProfile `json:"profile"`
}

// CreateUserInput is the payload accepted when registering a user
type CreateUserInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,bcryptlen"`
	Name     string `json:"name" validate:"required,max=100"`
}

// UpdateUserInput carries a partial user update. Nil fields are left untouched.
type UpdateUserInput struct {
	Email    *string `json:"email" validate:"omitnil,email,max=255"`
	Password *string `json:"password" validate:"omitnil,min=6,bcryptlen"`
	Name     *string `json:"name" validate:"omitnil,min=1,max=100"`
}

// Empty reports whether the update carries no fields at all
func (in UpdateUserInput) Empty() bool {
	return in.Email == nil && in.Password == nil && in.Name == nil
}

// MaxPasswordBytes is the longest password bcrypt accepts. The limit is in
// bytes, so multibyte passwords hit it with fewer characters.
const MaxPasswordBytes = 72

// LoginInput is the payload accepted by the login endpoint
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
