package model

import (
	"time"
)

// UserProfile holds the optional attributes attached to a User.
// A user has at most one profile; it is removed with its user.
type UserProfile struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"userId" gorm:"uniqueIndex;not null"`
	Phone       *string   `json:"phone" gorm:"type:text"`
	BirthDate   *string   `json:"birthDate" gorm:"type:text"` // YYYY-MM-DD
	Avatar      *string   `json:"avatar" gorm:"type:text"`
	Bio         *string   `json:"bio" gorm:"type:text"`
	Preferences JSON      `json:"preferences" gorm:"type:jsonb"`
	Metadata    JSON      `json:"metadata" gorm:"type:jsonb"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName returns the database table name for the UserProfile model.
func (UserProfile) TableName() string {
	return "user_profiles"
}

// Clone returns a deep copy that shares no pointers or JSON bytes with p
func (p *UserProfile) Clone() *UserProfile {
	cp := *p
	cp.Phone = cloneString(p.Phone)
	cp.BirthDate = cloneString(p.BirthDate)
	cp.Avatar = cloneString(p.Avatar)
	cp.Bio = cloneString(p.Bio)
	cp.Preferences = p.Preferences.Clone()
	cp.Metadata = p.Metadata.Clone()
	cp.User = nil
	return &cp
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// ProfileInput is used for both profile creation and partial updates.
// Nil fields are not written.
type ProfileInput struct {
	Phone       *string `json:"phone" validate:"omitnil,max=32"`
	BirthDate   *string `json:"birthDate" validate:"omitnil,datetime=2006-01-02"`
	Avatar      *string `json:"avatar" validate:"omitnil,max=2048"`
	Bio         *string `json:"bio" validate:"omitnil,max=2000"`
	Preferences JSON    `json:"preferences"`
	Metadata    JSON    `json:"metadata"`
}

// Apply copies every provided field of the input onto the profile
func (in ProfileInput) Apply(p *UserProfile) {
	if in.Phone != nil {
		p.Phone = cloneString(in.Phone)
	}
	if in.BirthDate != nil {
		p.BirthDate = cloneString(in.BirthDate)
	}
	if in.Avatar != nil {
		p.Avatar = cloneString(in.Avatar)
	}
	if in.Bio != nil {
		p.Bio = cloneString(in.Bio)
	}
	if in.Preferences != nil {
		p.Preferences = in.Preferences.Clone()
	}
	if in.Metadata != nil {
		p.Metadata = in.Metadata.Clone()
	}
}

// Changes returns the provided fields keyed by column name
func (in ProfileInput) Changes() map[string]interface{} {
	changes := map[string]interface{}{}
	if in.Phone != nil {
		changes["phone"] = *in.Phone
	}
	if in.BirthDate != nil {
		changes["birth_date"] = *in.BirthDate
	}
	if in.Avatar != nil {
		changes["avatar"] = *in.Avatar
	}
	if in.Bio != nil {
		changes["bio"] = *in.Bio
	}
	if in.Preferences != nil {
		changes["preferences"] = in.Preferences
	}
	if in.Metadata != nil {
		changes["metadata"] = in.Metadata
	}
	return changes
}
