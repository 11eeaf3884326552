package model

import (
	"time"
)

// MoodEntry is a single mood check-in recorded by a user
type MoodEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"userId" gorm:"index;not null"`
	Mood      int       `json:"mood" gorm:"not null"`
	Note      *string   `json:"note" gorm:"type:text"`
	Date      string    `json:"date" gorm:"type:text;not null"` // YYYY-MM-DD
	CreatedAt time.Time `json:"createdAt"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName returns the database table name for the MoodEntry model.
func (MoodEntry) TableName() string {
	return "mood_entries"
}

// Clone returns a copy that does not share the note pointer
func (m MoodEntry) Clone() MoodEntry {
	m.Note = cloneString(m.Note)
	m.User = nil
	return m
}

// MoodInput is the payload accepted when recording a mood
type MoodInput struct {
	Mood int     `json:"mood" validate:"required,min=1,max=5"`
	Note *string `json:"note" validate:"omitnil,max=1000"`
	Date *string `json:"date" validate:"omitnil,datetime=2006-01-02"`
}

// Entry builds the mood entry for userID, defaulting the date to now's UTC day
func (in MoodInput) Entry(userID uint, now time.Time) MoodEntry {
	return MoodEntry{
		UserID: userID,
		Mood:   in.Mood,
		Note:   cloneString(in.Note),
		Date:   dateOrToday(in.Date, now),
	}
}
