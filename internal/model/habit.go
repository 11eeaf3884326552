package model

import (
	"time"
)

// Habit is one habit a user tracks on a given day
type Habit struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"userId" gorm:"index;not null"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	Date      string    `json:"date" gorm:"type:text;not null"` // YYYY-MM-DD
	Completed bool      `json:"completed" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName returns the database table name for the Habit model.
func (Habit) TableName() string {
	return "habits"
}

// HabitInput is the payload accepted when adding a habit. New habits start
// uncompleted.
type HabitInput struct {
	Name string  `json:"name" validate:"required,max=100"`
	Date *string `json:"date" validate:"omitnil,datetime=2006-01-02"`
}

// Habit builds the habit for userID, defaulting the date to now's UTC day
func (in HabitInput) Habit(userID uint, now time.Time) Habit {
	return Habit{
		UserID: userID,
		Name:   in.Name,
		Date:   dateOrToday(in.Date, now),
	}
}

// HabitStatusInput marks a habit done or not done
type HabitStatusInput struct {
	Completed *bool `json:"completed" validate:"required"`
}

func dateOrToday(date *string, now time.Time) string {
	if date != nil {
		return *date
	}
	return Today(now)
}

// Today formats now's UTC day as YYYY-MM-DD
func Today(now time.Time) string {
	return now.UTC().Format(DateLayout)
}

// DateLayout is the YYYY-MM-DD format used by every date column
const DateLayout = "2006-01-02"
