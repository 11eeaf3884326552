package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// GratitudeEntry is one day's gratitude journal: a short list of things the
// user was grateful for.
type GratitudeEntry struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	UserID    uint       `json:"userId" gorm:"index;not null"`
	Entries   StringList `json:"entries" gorm:"type:jsonb;not null"`
	Date      string     `json:"date" gorm:"type:text;not null"` // YYYY-MM-DD
	CreatedAt time.Time  `json:"createdAt"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName returns the database table name for the GratitudeEntry model.
func (GratitudeEntry) TableName() string {
	return "gratitude_entries"
}

// Clone returns a copy that does not share the entries slice
func (g GratitudeEntry) Clone() GratitudeEntry {
	g.Entries = append(make(StringList, 0, len(g.Entries)), g.Entries...)
	g.User = nil
	return g
}

// GratitudeInput is the payload accepted when saving a gratitude entry.
// Blank items are dropped before saving.
type GratitudeInput struct {
	Entries []string `json:"entries" validate:"required,max=10,dive,max=500"`
	Date    *string  `json:"date" validate:"omitnil,datetime=2006-01-02"`
}

// Items returns the trimmed, non-blank entries
func (in GratitudeInput) Items() StringList {
	items := make(StringList, 0, len(in.Entries))
	for _, e := range in.Entries {
		if e = strings.TrimSpace(e); e != "" {
			items = append(items, e)
		}
	}
	return items
}

// Entry builds the gratitude entry for userID, defaulting the date to now's UTC day
func (in GratitudeInput) Entry(userID uint, now time.Time) GratitudeEntry {
	return GratitudeEntry{
		UserID:  userID,
		Entries: in.Items(),
		Date:    dateOrToday(in.Date, now),
	}
}

// StringList is a list of strings stored as a jsonb array.
// A nil list is written as [].
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *StringList) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*l = StringList{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("decode string list: %w", err)
	}
	if items == nil {
		items = []string{}
	}
	*l = items
	return nil
}
