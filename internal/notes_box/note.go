package notes_box

import "time"

// NoteDateLayout is the wire format for a note date. A user has at
// most one note per date.
const NoteDateLayout = "2006-01-02"

type Note struct {
	ID        int       `json:"id"`
	UserID    int       `json:"-"`
	NoteDate  time.Time `json:"noteDate"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
