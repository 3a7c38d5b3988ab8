package models

import "time"

type User struct {
	UID       string    `json:"id" bson:"_id"`
	Username  string    `json:"username" bson:"username"`
	Email     string    `json:"email" bson:"email"`
	Pass      string    `json:"-" bson:"password"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Identity is what a verified bearer token tells us about the caller.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type ReadingStatus string

const (
	StatusWantToRead ReadingStatus = "want-to-read"
	StatusReading    ReadingStatus = "reading"
	StatusCompleted  ReadingStatus = "completed"
)

func (rs ReadingStatus) Valid() bool {
	switch rs {
	case StatusWantToRead, StatusReading, StatusCompleted:
		return true
	}
	return false
}

type Progress struct {
	Current int `json:"current" bson:"current" validate:"gte=0"`
	Total   int `json:"total" bson:"total" validate:"gte=0"`
}

func (p Progress) Valid() bool {
	if p.Current < 0 || p.Total < 0 {
		return false
	}
	return p.Total == 0 || p.Current <= p.Total
}

type Book struct {
	BID           string        `json:"id" bson:"_id"`
	Title         string        `json:"title" bson:"title"`
	Author        string        `json:"author" bson:"author"`
	Genre         string        `json:"genre,omitempty" bson:"genre,omitempty"`
	Description   string        `json:"description,omitempty" bson:"description,omitempty"`
	CoverImage    string        `json:"coverImage,omitempty" bson:"coverImage,omitempty"`
	Rating        float64       `json:"rating" bson:"rating"`
	OwnerUID      string        `json:"userId" bson:"userId"`
	ReadingStatus ReadingStatus `json:"readingStatus" bson:"readingStatus"`
	Progress      Progress      `json:"progress" bson:"progress"`
	StartedDate   *time.Time    `json:"startedDate,omitempty" bson:"startedDate,omitempty"`
	CompletedDate *time.Time    `json:"completedDate,omitempty" bson:"completedDate,omitempty"`
	CreatedAt     time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt" bson:"updatedAt"`
}

func (b Book) OwnerID() string { return b.OwnerUID }

// BookPatch carries the fields a client may change on a book. Nil means
// "leave as is".
type BookPatch struct {
	Title         *string        `json:"title" validate:"omitempty,min=1"`
	Author        *string        `json:"author" validate:"omitempty,min=1"`
	Genre         *string        `json:"genre"`
	Description   *string        `json:"description"`
	CoverImage    *string        `json:"coverImage"`
	ReadingStatus *ReadingStatus `json:"readingStatus"`
	Progress      *Progress      `json:"progress"`
}

// ProgressPatch is the subset of BookPatch exposed by the progress endpoint.
type ProgressPatch struct {
	ReadingStatus *ReadingStatus `json:"readingStatus"`
	Progress      *Progress      `json:"progress"`
}

func (p ProgressPatch) BookPatch() BookPatch {
	return BookPatch{ReadingStatus: p.ReadingStatus, Progress: p.Progress}
}

// Apply merges the patch into b, refreshes UpdatedAt and stamps the
// started/completed dates on the first transition into those states.
func (b *Book) Apply(p BookPatch, now time.Time) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.Genre != nil {
		b.Genre = *p.Genre
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.CoverImage != nil {
		b.CoverImage = *p.CoverImage
	}
	if p.Progress != nil {
		b.Progress = *p.Progress
	}
	if p.ReadingStatus != nil {
		b.SetStatus(*p.ReadingStatus, now)
	}
	b.UpdatedAt = now
}

func (b *Book) SetStatus(status ReadingStatus, now time.Time) {
	b.ReadingStatus = status
	switch status {
	case StatusReading:
		if b.StartedDate == nil {
			t := now
			b.StartedDate = &t
		}
	case StatusCompleted:
		if b.CompletedDate == nil {
			t := now
			b.CompletedDate = &t
		}
	}
}

type BookSort string

const (
	SortLatest BookSort = "latest"
	SortRating BookSort = "rating"
	SortTitle  BookSort = "title"
)

// BookFilter narrows and orders a book listing. The zero value lists
// everything, newest first.
type BookFilter struct {
	Search string
	Genres []string
	SortBy BookSort
	Limit  int
	Offset int
}

type Review struct {
	RID       string    `json:"id" bson:"_id"`
	BookID    string    `json:"bookId" bson:"bookId"`
	Rating    int       `json:"rating" bson:"rating"`
	Content   string    `json:"content" bson:"content"`
	AuthorUID string    `json:"userId" bson:"userId"`
	Username  string    `json:"username" bson:"username"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

func (r Review) OwnerID() string { return r.AuthorUID }

type ReviewPatch struct {
	Rating  *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Content *string `json:"content" validate:"omitempty,min=1"`
}

func (r *Review) Apply(p ReviewPatch) {
	if p.Rating != nil {
		r.Rating = *p.Rating
	}
	if p.Content != nil {
		r.Content = *p.Content
	}
}
