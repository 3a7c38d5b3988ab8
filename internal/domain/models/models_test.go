package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestBook_Apply(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(time.Hour)

	b := Book{
		Title:         "Dune",
		Author:        "Herbert",
		Genre:         "Sci-Fi",
		ReadingStatus: StatusWantToRead,
		CreatedAt:     created,
		UpdatedAt:     created,
	}

	b.Apply(BookPatch{Title: ptr("Dune Messiah")}, now)

	assert.Equal(t, "Dune Messiah", b.Title)
	assert.Equal(t, "Herbert", b.Author)
	assert.Equal(t, "Sci-Fi", b.Genre)
	assert.Equal(t, StatusWantToRead, b.ReadingStatus)
	assert.Equal(t, now, b.UpdatedAt)
	assert.Equal(t, created, b.CreatedAt)
	assert.Nil(t, b.StartedDate)
}

func TestBook_SetStatusStampsOnce(t *testing.T) {
	first := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	later := first.Add(48 * time.Hour)

	var b Book
	b.Apply(BookPatch{ReadingStatus: ptr(StatusReading)}, first)
	require.NotNil(t, b.StartedDate)
	assert.Equal(t, first, *b.StartedDate)
	assert.Nil(t, b.CompletedDate)

	b.Apply(BookPatch{ReadingStatus: ptr(StatusWantToRead)}, later)
	b.Apply(BookPatch{ReadingStatus: ptr(StatusReading)}, later)
	assert.Equal(t, first, *b.StartedDate, "started date must keep the first transition")

	b.Apply(BookPatch{ReadingStatus: ptr(StatusCompleted)}, later)
	require.NotNil(t, b.CompletedDate)
	assert.Equal(t, later, *b.CompletedDate)
	assert.Equal(t, StatusCompleted, b.ReadingStatus)
}

func TestProgress_Valid(t *testing.T) {
	assert.True(t, Progress{}.Valid())
	assert.True(t, Progress{Current: 10, Total: 0}.Valid())
	assert.True(t, Progress{Current: 100, Total: 100}.Valid())
	assert.False(t, Progress{Current: 101, Total: 100}.Valid())
	assert.False(t, Progress{Current: -1, Total: 10}.Valid())
}

func TestReadingStatus_Valid(t *testing.T) {
	assert.True(t, StatusReading.Valid())
	assert.False(t, ReadingStatus("abandoned").Valid())
	assert.False(t, ReadingStatus("").Valid())
}

func TestReview_Apply(t *testing.T) {
	r := Review{Rating: 3, Content: "ok"}

	r.Apply(ReviewPatch{Rating: ptr(5)})
	assert.Equal(t, 5, r.Rating)
	assert.Equal(t, "ok", r.Content)

	r.Apply(ReviewPatch{Content: ptr("great")})
	assert.Equal(t, 5, r.Rating)
	assert.Equal(t, "great", r.Content)
}
