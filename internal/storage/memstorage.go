package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/azaliaz/bookverse/internal/domain/models"
	"github.com/azaliaz/bookverse/internal/logger"
	storerrros "github.com/azaliaz/bookverse/internal/storage/errors"
)

type MemStorage struct {
	mu         sync.RWMutex
	usersStor  map[string]models.User
	bookStor   map[string]models.Book
	reviewStor map[string]models.Review
}

func New() *MemStorage {
	return &MemStorage{
		usersStor:  make(map[string]models.User),
		bookStor:   make(map[string]models.Book),
		reviewStor: make(map[string]models.Review),
	}
}

func (ms *MemStorage) Close(context.Context) error { return nil }

func (ms *MemStorage) SaveUser(_ context.Context, user models.User) (models.User, error) {
	log := logger.Get()
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for _, u := range ms.usersStor {
		if u.Email == user.Email {
			return models.User{}, storerrros.ErrEmailTaken
		}
		if u.Username == user.Username {
			return models.User{}, storerrros.ErrUsernameTaken
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(user.Pass), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("save user failed")
		return models.User{}, err
	}
	user.Pass = string(hash)
	user.UID = uuid.New().String()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	ms.usersStor[user.UID] = user
	log.Debug().Str("uid", user.UID).Msg("user saved")
	return user, nil
}

func (ms *MemStorage) ValidUser(_ context.Context, email, pass string) (models.User, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	memUser, err := ms.findUser(email)
	if err != nil {
		return models.User{}, err
	}
	if err = bcrypt.CompareHashAndPassword([]byte(memUser.Pass), []byte(pass)); err != nil {
		return models.User{}, storerrros.ErrInvalidPassword
	}
	return memUser, nil
}

func (ms *MemStorage) GetUser(_ context.Context, uid string) (models.User, error) {
	log := logger.Get()
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	user, ok := ms.usersStor[uid]
	if !ok {
		log.Error().Str("uid", uid).Msg("user not found")
		return models.User{}, storerrros.ErrUserNotFound
	}
	return user, nil
}

func (ms *MemStorage) findUser(email string) (models.User, error) {
	for _, user := range ms.usersStor {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, storerrros.ErrUserNoExist
}

func (ms *MemStorage) SaveBook(_ context.Context, book models.Book) (models.Book, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	book.BID = uuid.New().String()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = time.Now().UTC()
		book.UpdatedAt = book.CreatedAt
	}
	ms.bookStor[book.BID] = book
	return book, nil
}

func (ms *MemStorage) GetBooks(_ context.Context, filter models.BookFilter) ([]models.Book, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	result := make([]models.Book, 0, len(ms.bookStor))
	for _, book := range ms.bookStor {
		if search != "" && !strings.Contains(strings.ToLower(book.Title), search) &&
			!strings.Contains(strings.ToLower(book.Author), search) {
			continue
		}
		if len(filter.Genres) > 0 && !matchGenre(book.Genre, filter.Genres) {
			continue
		}
		result = append(result, book)
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		switch filter.SortBy {
		case models.SortRating:
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
		case models.SortTitle:
			if at, bt := strings.ToLower(a.Title), strings.ToLower(b.Title); at != bt {
				return at < bt
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return a.BID < b.BID
	})

	return paginate(result, filter.Offset, filter.Limit), nil
}

func matchGenre(genre string, genres []string) bool {
	for _, g := range genres {
		if strings.EqualFold(genre, g) {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (ms *MemStorage) GetBook(_ context.Context, bid string) (models.Book, error) {
	log := logger.Get()
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	book, ok := ms.bookStor[bid]
	if !ok {
		log.Debug().Str("bid", bid).Msg("book not found")
		return models.Book{}, storerrros.ErrBookNoExist
	}
	return book, nil
}

func (ms *MemStorage) UpdateBook(_ context.Context, book models.Book) (models.Book, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	stored, ok := ms.bookStor[book.BID]
	if !ok {
		return models.Book{}, storerrros.ErrBookNoExist
	}
	// rating belongs to the rollup, not to book edits
	book.Rating = stored.Rating
	ms.bookStor[book.BID] = book
	return book, nil
}

func (ms *MemStorage) SetBookRating(_ context.Context, bid string, rating float64) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	book, ok := ms.bookStor[bid]
	if !ok {
		return storerrros.ErrBookNoExist
	}
	book.Rating = rating
	ms.bookStor[bid] = book
	return nil
}

func (ms *MemStorage) DeleteBook(_ context.Context, bid string) error {
	log := logger.Get()
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.bookStor[bid]; !exists {
		log.Warn().Str("bid", bid).Msg("book not found")
		return storerrros.ErrBookNoExist
	}
	delete(ms.bookStor, bid)
	log.Info().Str("bid", bid).Msg("book deleted successfully")
	return nil
}

func (ms *MemStorage) SaveReview(_ context.Context, review models.Review) (models.Review, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	review.RID = uuid.New().String()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	ms.reviewStor[review.RID] = review
	return review, nil
}

func (ms *MemStorage) GetReviews(_ context.Context, bookID string) ([]models.Review, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	reviews := make([]models.Review, 0)
	for _, review := range ms.reviewStor {
		if bookID == "" || review.BookID == bookID {
			reviews = append(reviews, review)
		}
	}
	sort.Slice(reviews, func(i, j int) bool {
		if !reviews[i].CreatedAt.Equal(reviews[j].CreatedAt) {
			return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
		}
		return reviews[i].RID < reviews[j].RID
	})
	return reviews, nil
}

func (ms *MemStorage) GetReview(_ context.Context, rid string) (models.Review, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	review, ok := ms.reviewStor[rid]
	if !ok {
		return models.Review{}, storerrros.ErrReviewNoExist
	}
	return review, nil
}

func (ms *MemStorage) UpdateReview(_ context.Context, review models.Review) (models.Review, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.reviewStor[review.RID]; !ok {
		return models.Review{}, storerrros.ErrReviewNoExist
	}
	ms.reviewStor[review.RID] = review
	return review, nil
}

func (ms *MemStorage) DeleteReview(_ context.Context, rid string) error {
	log := logger.Get()
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.reviewStor[rid]; !exists {
		log.Warn().Str("rid", rid).Msg("review not found")
		return storerrros.ErrReviewNoExist
	}
	delete(ms.reviewStor, rid)
	return nil
}

func (ms *MemStorage) DeleteReviewsByBook(_ context.Context, bookID string) (int64, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var n int64
	for rid, review := range ms.reviewStor {
		if review.BookID == bookID {
			delete(ms.reviewStor, rid)
			n++
		}
	}
	return n, nil
}
