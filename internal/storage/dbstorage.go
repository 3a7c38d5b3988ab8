package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/azaliaz/bookverse/internal/domain/consts"
	"github.com/azaliaz/bookverse/internal/domain/models"
	"github.com/azaliaz/bookverse/internal/logger"
	storerrros "github.com/azaliaz/bookverse/internal/storage/errors"
)

const (
	bookColumns   = `bid, title, author, genre, description, cover_image, rating, owner_uid, reading_status, progress_current, progress_total, started_date, completed_date, created_at, updated_at`
	reviewColumns = `rid, book_id, rating, content, author_uid, username, created_at`
)

type DBStorage struct {
	pool *pgxpool.Pool
}

func NewDB(ctx context.Context, addr string) (*DBStorage, error) {
	config, err := pgxpool.ParseConfig(addr)
	if err != nil {
		return nil, err
	}
	config.MaxConns = 20
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()
	if err = pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return &DBStorage{pool: pool}, nil
}

func (dbs *DBStorage) Close(context.Context) error {
	dbs.pool.Close()
	return nil
}

func (dbs *DBStorage) SaveUser(ctx context.Context, user models.User) (models.User, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	var email, username string
	err := dbs.pool.QueryRow(ctx, `SELECT email, username FROM users WHERE email = $1 OR username = $2 LIMIT 1`,
		user.Email, user.Username).Scan(&email, &username)
	switch {
	case err == nil && email == user.Email:
		return models.User{}, storerrros.ErrEmailTaken
	case err == nil:
		return models.User{}, storerrros.ErrUsernameTaken
	case !errors.Is(err, pgx.ErrNoRows):
		log.Error().Err(err).Msg("check existing user failed")
		return models.User{}, err
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

	_, err = dbs.pool.Exec(ctx, `INSERT INTO users (uid, username, email, pass, created_at) VALUES ($1, $2, $3, $4, $5)`,
		user.UID, user.Username, user.Email, user.Pass, user.CreatedAt)
	if err != nil {
		// lost the race against a concurrent registration
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "username") {
				return models.User{}, storerrros.ErrUsernameTaken
			}
			return models.User{}, storerrros.ErrEmailTaken
		}
		log.Error().Err(err).Msg("failed to insert user")
		return models.User{}, err
	}
	log.Debug().Str("uid", user.UID).Msg("user saved")
	return user, nil
}

func (dbs *DBStorage) ValidUser(ctx context.Context, email, pass string) (models.User, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	usr, err := dbs.queryUser(ctx, `WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storerrros.ErrUserNoExist
		}
		log.Error().Err(err).Msg("failed scan db data")
		return models.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(usr.Pass), []byte(pass)); err != nil {
		return models.User{}, storerrros.ErrInvalidPassword
	}
	return usr, nil
}

func (dbs *DBStorage) GetUser(ctx context.Context, uid string) (models.User, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	usr, err := dbs.queryUser(ctx, `WHERE uid = $1`, uid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storerrros.ErrUserNotFound
		}
		log.Error().Err(err).Msg("failed scan db data")
		return models.User{}, err
	}
	return usr, nil
}

func (dbs *DBStorage) queryUser(ctx context.Context, where string, arg any) (models.User, error) {
	var usr models.User
	row := dbs.pool.QueryRow(ctx, `SELECT uid, username, email, pass, created_at FROM users `+where, arg)
	err := row.Scan(&usr.UID, &usr.Username, &usr.Email, &usr.Pass, &usr.CreatedAt)
	return usr, err
}

func (dbs *DBStorage) SaveBook(ctx context.Context, book models.Book) (models.Book, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	book.BID = uuid.New().String()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = time.Now().UTC()
		book.UpdatedAt = book.CreatedAt
	}
	_, err := dbs.pool.Exec(ctx, `INSERT INTO books (`+bookColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		book.BID, book.Title, book.Author, book.Genre, book.Description, book.CoverImage, book.Rating,
		book.OwnerUID, book.ReadingStatus, book.Progress.Current, book.Progress.Total,
		book.StartedDate, book.CompletedDate, book.CreatedAt, book.UpdatedAt)
	if err != nil {
		log.Error().Err(err).Msg("save book failed")
		return models.Book{}, err
	}
	return book, nil
}

func (dbs *DBStorage) GetBooks(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	query, args := booksQuery(filter)
	rows, err := dbs.pool.Query(ctx, query, args...)
	if err != nil {
		log.Error().Err(err).Msg("failed to get books from db")
		return nil, err
	}
	defer rows.Close()

	books := make([]models.Book, 0)
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			log.Error().Err(err).Msg("failed to scan data from db")
			return nil, err
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

func booksQuery(filter models.BookFilter) (string, []any) {
	var conditions []string
	var args []any
	argPos := 1

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR author ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}
	if len(filter.Genres) > 0 {
		genres := make([]string, 0, len(filter.Genres))
		for _, g := range filter.Genres {
			genres = append(genres, strings.ToLower(g))
		}
		conditions = append(conditions, fmt.Sprintf("lower(genre) = ANY($%d)", argPos))
		args = append(args, genres)
		argPos++
	}

	query := `SELECT ` + bookColumns + ` FROM books`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	switch filter.SortBy {
	case models.SortRating:
		query += " ORDER BY rating DESC, bid"
	case models.SortTitle:
		query += " ORDER BY lower(title) ASC, bid"
	default:
		query += " ORDER BY created_at DESC, bid"
	}

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argPos)
		args = append(args, filter.Limit)
		argPos++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argPos)
		args = append(args, filter.Offset)
	}
	return query, args
}

func scanBook(row pgx.Row) (models.Book, error) {
	var book models.Book
	err := row.Scan(&book.BID, &book.Title, &book.Author, &book.Genre, &book.Description, &book.CoverImage,
		&book.Rating, &book.OwnerUID, &book.ReadingStatus, &book.Progress.Current, &book.Progress.Total,
		&book.StartedDate, &book.CompletedDate, &book.CreatedAt, &book.UpdatedAt)
	return book, err
}

func (dbs *DBStorage) GetBook(ctx context.Context, bid string) (models.Book, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	book, err := scanBook(dbs.pool.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE bid = $1`, bid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Book{}, storerrros.ErrBookNoExist
		}
		log.Error().Err(err).Msg("failed to scan data from db")
		return models.Book{}, err
	}
	return book, nil
}

func (dbs *DBStorage) UpdateBook(ctx context.Context, book models.Book) (models.Book, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	updated, err := scanBook(dbs.pool.QueryRow(ctx, `UPDATE books SET
		title = $2, author = $3, genre = $4, description = $5, cover_image = $6,
		reading_status = $7, progress_current = $8, progress_total = $9,
		started_date = $10, completed_date = $11, updated_at = $12
		WHERE bid = $1 RETURNING `+bookColumns,
		book.BID, book.Title, book.Author, book.Genre, book.Description, book.CoverImage,
		book.ReadingStatus, book.Progress.Current, book.Progress.Total,
		book.StartedDate, book.CompletedDate, book.UpdatedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Book{}, storerrros.ErrBookNoExist
		}
		log.Error().Err(err).Msg("update book failed")
		return models.Book{}, err
	}
	return updated, nil
}

func (dbs *DBStorage) SetBookRating(ctx context.Context, bid string, rating float64) error {
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	res, err := dbs.pool.Exec(ctx, `UPDATE books SET rating = $2 WHERE bid = $1`, bid, rating)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return storerrros.ErrBookNoExist
	}
	return nil
}

func (dbs *DBStorage) DeleteBook(ctx context.Context, bid string) error {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	res, err := dbs.pool.Exec(ctx, "DELETE FROM books WHERE bid = $1", bid)
	if err != nil {
		log.Error().Err(err).Msg("failed to delete book")
		return err
	}
	if res.RowsAffected() == 0 {
		log.Warn().Str("bid", bid).Msg("book not found")
		return storerrros.ErrBookNoExist
	}
	log.Info().Str("bid", bid).Msg("book deleted successfully")
	return nil
}

func (dbs *DBStorage) SaveReview(ctx context.Context, review models.Review) (models.Review, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	review.RID = uuid.New().String()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	_, err := dbs.pool.Exec(ctx, `INSERT INTO reviews (`+reviewColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		review.RID, review.BookID, review.Rating, review.Content, review.AuthorUID, review.Username, review.CreatedAt)
	if err != nil {
		log.Error().Err(err).Msg("failed to save review")
		return models.Review{}, err
	}
	log.Info().Str("rid", review.RID).Msg("review saved successfully")
	return review, nil
}

func (dbs *DBStorage) GetReviews(ctx context.Context, bookID string) ([]models.Review, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	query := `SELECT ` + reviewColumns + ` FROM reviews`
	var args []any
	if bookID != "" {
		query += ` WHERE book_id = $1`
		args = append(args, bookID)
	}
	query += ` ORDER BY created_at DESC, rid`

	rows, err := dbs.pool.Query(ctx, query, args...)
	if err != nil {
		log.Error().Err(err).Msg("failed to get reviews")
		return nil, err
	}
	defer rows.Close()

	reviews := make([]models.Review, 0)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			log.Error().Err(err).Msg("failed to scan review row")
			return nil, err
		}
		reviews = append(reviews, review)
	}
	if rows.Err() != nil {
		log.Error().Err(rows.Err()).Msg("rows iteration error")
		return nil, rows.Err()
	}
	return reviews, nil
}

func scanReview(row pgx.Row) (models.Review, error) {
	var r models.Review
	err := row.Scan(&r.RID, &r.BookID, &r.Rating, &r.Content, &r.AuthorUID, &r.Username, &r.CreatedAt)
	return r, err
}

func (dbs *DBStorage) GetReview(ctx context.Context, rid string) (models.Review, error) {
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	review, err := scanReview(dbs.pool.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE rid = $1`, rid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Review{}, storerrros.ErrReviewNoExist
		}
		return models.Review{}, err
	}
	return review, nil
}

func (dbs *DBStorage) UpdateReview(ctx context.Context, review models.Review) (models.Review, error) {
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	updated, err := scanReview(dbs.pool.QueryRow(ctx,
		`UPDATE reviews SET rating = $2, content = $3 WHERE rid = $1 RETURNING `+reviewColumns,
		review.RID, review.Rating, review.Content))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Review{}, storerrros.ErrReviewNoExist
		}
		return models.Review{}, err
	}
	return updated, nil
}

func (dbs *DBStorage) DeleteReview(ctx context.Context, rid string) error {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	res, err := dbs.pool.Exec(ctx, `DELETE FROM reviews WHERE rid = $1`, rid)
	if err != nil {
		log.Error().Err(err).Msg("failed to delete review")
		return err
	}
	if res.RowsAffected() == 0 {
		log.Warn().Str("rid", rid).Msg("review not found")
		return storerrros.ErrReviewNoExist
	}
	return nil
}

func (dbs *DBStorage) DeleteReviewsByBook(ctx context.Context, bookID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	res, err := dbs.pool.Exec(ctx, `DELETE FROM reviews WHERE book_id = $1`, bookID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

func Migrations(dbDsn string, migrationsPath string) error {
	log := logger.Get()
	migratePath := fmt.Sprintf("file://%s", migrationsPath)
	m, err := migrate.New(migratePath, dbDsn)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Msg("no migrations apply")
			return nil
		}
		return err
	}
	log.Info().Msg("all migrations apply")
	return nil
}
