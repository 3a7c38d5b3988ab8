package storage

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"github.com/azaliaz/bookverse/internal/domain/consts"
	"github.com/azaliaz/bookverse/internal/domain/models"
	"github.com/azaliaz/bookverse/internal/logger"
	storerrros "github.com/azaliaz/bookverse/internal/storage/errors"
)

const (
	usersCollection   = "users"
	booksCollection   = "books"
	reviewsCollection = "reviews"
)

// MongoStorage keeps users, books and reviews as documents, one collection
// each. Document ids are uuid strings, like every other backend.
type MongoStorage struct {
	client  *mongo.Client
	users   *mongo.Collection
	books   *mongo.Collection
	reviews *mongo.Collection
}

func NewMongo(ctx context.Context, uri, dbName string) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	db := client.Database(dbName)
	return &MongoStorage{
		client:  client,
		users:   db.Collection(usersCollection),
		books:   db.Collection(booksCollection),
		reviews: db.Collection(reviewsCollection),
	}, nil
}

// EnsureIndexes is the document-store counterpart of Migrations.
func (mgs *MongoStorage) EnsureIndexes(ctx context.Context) error {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	_, err := mgs.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return err
	}
	_, err = mgs.books.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "createdAt", Value: -1}}})
	if err != nil {
		return err
	}
	_, err = mgs.reviews.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "bookId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return err
	}
	log.Info().Msg("mongo indexes ensured")
	return nil
}

func (mgs *MongoStorage) Close(ctx context.Context) error {
	return mgs.client.Disconnect(ctx)
}

func (mgs *MongoStorage) SaveUser(ctx context.Context, user models.User) (models.User, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	var existing models.User
	err := mgs.users.FindOne(ctx, bson.M{"$or": bson.A{
		bson.M{"email": user.Email},
		bson.M{"username": user.Username},
	}}).Decode(&existing)
	switch {
	case err == nil && existing.Email == user.Email:
		return models.User{}, storerrros.ErrEmailTaken
	case err == nil:
		return models.User{}, storerrros.ErrUsernameTaken
	case !errors.Is(err, mongo.ErrNoDocuments):
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
	if _, err = mgs.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), "username") {
				return models.User{}, storerrros.ErrUsernameTaken
			}
			return models.User{}, storerrros.ErrEmailTaken
		}
		log.Error().Err(err).Msg("failed to insert user")
		return models.User{}, err
	}
	return user, nil
}

func (mgs *MongoStorage) ValidUser(ctx context.Context, email, pass string) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	var usr models.User
	if err := mgs.users.FindOne(ctx, bson.M{"email": email}).Decode(&usr); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, storerrros.ErrUserNoExist
		}
		return models.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(usr.Pass), []byte(pass)); err != nil {
		return models.User{}, storerrros.ErrInvalidPassword
	}
	return usr, nil
}

func (mgs *MongoStorage) GetUser(ctx context.Context, uid string) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	var usr models.User
	if err := mgs.users.FindOne(ctx, bson.M{"_id": uid}).Decode(&usr); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, storerrros.ErrUserNotFound
		}
		return models.User{}, err
	}
	return usr, nil
}

func (mgs *MongoStorage) SaveBook(ctx context.Context, book models.Book) (models.Book, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	book.BID = uuid.New().String()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = time.Now().UTC()
		book.UpdatedAt = book.CreatedAt
	}
	if _, err := mgs.books.InsertOne(ctx, book); err != nil {
		log.Error().Err(err).Msg("save book failed")
		return models.Book{}, err
	}
	return book, nil
}

func (mgs *MongoStorage) GetBooks(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	query, opts := booksFind(filter)
	cur, err := mgs.books.Find(ctx, query, opts)
	if err != nil {
		log.Error().Err(err).Msg("failed to get books from db")
		return nil, err
	}
	books := make([]models.Book, 0)
	if err = cur.All(ctx, &books); err != nil {
		log.Error().Err(err).Msg("failed to decode books")
		return nil, err
	}
	return books, nil
}

func booksFind(filter models.BookFilter) (bson.M, *options.FindOptions) {
	query := bson.M{}
	if filter.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		query["$or"] = bson.A{bson.M{"title": re}, bson.M{"author": re}}
	}
	if len(filter.Genres) > 0 {
		genres := make(bson.A, 0, len(filter.Genres))
		for _, g := range filter.Genres {
			genres = append(genres, primitive.Regex{Pattern: "^" + regexp.QuoteMeta(g) + "$", Options: "i"})
		}
		query["genre"] = bson.M{"$in": genres}
	}

	opts := options.Find()
	switch filter.SortBy {
	case models.SortRating:
		opts.SetSort(bson.D{{Key: "rating", Value: -1}, {Key: "_id", Value: 1}})
	case models.SortTitle:
		opts.SetSort(bson.D{{Key: "title", Value: 1}, {Key: "_id", Value: 1}})
		opts.SetCollation(&options.Collation{Locale: "en", Strength: 2})
	default:
		opts.SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	}
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}
	return query, opts
}

func (mgs *MongoStorage) GetBook(ctx context.Context, bid string) (models.Book, error) {
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	var book models.Book
	if err := mgs.books.FindOne(ctx, bson.M{"_id": bid}).Decode(&book); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Book{}, storerrros.ErrBookNoExist
		}
		return models.Book{}, err
	}
	return book, nil
}

func (mgs *MongoStorage) UpdateBook(ctx context.Context, book models.Book) (models.Book, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	set := bson.M{
		"title":         book.Title,
		"author":        book.Author,
		"genre":         book.Genre,
		"description":   book.Description,
		"coverImage":    book.CoverImage,
		"readingStatus": book.ReadingStatus,
		"progress":      book.Progress,
		"startedDate":   book.StartedDate,
		"completedDate": book.CompletedDate,
		"updatedAt":     book.UpdatedAt,
	}
	var updated models.Book
	err := mgs.books.FindOneAndUpdate(ctx, bson.M{"_id": book.BID}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Book{}, storerrros.ErrBookNoExist
		}
		log.Error().Err(err).Msg("update book failed")
		return models.Book{}, err
	}
	return updated, nil
}

func (mgs *MongoStorage) SetBookRating(ctx context.Context, bid string, rating float64) error {
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	res, err := mgs.books.UpdateOne(ctx, bson.M{"_id": bid}, bson.M{"$set": bson.M{"rating": rating}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return storerrros.ErrBookNoExist
	}
	return nil
}

func (mgs *MongoStorage) DeleteBook(ctx context.Context, bid string) error {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	res, err := mgs.books.DeleteOne(ctx, bson.M{"_id": bid})
	if err != nil {
		log.Error().Err(err).Msg("failed to delete book")
		return err
	}
	if res.DeletedCount == 0 {
		log.Warn().Str("bid", bid).Msg("book not found")
		return storerrros.ErrBookNoExist
	}
	log.Info().Str("bid", bid).Msg("book deleted successfully")
	return nil
}

func (mgs *MongoStorage) SaveReview(ctx context.Context, review models.Review) (models.Review, error) {
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	review.RID = uuid.New().String()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	if _, err := mgs.reviews.InsertOne(ctx, review); err != nil {
		return models.Review{}, err
	}
	return review, nil
}

func (mgs *MongoStorage) GetReviews(ctx context.Context, bookID string) ([]models.Review, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	query := bson.M{}
	if bookID != "" {
		query["bookId"] = bookID
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := mgs.reviews.Find(ctx, query, opts)
	if err != nil {
		log.Error().Err(err).Msg("failed to get reviews")
		return nil, err
	}
	reviews := make([]models.Review, 0)
	if err = cur.All(ctx, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (mgs *MongoStorage) GetReview(ctx context.Context, rid string) (models.Review, error) {
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	var review models.Review
	if err := mgs.reviews.FindOne(ctx, bson.M{"_id": rid}).Decode(&review); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Review{}, storerrros.ErrReviewNoExist
		}
		return models.Review{}, err
	}
	return review, nil
}

func (mgs *MongoStorage) UpdateReview(ctx context.Context, review models.Review) (models.Review, error) {
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	var updated models.Review
	err := mgs.reviews.FindOneAndUpdate(ctx, bson.M{"_id": review.RID},
		bson.M{"$set": bson.M{"rating": review.Rating, "content": review.Content}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Review{}, storerrros.ErrReviewNoExist
		}
		return models.Review{}, err
	}
	return updated, nil
}

func (mgs *MongoStorage) DeleteReview(ctx context.Context, rid string) error {
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	res, err := mgs.reviews.DeleteOne(ctx, bson.M{"_id": rid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return storerrros.ErrReviewNoExist
	}
	return nil
}

func (mgs *MongoStorage) DeleteReviewsByBook(ctx context.Context, bookID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, consts.DBCtxTimeout)
	defer cancel()

	res, err := mgs.reviews.DeleteMany(ctx, bson.M{"bookId": bookID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
