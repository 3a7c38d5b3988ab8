// Package client is a Go client for the BookVerse REST API.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/azaliaz/bookverse/internal/domain/models"
	"github.com/azaliaz/bookverse/internal/logger"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bookverse: %d %s", e.Status, e.Message)
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type AuthResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    User   `json:"user"`
}

type Message struct {
	Message string `json:"message"`
}

type NewBook struct {
	Title         string                `json:"title"`
	Author        string                `json:"author"`
	Genre         string                `json:"genre,omitempty"`
	Description   string                `json:"description,omitempty"`
	CoverImage    string                `json:"coverImage,omitempty"`
	ReadingStatus *models.ReadingStatus `json:"readingStatus,omitempty"`
	Progress      *models.Progress      `json:"progress,omitempty"`
}

// Client keeps the bearer token handed out by Register or Login and sends
// it with every later call.
type Client struct {
	http *resty.Client
}

func New(baseURL string) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetHeader("Accept", "application/json")
	return &Client{http: rc}
}

func (c *Client) SetToken(token string) { c.http.SetAuthToken(token) }

func (c *Client) Token() string { return c.http.Token }

func (c *Client) Register(ctx context.Context, username, email, password string) (AuthResponse, error) {
	body := map[string]string{"username": username, "email": email, "password": password}
	resp, err := do[AuthResponse](ctx, c, http.MethodPost, "/api/auth/register", body, nil)
	if err != nil {
		return AuthResponse{}, err
	}
	c.SetToken(resp.Token)
	return resp, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	body := map[string]string{"email": email, "password": password}
	resp, err := do[AuthResponse](ctx, c, http.MethodPost, "/api/auth/login", body, nil)
	if err != nil {
		return AuthResponse{}, err
	}
	c.SetToken(resp.Token)
	return resp, nil
}

func (c *Client) Me(ctx context.Context) (models.User, error) {
	return do[models.User](ctx, c, http.MethodGet, "/api/auth/me", nil, nil)
}

func (c *Client) Books(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	q := url.Values{}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	for _, g := range filter.Genres {
		q.Add("genre", g)
	}
	if filter.SortBy != "" {
		q.Set("sort_by", string(filter.SortBy))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}
	return do[[]models.Book](ctx, c, http.MethodGet, "/api/books", nil, q)
}

func (c *Client) Book(ctx context.Context, id string) (models.Book, error) {
	return do[models.Book](ctx, c, http.MethodGet, "/api/books/"+url.PathEscape(id), nil, nil)
}

func (c *Client) AddBook(ctx context.Context, book NewBook) (models.Book, error) {
	return do[models.Book](ctx, c, http.MethodPost, "/api/books", book, nil)
}

func (c *Client) UpdateBook(ctx context.Context, id string, patch models.BookPatch) (models.Book, error) {
	return do[models.Book](ctx, c, http.MethodPut, "/api/books/"+url.PathEscape(id), patch, nil)
}

func (c *Client) UpdateProgress(ctx context.Context, id string, patch models.ProgressPatch) (models.Book, error) {
	return do[models.Book](ctx, c, http.MethodPatch, "/api/books/"+url.PathEscape(id)+"/progress", patch, nil)
}

// DeleteBook is best effort: a failure is logged and reported as a nil
// message with a nil error.
func (c *Client) DeleteBook(ctx context.Context, id string) (*Message, error) {
	msg, err := do[Message](ctx, c, http.MethodDelete, "/api/books/"+url.PathEscape(id), nil, nil)
	if err != nil {
		log := logger.Get()
		log.Warn().Err(err).Str("bid", id).Msg("delete book failed")
		return nil, nil //nolint:nilerr // callers only refresh their list
	}
	return &msg, nil
}

func (c *Client) Reviews(ctx context.Context, bookID string) ([]models.Review, error) {
	q := url.Values{}
	if bookID != "" {
		q.Set("bookId", bookID)
	}
	return do[[]models.Review](ctx, c, http.MethodGet, "/api/reviews", nil, q)
}

func (c *Client) AddReview(ctx context.Context, bookID string, rating int, content string) (models.Review, error) {
	body := map[string]any{"bookId": bookID, "rating": rating, "content": content}
	return do[models.Review](ctx, c, http.MethodPost, "/api/reviews", body, nil)
}

func (c *Client) UpdateReview(ctx context.Context, id string, patch models.ReviewPatch) (models.Review, error) {
	return do[models.Review](ctx, c, http.MethodPut, "/api/reviews/"+url.PathEscape(id), patch, nil)
}

func (c *Client) DeleteReview(ctx context.Context, id string) error {
	_, err := do[Message](ctx, c, http.MethodDelete, "/api/reviews/"+url.PathEscape(id), nil, nil)
	return err
}

func do[T any](ctx context.Context, c *Client, method, path string, body any, query url.Values) (T, error) {
	var (
		out    T
		apiErr APIError
	)
	req := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiErr)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return out, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode())
		}
		return out, &apiErr
	}
	return out, nil
}
