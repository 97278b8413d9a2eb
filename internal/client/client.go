// internal/client/client.go
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sony/gobreaker"

	"libradesk/internal/library"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StatusError is returned for any response outside 2xx.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.Code, e.Body)
}

// IsClientError reports whether err is a 4xx answer from the server.
func IsClientError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code >= 400 && se.Code < 500
}

// Client talks to a running libradesk server. Calls pass through a circuit
// breaker that opens after repeated transport or 5xx failures.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

func New(baseURL string, logger *slog.Logger) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "libradesk",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
		// A 4xx is the server working as intended.
		IsSuccessful: func(err error) bool {
			return err == nil || IsClientError(err)
		},
	})
	return c
}

// Ping checks that the server is up.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/ping", nil, nil)
	return err
}

// Borrow lends bookName to memberName and returns the server's message.
func (c *Client) Borrow(ctx context.Context, bookName, memberName string) (string, error) {
	return c.text(ctx, http.MethodPost, "/borrowing/borrow", loanQuery(bookName, memberName))
}

// Return closes the member's open loan of bookName.
func (c *Client) Return(ctx context.Context, bookName, memberName string) (string, error) {
	return c.text(ctx, http.MethodPost, "/borrowing/return", loanQuery(bookName, memberName))
}

func (c *Client) GetBook(ctx context.Context, title string) (library.Book, error) {
	var book library.Book
	body, err := c.do(ctx, http.MethodGet, "/books/"+url.PathEscape(title), nil, nil)
	if err != nil {
		return book, err
	}
	if err := json.Unmarshal(body, &book); err != nil {
		return book, fmt.Errorf("failed to decode book: %w", err)
	}
	return book, nil
}

func (c *Client) AddBook(ctx context.Context, book library.Book) (string, error) {
	return c.send(ctx, http.MethodPost, "/books/add", book)
}

func (c *Client) AddMember(ctx context.Context, member library.Member) (string, error) {
	return c.send(ctx, http.MethodPost, "/members/add", member)
}

// CurrentlyBorrowed fetches open loans due after asOf.
func (c *Client) CurrentlyBorrowed(ctx context.Context, asOf time.Time) ([]library.Loan, error) {
	q := url.Values{"currentDate": {asOf.Format("2006-01-02")}}
	return c.loans(ctx, "/borrowing/report/currently-borrowed", q)
}

// Overdue fetches open loans past their due date.
func (c *Client) Overdue(ctx context.Context) ([]library.Loan, error) {
	return c.loans(ctx, "/borrowing/report/overdue", nil)
}

func (c *Client) loans(ctx context.Context, path string, q url.Values) ([]library.Loan, error) {
	body, err := c.do(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return nil, err
	}
	var loans []library.Loan
	if err := json.Unmarshal(body, &loans); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return loans, nil
}

func (c *Client) send(ctx context.Context, method, path string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}
	body, err := c.do(ctx, method, path, nil, data)
	return string(body), err
}

func (c *Client) text(ctx context.Context, method, path string, q url.Values) (string, error) {
	body, err := c.do(ctx, method, path, q, nil)
	return string(body), err
}

// do runs one request through the breaker and returns the response body.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, payload []byte) ([]byte, error) {
	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return body, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}
		return body, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return out.([]byte), nil
}

func loanQuery(bookName, memberName string) url.Values {
	return url.Values{"bookName": {bookName}, "memberName": {memberName}}
}
