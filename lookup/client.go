package lookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/library-circulation-go/library"
)

const (
	// DefaultBaseURL is the Google Books volumes endpoint.
	DefaultBaseURL = "https://www.googleapis.com/books/v1/volumes"

	// DefaultTimeout bounds a single lookup including reading the response.
	DefaultTimeout = 10 * time.Second

	defaultAuthor = "Unknown Author"
	defaultGenre  = "General"
	defaultTitle  = "No Title"

	maxResponseBytes = 1 << 20
)

const (
	logMsgLookupStarted   = "bibliographic lookup started"
	logMsgLookupCompleted = "bibliographic lookup completed"
	logMsgLookupFailed    = "bibliographic lookup failed"
	logAttrISBN           = "isbn"
	logAttrFound          = "found"
	logAttrStatusCode     = "status_code"
	logAttrDurationMS     = "duration_ms"
	logAttrError          = "error"
)

// ErrRateLimited is joined with library.ErrUpstreamUnavailable when the API answered 429.
var ErrRateLimited = errors.New("bibliographic lookup was rate-limited")

// ErrUnexpectedStatus is joined with library.ErrUpstreamUnavailable for any other non-200 answer.
var ErrUnexpectedStatus = errors.New("bibliographic lookup returned an unexpected status")

// ErrNonNumericISBN is joined with library.ErrInvalidInput when the identifier is not digits only.
var ErrNonNumericISBN = errors.New("isbn must contain digits only")

// Result is the bibliographic data of one book. Found is false when the API knows no volume for the ISBN.
type Result struct {
	ISBN   library.ISBN
	Title  string
	Author string
	Pages  int
	Genre  string
	Found  bool
}

// ToBook converts a found Result into a new, available catalog entry.
func (r Result) ToBook() (library.Book, error) {
	return library.BuildBook(r.ISBN, r.Title, r.Author, r.Pages, r.Genre)
}

// Option defines a functional option for configuring the Client.
type Option func(*Client) error

// WithBaseURL overrides the volumes endpoint, e.g. for a proxy or a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) error {
		if _, err := url.ParseRequestURI(baseURL); err != nil {
			return errors.Join(library.ErrInvalidInput, err)
		}

		c.baseURL = baseURL

		return nil
	}
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = httpClient
		return nil
	}
}

// WithAPIKey adds the Google API key to every request.
func WithAPIKey(apiKey string) Option {
	return func(c *Client) error {
		c.apiKey = apiKey
		return nil
	}
}

// WithLogger sets the logger for the Client.
func WithLogger(logger library.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

// Client queries the Google Books API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     library.Logger
}

// NewClient creates a Client with the default endpoint and timeout.
func NewClient(options ...Option) (*Client, error) {
	client := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	for _, option := range options {
		if err := option(client); err != nil {
			return nil, err
		}
	}

	return client, nil
}

type volumesResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo volumeInfo `json:"volumeInfo"`
	} `json:"items"`
}

type volumeInfo struct {
	Title      string   `json:"title"`
	Authors    []string `json:"authors"`
	PageCount  int      `json:"pageCount"`
	Categories []string `json:"categories"`
}

// Lookup fetches the bibliographic data for a normalized, digits-only ISBN.
//
// Errors:
//   - library.ErrInvalidInput for identifiers that are empty or not numeric
//   - library.ErrUpstreamUnavailable joined with ErrRateLimited for HTTP 429
//   - library.ErrUpstreamUnavailable for transport errors, other statuses, and undecodable answers
//
// A volume that is simply unknown is not an error, it yields Result.Found == false.
func (c *Client) Lookup(ctx context.Context, rawISBN string) (Result, error) {
	isbn, err := library.NormalizeISBN(rawISBN)
	if err != nil {
		return Result{}, errors.Join(library.ErrInvalidInput, err)
	}

	if !library.IsNumericISBN(isbn) {
		return Result{}, errors.Join(library.ErrInvalidInput, ErrNonNumericISBN)
	}

	c.logDebug(logMsgLookupStarted, logAttrISBN, isbn)
	start := time.Now()

	result, statusCode, err := c.fetch(ctx, isbn)
	if err != nil {
		c.logWarn(logMsgLookupFailed, logAttrISBN, isbn, logAttrStatusCode, statusCode, logAttrError, err.Error())
		return Result{}, err
	}

	c.logInfo(logMsgLookupCompleted,
		logAttrISBN, isbn,
		logAttrFound, result.Found,
		logAttrDurationMS, float64(time.Since(start).Nanoseconds())/1e6,
	)

	return result, nil
}

func (c *Client) fetch(ctx context.Context, isbn library.ISBN) (Result, int, error) {
	query := url.Values{}
	query.Set("q", "isbn:"+isbn)
	if c.apiKey != "" {
		query.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return Result{}, 0, errors.Join(library.ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, 0, errors.Join(library.ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return Result{}, resp.StatusCode, errors.Join(library.ErrUpstreamUnavailable, ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return Result{}, resp.StatusCode, errors.Join(
			library.ErrUpstreamUnavailable,
			fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode),
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, resp.StatusCode, errors.Join(library.ErrUpstreamUnavailable, err)
	}

	var volumes volumesResponse
	if err = jsoniter.ConfigFastest.Unmarshal(body, &volumes); err != nil {
		return Result{}, resp.StatusCode, errors.Join(library.ErrUpstreamUnavailable, err)
	}

	return resultFrom(isbn, volumes), resp.StatusCode, nil
}

func resultFrom(isbn library.ISBN, volumes volumesResponse) Result {
	if volumes.TotalItems == 0 || len(volumes.Items) == 0 {
		return Result{ISBN: isbn, Found: false}
	}

	info := volumes.Items[0].VolumeInfo

	result := Result{
		ISBN:   isbn,
		Title:  info.Title,
		Author: strings.Join(info.Authors, ", "),
		Pages:  max(0, info.PageCount),
		Genre:  defaultGenre,
		Found:  true,
	}

	if result.Title == "" {
		result.Title = defaultTitle
	}

	if result.Author == "" {
		result.Author = defaultAuthor
	}

	if len(info.Categories) > 0 && info.Categories[0] != "" {
		result.Genre = info.Categories[0]
	}

	return result
}

func (c *Client) logDebug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Client) logInfo(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Client) logWarn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
