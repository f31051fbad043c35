package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"accident-pipeline/internal/model"
)

// DefaultPageSize is the page size used when the job does not set one.
const DefaultPageSize = 1000

// Fetcher walks a Socrata-style endpoint with $limit/$offset pagination.
// The loop stops on the first empty page; a non-success status or transport
// failure aborts it, and whatever was accumulated up to that point is
// returned as a partial result with the cause attached.
type Fetcher struct {
	BaseURL     string
	PageSize    int
	StartOffset int
	Client      *http.Client
}

// NewFetcher returns a fetcher with default page size and offset.
func NewFetcher(baseURL string) *Fetcher {
	return &Fetcher{BaseURL: baseURL, PageSize: DefaultPageSize}
}

// FetchAll drains the endpoint and collects every record in memory.
func (f *Fetcher) FetchAll(ctx context.Context) model.FetchResult {
	var all []model.GenericRecord
	res := f.walk(ctx, func(page []model.GenericRecord) bool {
		all = append(all, page...)
		return true
	})
	res.Records = all
	return res
}

// Stream emits records to out page by page as they arrive, so downstream
// stages can process them without holding the whole dataset. The caller owns
// out and decides when to close it.
func (f *Fetcher) Stream(ctx context.Context, out chan<- model.GenericRecord) model.FetchResult {
	return f.walk(ctx, func(page []model.GenericRecord) bool {
		for _, rec := range page {
			select {
			case <-ctx.Done():
				return false
			case out <- rec:
			}
		}
		return true
	})
}

// walk runs the pagination loop. emit is called once per non-empty page and
// returns false to abandon the walk (context cancelled downstream).
func (f *Fetcher) walk(ctx context.Context, emit func([]model.GenericRecord) bool) model.FetchResult {
	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	var res model.FetchResult
	offset := f.StartOffset
	for {
		if err := ctx.Err(); err != nil {
			res.Cause = err
			return res
		}

		page, err := f.fetchPage(ctx, client, pageSize, offset)
		res.Calls++
		if err != nil {
			res.Cause = err
			return res
		}
		if len(page) == 0 {
			// All data retrieved; the only success-path terminal condition.
			res.Complete = true
			return res
		}

		if !emit(page) {
			res.Cause = ctx.Err()
			return res
		}
		res.Pages++
		res.Fetched += len(page)
		offset += pageSize
	}
}

// fetchPage performs one GET and decodes the JSON array body.
func (f *Fetcher) fetchPage(ctx context.Context, client *http.Client, limit, offset int) ([]model.GenericRecord, error) {
	u, err := url.Parse(f.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base URL: %v", ErrTransport, err)
	}
	q := u.Query()
	q.Set("$limit", strconv.Itoa(limit))
	q.Set("$offset", strconv.Itoa(offset))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode, Offset: offset}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	var page []model.GenericRecord
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayload, err)
	}
	return page, nil
}
