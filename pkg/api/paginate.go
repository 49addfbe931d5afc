package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// ErrStopPagination is the sentinel a page callback returns to end a
// traversal early. The driver swallows it and returns success.
var ErrStopPagination = errors.New("stop pagination")

// PageInfo drives cursor-based continuation. Once HasNextPage is false the
// traversal terminates regardless of how many items were accumulated.
type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// RESTPageFunc receives one page of items and its zero-based index.
// Returning ErrStopPagination ends the traversal without error; any other
// error aborts it and propagates.
type RESTPageFunc func(items []json.RawMessage, page int) error

// PaginateREST issues successive requests for a REST collection endpoint,
// adding page and per_page query parameters, until a page comes back shorter
// than the page size or the callback stops the traversal. The cursor is
// monotonic: no page is requested twice.
func (c *Client) PaginateREST(ctx context.Context, req Request, onPage RESTPageFunc) error {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	base, err := url.Parse(req.URL)
	if err != nil {
		return fmt.Errorf("%w: %q", errURLNotAbsolute, req.URL)
	}

	for page := 0; ; page++ {
		q := base.Query()
		q.Set("per_page", strconv.Itoa(pageSize))
		q.Set("page", strconv.Itoa(page+1))
		base.RawQuery = q.Encode()

		pageReq := req
		pageReq.URL = base.String()
		resp, err := c.Do(ctx, pageReq)
		if err != nil {
			return err
		}

		var items []json.RawMessage
		if err := resp.Decode(&items); err != nil {
			return err
		}

		if err := onPage(items, page); err != nil {
			if errors.Is(err, ErrStopPagination) {
				return nil
			}
			return err
		}

		// A short page means the collection is exhausted.
		if len(items) < pageSize {
			return nil
		}
	}
}

// GraphQLPageFunc receives one page's data and its zero-based index, and
// returns the PageInfo extracted from that data. Returning ErrStopPagination
// ends the traversal without error.
type GraphQLPageFunc func(data json.RawMessage, page int) (PageInfo, error)

// GraphQLOptions configures a GraphQL traversal.
type GraphQLOptions struct {
	Scopes []string

	// SoftErrors keeps the traversal going when a response carries both data
	// and errors. The collected errors are returned for the caller to
	// surface only if its accumulated result set ends up empty.
	SoftErrors bool
}

// PaginateGraphQL issues successive GraphQL queries, substituting the end
// cursor into the "after" variable on each call, until PageInfo reports no
// next page or the callback stops the traversal.
func (c *Client) PaginateGraphQL(
	ctx context.Context,
	query string,
	variables map[string]any,
	opts GraphQLOptions,
	onPage GraphQLPageFunc,
) ([]GraphQLError, error) {
	vars := make(map[string]any, len(variables)+1)
	for k, v := range variables {
		vars[k] = v
	}
	vars["after"] = nil

	var collected []GraphQLError
	for page := 0; ; page++ {
		resp, err := c.GraphQL(ctx, query, vars, opts.Scopes)
		if err != nil {
			return collected, err
		}

		if resp.Partial() {
			if !opts.SoftErrors {
				return collected, fmt.Errorf("graphql query returned partial data: %s", joinGraphQLErrors(resp.Errors))
			}
			collected = append(collected, resp.Errors...)
		}

		info, err := onPage(resp.Data, page)
		if err != nil {
			if errors.Is(err, ErrStopPagination) {
				return collected, nil
			}
			return collected, err
		}

		if !info.HasNextPage || info.EndCursor == "" {
			return collected, nil
		}
		vars["after"] = info.EndCursor
	}
}
