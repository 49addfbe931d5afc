package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgaunet/tapbump/pkg/api"
)

// pagedItems serves a fixed collection split into pages of the requested
// per_page size, the way GitHub list endpoints behave.
func pagedItems(total int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if perPage <= 0 || page <= 0 {
			http.Error(w, "missing pagination params", http.StatusBadRequest)
			return
		}

		start := (page - 1) * perPage
		end := start + perPage
		if start > total {
			start = total
		}
		if end > total {
			end = total
		}

		items := make([]map[string]int, 0, end-start)
		for i := start; i < end; i++ {
			items = append(items, map[string]int{"id": i})
		}
		json.NewEncoder(w).Encode(items)
	}
}

func TestPaginateRESTConcatenatesAllPages(t *testing.T) {
	requests := 0
	handler := pagedItems(250)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		handler(w, r)
	}))
	defer server.Close()

	client := newTestClient(server)

	var ids []int
	err := client.PaginateREST(context.Background(), api.Request{
		URL:      server.URL + "/repos/o/r/pulls",
		PageSize: 100,
	}, func(items []json.RawMessage, _ int) error {
		for _, raw := range items {
			var item struct {
				ID int `json:"id"`
			}
			if err := json.Unmarshal(raw, &item); err != nil {
				return err
			}
			ids = append(ids, item.ID)
		}
		return nil
	})
	require.NoError(t, err)

	// 250 items at 100 per page: two full pages plus a short one.
	assert.Equal(t, 3, requests)
	require.Len(t, ids, 250)
	for i, id := range ids {
		assert.Equal(t, i, id)
	}
}

func TestPaginateRESTStopsOnExactPageBoundary(t *testing.T) {
	requests := 0
	handler := pagedItems(200)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		handler(w, r)
	}))
	defer server.Close()

	client := newTestClient(server)

	count := 0
	err := client.PaginateREST(context.Background(), api.Request{
		URL:      server.URL + "/repos/o/r/pulls",
		PageSize: 100,
	}, func(items []json.RawMessage, _ int) error {
		count += len(items)
		return nil
	})
	require.NoError(t, err)

	// Two full pages, then one empty page confirming exhaustion.
	assert.Equal(t, 200, count)
	assert.Equal(t, 3, requests)
}

func TestPaginateRESTEarlyStopIssuesNoFurtherRequests(t *testing.T) {
	requests := 0
	handler := pagedItems(500)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		handler(w, r)
	}))
	defer server.Close()

	client := newTestClient(server)

	err := client.PaginateREST(context.Background(), api.Request{
		URL:      server.URL + "/repos/o/r/pulls",
		PageSize: 100,
	}, func(_ []json.RawMessage, page int) error {
		if page == 1 {
			return api.ErrStopPagination
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, requests, "stopping on the second page must not request a third")
}

func TestPaginateRESTPropagatesCallbackError(t *testing.T) {
	server := httptest.NewServer(pagedItems(500))
	defer server.Close()

	client := newTestClient(server)
	wantErr := fmt.Errorf("bad item on page")
	err := client.PaginateREST(context.Background(), api.Request{
		URL:      server.URL + "/repos/o/r/pulls",
		PageSize: 100,
	}, func(_ []json.RawMessage, _ int) error {
		return wantErr
	})

	assert.ErrorIs(t, err, wantErr)
}

// graphqlPages serves a 3-page cursor traversal; cursors[i] is the endCursor
// the i-th page hands back.
func graphqlPages(t *testing.T, softErrorOnPage int) http.HandlerFunc {
	t.Helper()
	cursors := []string{"cursor-1", "cursor-2", ""}
	return func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Variables map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		page := 0
		if after, ok := payload.Variables["after"].(string); ok && after != "" {
			for i, c := range cursors {
				if c == after {
					page = i + 1
				}
			}
		}

		hasNext := page < len(cursors)-1
		data := fmt.Sprintf(`{
			"repository": {
				"pullRequests": {
					"nodes": [{"number": %d}],
					"pageInfo": {"hasNextPage": %t, "endCursor": %q}
				}
			}
		}`, page+1, hasNext, cursors[page])

		resp := map[string]any{"data": json.RawMessage(data)}
		if page == softErrorOnPage {
			resp["errors"] = []map[string]string{
				{"type": "FORBIDDEN", "message": "some nodes are not visible"},
			}
		}
		json.NewEncoder(w).Encode(resp)
	}
}

type prPage struct {
	Repository struct {
		PullRequests struct {
			Nodes []struct {
				Number int `json:"number"`
			} `json:"nodes"`
			PageInfo api.PageInfo `json:"pageInfo"`
		} `json:"pullRequests"`
	} `json:"repository"`
}

func TestPaginateGraphQLFollowsCursors(t *testing.T) {
	server := httptest.NewServer(graphqlPages(t, -1))
	defer server.Close()

	client := newTestClient(server)

	var numbers []int
	softErrs, err := client.PaginateGraphQL(
		context.Background(),
		`query($after: String) { repository { pullRequests(after: $after) { nodes { number } pageInfo { hasNextPage endCursor } } } }`,
		nil,
		api.GraphQLOptions{},
		func(data json.RawMessage, _ int) (api.PageInfo, error) {
			var page prPage
			if err := json.Unmarshal(data, &page); err != nil {
				return api.PageInfo{}, err
			}
			for _, n := range page.Repository.PullRequests.Nodes {
				numbers = append(numbers, n.Number)
			}
			return page.Repository.PullRequests.PageInfo, nil
		},
	)

	require.NoError(t, err)
	assert.Empty(t, softErrs)
	assert.Equal(t, []int{1, 2, 3}, numbers)
}

func TestPaginateGraphQLSoftErrorsAreCollectedNotFatal(t *testing.T) {
	server := httptest.NewServer(graphqlPages(t, 1))
	defer server.Close()

	client := newTestClient(server)

	pages := 0
	softErrs, err := client.PaginateGraphQL(
		context.Background(),
		`query($after: String) { repository { pullRequests(after: $after) { pageInfo { hasNextPage endCursor } } } }`,
		nil,
		api.GraphQLOptions{SoftErrors: true},
		func(data json.RawMessage, _ int) (api.PageInfo, error) {
			pages++
			var page prPage
			if err := json.Unmarshal(data, &page); err != nil {
				return api.PageInfo{}, err
			}
			return page.Repository.PullRequests.PageInfo, nil
		},
	)

	require.NoError(t, err)
	assert.Equal(t, 3, pages, "a partial page must not end the traversal")
	require.Len(t, softErrs, 1)
	assert.Equal(t, "FORBIDDEN", softErrs[0].Type)
}

func TestPaginateGraphQLPartialFailsWithoutSoftMode(t *testing.T) {
	server := httptest.NewServer(graphqlPages(t, 0))
	defer server.Close()

	client := newTestClient(server)

	_, err := client.PaginateGraphQL(
		context.Background(),
		`query { viewer { login } }`,
		nil,
		api.GraphQLOptions{},
		func(_ json.RawMessage, _ int) (api.PageInfo, error) {
			return api.PageInfo{}, nil
		},
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "partial data")
}
