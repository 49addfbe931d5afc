package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// GraphQLError is one entry of a GraphQL response's errors list. Type carries
// the server's structured error code (NOT_FOUND, FORBIDDEN, ...) so callers
// classify without matching message text.
type GraphQLError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

func (e GraphQLError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("graphql: %s: %s", e.Type, e.Message)
	}
	return "graphql: " + e.Message
}

// GraphQLResponse is the {data, errors} envelope of a GraphQL call.
type GraphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors,omitempty"`
}

// Partial reports whether the response carries both data and errors. This
// happens when some nodes are inaccessible, for example due to organization
// privacy settings, while the rest of the result is fine.
func (r *GraphQLResponse) Partial() bool {
	return len(r.Errors) > 0 && len(r.Data) > 0 && string(r.Data) != "null"
}

type graphQLPayload struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// GraphQL posts one query to the GraphQL endpoint. A response whose errors
// list is non-empty and whose data is absent is a hard failure; a partial
// response (data plus errors) is returned as-is for the caller to judge.
func (c *Client) GraphQL(ctx context.Context, query string, variables map[string]any, scopes []string) (*GraphQLResponse, error) {
	resp, err := c.Do(ctx, Request{
		URL:      c.graphqlURL,
		Method:   http.MethodPost,
		Body:     graphQLPayload{Query: query, Variables: variables},
		Scopes:   scopes,
		Resource: "graphql",
	})
	if err != nil {
		return nil, err
	}

	var out GraphQLResponse
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}

	if len(out.Errors) > 0 && !out.Partial() {
		return nil, fmt.Errorf("graphql query failed: %s", joinGraphQLErrors(out.Errors))
	}

	return &out, nil
}

func joinGraphQLErrors(errs []GraphQLError) string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}
