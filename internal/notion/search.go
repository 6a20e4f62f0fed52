package notion

import (
	"context"
	"net/http"
	"sort"

	"github.com/roach88/notiondb/internal/remote"
)

type searchRequest struct {
	Filter      searchFilter `json:"filter"`
	PageSize    int          `json:"page_size"`
	StartCursor string       `json:"start_cursor,omitempty"`
}

type searchFilter struct {
	Value    string `json:"value"`
	Property string `json:"property"`
}

type searchResponse struct {
	Results []struct {
		ID             string                   `json:"id"`
		CreatedBy      *remote.UserRef          `json:"created_by"`
		LastEditedBy   *remote.UserRef          `json:"last_edited_by"`
		LastEditedTime string                   `json:"last_edited_time"`
		Title          []remote.RichText        `json:"title"`
		Description    []remote.RichText        `json:"description"`
		Properties     map[string]remote.Column `json:"properties"`
	} `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

// SearchDatabases calls POST /v1/search restricted to databases.
func (c *Client) SearchDatabases(ctx context.Context, cursor string, pageSize int) (*remote.DatabaseList, error) {
	req := searchRequest{
		Filter:      searchFilter{Value: "database", Property: "object"},
		PageSize:    pageSize,
		StartCursor: cursor,
	}

	var resp searchResponse
	if err := c.do(ctx, http.MethodPost, "/v1/search", req, &resp); err != nil {
		return nil, err
	}

	out := &remote.DatabaseList{
		Results:    make([]remote.DatabaseInfo, 0, len(resp.Results)),
		HasMore:    resp.HasMore,
		NextCursor: resp.NextCursor,
	}
	for _, r := range resp.Results {
		props := make([]string, 0, len(r.Properties))
		for name := range r.Properties {
			props = append(props, name)
		}
		sort.Strings(props)

		out.Results = append(out.Results, remote.DatabaseInfo{
			ID:             r.ID,
			Title:          remote.PlainText(r.Title),
			Description:    remote.PlainText(r.Description),
			CreatedBy:      r.CreatedBy,
			LastEditedBy:   r.LastEditedBy,
			LastEditedTime: r.LastEditedTime,
			Properties:     props,
		})
	}
	return out, nil
}
