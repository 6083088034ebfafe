// Package identity resolves enterprise group membership against the
// enterprise API so reports can be restricted to one learner group.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ignite/learner-analytics/internal/config"
	"github.com/ignite/learner-analytics/internal/pkg/httpretry"
	"github.com/ignite/learner-analytics/internal/pkg/logger"
)

var (
	ErrGroupNotFound = errors.New("enterprise group not found")
	ErrAPI           = errors.New("enterprise api error")
)

// GroupResolver lists the enterprise user ids that belong to a group.
type GroupResolver interface {
	GroupLearners(ctx context.Context, enterpriseID, groupID uuid.UUID) ([]int64, error)
}

// Client calls the enterprise API with OAuth2 client-credentials tokens.
type Client struct {
	baseURL  string
	http     *http.Client
	pageSize int
}

// NewClient builds a Client whose token and API requests both go through a
// retrying transport.
func NewClient(ctx context.Context, cfg config.EnterpriseAPIConfig) *Client {
	base := &http.Client{
		Timeout:   cfg.Timeout(),
		Transport: httpretry.NewTransport(nil, cfg.MaxRetries),
	}
	creds := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	httpClient := creds.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
	httpClient.Timeout = cfg.Timeout()
	return NewClientWithHTTP(cfg.BaseURL, httpClient)
}

// NewClientWithHTTP uses an already authenticated client.
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     httpClient,
		pageSize: 100,
	}
}

type groupResponse struct {
	UUID               uuid.UUID `json:"uuid"`
	EnterpriseCustomer uuid.UUID `json:"enterprise_customer"`
}

type learnersPage struct {
	Next    *string `json:"next"`
	Results []struct {
		LearnerID *int64 `json:"learner_id"`
	} `json:"results"`
}

// GroupLearners returns the sorted, distinct enterprise user ids of the
// group's active members. Pending invitations have no user id and are
// skipped. A group owned by another enterprise reads as not found.
func (c *Client) GroupLearners(ctx context.Context, enterpriseID, groupID uuid.UUID) ([]int64, error) {
	var group groupResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/enterprise-group/%s/", c.baseURL, groupID), &group); err != nil {
		return nil, err
	}
	if group.EnterpriseCustomer != enterpriseID {
		return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
	}

	next := fmt.Sprintf("%s/enterprise-group/%s/learners/?%s", c.baseURL, groupID,
		url.Values{"page_size": {fmt.Sprint(c.pageSize)}}.Encode())
	var ids []int64
	for pages := 0; next != ""; pages++ {
		var page learnersPage
		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, err
		}
		for _, r := range page.Results {
			if r.LearnerID != nil {
				ids = append(ids, *r.LearnerID)
			}
		}
		next = lo.FromPtr(page.Next)
		logger.Debug("group learners page", "group", groupID.String(), "page", pages+1, "learners", len(ids))
	}

	ids = lo.Uniq(ids)
	slices.Sort(ids)
	return ids, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAPI, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrGroupNotFound, req.URL.Path)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s returned %d: %s", ErrAPI, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}
