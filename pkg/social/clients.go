package social

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/go-resty/resty/v2"
)

// AccountInfo describes the account behind an access token.
type AccountInfo struct {
	ID        string
	Name      string
	Followers int
}

// Published identifies a post created on a platform.
type Published struct {
	ID  string
	URL string
}

// PlatformClient talks to the API of one social network.
type PlatformClient interface {
	Profile(ctx context.Context, token string) (*AccountInfo, error)
	Publish(ctx context.Context, account *domain.SocialAccount, token, text string, mediaURLs []string) (*Published, error)
}

func newRestClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json")
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

func (e *apiError) String() string {
	switch {
	case e.Error.Message != "":
		return e.Error.Message
	case e.Detail != "":
		return e.Detail
	}
	return e.Message
}

// FacebookClient publishes to a Facebook page feed through the Graph API.
type FacebookClient struct {
	client *resty.Client
}

// NewFacebookClient creates a Graph API client. An empty baseURL uses graph.facebook.com.
func NewFacebookClient(baseURL string) *FacebookClient {
	if baseURL == "" {
		baseURL = "https://graph.facebook.com/v18.0"
	}
	return &FacebookClient{client: newRestClient(baseURL)}
}

func (c *FacebookClient) Profile(ctx context.Context, token string) (*AccountInfo, error) {
	var (
		result struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		apiErr apiError
	)
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"fields": "id,name", "access_token": token}).
		SetResult(&result).
		SetError(&apiErr).
		Get("/me")
	if err != nil {
		return nil, fmt.Errorf("facebook request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("facebook: status %d: %s", resp.StatusCode(), apiErr.String())
	}
	return &AccountInfo{ID: result.ID, Name: result.Name}, nil
}

func (c *FacebookClient) Publish(ctx context.Context, account *domain.SocialAccount, token, text string, mediaURLs []string) (*Published, error) {
	body := map[string]string{"message": text, "access_token": token}
	if len(mediaURLs) > 0 {
		body["link"] = mediaURLs[0]
	}
	var (
		result struct {
			ID string `json:"id"`
		}
		apiErr apiError
	)
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("page", account.AccountID).
		SetBody(body).
		SetResult(&result).
		SetError(&apiErr).
		Post("/{page}/feed")
	if err != nil {
		return nil, fmt.Errorf("facebook request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("facebook: status %d: %s", resp.StatusCode(), apiErr.String())
	}
	return &Published{ID: result.ID, URL: "https://facebook.com/" + result.ID}, nil
}

// LinkedInClient shares member posts through the LinkedIn REST API.
type LinkedInClient struct {
	client *resty.Client
}

// NewLinkedInClient creates a LinkedIn client. An empty baseURL uses api.linkedin.com.
func NewLinkedInClient(baseURL string) *LinkedInClient {
	if baseURL == "" {
		baseURL = "https://api.linkedin.com"
	}
	client := newRestClient(baseURL).SetHeader("X-Restli-Protocol-Version", "2.0.0")
	return &LinkedInClient{client: client}
}

func (c *LinkedInClient) Profile(ctx context.Context, token string) (*AccountInfo, error) {
	var (
		result struct {
			Sub  string `json:"sub"`
			Name string `json:"name"`
		}
		apiErr apiError
	)
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&result).
		SetError(&apiErr).
		Get("/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("linkedin request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("linkedin: status %d: %s", resp.StatusCode(), apiErr.String())
	}
	return &AccountInfo{ID: result.Sub, Name: result.Name}, nil
}

type liShare struct {
	Author          string         `json:"author"`
	LifecycleState  string         `json:"lifecycleState"`
	SpecificContent map[string]any `json:"specificContent"`
	Visibility      map[string]any `json:"visibility"`
}

func (c *LinkedInClient) Publish(ctx context.Context, account *domain.SocialAccount, token, text string, _ []string) (*Published, error) {
	share := liShare{
		Author:         "urn:li:person:" + account.AccountID,
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]string{"text": text},
				"shareMediaCategory": "NONE",
			},
		},
		Visibility: map[string]any{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}
	var (
		result struct {
			ID string `json:"id"`
		}
		apiErr apiError
	)
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(share).
		SetResult(&result).
		SetError(&apiErr).
		Post("/v2/ugcPosts")
	if err != nil {
		return nil, fmt.Errorf("linkedin request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("linkedin: status %d: %s", resp.StatusCode(), apiErr.String())
	}
	id := result.ID
	if id == "" {
		id = resp.Header().Get("X-Restli-Id")
	}
	return &Published{ID: id, URL: "https://www.linkedin.com/feed/update/" + id}, nil
}

// TwitterClient posts tweets through the X API v2.
type TwitterClient struct {
	client *resty.Client
}

// NewTwitterClient creates an X API client. An empty baseURL uses api.twitter.com.
func NewTwitterClient(baseURL string) *TwitterClient {
	if baseURL == "" {
		baseURL = "https://api.twitter.com"
	}
	return &TwitterClient{client: newRestClient(baseURL)}
}

type twUser struct {
	Data struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		PublicMetrics struct {
			Followers int `json:"followers_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

func (c *TwitterClient) Profile(ctx context.Context, token string) (*AccountInfo, error) {
	var (
		result twUser
		apiErr apiError
	)
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("user.fields", "public_metrics").
		SetResult(&result).
		SetError(&apiErr).
		Get("/2/users/me")
	if err != nil {
		return nil, fmt.Errorf("twitter request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("twitter: status %d: %s", resp.StatusCode(), apiErr.String())
	}
	return &AccountInfo{
		ID:        result.Data.ID,
		Name:      result.Data.Name,
		Followers: result.Data.PublicMetrics.Followers,
	}, nil
}

func (c *TwitterClient) Publish(ctx context.Context, _ *domain.SocialAccount, token, text string, _ []string) (*Published, error) {
	var (
		result struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		}
		apiErr apiError
	)
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(map[string]string{"text": text}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/2/tweets")
	if err != nil {
		return nil, fmt.Errorf("twitter request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("twitter: status %d: %s", resp.StatusCode(), apiErr.String())
	}
	return &Published{ID: result.Data.ID, URL: "https://twitter.com/i/web/status/" + result.Data.ID}, nil
}
