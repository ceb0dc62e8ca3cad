// Package search 提供尽力而为的外部检索：给工作流补充背景资料，
// 失败或无结果一律返回空串，绝不阻断主流程。
package search

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultBaseURL = "https://api.duckduckgo.com/"

// Client 查询 DuckDuckGo Instant Answer API，可选地带一层 Redis 读穿缓存。
type Client struct {
	httpClient *http.Client
	cache      *redis.Client
	ttl        time.Duration
	baseURL    string
}

type Option func(*Client)

// WithCache 启用 Redis 缓存，ttl <= 0 时使用默认 24h。
func WithCache(rdb *redis.Client, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = rdb
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = base }
}

func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		ttl:        24 * time.Hour,
		baseURL:    defaultBaseURL,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type instantAnswer struct {
	AbstractText  string `json:"AbstractText"`
	RelatedTopics []struct {
		Text string `json:"Text"`
	} `json:"RelatedTopics"`
}

// Search 返回与 query 相关的背景文本；任何失败都降级为空串。
func (c *Client) Search(ctx context.Context, query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}

	cacheKey := "search:" + query
	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, cacheKey).Result(); err == nil {
			return cached
		} else if err != redis.Nil {
			log.Printf("[search] cache read failed: %v", err)
		}
	}

	text := c.lookup(ctx, query)
	if text != "" && c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, text, c.ttl).Err(); err != nil {
			log.Printf("[search] cache write failed: %v", err)
		}
	}
	return text
}

func (c *Client) lookup(ctx context.Context, query string) string {
	u := c.baseURL + "?q=" + url.QueryEscape(query) + "&format=json&no_html=1&skip_disambig=1"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return ""
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[search] request failed: %v", err)
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("[search] unexpected status %d", resp.StatusCode)
		return ""
	}

	var ans instantAnswer
	if err := json.NewDecoder(resp.Body).Decode(&ans); err != nil {
		log.Printf("[search] decode failed: %v", err)
		return ""
	}

	var parts []string
	if ans.AbstractText != "" {
		parts = append(parts, ans.AbstractText)
	}
	for i, t := range ans.RelatedTopics {
		if i >= 3 {
			break
		}
		if t.Text != "" {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "\n")
}
