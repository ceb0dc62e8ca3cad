package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"wechat_article_workflow/generator"
)

const (
	accessTokenURL = "https://api.weixin.qq.com/cgi-bin/token"
	uploadImageURL = "https://api.weixin.qq.com/cgi-bin/material/add_material"
	addDraftURL    = "https://api.weixin.qq.com/cgi-bin/draft/add"
)

// Config holds the WeChat app credentials and the LLM settings.
type Config struct {
	AppID      string     `json:"app_id,omitempty"`
	AppSecret  string     `json:"app_secret,omitempty"`
	LLM        *LLMConfig `json:"llm,omitempty"`
	ServerAddr string     `json:"server_addr,omitempty"`
	RedisAddr  string     `json:"redis_addr,omitempty"`
}

// LLMConfig 模型配置：provider/model 必填，api_key 可由环境变量兜底。
type LLMConfig struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	APIKey   string `json:"api_key,omitempty"`
	BaseURL  string `json:"base_url,omitempty"`
}

// LoadConfig reads JSON config from disk.
// 发布凭证是可选的（只生成不发布时用不到），在 New 时才强校验。
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type accessTokenResp struct {
	AccessToken string `json:"access_token"`
	ErrCode     int    `json:"errcode"`
	ErrMsg      string `json:"errmsg"`
}

type uploadImageResp struct {
	MediaID string `json:"media_id"`
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

type addDraftResp struct {
	MediaID string `json:"media_id"`
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

type draftArticle struct {
	Title              string `json:"title"`
	Author             string `json:"author"`
	Digest             string `json:"digest"`
	Content            string `json:"content"`
	ThumbMediaID       string `json:"thumb_media_id"`
	NeedOpenComment    int    `json:"need_open_comment"`
	OnlyFansCanComment int    `json:"only_fans_can_comment"`
}

type addDraftPayload struct {
	Articles []draftArticle `json:"articles"`
}

// Publisher 把工作流产出的稿件上传为微信公众号草稿。
type Publisher struct {
	cfg         Config
	client      *http.Client
	accessToken string
	verbose     bool
	logger      *log.Logger
}

// New creates a Publisher and fetches the access token immediately so it can be reused.
func New(cfg Config, client *http.Client, verbose bool, logger *log.Logger) (*Publisher, error) {
	if cfg.AppID == "" || cfg.AppSecret == "" {
		return nil, errors.New("config must include app_id and app_secret to publish")
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = log.Default()
	}

	accessToken, err := getAccessToken(client, cfg)
	if err != nil {
		return nil, err
	}

	return &Publisher{
		cfg:         cfg,
		client:      client,
		accessToken: accessToken,
		verbose:     verbose,
		logger:      logger,
	}, nil
}

func (p *Publisher) infof(format string, args ...interface{}) {
	if !p.verbose {
		return
	}
	p.logger.Printf("[INFO] "+format, args...)
}

// PublishDraft 渲染稿件为微信友好的 HTML，上传封面，创建草稿。
// 生成的文章不含本地图片引用，所以不需要老式的正文图片替换。
func (p *Publisher) PublishDraft(ctx context.Context, draft generator.Draft, coverPath, author string) (string, error) {
	if draft.Title == "" || draft.Markdown == "" {
		return "", errors.New("draft title and markdown are required")
	}
	if coverPath == "" {
		return "", errors.New("cover image path is required")
	}

	contentHTML, err := RenderHTML(draft.Markdown)
	if err != nil {
		return "", fmt.Errorf("render draft: %w", err)
	}
	p.infof("Converted Markdown to WeChat HTML")

	thumbMediaID, err := uploadImage(ctx, p.client, p.accessToken, coverPath)
	if err != nil {
		return "", fmt.Errorf("upload cover: %w", err)
	}
	p.infof("Uploaded cover image %s -> media_id=%s", coverPath, thumbMediaID)

	art := draftArticle{
		Title:        draft.Title,
		Author:       author,
		Digest:       draft.Digest,
		Content:      contentHTML,
		ThumbMediaID: thumbMediaID,
	}

	mediaID, err := addDraft(ctx, p.client, p.accessToken, art)
	if err != nil {
		return "", fmt.Errorf("add draft: %w", err)
	}
	p.infof("Draft created successfully: media_id=%s", mediaID)

	return mediaID, nil
}

// RenderHTML 把 Markdown 渲染为微信编辑器能稳定显示的 HTML。
func RenderHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return normalizeForWeChat(buf.String()), nil
}

func getAccessToken(client *http.Client, cfg Config) (string, error) {
	req, err := http.NewRequest("GET", accessTokenURL, nil)
	if err != nil {
		return "", err
	}
	q := req.URL.Query()
	q.Set("grant_type", "client_credential")
	q.Set("appid", cfg.AppID)
	q.Set("secret", cfg.AppSecret)
	req.URL.RawQuery = q.Encode()

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var data accessTokenResp
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", err
	}
	if data.AccessToken == "" {
		return "", fmt.Errorf("failed to get access_token: %d %s", data.ErrCode, data.ErrMsg)
	}
	return data.AccessToken, nil
}

func uploadImage(ctx context.Context, client *http.Client, accessToken, imagePath string) (string, error) {
	file, err := os.Open(imagePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("media", filepath.Base(imagePath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", uploadImageURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	q := req.URL.Query()
	q.Set("access_token", accessToken)
	q.Set("type", "image")
	req.URL.RawQuery = q.Encode()

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var data uploadImageResp
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", err
	}
	if data.MediaID == "" {
		return "", fmt.Errorf("failed to upload image: %d %s", data.ErrCode, data.ErrMsg)
	}
	return data.MediaID, nil
}

func addDraft(ctx context.Context, client *http.Client, accessToken string, art draftArticle) (string, error) {
	payload := addDraftPayload{Articles: []draftArticle{art}}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", addDraftURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	q := req.URL.Query()
	q.Set("access_token", accessToken)
	req.URL.RawQuery = q.Encode()

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var data addDraftResp
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", err
	}
	if data.MediaID == "" {
		return "", fmt.Errorf("failed to add draft: %d %s", data.ErrCode, data.ErrMsg)
	}
	return data.MediaID, nil
}

// WeChat 会弱化部分列表和标题标签，导致有序列表合并、标题样式丢失。
// 上传前把列表展开、把标题转成带字号的段落，让排版更稳定。
func flattenListsForWeChat(html string) string {
	olRe := regexp.MustCompile(`(?s)<ol[^>]*>(.*?)</ol>`)
	liRe := regexp.MustCompile(`(?s)<li[^>]*>(.*?)</li>`)

	html = olRe.ReplaceAllStringFunc(html, func(block string) string {
		items := liRe.FindAllStringSubmatch(block, -1)
		if len(items) == 0 {
			return block
		}
		var b strings.Builder
		for i, item := range items {
			text := strings.TrimSpace(item[1])
			b.WriteString("<p>")
			b.WriteString(fmt.Sprintf("%d. %s", i+1, text))
			b.WriteString("</p>")
		}
		return b.String()
	})

	ulRe := regexp.MustCompile(`(?s)<ul[^>]*>(.*?)</ul>`)
	html = ulRe.ReplaceAllStringFunc(html, func(block string) string {
		items := liRe.FindAllStringSubmatch(block, -1)
		if len(items) == 0 {
			return block
		}
		var b strings.Builder
		for _, item := range items {
			text := strings.TrimSpace(item[1])
			b.WriteString("<p>• ")
			b.WriteString(text)
			b.WriteString("</p>")
		}
		return b.String()
	})

	return html
}

func convertHeadingsForWeChat(html string) string {
	hRe := regexp.MustCompile(`(?s)<h([1-6])[^>]*>(.*?)</h[1-6]>`)
	sizes := map[string]string{
		"1": "24px",
		"2": "22px",
		"3": "20px",
		"4": "18px",
		"5": "16px",
		"6": "15px",
	}

	return hRe.ReplaceAllStringFunc(html, func(block string) string {
		parts := hRe.FindStringSubmatch(block)
		if len(parts) != 3 {
			return block
		}
		size := sizes[parts[1]]
		if size == "" {
			size = "18px"
		}
		text := strings.TrimSpace(parts[2])
		return fmt.Sprintf(`<p style="font-size:%s;font-weight:700;margin:1em 0 0.6em;">%s</p>`, size, text)
	})
}

func normalizeForWeChat(html string) string {
	html = convertHeadingsForWeChat(html)
	html = flattenListsForWeChat(html)
	return html
}
