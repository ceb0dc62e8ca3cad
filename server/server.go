package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"wechat_article_workflow/generator"
	"wechat_article_workflow/graph"
	"wechat_article_workflow/publisher"
)

// 单次生成的上限：工作流里全是模型调用，给一个宽松的整体超时。
const generateTimeout = 5 * time.Minute

// Server 是工作流的 HTTP 薄封装：接收原文、同步跑完整个图、返回终稿。
type Server struct {
	wf *generator.Workflow

	mu   sync.Mutex
	last *generator.Result // 供 /preview 使用
}

func New(wf *generator.Workflow) (*Server, error) {
	if wf == nil {
		return nil, errors.New("workflow required")
	}
	return &Server{wf: wf}, nil
}

// Routes 装配路由。
func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/generate", s.handleGenerate)
	r.GET("/health", s.handleHealth)
	r.GET("/graph", s.handleGraph)
	r.GET("/preview", s.handlePreview)
	return r
}

// sourceField 兼容两种入参：纯字符串或 {"full_text": "..."} 对象。
type sourceField struct {
	Text string
}

func (f *sourceField) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.Text = s
		return nil
	}
	var obj struct {
		FullText string `json:"full_text"`
		Content  string `json:"content"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj.FullText != "" {
		f.Text = obj.FullText
	} else {
		f.Text = obj.Content
	}
	return nil
}

type generateReq struct {
	Source   sourceField         `json:"source"`
	Metadata *generator.Metadata `json:"metadata,omitempty"`
	Plain    bool                `json:"plain,omitempty"`
}

type generateResp struct {
	RunID       string                `json:"run_id"`
	ElapsedTime float64               `json:"elapsed_time"`
	Title       string                `json:"title"`
	FullText    string                `json:"full_text"`
	Paragraphs  []generator.Paragraph `json:"paragraphs"`
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req generateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "type": "BadRequest"})
		return
	}
	if req.Source.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source is required", "type": "BadRequest"})
		return
	}

	runID := uuid.New().String()
	ctx, cancel := context.WithTimeout(c.Request.Context(), generateTimeout)
	defer cancel()

	res, err := s.wf.Run(ctx, req.Source.Text, req.Metadata)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody(err))
		return
	}

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()

	if req.Plain {
		c.String(http.StatusOK, res.FinalArticle)
		return
	}
	c.JSON(http.StatusOK, generateResp{
		RunID:       runID,
		ElapsedTime: res.Elapsed.Seconds(),
		Title:       res.Outline.Title,
		FullText:    res.FinalArticle,
		Paragraphs:  res.Paragraphs,
	})
}

// errorBody 暴露足够定位 prompt/解析问题的细节：错误类型、消息和出错节点的状态摘要。
func errorBody(err error) gin.H {
	body := gin.H{"error": err.Error(), "type": fmt.Sprintf("%T", err)}
	var ne *graph.NodeError
	if errors.As(err, &ne) {
		body["type"] = fmt.Sprintf("%T", ne.Err)
		body["trace"] = fmt.Sprintf("node=%s state=%s", ne.Node, ne.State)
	}
	return body
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleGraph 以 Graphviz DOT 文本返回工作流拓扑，纯诊断用途。
func (s *Server) handleGraph(c *gin.Context) {
	c.String(http.StatusOK, s.wf.DOT())
}

// handlePreview 把最近一次生成的终稿渲染成 HTML 预览。
func (s *Server) handlePreview(c *gin.Context) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()

	if last == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no article generated yet"})
		return
	}
	html, err := publisher.RenderHTML(last.FinalArticle)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody(err))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}
