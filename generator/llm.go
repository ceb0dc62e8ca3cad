package generator

import "context"

// 消息角色，与主流 chat API 对齐。
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message 是一次模型交互中的单条消息，同时也是状态里的审计记录。
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMClient 抽象大模型客户端，便于替换/Mock。
// 实现失败时应返回 *ModelInvocationError。
type LLMClient interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// LLMSettings 提供给具体实现的基础配置。
type LLMSettings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}
