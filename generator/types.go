package generator

import "time"

// Metadata 是随原文一起提供的来源信息，仅作为输入，运行中不可变。
type Metadata struct {
	Title       string `json:"title,omitempty"`
	Source      string `json:"source,omitempty"`
	Link        string `json:"link,omitempty"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
}

// Section 是大纲中的一个小节，node_id 在整个大纲内唯一。
type Section struct {
	NodeID  string `json:"node_id"`
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
}

// Outline 是模型产出的结构化文章大纲。
type Outline struct {
	NodeID   string    `json:"node_id,omitempty"`
	Title    string    `json:"title"`
	Children []Section `json:"children"`
}

// Paragraph 是某个小节扩写后的正文，由独立的扇出分支产出。
type Paragraph struct {
	NodeID   string `json:"node_id"`
	Title    string `json:"title"`
	FullText string `json:"full_text"`
}

// State 是贯穿一次运行的共享工作流状态。
// 各字段的合并策略见 stateSchema：OriginalArticle/Outline/FinalArticle 取最新，
// Insights/Transcript/Preface 字符串拼接（同一节点跑两次会累加），
// Paragraphs/Messages 追加。Metadata 只读。
type State struct {
	OriginalArticle string
	Outline         Outline
	FinalArticle    string
	Insights        string
	Transcript      string
	Preface         string
	Metadata        *Metadata
	Paragraphs      []Paragraph
	Messages        []Message
}

// ParagraphTask 是扇出给单个段落分支的隔离载荷：
// 除只读原文外不携带任何共享状态。
type ParagraphTask struct {
	OriginalArticle string
	Section         Section
}

// Result 是一次运行对外返回的快照。
type Result struct {
	Outline      Outline       `json:"outline"`
	FinalArticle string        `json:"final_article"`
	Paragraphs   []Paragraph   `json:"paragraphs"`
	Insights     string        `json:"insights"`
	Transcript   string        `json:"transcript"`
	Preface      string        `json:"preface"`
	Elapsed      time.Duration `json:"-"`
}

// Draft 是交给发布模块的稿件（Markdown 形式）。
type Draft struct {
	Title    string
	Digest   string
	Markdown string
}
