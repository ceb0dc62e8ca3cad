package generator

import (
	"encoding/json"
	"fmt"
)

// 提示词是参数化模板：输入进、字符串出。具体文案是业务内容，
// 节点逻辑只依赖这里的构造函数签名。

const outlineSchema = `{
  "title": "Article Outline",
  "type": "object",
  "required": ["node_id", "title", "children"],
  "properties": {
    "node_id": {"type": "string", "description": "Unique identifier for the node."},
    "title": {"type": "string", "description": "Title of the discussion or main topic."},
    "content": {"type": "string", "description": "Content or description of the node."},
    "children": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["node_id", "title", "content"],
        "properties": {
          "node_id": {"type": "string"},
          "title": {"type": "string"},
          "content": {"type": "string"}
        }
      }
    }
  }
}`

const outlinePromptTmpl = `<role>
你是一个科技公众号写手，擅长在写文章之前以 json 的格式撰写文章大纲
</role>
<output-format>
json
</output-format>
<original-article>
%s
</original-article>
<instruction>
1. 根据用户提供的 original-article 生成一篇新的文章大纲，需要符合微信公众号的风格和习惯
2. 仅输出大纲，不要完成文章的撰写
3. 大纲要包含有趣的细节，越引人瞩目的细节、事实，应该越早出现。大纲不是一些 phrase，而是 complete sentences
4. 文章不应该严谨，而是让人想读下去。不要冗长
5. 输出纯 json 并且给每个节点都设置 node_id，可以嵌套最多 1 层
6. 永远输出中文，但人名、专有名词可以用英文
7. 大标题和小标题，要犀利、适合中文公众号读者、抓眼球
</instruction>
<json-schema>
%s
</json-schema>`

func buildOutlinePrompt(originalArticle string) []Message {
	return []Message{{
		Role:    RoleUser,
		Content: fmt.Sprintf(outlinePromptTmpl, originalArticle, outlineSchema),
	}}
}

const paragraphPromptTmpl = `## 角色
你是一个微信公众号写手，了解中国互联网语境内公众号文章的特点、文风。

## 指令
1. 阅读用户提供的背景信息作为事实依据：%s
2. 将要点展开写出 EXACTLY 1-3 个科技公众号的段落（要点如下：%s）
3. 写作风格要接地气、生动、有趣，不像 AI 一样机械、拗口
4. 段落结构清晰、逻辑连贯，不要输出任何 XML 标签
5. 不要捏造事实，一切以提供给你的信息为准
6. 如果这是一个采访，强调主持人和嘉宾之间的观点碰撞
7. 读者已经高度了解 AI 和科技的发展，语言要成熟，避免浅显的比喻
8. 不要使用第一、第二人称的句子。删除感叹，删除比喻`

func buildParagraphPrompt(originalArticle string, section Section) []Message {
	node, _ := json.Marshal(section)
	return []Message{{
		Role:    RoleUser,
		Content: fmt.Sprintf(paragraphPromptTmpl, originalArticle, string(node)),
	}}
}

const insightsPromptTmpl = `<original-article>
%s
</original-article>
<instructions>
请仔细阅读原文，找出 3-5 个最引人注目且与常识偏离最大的重要事实、陈述、见解或统计数据。
重点挑选那些可能因其出人意料、大胆主张或颠覆性影响而引发强烈反应或广泛讨论的细节。
避免任何解释或解读；仅需提取和突出这些具有冲击力的信息点。
每条内容用单行简洁表达，无需加标题或标注来源。
必须用中文的 bullet points 回复，除了人名和特殊名词、品牌之外。
</instructions>`

func buildInsightsPrompt(originalArticle string) []Message {
	return []Message{{Role: RoleUser, Content: fmt.Sprintf(insightsPromptTmpl, originalArticle)}}
}

const prefacePromptTmpl = `<role>
你是一个专业的科技内容编辑，擅长撰写文章导读和前言，了解微信公众号文章的特点、文风。
</role>
<instruction>
1. 基于提供的元数据信息（标题、来源、作者、描述等）撰写一段引人入胜的导读
2. 导读应该简明扼要地介绍文章的背景和重要性
3. 突出作者的专业背景和文章的可信度
4. 长度控制在50-80字之间
5. 读者年龄层是20-40且高度了解科技，语言要成熟，避免浅显的比喻
</instruction>
<metadata>
%s
</metadata>`

func buildPrefacePrompt(md *Metadata) []Message {
	raw, _ := json.Marshal(md)
	return []Message{{Role: RoleUser, Content: fmt.Sprintf(prefacePromptTmpl, string(raw))}}
}

const transcriptPromptTmpl = `<original-article>
%s
</original-article>
<outline>
%s
</outline>
<instructions>
You are writing the transcript section of an article. Only if the original-article contains a
timestamped speech transcript of an interview involving multiple people, you need to do the following:
1. remove parts of the speech unrelated to outline.
2. translate the transcript into chinese, but keep special nouns and tech terms in English.
3. Output in this line by line format (Replace "speaker name" with real name):
    Speaker Name: content
otherwise, absolutely return an empty string with zero explanation
</instructions>`

func buildTranscriptPrompt(originalArticle string, outline Outline) []Message {
	raw, _ := json.Marshal(outline)
	return []Message{{Role: RoleUser, Content: fmt.Sprintf(transcriptPromptTmpl, originalArticle, string(raw))}}
}

const improveTitlePromptTmpl = `<role>
你是一个科技公众号的标题编辑，擅长把平庸的标题改得犀利、抓眼球。
</role>
<instruction>
1. 重写下面大纲的总标题和每个小节标题，使之更适合中文公众号读者
2. 保持 json 结构和所有 node_id 原样不变，只改 title
3. 输出纯 json，不要任何解释
</instruction>
<outline>
%s
</outline>`

func buildImproveTitlePrompt(outline Outline) []Message {
	raw, _ := json.Marshal(outline)
	return []Message{{Role: RoleUser, Content: fmt.Sprintf(improveTitlePromptTmpl, string(raw))}}
}

const contentReviewPromptTmpl = `<role>公众号写手</role>
<instruction>通读整篇文章，检查是否存在内容重复或过度使用的短语。删除或精简重复表达同一观点的段落。
检查并删除频繁出现的短语或句式（例如"试想一下……""想象一下……"）。删除或减少第二人称的问句。
直接在我提供的文章上修改，而不是仅仅提供建议。不要包含` + "```" + `，直接输出你修改后的完整文章。
</instruction>
<article>
%s
</article>`

func buildContentReviewPrompt(article string) []Message {
	return []Message{{Role: RoleUser, Content: fmt.Sprintf(contentReviewPromptTmpl, article)}}
}

const factCheckerPromptTmpl = `<source-material>
%s
</source-material>
<article>
%s
</article>
<instructions>
Your job is to check if a final article is 100%% factually supported by source material.
Check for names, date, ideas, special nouns, opinions. Check which person expressed which ideas.
Give a factual score out of 100.
</instructions>`

func buildFactCheckerPrompt(originalArticle, finalArticle string) []Message {
	return []Message{{Role: RoleUser, Content: fmt.Sprintf(factCheckerPromptTmpl, originalArticle, finalArticle)}}
}

const summarizePromptTmpl = `<role>
You are a professional content editor who excels at extracting the most important information
from articles while maintaining their core message.
</role>
<instruction>
1. Identify the main points, key arguments, and essential details.
2. Remove redundant information, excessive examples, and less relevant tangents.
3. Keep the most impactful examples and statistics.
4. Aim to reduce the length while preserving the article's value.
</instruction>
<original-article>
%s
</original-article>`

func buildSummarizePrompt(originalArticle string) []Message {
	return []Message{{Role: RoleUser, Content: fmt.Sprintf(summarizePromptTmpl, originalArticle)}}
}
