package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOutline() Outline {
	return Outline{
		NodeID: "root",
		Title:  "总标题",
		Children: []Section{
			{NodeID: "n1", Title: "第一节"},
			{NodeID: "n2", Title: "第二节"},
			{NodeID: "n3", Title: "第三节"},
		},
	}
}

func TestOrderParagraphsFollowsOutlineOrder(t *testing.T) {
	// 扇出分支完成顺序不定，输入故意乱序。
	paragraphs := []Paragraph{
		{NodeID: "n3", Title: "旧标题三", FullText: "c"},
		{NodeID: "n1", Title: "旧标题一", FullText: "a"},
		{NodeID: "n2", Title: "旧标题二", FullText: "b"},
	}

	ordered, err := orderParagraphs(testOutline(), paragraphs, false)
	require.NoError(t, err)

	require.Len(t, ordered, 3)
	assert.Equal(t, []string{"n1", "n2", "n3"}, []string{ordered[0].NodeID, ordered[1].NodeID, ordered[2].NodeID})
	// 段落标题以当前大纲为准，改标题节点的重写由此生效。
	assert.Equal(t, "第一节", ordered[0].Title)
	assert.Equal(t, "第二节", ordered[1].Title)
	assert.Equal(t, "第三节", ordered[2].Title)
}

func TestOrderParagraphsDoesNotMutateInput(t *testing.T) {
	paragraphs := []Paragraph{
		{NodeID: "n2", Title: "旧二"},
		{NodeID: "n1", Title: "旧一"},
		{NodeID: "n3", Title: "旧三"},
	}

	_, err := orderParagraphs(testOutline(), paragraphs, false)
	require.NoError(t, err)

	assert.Equal(t, "n2", paragraphs[0].NodeID)
	assert.Equal(t, "旧二", paragraphs[0].Title)
}

func TestOrderParagraphsStrictMismatch(t *testing.T) {
	paragraphs := []Paragraph{
		{NodeID: "n1"},
		{NodeID: "ghost"},
	}

	_, err := orderParagraphs(testOutline(), paragraphs, false)

	var aerr *AssemblyConsistencyError
	require.ErrorAs(t, err, &aerr)
	assert.ElementsMatch(t, []string{"n2", "n3"}, aerr.Missing)
	assert.ElementsMatch(t, []string{"ghost"}, aerr.Unknown)
}

func TestOrderParagraphsLegacyKeepsUnmatchedLast(t *testing.T) {
	paragraphs := []Paragraph{
		{NodeID: "ghost", Title: "散段"},
		{NodeID: "n2", Title: "旧二"},
		{NodeID: "n1", Title: "旧一"},
	}

	ordered, err := orderParagraphs(testOutline(), paragraphs, true)
	require.NoError(t, err)

	require.Len(t, ordered, 3)
	assert.Equal(t, "n1", ordered[0].NodeID)
	assert.Equal(t, "n2", ordered[1].NodeID)
	assert.Equal(t, "ghost", ordered[2].NodeID)
	// 不在大纲里的段落保留自带标题。
	assert.Equal(t, "散段", ordered[2].Title)
}

func TestRenderFinalArticleFullLayout(t *testing.T) {
	got := renderFinalArticle(
		"总标题",
		"一段导读",
		"- 亮点一\n- 亮点二",
		[]Paragraph{
			{NodeID: "n1", Title: "第一节", FullText: "第一节正文"},
			{NodeID: "n2", Title: "第二节", FullText: "第二节正文"},
		},
		"主持人: 你好\n嘉宾: 你好",
		&Metadata{Link: "https://example.com/origin"},
	)

	want := "# 总标题\n\n" +
		">一段导读\n\n" +
		"## 亮点\n- 亮点一\n- 亮点二\n\n" +
		"## 第一节\n第一节正文\n" +
		"## 第二节\n第二节正文\n" +
		"\n## 详细对话\n主持人: 你好\n嘉宾: 你好\n" +
		"\n_原链接：https://example.com/origin_\n"
	assert.Equal(t, want, got)
}

func TestRenderFinalArticleOmitsEmptySections(t *testing.T) {
	got := renderFinalArticle("标题", "", "亮点", []Paragraph{{Title: "第一节", FullText: "正文"}}, "   ", nil)

	assert.NotContains(t, got, ">")
	assert.NotContains(t, got, "详细对话")
	assert.NotContains(t, got, "原链接")
	assert.Contains(t, got, "# 标题\n\n## 亮点\n亮点\n\n## 第一节\n正文\n")
}

func TestRenderFinalArticleNoLinkWithoutMetadataLink(t *testing.T) {
	got := renderFinalArticle("标题", "", "亮点", nil, "", &Metadata{Title: "src"})

	assert.NotContains(t, got, "原链接")
}
