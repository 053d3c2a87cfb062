package extraction

import (
	"strings"

	"jizhang/internal/core"
	"jizhang/internal/inference"
)

// DefaultTemperature keeps replies close to deterministic.
const DefaultTemperature float32 = 0.3

// SystemPrompt is the fixed instruction sent before every utterance.
var SystemPrompt = buildSystemPrompt(core.Categories)

func buildSystemPrompt(categories []string) string {
	var b strings.Builder
	b.WriteString("你是一个记账助手。先判断用户输入是否是一条记账文本，再按要求输出 JSON。\n\n")
	b.WriteString("判断规则：\n")
	b.WriteString("- 记账文本：描述了一次消费或支出，并包含金额，例如\"买咖啡花了28\"、\"打车20\"。\n")
	b.WriteString("- 非记账文本：问候、闲聊、提问或与消费无关的内容。\n\n")
	b.WriteString("如果是记账文本，输出：\n")
	b.WriteString(`{"category": "类目", "amount": 金额数字, "description": "简短描述"}`)
	b.WriteString("\n类目只能从以下列表中选择：")
	b.WriteString(strings.Join(categories, "、"))
	b.WriteString("\n\n如果不是记账文本，输出：\n")
	b.WriteString(`{"category": "` + InvalidSentinel + `", "amount": 0, "description": "无法识别记账内容"}`)
	b.WriteString("\n\n只输出一个 JSON 对象，不要输出其他文字。\n\n示例：\n")
	b.WriteString("输入：今天午饭花了35元\n")
	b.WriteString(`输出：{"category": "餐饮", "amount": 35.0, "description": "午饭"}`)
	b.WriteString("\n输入：你好\n")
	b.WriteString(`输出：{"category": "` + InvalidSentinel + `", "amount": 0, "description": "无法识别记账内容"}`)
	b.WriteString("\n输入：今天天气真好\n")
	b.WriteString(`输出：{"category": "` + InvalidSentinel + `", "amount": 0, "description": "无法识别记账内容"}`)
	return b.String()
}

// BuildMessages returns the two-message prompt for text.
func BuildMessages(text string) []inference.Message {
	return []inference.Message{
		{Role: inference.RoleSystem, Content: SystemPrompt},
		{Role: inference.RoleUser, Content: text},
	}
}
