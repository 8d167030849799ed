package param

import (
	"time"

	"github.com/cloudwego/eino-ext/components/tool/duckduckgo/v2"
	"github.com/cloudwego/eino/components/prompt"
)

type PromptType string

const (
	PromptSearchMode PromptType = "searchMode"
	PromptChatMode   PromptType = "chatMode"
)

type SearchConfig struct {
	MaxResults int
	Region     duckduckgo.Region
	Timeout    time.Duration
}

// Agent 联系人问答代理的配置,Prompt按模式区分:检索模式带参考联系人文档,聊天模式直接对话
type Agent struct {
	IndexName        string
	Prompt           map[PromptType]*prompt.DefaultChatTemplate
	DuckDuckGoSearch SearchConfig
}
