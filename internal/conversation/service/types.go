package service

import (
	"time"

	"github.com/ngaut/NexusCRM-sub002/internal/conversation/biz"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/types"
)

// CompactRequest 无状态压缩请求
type CompactRequest struct {
	Messages []types.Message `json:"messages"`
	Keep     string          `json:"keep"` // 摘要中需要保留的内容
}

// CompactResponse 压缩结果。失败时返回原始消息并附带 warning
type CompactResponse struct {
	Messages     []types.Message `json:"messages"`
	TokensBefore int             `json:"tokens_before"`
	TokensAfter  int             `json:"tokens_after"`
	Warning      string          `json:"warning,omitempty"`
}

// MessagesRequest 携带一段消息日志
type MessagesRequest struct {
	Messages []types.Message `json:"messages"`
}

// PinContextRequest 固定上下文文件
type PinContextRequest struct {
	Files []biz.PinRequest `json:"files" binding:"required,min=1,dive"`
}

// PinContextResponse 固定结果
type PinContextResponse struct {
	Pinned []types.ContextFile `json:"pinned"`
}

// UnpinContextRequest 取消固定，paths 为空时清空全部
type UnpinContextRequest struct {
	Paths []string `json:"paths"`
}

// GetContextRequest 查询参数
type GetContextRequest struct {
	IncludeContent bool `form:"include_content"`
}

// GetConversationRequest 查询参数，id 为空时返回当前活跃会话
type GetConversationRequest struct {
	ID string `form:"id"`
}

// ConversationInfo 会话元信息
type ConversationInfo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationResponse 会话及其消息
type ConversationResponse struct {
	Conversation *ConversationInfo `json:"conversation"`
	Messages     []types.Message   `json:"messages"`
}

// ListConversationsResponse 会话列表
type ListConversationsResponse struct {
	Items []*types.ConversationSummary `json:"items"`
}

// CompactConversationRequest 服务端压缩请求，body 可省略
type CompactConversationRequest struct {
	Keep string `json:"keep"`
}

func toConversationResponse(conv *types.Conversation) *ConversationResponse {
	if conv == nil {
		return &ConversationResponse{Messages: []types.Message{}}
	}
	messages := conv.Messages
	if messages == nil {
		messages = []types.Message{}
	}
	return &ConversationResponse{
		Conversation: &ConversationInfo{
			ID:        conv.ID,
			Title:     conv.Title,
			IsActive:  conv.IsActive,
			CreatedAt: conv.CreatedAt,
			UpdatedAt: conv.UpdatedAt,
		},
		Messages: messages,
	}
}
