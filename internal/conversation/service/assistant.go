package service

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/biz"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/compactor"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/types"
	apperrors "github.com/ngaut/NexusCRM-sub002/internal/pkg/errors"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/logger"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/response"
	"go.uber.org/zap"
)

// AssistantService 助手 HTTP 服务
type AssistantService struct {
	assistant     *biz.AssistantUseCase
	conversations *biz.ConversationUseCase
	contexts      *biz.ContextUseCase
	logger        *logger.Logger
}

// NewAssistantService 创建助手服务
func NewAssistantService(
	assistant *biz.AssistantUseCase,
	conversations *biz.ConversationUseCase,
	contexts *biz.ContextUseCase,
	log *logger.Logger,
) *AssistantService {
	return &AssistantService{
		assistant:     assistant,
		conversations: conversations,
		contexts:      contexts,
		logger:        log.Named("assistant_service"),
	}
}

// RegisterRoutes 注册路由，调用方负责挂载鉴权中间件。
// compactMW 只作用于触发摘要模型的压缩接口。
func (s *AssistantService) RegisterRoutes(r *gin.RouterGroup, compactMW ...gin.HandlerFunc) {
	compact := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, compactMW...), h)
	}

	a := r.Group("/assistant")
	{
		a.POST("/compact", compact(s.Compact)...)
		a.POST("/view", s.View)
		a.POST("/inspect", s.Inspect)

		a.GET("/context", s.GetContext)
		a.POST("/context", s.PinContext)
		a.DELETE("/context", s.UnpinContext)

		a.GET("/conversation", s.GetConversation)
		a.POST("/conversation", s.SaveConversation)
		a.DELETE("/conversation", s.ClearConversation)

		a.GET("/conversations", s.ListConversations)
		a.DELETE("/conversations/:id", s.DeleteConversation)
		a.POST("/conversations/:id/compact", compact(s.CompactConversation)...)
		a.GET("/conversations/:id/view", s.ViewConversation)
		a.GET("/conversations/:id/inspect", s.InspectConversation)
	}
}

// Compact 压缩调用方持有的消息日志
// @Summary 无状态压缩
// @Tags assistant
// @Accept json
// @Produce json
// @Param request body CompactRequest true "消息日志"
// @Success 200 {object} CompactResponse
// @Router /assistant/compact [post]
func (s *AssistantService) Compact(c *gin.Context) {
	var req CompactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := s.assistant.Compact(c.Request.Context(), compactor.Request{Messages: req.Messages, Keep: req.Keep})
	if resp == nil {
		s.handleError(c, err)
		return
	}

	out := &CompactResponse{
		Messages:     resp.Messages,
		TokensBefore: resp.TokensBefore,
		TokensAfter:  resp.TokensAfter,
	}
	// 压缩失败不影响会话，原样返回并提示
	if err != nil {
		out.Warning = "compaction failed: " + err.Error()
	}
	response.Success(c, out)
}

// View 返回展示项和 token 预算
// @Summary 渲染消息日志
// @Tags assistant
// @Accept json
// @Produce json
// @Param request body MessagesRequest true "消息日志"
// @Success 200 {object} biz.View
// @Router /assistant/view [post]
func (s *AssistantService) View(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req MessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	view, err := s.assistant.View(c.Request.Context(), userID, req.Messages)
	if err != nil {
		s.handleError(c, err)
		return
	}
	response.Success(c, view)
}

// Inspect 重建模型实际看到的提示词
// @Summary 提示词重建
// @Tags assistant
// @Accept json
// @Produce json
// @Param request body MessagesRequest true "消息日志"
// @Success 200 {object} biz.Inspection
// @Router /assistant/inspect [post]
func (s *AssistantService) Inspect(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req MessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	inspection, err := s.assistant.Inspect(c.Request.Context(), userID, req.Messages)
	if err != nil {
		s.handleError(c, err)
		return
	}
	response.Success(c, inspection)
}

// GetContext 获取已固定的上下文文件
func (s *AssistantService) GetContext(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req GetContextRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	pinned, err := s.contexts.Get(c.Request.Context(), userID, req.IncludeContent)
	if err != nil {
		s.handleError(c, err)
		return
	}
	response.Success(c, pinned)
}

// PinContext 固定上下文文件
func (s *AssistantService) PinContext(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req PinContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	pinned, err := s.contexts.Pin(c.Request.Context(), userID, req.Files)
	if err != nil {
		s.handleError(c, err)
		return
	}
	response.Success(c, &PinContextResponse{Pinned: pinned})
}

// UnpinContext 取消固定
func (s *AssistantService) UnpinContext(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req UnpinContextRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	if err := s.contexts.Unpin(c.Request.Context(), userID, req.Paths); err != nil {
		s.handleError(c, err)
		return
	}
	response.Success(c, nil)
}

// GetConversation 获取会话
func (s *AssistantService) GetConversation(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req GetConversationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	conv, err := s.conversations.Get(c.Request.Context(), userID, req.ID)
	if err != nil {
		s.handleError(c, err)
		return
	}
	response.Success(c, toConversationResponse(conv))
}

// SaveConversation 保存会话
// @Summary 保存会话
// @Tags assistant
// @Accept json
// @Produce json
// @Param request body biz.SaveRequest true "会话"
// @Success 200 {object} biz.SaveResult
// @Router /assistant/conversation [post]
func (s *AssistantService) SaveConversation(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req biz.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := s.conversations.Save(c.Request.Context(), userID, &req)
	if err != nil {
		s.handleError(c, err)
		return
	}
	if result.Status == "created" {
		response.Created(c, result)
		return
	}
	response.Success(c, result)
}

// ClearConversation 清空当前会话的消息
func (s *AssistantService) ClearConversation(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if err := s.conversations.Clear(c.Request.Context(), userID); err != nil {
		s.handleError(c, err)
		return
	}
	response.Success(c, nil)
}

// ListConversations 会话列表
func (s *AssistantService) ListConversations(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	list, err := s.conversations.List(c.Request.Context(), userID)
	if err != nil {
		s.handleError(c, err)
		return
	}
	if list == nil {
		list = []*types.ConversationSummary{}
	}
	response.Success(c, &ListConversationsResponse{Items: list})
}

// DeleteConversation 删除会话
func (s *AssistantService) DeleteConversation(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if err := s.conversations.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		s.handleError(c, err)
		return
	}
	response.Success(c, nil)
}

// CompactConversation 压缩已保存的会话
// @Summary 服务端压缩
// @Tags assistant
// @Accept json
// @Produce json
// @Param id path string true "会话ID"
// @Param request body CompactConversationRequest false "保留内容"
// @Success 200 {object} biz.CompactResult
// @Failure 409 {object} response.Response
// @Router /assistant/conversations/{id}/compact [post]
func (s *AssistantService) CompactConversation(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req CompactConversationRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := s.assistant.CompactConversation(c.Request.Context(), userID, c.Param("id"), req.Keep)
	if err != nil {
		s.handleError(c, err)
		return
	}
	response.Success(c, result)
}

// ViewConversation 渲染已保存的会话
func (s *AssistantService) ViewConversation(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	view, err := s.assistant.ViewConversation(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	response.Success(c, view)
}

// InspectConversation 重建已保存会话的提示词
func (s *AssistantService) InspectConversation(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	inspection, err := s.assistant.InspectConversation(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	response.Success(c, inspection)
}

func requireUser(c *gin.Context) (string, bool) {
	userID := c.GetString("user_id")
	if userID == "" {
		response.ErrorWithCode(c, apperrors.ErrUnauthorized)
		return "", false
	}
	return userID, true
}

// bindOptionalJSON 允许空 body
func bindOptionalJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, err.Error())
		return false
	}
	return true
}

// handleError 统一错误处理
func (s *AssistantService) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, biz.ErrUserRequired):
		response.ErrorWithCode(c, apperrors.ErrUnauthorized)
	case errors.Is(err, biz.ErrInvalidMessages):
		response.ErrorWithCode(c, apperrors.ErrConversationInvalidInput, err.Error())
	case errors.Is(err, biz.ErrConversationNotFound):
		response.ErrorWithCode(c, apperrors.ErrConversationNotFound)
	case errors.Is(err, biz.ErrConversationForbidden):
		response.ErrorWithCode(c, apperrors.ErrConversationForbidden)
	case errors.Is(err, biz.ErrCompactionInProgress):
		response.ErrorWithCode(c, apperrors.ErrCompactionInProgress)
	case errors.Is(err, biz.ErrConversationChanged):
		response.ErrorWithCode(c, apperrors.ErrConversationChanged)
	case errors.Is(err, biz.ErrContextFileNotFound):
		response.ErrorWithCode(c, apperrors.ErrContextFileNotFound, err.Error())
	case errors.Is(err, biz.ErrContextFileInvalid):
		response.ErrorWithCode(c, apperrors.ErrContextFileInvalid, err.Error())
	case errors.Is(err, biz.ErrContextFileTooLarge):
		response.ErrorWithCode(c, apperrors.ErrContextFileTooLarge, err.Error())
	case errors.Is(err, compactor.ErrSummaryExpanded):
		s.logger.WithContext(c.Request.Context()).Error("compaction postcondition violated", zap.Error(err))
		response.ErrorWithCode(c, apperrors.ErrCompactionExpanded)
	case errors.Is(err, context.DeadlineExceeded):
		response.ErrorWithCode(c, apperrors.ErrSummarizerUnavailable, err.Error())
	case errors.Is(err, context.Canceled):
		// 客户端已断开
		s.logger.WithContext(c.Request.Context()).Info("request canceled")
		c.Status(499)
	case errors.Is(err, compactor.ErrEmptySummary), errors.Is(err, compactor.ErrSummarizerFailed):
		response.ErrorWithCode(c, apperrors.ErrCompactionFailed, err.Error())
	default:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			response.HandleError(c, err)
			return
		}
		s.logger.WithContext(c.Request.Context()).Error("internal error", zap.Error(err))
		response.InternalError(c, "internal server error")
	}
}
