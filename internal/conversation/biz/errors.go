package biz

import "errors"

var (
	// ErrUserRequired 缺少用户身份
	ErrUserRequired = errors.New("user id is required")

	ErrConversationNotFound  = errors.New("conversation not found")
	ErrConversationForbidden = errors.New("not your conversation")
	// ErrConversationChanged 读取后会话已被其他请求修改
	ErrConversationChanged = errors.New("conversation changed since it was read")

	// ErrInvalidMessages 消息角色非法
	ErrInvalidMessages = errors.New("invalid message log")

	// ErrLockHeld is returned by a Locker when the key is already locked
	ErrLockHeld = errors.New("lock already held")

	// ErrCompactionInProgress 同一会话已有压缩在进行
	ErrCompactionInProgress = errors.New("compaction already in progress for this conversation")

	ErrContextFileNotFound = errors.New("context file not found")
	ErrContextFileInvalid  = errors.New("invalid context file path")
	ErrContextFileTooLarge = errors.New("context file too large")
)
