package repository

import (
	"context"

	"drivecash/internal/domain/entity"
)

type ConversationRepository interface {
	Create(ctx context.Context, conv *entity.Conversation) error
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	GetByUserID(ctx context.Context, userID string) (*entity.Conversation, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*entity.Conversation, int64, error)
	Update(ctx context.Context, conv *entity.Conversation) error

	// Message methods
	CreateMessage(ctx context.Context, message *entity.Message) error
	GetMessageByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error)
	ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, int64, error)
	UpdateMessage(ctx context.Context, conversationID string, message *entity.Message) error
	MarkMessagesRead(ctx context.Context, conversationID, readerDirection string) ([]*entity.Message, error)
}
