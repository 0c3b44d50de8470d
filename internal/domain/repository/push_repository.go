package repository

import (
	"context"

	"drivecash/internal/domain/entity"
)

type SubscriptionRepository interface {
	Save(ctx context.Context, sub *entity.PushSubscription) error
	ListByConversation(ctx context.Context, conversationID string) ([]*entity.PushSubscription, error)
	Delete(ctx context.Context, id string) error
}

type StatsRepository interface {
	IncrementResolvedCount(ctx context.Context, operatorID string) error
	GetStats(ctx context.Context, operatorID string) (*entity.SupportStats, error)
}
