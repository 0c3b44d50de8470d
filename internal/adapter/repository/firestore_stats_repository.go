package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"drivecash/internal/domain/entity"
	"drivecash/internal/domain/repository"
	"drivecash/pkg/errors"
)

type firestoreStatsRepository struct {
	client *firestore.Client
}

func NewFirestoreStatsRepository(client *firestore.Client) repository.StatsRepository {
	return &firestoreStatsRepository{
		client: client,
	}
}

func (r *firestoreStatsRepository) IncrementResolvedCount(ctx context.Context, operatorID string) error {
	ref := r.client.Collection("supportStats").Doc(operatorID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		stats := entity.SupportStats{OperatorID: operatorID}

		doc, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if err == nil {
			if err := doc.DataTo(&stats); err != nil {
				return err
			}
		}

		stats.ResolvedCount++
		stats.UpdatedAt = time.Now()
		return tx.Set(ref, &stats)
	})
	if err != nil {
		return errors.Internal("Failed to increment resolved count", err)
	}
	return nil
}

func (r *firestoreStatsRepository) GetStats(ctx context.Context, operatorID string) (*entity.SupportStats, error) {
	doc, err := r.client.Collection("supportStats").Doc(operatorID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return &entity.SupportStats{OperatorID: operatorID}, nil
		}
		return nil, errors.Internal("Failed to get support stats", err)
	}

	var stats entity.SupportStats
	if err := doc.DataTo(&stats); err != nil {
		return nil, errors.Internal("Failed to parse support stats", err)
	}
	return &stats, nil
}
