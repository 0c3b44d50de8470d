package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"drivecash/internal/domain/entity"
	"drivecash/internal/domain/repository"
	"drivecash/pkg/errors"
)

type firestoreSubscriptionRepository struct {
	client *firestore.Client
}

func NewFirestoreSubscriptionRepository(client *firestore.Client) repository.SubscriptionRepository {
	return &firestoreSubscriptionRepository{
		client: client,
	}
}

// Save upserts by endpoint so a browser re-registering its service worker
// does not pile up duplicate subscriptions.
func (r *firestoreSubscriptionRepository) Save(ctx context.Context, sub *entity.PushSubscription) error {
	existing := r.client.Collection("pushSubscriptions").Where("endpoint", "==", sub.Endpoint).Limit(1)
	doc, err := existing.Documents(ctx).Next()
	if err == nil {
		sub.ID = doc.Ref.ID
	} else if err != iterator.Done {
		return errors.Internal("Failed to query existing subscription", err)
	}

	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}

	if _, err := r.client.Collection("pushSubscriptions").Doc(sub.ID).Set(ctx, sub); err != nil {
		return errors.Internal("Failed to save subscription", err)
	}
	return nil
}

func (r *firestoreSubscriptionRepository) ListByConversation(ctx context.Context, conversationID string) ([]*entity.PushSubscription, error) {
	iter := r.client.Collection("pushSubscriptions").Where("conversationId", "==", conversationID).Documents(ctx)

	var subs []*entity.PushSubscription
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate subscriptions", err)
		}

		var sub entity.PushSubscription
		if err := doc.DataTo(&sub); err != nil {
			return nil, errors.Internal("Failed to parse subscription data", err)
		}
		subs = append(subs, &sub)
	}

	return subs, nil
}

func (r *firestoreSubscriptionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.client.Collection("pushSubscriptions").Doc(id).Delete(ctx); err != nil {
		return errors.Internal("Failed to delete subscription", err)
	}
	return nil
}
