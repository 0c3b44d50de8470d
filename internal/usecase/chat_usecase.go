package usecase

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"drivecash/internal/domain/entity"
	"drivecash/internal/domain/repository"
	"drivecash/internal/infrastructure/ratelimit"
	"drivecash/internal/infrastructure/webpush"
	ws "drivecash/internal/infrastructure/websocket"
	"drivecash/pkg/errors"
)

type ChatUseCase struct {
	convRepo    repository.ConversationRepository
	subRepo     repository.SubscriptionRepository
	statsRepo   repository.StatsRepository
	wsManager   *ws.Manager
	pushSender  *webpush.Sender
	rateLimiter *ratelimit.RateLimiter
}

func NewChatUseCase(
	convRepo repository.ConversationRepository,
	subRepo repository.SubscriptionRepository,
	statsRepo repository.StatsRepository,
	wsManager *ws.Manager,
	pushSender *webpush.Sender,
) *ChatUseCase {
	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	return &ChatUseCase{
		convRepo:    convRepo,
		subRepo:     subRepo,
		statsRepo:   statsRepo,
		wsManager:   wsManager,
		pushSender:  pushSender,
		rateLimiter: rateLimiter,
	}
}

type SendMessageInput struct {
	ConversationID string
	Text           string
	AttachmentURL  string
	AttachmentName string
}

type SubscribeInput struct {
	ConversationID string
	Endpoint       string
	P256dhKey      string
	AuthKey        string
}

// GetOrCreateRoom returns the borrower's support room, creating it on first
// contact. Each borrower has exactly one room.
func (uc *ChatUseCase) GetOrCreateRoom(ctx context.Context, userID, userLabel string) (*entity.Conversation, error) {
	conv, err := uc.convRepo.GetByUserID(ctx, userID)
	if err == nil {
		return uc.annotateOnline(conv), nil
	}
	if !errors.Is(err, "NOT_FOUND") {
		return nil, err
	}

	now := time.Now()
	conv = &entity.Conversation{
		ID:        uuid.New().String(),
		UserID:    userID,
		UserLabel: userLabel,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.convRepo.Create(ctx, conv); err != nil {
		log.Printf("GetOrCreateRoom: failed to create room for %s: %v", userID, err)
		return nil, err
	}
	log.Printf("GetOrCreateRoom: created room %s for user %s", conv.ID, userID)
	return uc.annotateOnline(conv), nil
}

// ListRooms returns rooms for the operator dashboard, most recent traffic
// first, with the borrower's live connection state annotated.
func (uc *ChatUseCase) ListRooms(ctx context.Context, activeOnly bool, limit, offset int) ([]*entity.Conversation, int64, error) {
	rooms, total, err := uc.convRepo.List(ctx, activeOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, room := range rooms {
		uc.annotateOnline(room)
	}
	return rooms, total, nil
}

// GetRoom fetches one room and checks the caller may see it.
func (uc *ChatUseCase) GetRoom(ctx context.Context, roomID, callerID string, isAdmin bool) (*entity.Conversation, error) {
	conv, err := uc.convRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && conv.UserID != callerID {
		return nil, errors.Forbidden("You do not have access to this conversation", nil)
	}
	return uc.annotateOnline(conv), nil
}

// ListMessages returns a room's messages oldest first.
func (uc *ChatUseCase) ListMessages(ctx context.Context, roomID, callerID string, isAdmin bool, limit, offset int) ([]*entity.Message, int64, error) {
	if _, err := uc.GetRoom(ctx, roomID, callerID, isAdmin); err != nil {
		return nil, 0, err
	}
	return uc.convRepo.ListMessages(ctx, roomID, limit, offset)
}

// SendMessage persists a message and fans it out. The initial status is
// delivered when the recipient holds a live connection, sent otherwise.
// Offline borrowers also get a web push.
func (uc *ChatUseCase) SendMessage(ctx context.Context, senderID string, isAdmin bool, input SendMessageInput) (*entity.Message, error) {
	allowed, waitTime := uc.rateLimiter.Allow(senderID, ratelimit.ActionSendMessage)
	if !allowed {
		log.Printf("SendMessage Rate Limited: User %s must wait %v", senderID, waitTime)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before sending another message", waitTime)
	}

	if input.Text == "" && input.AttachmentURL == "" {
		return nil, errors.BadRequest("Message text is required", nil)
	}

	conv, err := uc.GetRoom(ctx, input.ConversationID, senderID, isAdmin)
	if err != nil {
		return nil, err
	}
	if !conv.IsActive {
		return nil, errors.BadRequest("This conversation has been resolved", nil)
	}

	direction := entity.DirectionUser
	if isAdmin {
		direction = entity.DirectionAdmin
	}

	status := entity.StatusSent
	if uc.recipientOnline(conv, direction) {
		status = entity.StatusDelivered
	}

	now := time.Now()
	msg := &entity.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		Text:           input.Text,
		Direction:      direction,
		Status:         status,
		AttachmentURL:  input.AttachmentURL,
		AttachmentName: input.AttachmentName,
		CreatedAt:      now,
	}
	if err := uc.convRepo.CreateMessage(ctx, msg); err != nil {
		log.Printf("SendMessage: failed to persist message in room %s: %v", conv.ID, err)
		return nil, err
	}

	conv.LastMessage = msg.Preview()
	conv.LastMessageAt = now
	conv.UpdatedAt = now
	if direction == entity.DirectionUser {
		conv.AdminUnreadCount++
	} else {
		conv.UserUnreadCount++
	}
	if err := uc.convRepo.Update(ctx, conv); err != nil {
		log.Printf("SendMessage: failed to update room summary %s: %v", conv.ID, err)
	}

	uc.wsManager.BroadcastToRoom(conv.UserID, ws.MessageFrame(msg))

	if direction == entity.DirectionAdmin && status == entity.StatusSent {
		go uc.pushToBorrower(conv, msg)
	}

	return msg, nil
}

// MarkRoomRead marks every message from the other side as read, zeroes the
// caller's unread counter, and fans the status changes out.
func (uc *ChatUseCase) MarkRoomRead(ctx context.Context, roomID, callerID string, isAdmin bool) (int, error) {
	conv, err := uc.GetRoom(ctx, roomID, callerID, isAdmin)
	if err != nil {
		return 0, err
	}

	readerDirection := entity.DirectionUser
	if isAdmin {
		readerDirection = entity.DirectionAdmin
	}

	updated, err := uc.convRepo.MarkMessagesRead(ctx, roomID, readerDirection)
	if err != nil {
		return 0, err
	}

	if isAdmin {
		conv.AdminUnreadCount = 0
	} else {
		conv.UserUnreadCount = 0
	}
	conv.UpdatedAt = time.Now()
	if err := uc.convRepo.Update(ctx, conv); err != nil {
		log.Printf("MarkRoomRead: failed to update room %s: %v", roomID, err)
	}

	for _, msg := range updated {
		uc.wsManager.BroadcastToRoom(conv.UserID, ws.StatusFrame(conv.ID, msg.ID, entity.StatusRead))
	}

	return len(updated), nil
}

// ResolveRoom closes a room, credits the operator's resolved counter, and
// tells the borrower. Notification failure never blocks the resolve.
func (uc *ChatUseCase) ResolveRoom(ctx context.Context, roomID, operatorID string) (*entity.Conversation, error) {
	conv, err := uc.convRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	conv.IsActive = false
	conv.UpdatedAt = time.Now()
	if err := uc.convRepo.Update(ctx, conv); err != nil {
		log.Printf("ResolveRoom: failed to close room %s: %v", roomID, err)
		return nil, err
	}

	if err := uc.statsRepo.IncrementResolvedCount(ctx, operatorID); err != nil {
		log.Printf("ResolveRoom: failed to increment resolved count for %s: %v", operatorID, err)
	}

	go uc.pushResolved(conv)

	log.Printf("ResolveRoom: room %s resolved by %s", roomID, operatorID)
	return conv, nil
}

// RegisterSubscription stores a browser push subscription for the room.
func (uc *ChatUseCase) RegisterSubscription(ctx context.Context, userID string, isAdmin bool, input SubscribeInput) (*entity.PushSubscription, error) {
	if _, err := uc.GetRoom(ctx, input.ConversationID, userID, isAdmin); err != nil {
		return nil, err
	}

	sub := &entity.PushSubscription{
		ID:             uuid.New().String(),
		ConversationID: input.ConversationID,
		UserID:         userID,
		Endpoint:       input.Endpoint,
		P256dhKey:      input.P256dhKey,
		AuthKey:        input.AuthKey,
		CreatedAt:      time.Now(),
	}
	if err := uc.subRepo.Save(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// GetStats returns how many rooms the operator has resolved.
func (uc *ChatUseCase) GetStats(ctx context.Context, operatorID string) (*entity.SupportStats, error) {
	return uc.statsRepo.GetStats(ctx, operatorID)
}

func (uc *ChatUseCase) annotateOnline(conv *entity.Conversation) *entity.Conversation {
	conv.Online = uc.wsManager.IsUserOnline(conv.UserID)
	return conv
}

func (uc *ChatUseCase) recipientOnline(conv *entity.Conversation, senderDirection string) bool {
	if senderDirection == entity.DirectionAdmin {
		return uc.wsManager.IsUserOnline(conv.UserID)
	}
	// Borrower messages count as delivered when any operator is connected;
	// operators share the queue, any one of them picking it up suffices.
	return uc.wsManager.AnyAdminOnline()
}

func (uc *ChatUseCase) pushToBorrower(conv *entity.Conversation, msg *entity.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	subs, err := uc.subRepo.ListByConversation(ctx, conv.ID)
	if err != nil {
		log.Printf("SendMessage: failed to list subscriptions for room %s: %v", conv.ID, err)
		return
	}

	payload := webpush.Payload{
		Title: "Support",
		Body:  msg.Preview(),
		Tag:   conv.ID,
	}
	for _, sub := range subs {
		if sub.UserID != conv.UserID {
			continue
		}
		if err := uc.pushSender.Send(sub, payload); err != nil {
			if err == webpush.ErrSubscriptionGone {
				if delErr := uc.subRepo.Delete(ctx, sub.ID); delErr != nil {
					log.Printf("SendMessage: failed to drop stale subscription %s: %v", sub.ID, delErr)
				}
				continue
			}
			log.Printf("SendMessage: push to %s failed: %v", sub.Endpoint, err)
		}
	}
}

func (uc *ChatUseCase) pushResolved(conv *entity.Conversation) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	subs, err := uc.subRepo.ListByConversation(ctx, conv.ID)
	if err != nil {
		log.Printf("ResolveRoom: failed to list subscriptions for room %s: %v", conv.ID, err)
		return
	}

	payload := webpush.Payload{
		Title: "Support",
		Body:  "Your conversation has been resolved",
		Tag:   conv.ID,
	}
	for _, sub := range subs {
		if sub.UserID != conv.UserID {
			continue
		}
		if err := uc.pushSender.Send(sub, payload); err != nil {
			log.Printf("ResolveRoom: push to %s failed: %v", sub.Endpoint, err)
		}
	}
}
