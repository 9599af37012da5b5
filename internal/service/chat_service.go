package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/helpdeskhq/helpdesk/internal/auth"
	"github.com/helpdeskhq/helpdesk/internal/domain"
	"github.com/helpdeskhq/helpdesk/internal/events"
	"github.com/helpdeskhq/helpdesk/internal/observability"
	"github.com/helpdeskhq/helpdesk/internal/repository"
	apperrors "github.com/helpdeskhq/helpdesk/pkg/util/errorutil"
)

const (
	maxAcceptAttempts = 5
	requeueTimeout    = 5 * time.Second
)

// ChatService runs the live chat queue: clients wait, operators accept.
type ChatService struct {
	sessions   repository.ChatRepository
	queue      repository.ChatQueue
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	pageSize   int
	now        func() time.Time
}

// ChatDependencies bundles collaborators for the chat service.
type ChatDependencies struct {
	ChatRepo   repository.ChatRepository
	Queue      repository.ChatQueue
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	PageSize   int
}

// QueuedChat is a waiting session and its place in line.
type QueuedChat struct {
	Session  domain.ChatSession
	Position int64
	Waiting  time.Duration
}

// NewChatService constructs the service.
func NewChatService(deps ChatDependencies) *ChatService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	return &ChatService{
		sessions:   deps.ChatRepo,
		queue:      deps.Queue,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		pageSize:   pageSize,
		now:        time.Now,
	}
}

// Request puts the client in the waiting queue. A client holds at most one open session.
func (s *ChatService) Request(ctx context.Context, p *auth.Principal, subject string) (*domain.ChatSession, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	if !p.IsClient() {
		return nil, apperrors.NewForbidden("only clients can request a chat")
	}
	existing, err := s.sessions.FindOpenSessionByClient(ctx, p.UserID())
	if err == nil {
		return nil, apperrors.NewConflict("client already has an open chat", map[string]any{"session_id": existing.ID, "status": existing.Status})
	}
	if !isNotFound(err) {
		return nil, apperrors.MapError(err)
	}

	session := &domain.ChatSession{
		ClientID:    p.UserID(),
		ClientName:  p.User.Name,
		CompanyID:   p.CompanyID(),
		Subject:     strings.TrimSpace(subject),
		Status:      domain.ChatStatusWaiting,
		RequestedAt: s.now().UTC(),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.queue.Enqueue(ctx, session.ID, session.RequestedAt); err != nil {
		if updErr := s.sessions.UpdateStatus(ctx, session.ID, domain.ChatStatusCancelled, s.now()); updErr != nil {
			s.logger.Error("failed to roll back chat session", zap.String("session_id", session.ID), zap.Error(updErr))
		}
		return nil, apperrors.MapError(err)
	}
	s.refreshDepth(ctx)
	s.publishChat(ctx, p, events.EventChatRequested, session)
	return session, nil
}

// Queue lists waiting sessions in arrival order.
func (s *ChatService) Queue(ctx context.Context, p *auth.Principal, limit int) ([]QueuedChat, error) {
	if err := requireOperator(p); err != nil {
		return nil, err
	}
	entries, err := s.queue.List(ctx, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	now := s.now()
	out := make([]QueuedChat, 0, len(entries))
	for _, entry := range entries {
		session, err := s.sessions.GetSession(ctx, entry.SessionID)
		if err != nil {
			if isNotFound(err) {
				s.logger.Warn("dropping orphan chat queue entry", zap.String("session_id", entry.SessionID))
				_, _ = s.queue.Remove(ctx, entry.SessionID)
				continue
			}
			return nil, apperrors.MapError(err)
		}
		out = append(out, QueuedChat{
			Session:  *session,
			Position: int64(len(out)),
			Waiting:  now.Sub(entry.Since),
		})
	}
	return out, nil
}

// AcceptNext pairs the operator with the longest waiting client.
func (s *ChatService) AcceptNext(ctx context.Context, p *auth.Principal) (*domain.ChatSession, error) {
	if err := requireOperator(p); err != nil {
		return nil, err
	}
	for attempt := 0; attempt < maxAcceptAttempts; attempt++ {
		id, ok, err := s.queue.PopOldest(ctx)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if !ok {
			return nil, apperrors.NewNotFound("waiting chat", nil)
		}
		session, err := s.activate(ctx, p, id)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, repository.ErrSessionNotWaiting) && !isNotFound(err) {
			s.requeue(ctx, id)
			return nil, apperrors.MapError(err)
		}
	}
	return nil, apperrors.NewNotFound("waiting chat", nil)
}

// Accept takes a specific waiting session. Only one operator can win it.
func (s *ChatService) Accept(ctx context.Context, p *auth.Principal, id string) (*domain.ChatSession, error) {
	if err := requireOperator(p); err != nil {
		return nil, err
	}
	removed, err := s.queue.Remove(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !removed {
		return nil, apperrors.NewConflict("chat is no longer waiting", map[string]any{"session_id": id})
	}
	session, err := s.activate(ctx, p, id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotWaiting) {
			return nil, apperrors.NewConflict("chat is no longer waiting", map[string]any{"session_id": id})
		}
		if !isNotFound(err) {
			s.requeue(ctx, id)
		}
		return nil, notFoundOr(err, "chat session", map[string]any{"session_id": id})
	}
	return session, nil
}

// PlaceInLine returns the session with its zero-based queue position.
// The position is reported only while the session is still queued.
func (s *ChatService) PlaceInLine(ctx context.Context, p *auth.Principal, id string) (*domain.ChatSession, *int64, error) {
	session, err := s.loadParticipant(ctx, p, id, true)
	if err != nil {
		return nil, nil, err
	}
	if session.Status != domain.ChatStatusWaiting {
		return session, nil, nil
	}
	rank, queued, err := s.queue.Position(ctx, session.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	if !queued {
		return session, nil, nil
	}
	return session, &rank, nil
}

// PostMessage appends a line to the session. While waiting, only the client may write.
func (s *ChatService) PostMessage(ctx context.Context, p *auth.Principal, id, body string) (*domain.ChatMessage, error) {
	session, err := s.loadParticipant(ctx, p, id, false)
	if err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("message body is required", map[string]any{"body": "required"})
	}
	if !session.IsOpen() {
		return nil, apperrors.NewConflict("chat is closed", map[string]any{"status": session.Status})
	}
	if session.Status == domain.ChatStatusWaiting && session.ClientID != p.UserID() {
		return nil, apperrors.NewConflict("chat has not been accepted", nil)
	}

	msg := &domain.ChatMessage{
		SessionID:  session.ID,
		AuthorID:   p.UserID(),
		AuthorRole: p.Role,
		Body:       body,
		SentAt:     s.now().UTC(),
	}
	if err := s.sessions.AppendMessage(ctx, msg); err != nil {
		return nil, apperrors.MapError(err)
	}
	return msg, nil
}

// Messages returns lines posted after since, oldest first.
func (s *ChatService) Messages(ctx context.Context, p *auth.Principal, id string, since time.Time) ([]domain.ChatMessage, error) {
	session, err := s.loadParticipant(ctx, p, id, true)
	if err != nil {
		return nil, err
	}
	msgs, err := s.sessions.ListMessages(ctx, session.ID, since, s.pageSize)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return msgs, nil
}

// Mine lists the caller's open sessions.
func (s *ChatService) Mine(ctx context.Context, p *auth.Principal) ([]domain.ChatSession, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	filter := repository.ChatSessionFilter{
		Statuses: []domain.ChatStatus{domain.ChatStatusWaiting, domain.ChatStatusActive},
		Limit:    50,
	}
	userID := p.UserID()
	if p.IsClient() {
		filter.ClientID = &userID
	} else {
		filter.OperatorID = &userID
	}
	sessions, err := s.sessions.ListSessions(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return sessions, nil
}

// Close ends the session. A waiting session closed by its client is cancelled
// and leaves the queue.
func (s *ChatService) Close(ctx context.Context, p *auth.Principal, id string) (*domain.ChatSession, error) {
	session, err := s.loadParticipant(ctx, p, id, false)
	if err != nil {
		return nil, err
	}
	switch session.Status {
	case domain.ChatStatusWaiting:
		return s.Cancel(ctx, p, id)
	case domain.ChatStatusActive:
	default:
		return nil, apperrors.NewConflict("chat is already closed", map[string]any{"status": session.Status})
	}

	now := s.now().UTC()
	if err := s.sessions.UpdateStatus(ctx, session.ID, domain.ChatStatusClosed, now); err != nil {
		return nil, notFoundOr(err, "chat session", map[string]any{"session_id": id})
	}
	session.Status = domain.ChatStatusClosed
	session.ClosedAt = &now
	s.publishChat(ctx, p, events.EventChatClosed, session)
	return session, nil
}

// Cancel withdraws a waiting request.
func (s *ChatService) Cancel(ctx context.Context, p *auth.Principal, id string) (*domain.ChatSession, error) {
	session, err := s.loadParticipant(ctx, p, id, false)
	if err != nil {
		return nil, err
	}
	if session.ClientID != p.UserID() {
		return nil, apperrors.NewForbidden("only the requesting client can cancel")
	}
	if session.Status != domain.ChatStatusWaiting {
		return nil, apperrors.NewConflict("only waiting chats can be cancelled", map[string]any{"status": session.Status})
	}
	removed, err := s.queue.Remove(ctx, session.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !removed {
		return nil, apperrors.NewConflict("chat was just accepted", map[string]any{"session_id": id})
	}

	now := s.now().UTC()
	if err := s.sessions.UpdateStatus(ctx, session.ID, domain.ChatStatusCancelled, now); err != nil {
		return nil, apperrors.MapError(err)
	}
	session.Status = domain.ChatStatusCancelled
	session.ClosedAt = &now
	s.refreshDepth(ctx)
	s.publishChat(ctx, p, events.EventChatClosed, session)
	return session, nil
}

func (s *ChatService) activate(ctx context.Context, p *auth.Principal, id string) (*domain.ChatSession, error) {
	session, err := s.sessions.AcceptSession(ctx, id, p.UserID(), s.now())
	if err != nil {
		return nil, err
	}
	s.refreshDepth(ctx)
	s.publishChat(ctx, p, events.EventChatAccepted, session)
	return session, nil
}

// requeue restores a session whose activation failed after it left the queue,
// so it stays visible to operators and cancellable by its client.
func (s *ChatService) requeue(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requeueTimeout)
	defer cancel()
	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		s.logger.Error("failed to reload chat session for requeue", zap.String("session_id", id), zap.Error(err))
		return
	}
	if session.Status != domain.ChatStatusWaiting {
		return
	}
	if err := s.queue.Enqueue(ctx, id, session.RequestedAt); err != nil {
		s.logger.Error("failed to requeue chat session", zap.String("session_id", id), zap.Error(err))
		return
	}
	s.refreshDepth(ctx)
}

func (s *ChatService) loadParticipant(ctx context.Context, p *auth.Principal, id string, adminMayRead bool) (*domain.ChatSession, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "chat session", map[string]any{"session_id": id})
	}
	if session.IsParticipant(p.UserID()) {
		return session, nil
	}
	if adminMayRead && p.Role.CanAdminister() {
		return session, nil
	}
	return nil, apperrors.NewNotFound("chat session", map[string]any{"session_id": id})
}

func (s *ChatService) refreshDepth(ctx context.Context) {
	depth, err := s.queue.Len(ctx)
	if err != nil {
		s.logger.Warn("chat queue length unavailable", zap.Error(err))
		return
	}
	s.metrics.SetChatQueueDepth(depth)
}

func (s *ChatService) publishChat(ctx context.Context, p *auth.Principal, eventType events.EventType, session *domain.ChatSession) {
	publish(ctx, s.dispatcher, events.Event{
		Type:      eventType,
		SubjectID: session.ID,
		Actor:     actorOf(p),
		Payload: events.ChatPayload{
			ClientID:   session.ClientID,
			OperatorID: session.OperatorID,
			Status:     session.Status,
		},
	})
}

func requireOperator(p *auth.Principal) error {
	if err := requirePrincipal(p); err != nil {
		return err
	}
	if !p.Role.CanManageCalls() {
		return apperrors.NewForbidden("operator role required")
	}
	return nil
}
