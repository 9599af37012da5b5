package service

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/helpdeskhq/helpdesk/internal/auth"
	"github.com/helpdeskhq/helpdesk/internal/domain"
	"github.com/helpdeskhq/helpdesk/internal/events"
	"github.com/helpdeskhq/helpdesk/internal/repository"
	apperrors "github.com/helpdeskhq/helpdesk/pkg/util/errorutil"
)

const protocolPrefix = "CALL-"

// CallService coordinates the support call workflow.
type CallService struct {
	calls      repository.CallRepository
	messages   repository.CallMessageRepository
	history    repository.CallHistoryRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// CallDependencies bundles repositories for the call service.
type CallDependencies struct {
	CallRepo    repository.CallRepository
	MessageRepo repository.CallMessageRepository
	HistoryRepo repository.CallHistoryRepository
	UserRepo    repository.UserRepository
	Dispatcher  events.Dispatcher
}

// CallOpenInput describes a new call.
type CallOpenInput struct {
	Title       string
	Description string
	Priority    domain.CallPriority
	Tags        []string
}

// CallListFilter describes listing filters. Client callers are always scoped to their own calls.
type CallListFilter struct {
	CompanyID   *string
	OperatorID  *string
	Unassigned  bool
	Statuses    []domain.CallStatus
	Priorities  []domain.CallPriority
	Tag         *string
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// CallDetail is a call with the messages visible to the viewer.
type CallDetail struct {
	Call     *domain.Call
	Messages []domain.CallMessage
}

// NewCallService constructs the service.
func NewCallService(deps CallDependencies) *CallService {
	return &CallService{
		calls:      deps.CallRepo,
		messages:   deps.MessageRepo,
		history:    deps.HistoryRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		now:        time.Now,
	}
}

// Open creates a call on behalf of a client for their company.
func (s *CallService) Open(ctx context.Context, p *auth.Principal, input CallOpenInput) (*domain.Call, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	if !p.IsClient() {
		return nil, apperrors.NewForbidden("only clients can open calls")
	}
	companyID := p.CompanyID()
	if companyID == nil {
		return nil, apperrors.NewValidationError("client is not linked to a company", nil)
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"title": "required"})
	}

	call := &domain.Call{
		Protocol:    newProtocol(s.now()),
		CompanyID:   *companyID,
		ClientID:    p.UserID(),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      domain.CallStatusOpen,
		Priority:    input.Priority,
		Tags:        normalizeTags(input.Tags),
	}
	if call.Priority == "" {
		call.Priority = domain.CallPriorityMedium
	}
	if !validPriority(call.Priority) {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}

	if err := s.calls.Create(ctx, call); err != nil {
		return nil, apperrors.MapError(err)
	}
	publish(ctx, s.dispatcher, events.Event{
		Type:      events.EventCallOpened,
		SubjectID: call.ID,
		Actor:     actorOf(p),
		Payload: events.CallOpenedPayload{
			Protocol:  call.Protocol,
			CompanyID: call.CompanyID,
			Priority:  call.Priority,
			Title:     call.Title,
		},
	})
	return call, nil
}

// List returns calls visible to the caller.
func (s *CallService) List(ctx context.Context, p *auth.Principal, filter CallListFilter) ([]domain.Call, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	repoFilter := repository.CallFilter{
		CompanyID:   filter.CompanyID,
		OperatorID:  filter.OperatorID,
		Unassigned:  filter.Unassigned,
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		Tag:         filter.Tag,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	if !p.Role.CanManageCalls() {
		clientID := p.UserID()
		repoFilter.ClientID = &clientID
		repoFilter.CompanyID = nil
		repoFilter.OperatorID = nil
		repoFilter.Unassigned = false
	}
	calls, err := s.calls.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return calls, nil
}

// Get returns a call and its thread. Internal notes are hidden from clients.
func (s *CallService) Get(ctx context.Context, p *auth.Principal, id string) (*CallDetail, error) {
	call, err := s.loadAccessible(ctx, p, id)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByCall(ctx, call.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !p.Role.CanManageCalls() {
		msgs = publicMessages(msgs)
	}
	return &CallDetail{Call: call, Messages: msgs}, nil
}

// GetByProtocol resolves a protocol number to the call detail.
func (s *CallService) GetByProtocol(ctx context.Context, p *auth.Principal, protocol string) (*CallDetail, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	call, err := s.calls.GetByProtocol(ctx, strings.ToUpper(strings.TrimSpace(protocol)))
	if err != nil {
		return nil, notFoundOr(err, "call", map[string]any{"protocol": protocol})
	}
	return s.Get(ctx, p, call.ID)
}

// AddMessage appends a reply or an internal note. A client reply to a call that
// was waiting on them puts it back in progress.
func (s *CallService) AddMessage(ctx context.Context, p *auth.Principal, id string, messageType domain.CallMessageType, body string) (*domain.CallMessage, error) {
	call, err := s.loadAccessible(ctx, p, id)
	if err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("message body is required", map[string]any{"body": "required"})
	}
	if call.IsFinal() {
		return nil, apperrors.NewConflict("call is no longer open", map[string]any{"status": call.Status})
	}
	if messageType == "" {
		messageType = domain.MessageTypePublicReply
	}
	switch messageType {
	case domain.MessageTypePublicReply:
	case domain.MessageTypeInternalNote:
		if !p.Role.CanManageCalls() {
			return nil, apperrors.NewForbidden("clients can only post public replies")
		}
	default:
		return nil, apperrors.NewValidationError("invalid message type", map[string]any{"message_type": messageType})
	}

	msg := &domain.CallMessage{
		CallID:      call.ID,
		AuthorID:    p.UserID(),
		AuthorRole:  p.Role,
		MessageType: messageType,
		Body:        body,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.MapError(err)
	}
	publish(ctx, s.dispatcher, events.Event{
		Type:      events.EventCallMessageAdded,
		SubjectID: call.ID,
		Actor:     actorOf(p),
		Payload: events.CallMessageAddedPayload{
			MessageID:   msg.ID,
			MessageType: msg.MessageType,
			BodyPreview: stringPreview(msg.Body, 120),
		},
	})

	if p.IsClient() && call.Status == domain.CallStatusWaitingClient {
		if _, err := s.transition(ctx, p, call, domain.CallStatusInProgress, "client_replied"); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

// UpdateStatus moves a call through its lifecycle. Operators may only act on
// calls assigned to them; taking an open call moves it in progress.
func (s *CallService) UpdateStatus(ctx context.Context, p *auth.Principal, id string, newStatus domain.CallStatus, comment string) (*domain.Call, error) {
	call, err := s.loadManageable(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if call.OperatorID == nil && newStatus == domain.CallStatusInProgress {
		if err := s.assign(ctx, p, call, p.UserID()); err != nil {
			return nil, err
		}
	}
	return s.transition(ctx, p, call, newStatus, comment)
}

// UpdatePriority changes urgency.
func (s *CallService) UpdatePriority(ctx context.Context, p *auth.Principal, id string, newPriority domain.CallPriority) (*domain.Call, error) {
	call, err := s.loadManageable(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !validPriority(newPriority) {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": newPriority})
	}
	if call.IsFinal() {
		return nil, apperrors.NewConflict("call is no longer open", map[string]any{"status": call.Status})
	}
	if call.Priority == newPriority {
		return call, nil
	}
	oldPriority := call.Priority
	call.Priority = newPriority
	if err := s.calls.Update(ctx, call); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.record(ctx, p, call.ID, domain.ChangeTypePriority,
		map[string]any{"priority": oldPriority}, map[string]any{"priority": newPriority}); err != nil {
		return nil, apperrors.MapError(err)
	}
	publish(ctx, s.dispatcher, events.Event{
		Type:      events.EventCallPriorityChanged,
		SubjectID: call.ID,
		Actor:     actorOf(p),
		Payload:   events.CallPriorityChangedPayload{OldPriority: oldPriority, NewPriority: newPriority},
	})
	return call, nil
}

// Take assigns the call to the calling operator.
func (s *CallService) Take(ctx context.Context, p *auth.Principal, id string) (*domain.Call, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	if !p.Role.CanManageCalls() {
		return nil, apperrors.NewForbidden("operator role required")
	}
	call, err := s.calls.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "call", map[string]any{"call_id": id})
	}
	if call.IsFinal() {
		return nil, apperrors.NewConflict("call is no longer open", map[string]any{"status": call.Status})
	}
	if call.OperatorID != nil {
		if *call.OperatorID == p.UserID() {
			return call, nil
		}
		if !p.Role.CanAdminister() {
			return nil, apperrors.NewConflict("call already assigned", map[string]any{"operator_id": *call.OperatorID})
		}
	}
	if err := s.assign(ctx, p, call, p.UserID()); err != nil {
		return nil, err
	}
	if call.Status == domain.CallStatusOpen {
		return s.transition(ctx, p, call, domain.CallStatusInProgress, "taken")
	}
	return call, nil
}

// Assign hands the call to another operator. Administrators only.
func (s *CallService) Assign(ctx context.Context, p *auth.Principal, id, operatorID string) (*domain.Call, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	operator, err := s.users.GetByID(ctx, operatorID)
	if err != nil {
		return nil, notFoundOr(err, "operator", map[string]any{"operator_id": operatorID})
	}
	if !operator.Active {
		return nil, apperrors.NewConflict("operator inactive", map[string]any{"operator_id": operatorID})
	}
	role, err := auth.EffectiveRole(operator.Roles)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if role != domain.RoleOperator {
		return nil, apperrors.NewValidationError("assignee must be an operator", map[string]any{"operator_id": operatorID, "role": role.String()})
	}

	call, err := s.calls.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "call", map[string]any{"call_id": id})
	}
	if call.IsFinal() {
		return nil, apperrors.NewConflict("call is no longer open", map[string]any{"status": call.Status})
	}
	if call.OperatorID != nil && *call.OperatorID == operatorID {
		return call, nil
	}
	if err := s.assign(ctx, p, call, operatorID); err != nil {
		return nil, err
	}
	return call, nil
}

// Close lets the client close a call that was resolved or is waiting on them.
func (s *CallService) Close(ctx context.Context, p *auth.Principal, id string) (*domain.Call, error) {
	call, err := s.loadAccessible(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !p.IsClient() {
		return s.UpdateStatus(ctx, p, id, domain.CallStatusClosed, "")
	}
	if call.Status != domain.CallStatusResolved && call.Status != domain.CallStatusWaitingClient {
		return nil, apperrors.NewConflict("call cannot be closed in current status", map[string]any{"status": call.Status})
	}
	return s.setStatus(ctx, p, call, domain.CallStatusClosed, "client_closed")
}

// Cancel lets the client withdraw a call nobody has picked up yet.
func (s *CallService) Cancel(ctx context.Context, p *auth.Principal, id string) (*domain.Call, error) {
	call, err := s.loadAccessible(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !p.IsClient() {
		return s.UpdateStatus(ctx, p, id, domain.CallStatusCancelled, "")
	}
	if call.Status != domain.CallStatusOpen {
		return nil, apperrors.NewConflict("only open calls can be cancelled", map[string]any{"status": call.Status})
	}
	return s.setStatus(ctx, p, call, domain.CallStatusCancelled, "client_cancelled")
}

// History lists audit entries. Clients only see status and operator changes.
func (s *CallService) History(ctx context.Context, p *auth.Principal, id string, limit, offset int) ([]domain.CallHistory, error) {
	call, err := s.loadAccessible(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	entries, err := s.history.ListByCall(ctx, call.ID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if p.Role.CanManageCalls() {
		return entries, nil
	}
	visible := make([]domain.CallHistory, 0, len(entries))
	for _, entry := range entries {
		if entry.ChangeType == domain.ChangeTypeStatus || entry.ChangeType == domain.ChangeTypeOperator {
			visible = append(visible, entry)
		}
	}
	return visible, nil
}

func (s *CallService) loadAccessible(ctx context.Context, p *auth.Principal, id string) (*domain.Call, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	call, err := s.calls.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "call", map[string]any{"call_id": id})
	}
	if !p.Role.CanManageCalls() && call.ClientID != p.UserID() {
		return nil, apperrors.NewNotFound("call", map[string]any{"call_id": id})
	}
	return call, nil
}

func (s *CallService) loadManageable(ctx context.Context, p *auth.Principal, id string) (*domain.Call, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	if !p.Role.CanManageCalls() {
		return nil, apperrors.NewForbidden("operator role required")
	}
	call, err := s.calls.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "call", map[string]any{"call_id": id})
	}
	if !p.Role.CanAdminister() && call.OperatorID != nil && *call.OperatorID != p.UserID() {
		return nil, apperrors.NewForbidden("call is assigned to another operator")
	}
	return call, nil
}

func (s *CallService) transition(ctx context.Context, p *auth.Principal, call *domain.Call, next domain.CallStatus, comment string) (*domain.Call, error) {
	if call.Status == next {
		return call, nil
	}
	if !isValidTransition(call.Status, next) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{"from": call.Status, "to": next})
	}
	return s.setStatus(ctx, p, call, next, comment)
}

func (s *CallService) setStatus(ctx context.Context, p *auth.Principal, call *domain.Call, next domain.CallStatus, comment string) (*domain.Call, error) {
	oldStatus := call.Status
	call.Status = next
	if next == domain.CallStatusClosed || next == domain.CallStatusCancelled {
		now := s.now().UTC()
		call.ClosedAt = &now
	} else {
		call.ClosedAt = nil
	}
	if err := s.calls.Update(ctx, call); err != nil {
		return nil, apperrors.MapError(err)
	}
	newValue := map[string]any{"status": next}
	if comment != "" {
		newValue["comment"] = comment
	}
	if err := s.record(ctx, p, call.ID, domain.ChangeTypeStatus, map[string]any{"status": oldStatus}, newValue); err != nil {
		return nil, apperrors.MapError(err)
	}
	publish(ctx, s.dispatcher, events.Event{
		Type:      events.EventCallStatusChanged,
		SubjectID: call.ID,
		Actor:     actorOf(p),
		Payload:   events.CallStatusChangedPayload{OldStatus: oldStatus, NewStatus: next, Comment: comment},
	})
	return call, nil
}

func (s *CallService) assign(ctx context.Context, p *auth.Principal, call *domain.Call, operatorID string) error {
	oldOperator := call.OperatorID
	call.OperatorID = &operatorID
	if err := s.calls.Update(ctx, call); err != nil {
		return apperrors.MapError(err)
	}
	oldValue := map[string]any{"operator_id": nil}
	if oldOperator != nil {
		oldValue["operator_id"] = *oldOperator
	}
	if err := s.record(ctx, p, call.ID, domain.ChangeTypeOperator, oldValue, map[string]any{"operator_id": operatorID}); err != nil {
		return apperrors.MapError(err)
	}
	publish(ctx, s.dispatcher, events.Event{
		Type:      events.EventCallAssigned,
		SubjectID: call.ID,
		Actor:     actorOf(p),
		Payload:   events.CallAssignedPayload{OldOperatorID: oldOperator, OperatorID: operatorID},
	})
	return nil
}

func (s *CallService) record(ctx context.Context, p *auth.Principal, callID string, changeType domain.CallChangeType, oldValue, newValue map[string]any) error {
	if s.history == nil {
		return nil
	}
	return s.history.Create(ctx, &domain.CallHistory{
		CallID:      callID,
		ChangedByID: p.UserID(),
		ChangeType:  changeType,
		OldValue:    oldValue,
		NewValue:    newValue,
	})
}

func publicMessages(msgs []domain.CallMessage) []domain.CallMessage {
	filtered := make([]domain.CallMessage, 0, len(msgs))
	for _, msg := range msgs {
		if msg.MessageType == domain.MessageTypeInternalNote {
			continue
		}
		filtered = append(filtered, msg)
	}
	return filtered
}

func newProtocol(at time.Time) string {
	return protocolPrefix + ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()
}

func validPriority(p domain.CallPriority) bool {
	switch p {
	case domain.CallPriorityLow, domain.CallPriorityMedium, domain.CallPriorityHigh, domain.CallPriorityUrgent:
		return true
	}
	return false
}

var allowedTransitions = map[domain.CallStatus][]domain.CallStatus{
	domain.CallStatusOpen:          {domain.CallStatusInProgress, domain.CallStatusCancelled},
	domain.CallStatusInProgress:    {domain.CallStatusWaitingClient, domain.CallStatusResolved, domain.CallStatusCancelled},
	domain.CallStatusWaitingClient: {domain.CallStatusInProgress, domain.CallStatusResolved, domain.CallStatusCancelled},
	domain.CallStatusResolved:      {domain.CallStatusClosed, domain.CallStatusInProgress},
	domain.CallStatusClosed:        {},
	domain.CallStatusCancelled:     {},
}

func isValidTransition(current, next domain.CallStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
