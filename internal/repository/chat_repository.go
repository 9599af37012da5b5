package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/helpdeskhq/helpdesk/internal/domain"
)

const (
	chatSessionCollection = "chat_sessions"
	chatMessageCollection = "chat_messages"
)

// ErrSessionNotWaiting is returned when another operator accepted the session first.
var ErrSessionNotWaiting = errors.New("chat session is no longer waiting")

// ChatSessionFilter narrows session listings.
type ChatSessionFilter struct {
	ClientID   *string
	OperatorID *string
	Statuses   []domain.ChatStatus
	Limit      int
}

// ChatRepository persists chat sessions and their messages in the document store.
type ChatRepository interface {
	CreateSession(ctx context.Context, session *domain.ChatSession) error
	GetSession(ctx context.Context, id string) (*domain.ChatSession, error)
	FindOpenSessionByClient(ctx context.Context, clientID string) (*domain.ChatSession, error)
	AcceptSession(ctx context.Context, id, operatorID string, at time.Time) (*domain.ChatSession, error)
	UpdateStatus(ctx context.Context, id string, status domain.ChatStatus, at time.Time) error
	ListSessions(ctx context.Context, filter ChatSessionFilter) ([]domain.ChatSession, error)
	AppendMessage(ctx context.Context, msg *domain.ChatMessage) error
	ListMessages(ctx context.Context, sessionID string, since time.Time, limit int) ([]domain.ChatMessage, error)
}

type mongoChatRepository struct {
	sessions *mongo.Collection
	messages *mongo.Collection
}

// NewChatRepository returns a Mongo-backed chat repository.
func NewChatRepository(db *mongo.Database) ChatRepository {
	return &mongoChatRepository{
		sessions: db.Collection(chatSessionCollection),
		messages: db.Collection(chatMessageCollection),
	}
}

type chatSessionDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	ClientID    string             `bson:"client_id"`
	ClientName  string             `bson:"client_name"`
	CompanyID   *string            `bson:"company_id,omitempty"`
	OperatorID  *string            `bson:"operator_id,omitempty"`
	Subject     string             `bson:"subject"`
	Status      string             `bson:"status"`
	RequestedAt time.Time          `bson:"requested_at"`
	AcceptedAt  *time.Time         `bson:"accepted_at,omitempty"`
	ClosedAt    *time.Time         `bson:"closed_at,omitempty"`
}

type chatMessageDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	SessionID  string             `bson:"session_id"`
	AuthorID   string             `bson:"author_id"`
	AuthorRole string             `bson:"author_role"`
	Body       string             `bson:"body"`
	SentAt     time.Time          `bson:"sent_at"`
}

func (r *mongoChatRepository) CreateSession(ctx context.Context, session *domain.ChatSession) error {
	doc := chatSessionDoc{
		ClientID:    session.ClientID,
		ClientName:  session.ClientName,
		CompanyID:   session.CompanyID,
		Subject:     session.Subject,
		Status:      string(session.Status),
		RequestedAt: session.RequestedAt.UTC(),
	}
	res, err := r.sessions.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("insert chat session: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		session.ID = oid.Hex()
	}
	return nil
}

func (r *mongoChatRepository) GetSession(ctx context.Context, id string) (*domain.ChatSession, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}
	var doc chatSessionDoc
	if err := r.sessions.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *mongoChatRepository) FindOpenSessionByClient(ctx context.Context, clientID string) (*domain.ChatSession, error) {
	filter := bson.M{
		"client_id": clientID,
		"status":    bson.M{"$in": []string{string(domain.ChatStatusWaiting), string(domain.ChatStatusActive)}},
	}
	var doc chatSessionDoc
	if err := r.sessions.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *mongoChatRepository) AcceptSession(ctx context.Context, id, operatorID string, at time.Time) (*domain.ChatSession, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}
	accepted := at.UTC()
	filter := bson.M{"_id": oid, "status": string(domain.ChatStatusWaiting)}
	update := bson.M{"$set": bson.M{
		"status":      string(domain.ChatStatusActive),
		"operator_id": operatorID,
		"accepted_at": accepted,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc chatSessionDoc
	if err := r.sessions.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSessionNotWaiting
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *mongoChatRepository) UpdateStatus(ctx context.Context, id string, status domain.ChatStatus, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return mongo.ErrNoDocuments
	}
	set := bson.M{"status": string(status)}
	if status == domain.ChatStatusClosed || status == domain.ChatStatusCancelled {
		set["closed_at"] = at.UTC()
	}
	res, err := r.sessions.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *mongoChatRepository) ListSessions(ctx context.Context, filter ChatSessionFilter) ([]domain.ChatSession, error) {
	query := bson.M{}
	if filter.ClientID != nil {
		query["client_id"] = *filter.ClientID
	}
	if filter.OperatorID != nil {
		query["operator_id"] = *filter.OperatorID
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		query["status"] = bson.M{"$in": statuses}
	}
	limit, _ := pageBounds(filter.Limit, 0)
	opts := options.Find().SetSort(bson.D{{Key: "requested_at", Value: -1}}).SetLimit(int64(limit))

	cursor, err := r.sessions.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []chatSessionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	result := make([]domain.ChatSession, 0, len(docs))
	for i := range docs {
		result = append(result, *docs[i].toDomain())
	}
	return result, nil
}

func (r *mongoChatRepository) AppendMessage(ctx context.Context, msg *domain.ChatMessage) error {
	doc := chatMessageDoc{
		SessionID:  msg.SessionID,
		AuthorID:   msg.AuthorID,
		AuthorRole: msg.AuthorRole.String(),
		Body:       msg.Body,
		SentAt:     msg.SentAt.UTC(),
	}
	res, err := r.messages.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		msg.ID = oid.Hex()
	}
	return nil
}

func (r *mongoChatRepository) ListMessages(ctx context.Context, sessionID string, since time.Time, limit int) ([]domain.ChatMessage, error) {
	query := bson.M{"session_id": sessionID}
	if !since.IsZero() {
		query["sent_at"] = bson.M{"$gt": since.UTC()}
	}
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().SetSort(bson.D{{Key: "sent_at", Value: 1}}).SetLimit(int64(limit))

	cursor, err := r.messages.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []chatMessageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	result := make([]domain.ChatMessage, 0, len(docs))
	for _, doc := range docs {
		role, err := domain.ParseRole(doc.AuthorRole)
		if err != nil {
			return nil, err
		}
		result = append(result, domain.ChatMessage{
			ID:         doc.ID.Hex(),
			SessionID:  doc.SessionID,
			AuthorID:   doc.AuthorID,
			AuthorRole: role,
			Body:       doc.Body,
			SentAt:     doc.SentAt,
		})
	}
	return result, nil
}

func (d *chatSessionDoc) toDomain() *domain.ChatSession {
	return &domain.ChatSession{
		ID:          d.ID.Hex(),
		ClientID:    d.ClientID,
		ClientName:  d.ClientName,
		CompanyID:   d.CompanyID,
		OperatorID:  d.OperatorID,
		Subject:     d.Subject,
		Status:      domain.ChatStatus(d.Status),
		RequestedAt: d.RequestedAt,
		AcceptedAt:  d.AcceptedAt,
		ClosedAt:    d.ClosedAt,
	}
}
