package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/helpdeskhq/helpdesk/internal/domain"
)

const articleCollection = "kb_articles"

// ArticleFilter narrows knowledge-base listings.
type ArticleFilter struct {
	Kind          *domain.ArticleKind
	Tag           *string
	Audience      *domain.Role
	PublishedOnly bool
	Limit         int
	Offset        int
}

// KnowledgeRepository persists knowledge-base articles.
type KnowledgeRepository interface {
	Create(ctx context.Context, article *domain.Article) error
	Update(ctx context.Context, article *domain.Article) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Article, error)
	List(ctx context.Context, filter ArticleFilter) ([]domain.Article, error)
}

type mongoKnowledgeRepository struct {
	coll *mongo.Collection
}

// NewKnowledgeRepository returns a Mongo-backed repository.
func NewKnowledgeRepository(db *mongo.Database) KnowledgeRepository {
	return &mongoKnowledgeRepository{coll: db.Collection(articleCollection)}
}

type articleDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Kind      string             `bson:"kind"`
	Title     string             `bson:"title"`
	Summary   string             `bson:"summary"`
	Body      string             `bson:"body,omitempty"`
	VideoURL  string             `bson:"video_url,omitempty"`
	Tags      []string           `bson:"tags"`
	Audience  []string           `bson:"audience"`
	Published bool               `bson:"published"`
	AuthorID  string             `bson:"author_id"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func (r *mongoKnowledgeRepository) Create(ctx context.Context, article *domain.Article) error {
	now := time.Now().UTC()
	article.CreatedAt = now
	article.UpdatedAt = now
	res, err := r.coll.InsertOne(ctx, toArticleDoc(article))
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		article.ID = oid.Hex()
	}
	return nil
}

func (r *mongoKnowledgeRepository) Update(ctx context.Context, article *domain.Article) error {
	oid, err := primitive.ObjectIDFromHex(article.ID)
	if err != nil {
		return mongo.ErrNoDocuments
	}
	article.UpdatedAt = time.Now().UTC()
	doc := toArticleDoc(article)
	doc.ID = oid
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *mongoKnowledgeRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return mongo.ErrNoDocuments
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *mongoKnowledgeRepository) GetByID(ctx context.Context, id string) (*domain.Article, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}
	var doc articleDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, err
	}
	return doc.toDomain()
}

func (r *mongoKnowledgeRepository) List(ctx context.Context, filter ArticleFilter) ([]domain.Article, error) {
	query := bson.M{}
	if filter.Kind != nil {
		query["kind"] = string(*filter.Kind)
	}
	if filter.Tag != nil {
		query["tags"] = *filter.Tag
	}
	if filter.PublishedOnly {
		query["published"] = true
	}
	if filter.Audience != nil {
		query["$or"] = bson.A{
			bson.M{"audience": filter.Audience.String()},
			bson.M{"audience": bson.M{"$size": 0}},
		}
	}
	limit, offset := pageBounds(filter.Limit, filter.Offset)
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []articleDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	result := make([]domain.Article, 0, len(docs))
	for i := range docs {
		article, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, *article)
	}
	return result, nil
}

func toArticleDoc(a *domain.Article) articleDoc {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	return articleDoc{
		Kind:      string(a.Kind),
		Title:     a.Title,
		Summary:   a.Summary,
		Body:      a.Body,
		VideoURL:  a.VideoURL,
		Tags:      tags,
		Audience:  domain.RoleLabels(a.Audience),
		Published: a.Published,
		AuthorID:  a.AuthorID,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func (d *articleDoc) toDomain() (*domain.Article, error) {
	audience, err := domain.ParseRoles(d.Audience)
	if err != nil {
		return nil, fmt.Errorf("article %s: %w", d.ID.Hex(), err)
	}
	return &domain.Article{
		ID:        d.ID.Hex(),
		Kind:      domain.ArticleKind(d.Kind),
		Title:     d.Title,
		Summary:   d.Summary,
		Body:      d.Body,
		VideoURL:  d.VideoURL,
		Tags:      d.Tags,
		Audience:  audience,
		Published: d.Published,
		AuthorID:  d.AuthorID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}
