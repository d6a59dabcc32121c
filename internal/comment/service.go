package comment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/apperror"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/comment/entity"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/utilities"
)

var tracer = otel.Tracer("github.com/ovaphlow/pitchfork/service-community-go/internal/comment")

// Store is the persistence the comment service needs.
type Store interface {
	ListByPost(ctx context.Context, postID string) ([]entity.Comment, error)
	Create(ctx context.Context, c *entity.Comment) error
	UpdateText(ctx context.Context, id, text string) (*entity.Comment, error)
	Delete(ctx context.Context, id string) error
}

// Service builds comment views and owns comment CRUD.
type Service struct {
	store    Store
	profiles user.ProfileReader
	logger   *zap.SugaredLogger
}

func NewService(store Store, profiles user.ProfileReader, logger *zap.SugaredLogger) *Service {
	return &Service{store: store, profiles: profiles, logger: logger}
}

var ErrCommentNotFound = fmt.Errorf("comment %w", apperror.ErrNotFound)

// ListByPost returns the views of a post's comments for an authenticated
// caller; idUser carries the caller's id. Comments whose author does not
// resolve are left out. A store failure is returned to the caller.
func (s *Service) ListByPost(ctx context.Context, callerID, postID string) ([]entity.View, error) {
	ctx, span := tracer.Start(ctx, "comment.ListByPost")
	defer span.End()
	span.SetAttributes(attribute.String("post.id", postID))

	comments, err := s.store.ListByPost(ctx, postID)
	if err != nil {
		s.logger.Errorw("list comments failed", "post_id", postID, "err", err)
		return nil, err
	}
	return s.join(ctx, comments, func(entity.Comment) string { return callerID }), nil
}

// ListByPostInternal is ListByPost for callers without an identity: idUser
// carries each comment's author id and a store failure yields an empty slice.
func (s *Service) ListByPostInternal(ctx context.Context, postID string) []entity.View {
	ctx, span := tracer.Start(ctx, "comment.ListByPostInternal")
	defer span.End()

	comments, err := s.store.ListByPost(ctx, postID)
	if err != nil {
		s.logger.Errorw("list comments failed", "post_id", postID, "err", err)
		return []entity.View{}
	}
	return s.join(ctx, comments, func(c entity.Comment) string { return c.UserID })
}

// join attaches author display fields, dropping comments whose author is unresolved.
func (s *Service) join(ctx context.Context, comments []entity.Comment, idUser func(entity.Comment) string) []entity.View {
	views := make([]entity.View, 0, len(comments))
	if len(comments) == 0 {
		return views
	}

	ids := make([]string, len(comments))
	for i, c := range comments {
		ids[i] = c.UserID
	}
	profiles, err := s.profiles.ProfilesByIDs(ctx, ids)
	if err != nil {
		// every author is unresolved; the drop policy applies to all of them
		s.logger.Warnw("resolve comment authors failed", "err", err, "comments", len(comments))
		return views
	}

	for _, c := range comments {
		p, ok := profiles[c.UserID]
		if !ok {
			s.logger.Warnw("comment author unresolved, dropping comment", "comment_id", c.ID, "user_id", c.UserID)
			continue
		}
		views = append(views, entity.View{
			IDComment:       c.ID,
			IDPost:          c.PostID,
			IDUser:          idUser(c),
			CommentUsername: p.FullName(),
			CommentAvatar:   p.Image,
			Comment:         c.Text,
		})
	}
	return views
}

// Add stores a new comment by callerID on postID.
func (s *Service) Add(ctx context.Context, callerID, postID, text string) (*entity.Comment, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	c := &entity.Comment{
		ID:        utilities.NewSnowflakeID(),
		PostID:    postID,
		UserID:    callerID,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, c); err != nil {
		s.logger.Errorw("add comment failed", "post_id", postID, "err", err)
		return nil, err
	}
	return c, nil
}

// Update replaces a comment's text.
func (s *Service) Update(ctx context.Context, commentID, text string) (*entity.Comment, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}
	c, err := s.store.UpdateText(ctx, commentID, text)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, ErrCommentNotFound
		}
		s.logger.Errorw("update comment failed", "comment_id", commentID, "err", err)
		return nil, err
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, commentID string) error {
	if strings.TrimSpace(commentID) == "" {
		return apperror.Field("commentId", "comment id is required")
	}
	if err := s.store.Delete(ctx, commentID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return ErrCommentNotFound
		}
		s.logger.Errorw("delete comment failed", "comment_id", commentID, "err", err)
		return err
	}
	return nil
}

func validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return apperror.Field("comment", "comment is required")
	}
	return nil
}
