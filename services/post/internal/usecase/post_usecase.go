package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"tell-all/pkg/clock"
	"tell-all/pkg/logger"
	"tell-all/services/post/internal/entity"
	"tell-all/services/post/internal/repo/persistent"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	maxTitleLength    = 200
	maxTagLength      = 40
	publishedCacheTTL = 10 * time.Minute
	publishedCacheKey = "post:published:%s"
)

// CoverStore persists an uploaded cover picture and returns where it lives.
type CoverStore interface {
	UploadCover(filename string, body io.Reader, contentType string) (string, error)
}

type CoverUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type CreatePostInput struct {
	Title        string
	Summary      *string
	Body         *string
	CoverPicture *string
	Cover        *CoverUpload
	Type         string
	PubDate      *time.Time
	Tags         []string
}

// EditPostInput has no title: titles are fixed at creation.
type EditPostInput struct {
	Summary      *string
	Body         *string
	CoverPicture *string
	Cover        *CoverUpload
	Type         *string
	PubDate      *time.Time
	Tags         *[]string
}

type ListQuery struct {
	View    entity.View
	Type    string
	PubDate *time.Time
	Tag     string
	Search  string
	Limit   int
	Offset  int
}

type PublishedPost struct {
	Post     *entity.Post `json:"post"`
	BodyHTML string       `json:"body_html"`
}

type PostUseCase interface {
	CreatePost(ctx context.Context, authorID string, in CreatePostInput) (*entity.Post, error)
	EditPost(ctx context.Context, slug, editorID string, in EditPostInput) (*entity.Post, error)
	DeletePost(ctx context.Context, slug string) error
	ListAllPosts(ctx context.Context, q ListQuery) ([]*entity.Post, int64, error)
	ListPublishedPosts(ctx context.Context, q ListQuery) ([]*entity.Post, int64, error)
	GetPublishedPost(ctx context.Context, slug string) (*PublishedPost, error)
	ListTags(ctx context.Context) ([]entity.Tag, error)
	CreateTag(ctx context.Context, name string) (*entity.Tag, error)
}

type postUseCase struct {
	postRepo    persistent.PostRepository
	tagRepo     persistent.TagRepository
	covers      CoverStore
	redisClient *redis.Client
	clock       clock.Clock
	logger      *logger.Logger
}

func NewPostUseCase(
	postRepo persistent.PostRepository,
	tagRepo persistent.TagRepository,
	covers CoverStore,
	redisClient *redis.Client,
	clk clock.Clock,
	logger *logger.Logger,
) PostUseCase {
	return &postUseCase{
		postRepo:    postRepo,
		tagRepo:     tagRepo,
		covers:      covers,
		redisClient: redisClient,
		clock:       clk,
		logger:      logger,
	}
}

func (uc *postUseCase) CreatePost(ctx context.Context, authorID string, in CreatePostInput) (*entity.Post, error) {
	verr := &ValidationError{}

	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		verr.add("title", "This field is required.")
	case len([]rune(title)) > maxTitleLength:
		verr.add("title", fmt.Sprintf("Ensure this field has no more than %d characters.", maxTitleLength))
	default:
		exists, err := uc.postRepo.TitleExists(ctx, title)
		if err != nil {
			return nil, fmt.Errorf("failed to check title: %w", err)
		}
		if exists {
			verr.add("title", "post with this title exist")
		}
	}

	postType := entity.TypeFreemium
	if in.Type != "" {
		postType = uc.validateType(verr, in.Type)
	}
	uc.validatePubDate(verr, in.PubDate)

	tags, err := uc.resolveTags(ctx, verr, in.Tags)
	if err != nil {
		return nil, err
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}

	cover := in.CoverPicture
	if in.Cover != nil {
		url, err := uc.uploadCover(in.Cover)
		if err != nil {
			return nil, err
		}
		cover = &url
	}

	post := &entity.Post{
		Title:        title,
		Summary:      in.Summary,
		Body:         in.Body,
		CoverPicture: cover,
		Status:       entity.StatusDraft,
		Type:         postType,
		PubDate:      normalizeDay(in.PubDate),
		AuthorID:     authorID,
		Tags:         tags,
	}

	if err := uc.insertPost(ctx, post); err != nil {
		return nil, err
	}

	uc.logger.Info("[POST] created %s (%s) by %s", post.Slug, post.Type, authorID)
	return post, nil
}

func (uc *postUseCase) EditPost(ctx context.Context, slug, editorID string, in EditPostInput) (*entity.Post, error) {
	post, err := uc.getBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	if in.Type != nil {
		post.Type = uc.validateType(verr, *in.Type)
	}
	if in.PubDate != nil {
		uc.validatePubDate(verr, in.PubDate)
		post.PubDate = normalizeDay(in.PubDate)
	}
	if in.Tags != nil {
		tags, err := uc.resolveTags(ctx, verr, *in.Tags)
		if err != nil {
			return nil, err
		}
		post.Tags = tags
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	if in.Summary != nil {
		post.Summary = in.Summary
	}
	if in.Body != nil {
		post.Body = in.Body
	}
	if in.CoverPicture != nil {
		post.CoverPicture = in.CoverPicture
	}
	if in.Cover != nil {
		url, err := uc.uploadCover(in.Cover)
		if err != nil {
			return nil, err
		}
		post.CoverPicture = &url
	}

	if err := uc.postRepo.Update(ctx, post, editorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	uc.evict(ctx, slug)
	uc.logger.Info("[POST] %s edited by %s", slug, editorID)
	return post, nil
}

func (uc *postUseCase) DeletePost(ctx context.Context, slug string) error {
	if err := uc.postRepo.DeleteBySlug(ctx, slug); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		return fmt.Errorf("failed to delete post: %w", err)
	}

	uc.evict(ctx, slug)
	uc.logger.Info("[POST] %s deleted", slug)
	return nil
}

func (uc *postUseCase) ListAllPosts(ctx context.Context, q ListQuery) ([]*entity.Post, int64, error) {
	return uc.list(ctx, q)
}

func (uc *postUseCase) ListPublishedPosts(ctx context.Context, q ListQuery) ([]*entity.Post, int64, error) {
	q.View = entity.ViewPublished
	return uc.list(ctx, q)
}

func (uc *postUseCase) GetPublishedPost(ctx context.Context, slug string) (*PublishedPost, error) {
	if cached := uc.cached(ctx, slug); cached != nil {
		return cached, nil
	}

	post, err := uc.getBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !post.IsPublished() {
		return nil, ErrPostNotFound
	}

	result := &PublishedPost{Post: post}
	if post.Body != nil {
		html, err := RenderBody(*post.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to render post body: %w", err)
		}
		result.BodyHTML = html
	}

	uc.cache(ctx, slug, result)
	return result, nil
}

func (uc *postUseCase) ListTags(ctx context.Context) ([]entity.Tag, error) {
	return uc.tagRepo.List(ctx)
}

func (uc *postUseCase) CreateTag(ctx context.Context, name string) (*entity.Tag, error) {
	name = strings.TrimSpace(name)
	verr := &ValidationError{}
	switch {
	case name == "":
		verr.add("name", "This field is required.")
	case len([]rune(name)) > maxTagLength:
		verr.add("name", fmt.Sprintf("Ensure this field has no more than %d characters.", maxTagLength))
	default:
		exists, err := uc.tagRepo.Exists(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to check tag: %w", err)
		}
		if exists {
			verr.add("name", "tag with this name already exists.")
		}
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	tag := &entity.Tag{Name: name}
	if err := uc.tagRepo.Create(ctx, tag); err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	return tag, nil
}

func (uc *postUseCase) list(ctx context.Context, q ListQuery) ([]*entity.Post, int64, error) {
	filter := persistent.PostFilter{
		View:    q.View,
		PubDate: q.PubDate,
		Tag:     q.Tag,
		Search:  q.Search,
		Limit:   q.Limit,
		Offset:  q.Offset,
	}
	if q.Type != "" {
		t := entity.PostType(q.Type)
		if !t.Valid() {
			return nil, 0, &ValidationError{Fields: map[string]string{"type": fmt.Sprintf("%q is not a valid choice.", q.Type)}}
		}
		filter.Type = t
	}

	posts, total, err := uc.postRepo.Filter(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, total, nil
}

func (uc *postUseCase) getBySlug(ctx context.Context, slug string) (*entity.Post, error) {
	post, err := uc.postRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to load post: %w", err)
	}
	return post, nil
}

func (uc *postUseCase) validateType(verr *ValidationError, raw string) entity.PostType {
	t := entity.PostType(raw)
	if !t.Valid() {
		verr.add("type", fmt.Sprintf("%q is not a valid choice.", raw))
	}
	return t
}

func (uc *postUseCase) validatePubDate(verr *ValidationError, pubDate *time.Time) {
	if pubDate == nil {
		return
	}
	if !clock.Day(*pubDate).After(uc.clock.Today()) {
		verr.add("pub_date", "pub date must be a future date")
	}
}

func (uc *postUseCase) resolveTags(ctx context.Context, verr *ValidationError, names []string) ([]entity.Tag, error) {
	names = dedupe(names)
	if len(names) == 0 {
		return []entity.Tag{}, nil
	}

	tags, err := uc.tagRepo.FindByNames(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tags: %w", err)
	}

	found := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		found[t.Name] = struct{}{}
	}
	for _, name := range names {
		if _, ok := found[name]; !ok {
			verr.add("tags", fmt.Sprintf("Object with name=%s does not exist.", name))
			break
		}
	}
	return tags, nil
}

func (uc *postUseCase) uploadCover(cover *CoverUpload) (string, error) {
	if uc.covers == nil {
		return "", ErrCoverStoreDisabled
	}
	url, err := uc.covers.UploadCover(cover.Filename, cover.Body, cover.ContentType)
	if err != nil {
		return "", fmt.Errorf("failed to upload cover picture: %w", err)
	}
	return url, nil
}

// insertPost stores post under a fresh slug. A concurrent create can win the
// title or slug between the checks and the insert; the unique indexes catch
// it. A lost title race is reported as a title error, a lost slug race gets
// one more slug.
func (uc *postUseCase) insertPost(ctx context.Context, post *entity.Post) error {
	for attempt := 0; ; attempt++ {
		slug, err := uc.uniqueSlug(ctx, post.Title)
		if err != nil {
			return err
		}
		post.Slug = slug

		err = uc.postRepo.Create(ctx, post)
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("failed to create post: %w", err)
		}

		exists, checkErr := uc.postRepo.TitleExists(ctx, post.Title)
		if checkErr != nil {
			return fmt.Errorf("failed to check title: %w", checkErr)
		}
		if exists {
			verr := &ValidationError{}
			verr.add("title", "post with this title exist")
			return verr
		}
		if attempt > 0 {
			return fmt.Errorf("failed to create post: %w", err)
		}
	}
}

// uniqueSlug derives a slug from title and suffixes a counter when another
// title already produced the same one.
func (uc *postUseCase) uniqueSlug(ctx context.Context, title string) (string, error) {
	base := entity.Slugify(title)
	if base == "" {
		base = "post"
	}

	candidate := base
	for i := 2; i < 100; i++ {
		exists, err := uc.postRepo.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return fmt.Sprintf("%s-%s", base, uuid.New().String()[:8]), nil
}

func (uc *postUseCase) cached(ctx context.Context, slug string) *PublishedPost {
	if uc.redisClient == nil {
		return nil
	}

	raw, err := uc.redisClient.Get(ctx, fmt.Sprintf(publishedCacheKey, slug)).Bytes()
	if err != nil {
		return nil
	}

	var post PublishedPost
	if err := json.Unmarshal(raw, &post); err != nil {
		uc.logger.Warn("[CACHE] dropping unreadable entry for %s: %v", slug, err)
		return nil
	}
	return &post
}

func (uc *postUseCase) cache(ctx context.Context, slug string, post *PublishedPost) {
	if uc.redisClient == nil {
		return
	}

	raw, err := json.Marshal(post)
	if err != nil {
		return
	}
	if err := uc.redisClient.Set(ctx, fmt.Sprintf(publishedCacheKey, slug), raw, publishedCacheTTL).Err(); err != nil {
		uc.logger.Warn("[CACHE] failed to cache %s: %v", slug, err)
	}
}

func (uc *postUseCase) evict(ctx context.Context, slug string) {
	if uc.redisClient == nil {
		return
	}
	if err := uc.redisClient.Del(ctx, fmt.Sprintf(publishedCacheKey, slug)).Err(); err != nil {
		uc.logger.Warn("[CACHE] failed to evict %s: %v", slug, err)
	}
}

func normalizeDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := clock.Day(*t)
	return &d
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
