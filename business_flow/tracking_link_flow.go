package businessflow

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/hendarSu/locationtracker/app/dto"
	"github.com/hendarSu/locationtracker/app/services"
	"github.com/hendarSu/locationtracker/logger"
	"github.com/hendarSu/locationtracker/models"
	"github.com/hendarSu/locationtracker/repository"
	"github.com/hendarSu/locationtracker/utils"
	"gorm.io/gorm"
)

// TrackingLinkFlow manages the link registry
type TrackingLinkFlow interface {
	CreateLink(ctx context.Context, req *dto.CreateTrackingLinkRequest, createdBy string) (*dto.CreateTrackingLinkResponse, error)
	// GetLink returns nil, nil when no link has the id
	GetLink(ctx context.Context, id string) (*models.TrackingLink, error)
	GetLinkDetail(ctx context.Context, id string) (*dto.TrackingLinkDetail, error)
	GetPublicLink(ctx context.Context, id string) (*dto.PublicTrackingLink, error)
	ListLinks(ctx context.Context) (*dto.ListTrackingLinksResponse, error)
	SearchLinks(ctx context.Context, query string) (*dto.ListTrackingLinksResponse, error)
	// DeleteLink removes the link and its captures, reporting whether the link existed
	DeleteLink(ctx context.Context, id string) (bool, error)
}

type TrackingLinkFlowImpl struct {
	db           *gorm.DB
	linkRepo     repository.TrackingLinkRepository
	locationRepo repository.LocationRecordRepository
	schema       repository.SchemaStore
	cache        services.ViewCache
	markdown     *services.MarkdownRenderer
	baseURL      string
	healTimeout  time.Duration
}

func NewTrackingLinkFlow(
	db *gorm.DB,
	linkRepo repository.TrackingLinkRepository,
	locationRepo repository.LocationRecordRepository,
	schema repository.SchemaStore,
	cache services.ViewCache,
	markdown *services.MarkdownRenderer,
	baseURL string,
) TrackingLinkFlow {
	if cache == nil {
		cache = services.NoopViewCache{}
	}
	if markdown == nil {
		markdown = services.NewMarkdownRenderer()
	}
	return &TrackingLinkFlowImpl{
		db:           db,
		linkRepo:     linkRepo,
		locationRepo: locationRepo,
		schema:       schema,
		cache:        cache,
		markdown:     markdown,
		baseURL:      baseURL,
		healTimeout:  30 * time.Second,
	}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeSlug trims, lowercases and replaces each whitespace run with a hyphen
func NormalizeSlug(slug string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(slug)), "-")
}

// generateLinkID returns 16 lowercase hex characters
func generateLinkID() (string, error) {
	b := make([]byte, utils.RandomLinkIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (f *TrackingLinkFlowImpl) CreateLink(ctx context.Context, req *dto.CreateTrackingLinkRequest, createdBy string) (*dto.CreateTrackingLinkResponse, error) {
	if req == nil {
		return nil, NewBusinessError("VALIDATION_ERROR", "Phone number is required", ErrPhoneNumberRequired)
	}
	phone := strings.TrimSpace(req.PhoneNumber)
	if phone == "" {
		return nil, NewBusinessError("VALIDATION_ERROR", "Phone number is required", ErrPhoneNumberRequired)
	}
	if len(phone) > 255 {
		return nil, NewBusinessError("VALIDATION_ERROR", "Phone number must be at most 255 characters", ErrPhoneNumberTooLong)
	}
	if strings.TrimSpace(createdBy) == "" {
		createdBy = utils.SystemUsername
	}

	origin := "random"
	var id string
	if slug := NormalizeSlug(utils.Deref(req.CustomSlug)); slug != "" {
		origin = "slug"
		id = slug
		existing, err := f.linkRepo.ByID(ctx, id)
		if err != nil {
			return nil, NewBusinessError("LINK_LOOKUP_FAILED", "Failed to check slug availability", err)
		}
		if existing != nil {
			return nil, slugInUse()
		}
	} else {
		generated, err := generateLinkID()
		if err != nil {
			return nil, NewBusinessError("LINK_ID_GENERATION_FAILED", "Failed to generate link id", err)
		}
		id = generated
	}

	link := &models.TrackingLink{
		ID:                id,
		PhoneNumber:       phone,
		CreatedBy:         createdBy,
		CustomTitle:       utils.NilIfBlank(req.CustomTitle),
		CustomDescription: utils.NilIfBlank(req.CustomDescription),
		CustomContent:     utils.NilIfBlank(req.CustomContent),
		CreatedAt:         utils.UTCNow(),
	}

	insertPath := "full"
	if err := f.linkRepo.Save(ctx, link); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, slugInUse()
		}
		if err := f.saveBaseOnDrift(ctx, link, err); err != nil {
			return nil, err
		}
		insertPath = "base"
	}

	linksCreatedTotal.WithLabelValues(origin, insertPath).Inc()
	invalidateViews(ctx, f.cache, utils.LinksListCacheKey)

	return &dto.CreateTrackingLinkResponse{
		ID:  id,
		URL: BuildTrackingURL(f.baseURL, id, phone),
	}, nil
}

// saveBaseOnDrift retries a failed full insert with only the base columns when the
// store has not been migrated, then migrates it in the background
func (f *TrackingLinkFlowImpl) saveBaseOnDrift(ctx context.Context, link *models.TrackingLink, insertErr error) error {
	extended, probeErr := f.schema.HasExtendedColumns(ctx)
	if probeErr != nil || extended {
		return NewBusinessError("LINK_CREATE_FAILED", "Failed to create tracking link", insertErr)
	}

	log := logger.Ctx(ctx)
	log.Warn().Err(insertErr).Str("link_id", link.ID).Msg("tracking_links lacks extended columns, inserting base columns only")

	base := link.Base()
	if err := f.linkRepo.SaveBase(ctx, &base); err != nil {
		if repository.IsDuplicateKey(err) {
			return slugInUse()
		}
		return NewBusinessError("LINK_CREATE_FAILED", "Failed to create tracking link", err)
	}

	go f.healSchema()
	return nil
}

func (f *TrackingLinkFlowImpl) healSchema() {
	ctx, cancel := context.WithTimeout(context.Background(), f.healTimeout)
	defer cancel()

	added, err := f.schema.EnsureExtendedColumns(ctx)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("background schema migration failed")
		return
	}
	if len(added) > 0 {
		schemaColumnsAddedTotal.Add(float64(len(added)))
		logger.Ctx(ctx).Info().Strs("columns", added).Msg("background schema migration added columns")
	}
}

func slugInUse() error {
	return NewBusinessError("SLUG_IN_USE", "This slug is already in use. Please choose a different one.", ErrSlugInUse)
}

func (f *TrackingLinkFlowImpl) GetLink(ctx context.Context, id string) (*models.TrackingLink, error) {
	if id == "" {
		return nil, nil
	}
	link, err := f.linkRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("LINK_LOOKUP_FAILED", "Failed to fetch tracking link", err)
	}
	return link, nil
}

func (f *TrackingLinkFlowImpl) GetLinkDetail(ctx context.Context, id string) (*dto.TrackingLinkDetail, error) {
	link, err := f.GetLink(ctx, id)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, NewBusinessError("LINK_NOT_FOUND", "Tracking link not found", ErrLinkNotFound)
	}
	return &dto.TrackingLinkDetail{
		ID:                link.ID,
		PhoneNumber:       link.PhoneNumber,
		CreatedBy:         link.CreatedBy,
		CreatedAt:         link.CreatedAt.UTC(),
		CustomTitle:       link.CustomTitle,
		CustomDescription: link.CustomDescription,
		CustomContent:     link.CustomContent,
		URL:               BuildTrackingURL(f.baseURL, link.ID, link.PhoneNumber),
	}, nil
}

// GetPublicLink returns the presentation of a link as shown to its recipient
func (f *TrackingLinkFlowImpl) GetPublicLink(ctx context.Context, id string) (*dto.PublicTrackingLink, error) {
	link, err := f.GetLink(ctx, id)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, NewBusinessError("LINK_NOT_FOUND", "Tracking link not found", ErrLinkNotFound)
	}

	content, err := f.markdown.Render(utils.Deref(link.CustomContent))
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("link_id", link.ID).Msg("custom content rendering failed")
		content = ""
	}
	return &dto.PublicTrackingLink{
		ID:          link.ID,
		Title:       utils.Deref(link.CustomTitle),
		Description: utils.Deref(link.CustomDescription),
		ContentHTML: content,
	}, nil
}

// ListLinks returns every link with its activity, newest first
func (f *TrackingLinkFlowImpl) ListLinks(ctx context.Context) (*dto.ListTrackingLinksResponse, error) {
	var cached dto.ListTrackingLinksResponse
	if cachedView(ctx, f.cache, utils.LinksListCacheKey, &cached) {
		return &cached, nil
	}

	extended, err := f.schema.HasExtendedColumns(ctx)
	if err != nil {
		return nil, NewBusinessError("SCHEMA_PROBE_FAILED", "Failed to inspect tracking_links", err)
	}
	rows, err := f.linkRepo.ListWithActivity(ctx, extended)
	if err != nil {
		return nil, NewBusinessError("LIST_LINKS_FAILED", "Failed to list tracking links", err)
	}

	items := make([]dto.TrackingLinkItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, ToTrackingLinkItem(row, f.baseURL))
	}
	resp := &dto.ListTrackingLinksResponse{Items: items, Total: len(items)}

	storeView(ctx, f.cache, utils.LinksListCacheKey, resp)
	return resp, nil
}

// SearchLinks filters ListLinks by a case-insensitive substring of id, phone number or title
func (f *TrackingLinkFlowImpl) SearchLinks(ctx context.Context, query string) (*dto.ListTrackingLinksResponse, error) {
	all, err := f.ListLinks(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all, nil
	}

	items := make([]dto.TrackingLinkItem, 0)
	for _, item := range all.Items {
		if strings.Contains(strings.ToLower(item.ID), q) ||
			strings.Contains(strings.ToLower(item.PhoneNumber), q) ||
			strings.Contains(strings.ToLower(utils.Deref(item.CustomTitle)), q) {
			items = append(items, item)
		}
	}
	return &dto.ListTrackingLinksResponse{Items: items, Total: len(items)}, nil
}

func (f *TrackingLinkFlowImpl) DeleteLink(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, NewBusinessError("VALIDATION_ERROR", "Tracking link id is required", ErrLinkIDRequired)
	}

	var existed bool
	phones := map[string]struct{}{}
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		link, err := f.linkRepo.ByID(txCtx, id)
		if err != nil {
			return err
		}
		if link != nil {
			phones[link.PhoneNumber] = struct{}{}
		}

		records, err := f.locationRepo.ByFilter(txCtx, models.LocationRecordFilter{TrackingID: &id}, "", 0, 0)
		if err != nil {
			return err
		}
		for _, r := range records {
			phones[r.PhoneNumber] = struct{}{}
		}

		if _, err := f.locationRepo.DeleteByTrackingID(txCtx, id); err != nil {
			return err
		}
		affected, err := f.linkRepo.DeleteByID(txCtx, id)
		if err != nil {
			return err
		}
		existed = affected > 0
		return nil
	})
	if err != nil {
		return false, NewBusinessError("LINK_DELETE_FAILED", "Failed to delete tracking link", err)
	}

	keys := []string{utils.LinksListCacheKey}
	for phone := range phones {
		keys = append(keys, utils.ProfileCacheKey(phone))
	}
	invalidateViews(ctx, f.cache, keys...)

	return existed, nil
}
