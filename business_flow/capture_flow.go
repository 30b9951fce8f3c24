package businessflow

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hendarSu/locationtracker/app/dto"
	"github.com/hendarSu/locationtracker/app/services"
	"github.com/hendarSu/locationtracker/logger"
	"github.com/hendarSu/locationtracker/models"
	"github.com/hendarSu/locationtracker/repository"
	"github.com/hendarSu/locationtracker/utils"
	"github.com/xuri/excelize/v2"
)

// Export formats
const (
	ExportFormatCSV  = "csv"
	ExportFormatXLSX = "xlsx"
)

// CaptureRequest is one geolocation reading submitted from a tracking page
type CaptureRequest struct {
	TrackingID string
	Latitude   float64
	Longitude  float64
	UserAgent  string
	// FallbackPhone is used only when the link cannot be found
	FallbackPhone string
}

// CaptureFlow records locations and serves the capture history
type CaptureFlow interface {
	CaptureLocation(ctx context.Context, req CaptureRequest) error
	GetLocationHistory(ctx context.Context, phoneNumber string) (*dto.LocationHistoryResponse, error)
	GetRecentLocations(ctx context.Context, limit int, query string) (*dto.RecentLocationsResponse, error)
	DeleteLocation(ctx context.Context, id uint) (bool, error)
	ExportLocationHistory(ctx context.Context, phoneNumber, format string) (*dto.ExportFile, error)
}

type CaptureFlowImpl struct {
	linkRepo     repository.TrackingLinkRepository
	locationRepo repository.LocationRecordRepository
	cache        services.ViewCache
}

func NewCaptureFlow(linkRepo repository.TrackingLinkRepository, locationRepo repository.LocationRecordRepository, cache services.ViewCache) CaptureFlow {
	if cache == nil {
		cache = services.NoopViewCache{}
	}
	return &CaptureFlowImpl{
		linkRepo:     linkRepo,
		locationRepo: locationRepo,
		cache:        cache,
	}
}

func validCoordinate(v, limit float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= -limit && v <= limit
}

// CaptureLocation stores a reading against the phone number of its link. A link that
// cannot be found or read falls back to the phone number carried by the page, then to "unknown".
func (f *CaptureFlowImpl) CaptureLocation(ctx context.Context, req CaptureRequest) error {
	trackingID := strings.TrimSpace(req.TrackingID)
	if trackingID == "" {
		return NewBusinessError("VALIDATION_ERROR", "Tracking link id is required", ErrLinkIDRequired)
	}
	if !validCoordinate(req.Latitude, 90) || !validCoordinate(req.Longitude, 180) {
		return NewBusinessError("VALIDATION_ERROR", "Latitude must be within [-90, 90] and longitude within [-180, 180]", ErrInvalidCoordinates)
	}

	phone, resolved := f.resolvePhone(ctx, trackingID, req.FallbackPhone)

	record := &models.LocationRecord{
		TrackingID:  trackingID,
		PhoneNumber: phone,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Browser:     utils.NilIfBlank(&req.UserAgent),
		Timestamp:   utils.UTCNow(),
	}
	if err := f.locationRepo.Save(ctx, record); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("tracking_id", trackingID).Msg("location capture failed")
		return NewBusinessError("CAPTURE_FAILED", "Failed to save location data", ErrCaptureFailed)
	}

	locationsCapturedTotal.WithLabelValues(resolved).Inc()
	invalidateViews(ctx, f.cache, utils.ProfileCacheKey(phone), utils.LinksListCacheKey)
	return nil
}

func (f *CaptureFlowImpl) resolvePhone(ctx context.Context, trackingID, fallback string) (phone, resolved string) {
	link, err := f.linkRepo.ByID(ctx, trackingID)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("tracking_id", trackingID).Msg("tracking link lookup failed, using fallback phone")
	}
	if link != nil {
		return link.PhoneNumber, "link"
	}
	if fb := strings.TrimSpace(fallback); fb != "" {
		return fb, "fallback"
	}
	return models.UnknownPhoneNumber, "unknown"
}

// GetLocationHistory returns all captures for a phone number, newest first
func (f *CaptureFlowImpl) GetLocationHistory(ctx context.Context, phoneNumber string) (*dto.LocationHistoryResponse, error) {
	phone := strings.TrimSpace(phoneNumber)
	if phone == "" {
		return nil, NewBusinessError("VALIDATION_ERROR", "Phone number is required", ErrPhoneNumberRequired)
	}

	key := utils.ProfileCacheKey(phone)
	var cached dto.LocationHistoryResponse
	if cachedView(ctx, f.cache, key, &cached) {
		return &cached, nil
	}

	records, err := f.locationRepo.ByFilter(ctx, models.LocationRecordFilter{PhoneNumber: &phone}, `"timestamp" DESC, id DESC`, 0, 0)
	if err != nil {
		return nil, NewBusinessError("FETCH_LOCATIONS_FAILED", "Failed to fetch location history", err)
	}

	items := make([]dto.LocationItem, 0, len(records))
	for _, r := range records {
		items = append(items, ToLocationItem(r))
	}
	resp := &dto.LocationHistoryResponse{PhoneNumber: phone, Items: items, Total: len(items)}

	storeView(ctx, f.cache, key, resp)
	return resp, nil
}

// GetRecentLocations returns the newest captures, optionally filtered by a phone number substring
func (f *CaptureFlowImpl) GetRecentLocations(ctx context.Context, limit int, query string) (*dto.RecentLocationsResponse, error) {
	if limit <= 0 {
		limit = utils.RecentLocationsDefaultLimit
	}
	if limit > utils.RecentLocationsMaxLimit {
		limit = utils.RecentLocationsMaxLimit
	}

	filter := models.LocationRecordFilter{}
	if q := strings.TrimSpace(query); q != "" {
		filter.PhoneNumberLike = &q
	}

	records, err := f.locationRepo.ByFilter(ctx, filter, `"timestamp" DESC, id DESC`, limit, 0)
	if err != nil {
		return nil, NewBusinessError("FETCH_LOCATIONS_FAILED", "Failed to fetch recent locations", err)
	}

	items := make([]dto.LocationItem, 0, len(records))
	for _, r := range records {
		items = append(items, ToLocationItem(r))
	}
	return &dto.RecentLocationsResponse{Items: items}, nil
}

func (f *CaptureFlowImpl) DeleteLocation(ctx context.Context, id uint) (bool, error) {
	record, err := f.locationRepo.ByID(ctx, id)
	if err != nil {
		return false, NewBusinessError("FETCH_LOCATIONS_FAILED", "Failed to fetch location record", err)
	}
	if record == nil {
		return false, nil
	}

	affected, err := f.locationRepo.DeleteByID(ctx, id)
	if err != nil {
		return false, NewBusinessError("LOCATION_DELETE_FAILED", "Failed to delete location record", err)
	}

	invalidateViews(ctx, f.cache, utils.ProfileCacheKey(record.PhoneNumber), utils.LinksListCacheKey)
	return affected > 0, nil
}

var exportHeader = []string{"id", "tracking_id", "phone_number", "latitude", "longitude", "browser", "timestamp"}

// exportTextColumns index the free-text columns of exportHeader
var exportTextColumns = []int{1, 2, 5}

func exportRow(r dto.LocationItem) []string {
	return []string{
		strconv.FormatUint(uint64(r.ID), 10),
		r.TrackingID,
		r.PhoneNumber,
		strconv.FormatFloat(r.Latitude, 'f', -1, 64),
		strconv.FormatFloat(r.Longitude, 'f', -1, 64),
		r.Browser,
		r.Timestamp.UTC().Format(time.RFC3339),
	}
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// ExportLocationHistory renders the phone's history as CSV or XLSX
func (f *CaptureFlowImpl) ExportLocationHistory(ctx context.Context, phoneNumber, format string) (*dto.ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatXLSX {
		return nil, NewBusinessErrorf("VALIDATION_ERROR", "Unsupported export format %q", ErrUnsupportedExportFormat, format)
	}

	history, err := f.GetLocationHistory(ctx, phoneNumber)
	if err != nil {
		return nil, err
	}

	name := unsafeFilenameChars.ReplaceAllString(history.PhoneNumber, "_")
	filename := fmt.Sprintf("locations_%s_%s.%s", strings.Trim(name, "_"), utils.DateOnly(utils.UTCNow()), format)

	if format == ExportFormatXLSX {
		content, err := writeHistoryXLSX(history.Items)
		if err != nil {
			return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
		}
		return &dto.ExportFile{
			Filename:    filename,
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Content:     content,
		}, nil
	}

	content, err := writeHistoryCSV(history.Items)
	if err != nil {
		return nil, NewBusinessError("CSV_WRITE_ERROR", "Failed to write CSV file", err)
	}
	return &dto.ExportFile{
		Filename:    filename,
		ContentType: "text/csv; charset=utf-8",
		Content:     content,
	}, nil
}

// csvCell keeps spreadsheet applications from evaluating a text cell as a formula
func csvCell(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}

func writeHistoryCSV(items []dto.LocationItem) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, item := range items {
		row := exportRow(item)
		for _, col := range exportTextColumns {
			row[col] = csvCell(row[col])
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const exportSheetName = "Locations"

func writeHistoryXLSX(items []dto.LocationItem) ([]byte, error) {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), exportSheetName); err != nil {
		return nil, err
	}
	header := exportHeader
	if err := xl.SetSheetRow(exportSheetName, "A1", &header); err != nil {
		return nil, err
	}
	for i, item := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		// string values become typed string cells, which are never evaluated
		row := exportRow(item)
		if err := xl.SetSheetRow(exportSheetName, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
