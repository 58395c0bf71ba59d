// internal/services/sale_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ricelink/ricelink-backend/internal/apperrors"
	"github.com/ricelink/ricelink-backend/internal/models"
	"github.com/ricelink/ricelink-backend/internal/utils"
)

// SaleService owns the listing lifecycle. Every transition is a guarded
// conditional update: the write succeeds only if the precondition status
// still holds at commit time, so two racing actors on the same listing
// resolve to exactly one winner.
type SaleService struct {
	db *gorm.DB
}

func NewSaleService(db *gorm.DB) *SaleService {
	return &SaleService{db: db}
}

type CreateListingRequest struct {
	FieldID     uuid.UUID       `json:"field_id" validate:"required"`
	QuantityTon float64         `json:"quantity_ton" validate:"required,gt=0"`
	PricePerTon decimal.Decimal `json:"price_per_ton" validate:"required"`
	Phone       string          `json:"phone" validate:"required,max=20"`
}

type RequestBuyRequest struct {
	NegotiatedPrice *decimal.Decimal `json:"negotiated_price,omitempty"`
	Contact         string           `json:"contact" validate:"omitempty,max=20"`
}

func (s *SaleService) CreateListing(farmer *models.User, req *CreateListingRequest) (*models.SaleListing, error) {
	if !Authorize(farmer.Role, models.RoleFarmer) {
		return nil, apperrors.Forbidden("only farmers can list harvests for sale")
	}

	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Validation(validationMessage(err))
	}
	if !req.PricePerTon.IsPositive() {
		return nil, apperrors.Validation("price per ton must be positive")
	}

	var field models.RiceField
	if err := s.db.First(&field, "id = ?", req.FieldID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("field")
		}
		return nil, apperrors.Internal(err)
	}
	if field.OwnerID != farmer.ID {
		return nil, apperrors.Forbidden("you can only list your own fields")
	}
	if !field.IsActive {
		return nil, apperrors.InvalidState("cannot list a field that is in the trash")
	}

	listing := &models.SaleListing{
		FarmerID:    farmer.ID,
		FieldID:     field.ID,
		QuantityTon: req.QuantityTon,
		PricePerTon: req.PricePerTon,
		Phone:       req.Phone,
		Status:      models.ListingStatusOpen,
	}

	if err := s.db.Create(listing).Error; err != nil {
		return nil, apperrors.Internal(fmt.Errorf("create listing: %w", err))
	}

	logrus.WithFields(logrus.Fields{
		"listing_id": listing.ID,
		"farmer_id":  farmer.ID,
		"field_id":   field.ID,
	}).Info("Sale listing created")

	return listing, nil
}

// ListListings applies the read-side visibility contract: farmers see only
// their own listings, supervisors see everything, and buyer roles see open
// listings plus those where they are the recorded buyer plus sold ones.
func (s *SaleService) ListListings(actor *models.User, params utils.PaginationParams) ([]models.SaleListing, int64, error) {
	query := s.db.Model(&models.SaleListing{})

	switch {
	case actor.Role == models.RoleFarmer:
		query = query.Where("farmer_id = ?", actor.ID)
	case IsSupervisor(actor.Role):
		// all listings
	default:
		query = query.Where("status = ? OR buyer_id = ? OR status = ?",
			models.ListingStatusOpen, actor.ID, models.ListingStatusSold)
	}

	return s.paginateListings(query, params)
}

// OpenMarket returns listings currently open for purchase.
func (s *SaleService) OpenMarket(params utils.PaginationParams) ([]models.SaleListing, int64, error) {
	query := s.db.Model(&models.SaleListing{}).Where("status = ?", models.ListingStatusOpen)
	return s.paginateListings(query, params)
}

func (s *SaleService) GetListing(id uuid.UUID, actor *models.User) (*models.SaleListing, error) {
	listing, err := s.loadListing(id)
	if err != nil {
		return nil, err
	}

	if !listingVisible(listing, actor) {
		return nil, apperrors.NotFound("listing")
	}
	return listing, nil
}

// listingVisible mirrors the ListListings predicate for single reads:
// farmers see their own listings, supervisors see everything, and buyer
// roles see open listings, sold listings, and those they requested.
func listingVisible(listing *models.SaleListing, actor *models.User) bool {
	switch {
	case actor.Role == models.RoleFarmer:
		return listing.FarmerID == actor.ID
	case IsSupervisor(actor.Role):
		return true
	default:
		if listing.Status == models.ListingStatusOpen || listing.Status == models.ListingStatusSold {
			return true
		}
		return listing.BuyerID != nil && *listing.BuyerID == actor.ID
	}
}

// RequestBuy moves an OPEN listing to REQUESTED on behalf of a buyer. The
// buyer contact falls back to the actor's profile phone; a supplied
// negotiated price takes effect only if positive.
func (s *SaleService) RequestBuy(id uuid.UUID, actor *models.User, req *RequestBuyRequest) (*models.SaleListing, error) {
	if actor.Role == models.RoleFarmer {
		return nil, apperrors.Forbidden("farmers cannot request to buy")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Validation(validationMessage(err))
	}

	listing, err := s.loadListing(id)
	if err != nil {
		return nil, err
	}
	if listing.Status != models.ListingStatusOpen {
		return nil, apperrors.InvalidState("listing is not open for purchase")
	}

	contact := req.Contact
	if contact == "" {
		contact = actor.Phone
	}

	updates := map[string]interface{}{
		"status":        models.ListingStatusRequested,
		"buyer_id":      actor.ID,
		"buyer_contact": contact,
	}
	if req.NegotiatedPrice != nil && req.NegotiatedPrice.IsPositive() {
		updates["negotiated_price"] = *req.NegotiatedPrice
	}

	if err := s.transition(id, models.ListingStatusOpen, updates); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"listing_id": id,
		"buyer_id":   actor.ID,
	}).Info("Buy request recorded")

	return s.loadListing(id)
}

// ApproveSale finalizes a REQUESTED listing. A positive negotiated price
// becomes the price of record, overwriting the asking price.
func (s *SaleService) ApproveSale(id uuid.UUID, actor *models.User) (*models.SaleListing, error) {
	listing, err := s.loadListing(id)
	if err != nil {
		return nil, err
	}
	if listing.FarmerID != actor.ID {
		return nil, apperrors.Forbidden("only the listing's farmer can approve a sale")
	}
	if listing.Status != models.ListingStatusRequested {
		return nil, apperrors.InvalidState("no pending buy request to approve")
	}

	// The price of record is resolved inside the guarded UPDATE so a
	// negotiation replaced between our read and the commit is honored.
	updates := map[string]interface{}{
		"status":  models.ListingStatusSold,
		"sold_at": time.Now(),
		"price_per_ton": gorm.Expr(
			"CASE WHEN negotiated_price IS NOT NULL AND negotiated_price > 0 THEN negotiated_price ELSE price_per_ton END"),
	}

	if err := s.transition(id, models.ListingStatusRequested, updates); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"listing_id": id,
		"farmer_id":  actor.ID,
	}).Info("Sale approved")

	return s.loadListing(id)
}

// RejectRequest returns a REQUESTED listing to OPEN, clearing the buyer
// and any negotiated price so a later request starts clean.
func (s *SaleService) RejectRequest(id uuid.UUID, actor *models.User) (*models.SaleListing, error) {
	listing, err := s.loadListing(id)
	if err != nil {
		return nil, err
	}
	if listing.FarmerID != actor.ID {
		return nil, apperrors.Forbidden("only the listing's farmer can reject a buy request")
	}
	if listing.Status != models.ListingStatusRequested {
		return nil, apperrors.InvalidState("no pending buy request to reject")
	}

	updates := map[string]interface{}{
		"status":           models.ListingStatusOpen,
		"buyer_id":         nil,
		"buyer_contact":    nil,
		"negotiated_price": nil,
	}

	if err := s.transition(id, models.ListingStatusRequested, updates); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"listing_id": id,
		"farmer_id":  actor.ID,
	}).Info("Buy request rejected")

	return s.loadListing(id)
}

// transition performs the guarded conditional update. Zero rows affected
// means the precondition status no longer held at commit time: the caller
// lost the race or acted on a stale read.
func (s *SaleService) transition(id uuid.UUID, precondition models.ListingStatus, updates map[string]interface{}) error {
	res := s.db.Model(&models.SaleListing{}).
		Where("id = ? AND status = ?", id, precondition).
		Updates(updates)
	if res.Error != nil {
		return apperrors.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.InvalidState("listing status changed, reload and try again")
	}
	return nil
}

func (s *SaleService) loadListing(id uuid.UUID) (*models.SaleListing, error) {
	var listing models.SaleListing
	if err := s.db.Preload("Field").Preload("Farmer").Preload("Buyer").
		First(&listing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("listing")
		}
		return nil, apperrors.Internal(err)
	}
	return &listing, nil
}

func (s *SaleService) paginateListings(query *gorm.DB, params utils.PaginationParams) ([]models.SaleListing, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal(err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "updated_at", "quantity_ton", "price_per_ton", "status"})
	query = utils.ApplyPagination(query, params)

	var listings []models.SaleListing
	if err := query.Preload("Field").Preload("Farmer").Preload("Buyer").Find(&listings).Error; err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return listings, total, nil
}
