// internal/services/sale_service_test.go
package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/ricelink/ricelink-backend/internal/apperrors"
	"github.com/ricelink/ricelink-backend/internal/models"
	"github.com/ricelink/ricelink-backend/internal/utils"
)

type SaleServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *SaleService
	farmer  *models.User
	miller  *models.User
	field   *models.RiceField
}

func (suite *SaleServiceTestSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	suite.service = NewSaleService(suite.db)
	suite.farmer = newTestUser(suite.T(), suite.db, "somchai", models.RoleFarmer)
	suite.miller = newTestUser(suite.T(), suite.db, "mill-one", models.RoleMiller)
	suite.field = newTestField(suite.T(), suite.db, suite.farmer, "main paddy", 10)
}

func (suite *SaleServiceTestSuite) openListing() *models.SaleListing {
	listing, err := suite.service.CreateListing(suite.farmer, &CreateListingRequest{
		FieldID:     suite.field.ID,
		QuantityTon: 3.2,
		PricePerTon: decimal.NewFromInt(12000),
		Phone:       "081-234-5678",
	})
	suite.Require().NoError(err)
	return listing
}

func (suite *SaleServiceTestSuite) TestCreateListingStartsOpen() {
	listing := suite.openListing()

	suite.Equal(models.ListingStatusOpen, listing.Status)
	suite.Nil(listing.BuyerID)
	suite.Nil(listing.SoldAt)
}

func (suite *SaleServiceTestSuite) TestCreateListingRequiresOwnActiveField() {
	other := newTestUser(suite.T(), suite.db, "somsak", models.RoleFarmer)

	_, err := suite.service.CreateListing(other, &CreateListingRequest{
		FieldID:     suite.field.ID,
		QuantityTon: 1,
		PricePerTon: decimal.NewFromInt(12000),
		Phone:       "081-000-0000",
	})
	suite.True(apperrors.HasCode(err, apperrors.CodeForbidden))

	suite.Require().NoError(suite.db.Model(&models.RiceField{}).
		Where("id = ?", suite.field.ID).Update("is_active", false).Error)

	_, err = suite.service.CreateListing(suite.farmer, &CreateListingRequest{
		FieldID:     suite.field.ID,
		QuantityTon: 1,
		PricePerTon: decimal.NewFromInt(12000),
		Phone:       "081-000-0000",
	})
	suite.True(apperrors.HasCode(err, apperrors.CodeInvalidState))
}

func (suite *SaleServiceTestSuite) TestCreateListingRejectsNonPositivePrice() {
	_, err := suite.service.CreateListing(suite.farmer, &CreateListingRequest{
		FieldID:     suite.field.ID,
		QuantityTon: 1,
		PricePerTon: decimal.Zero,
		Phone:       "081-000-0000",
	})
	suite.True(apperrors.HasCode(err, apperrors.CodeValidation))
}

func (suite *SaleServiceTestSuite) TestRequestBuyRecordsBuyerAndNegotiation() {
	listing := suite.openListing()

	negotiated := decimal.NewFromInt(13500)
	updated, err := suite.service.RequestBuy(listing.ID, suite.miller, &RequestBuyRequest{
		NegotiatedPrice: &negotiated,
	})
	suite.Require().NoError(err)

	suite.Equal(models.ListingStatusRequested, updated.Status)
	suite.Require().NotNil(updated.BuyerID)
	suite.Equal(suite.miller.ID, *updated.BuyerID)
	suite.Require().NotNil(updated.NegotiatedPrice)
	suite.True(negotiated.Equal(*updated.NegotiatedPrice))
	// No contact supplied, so the buyer's profile phone is recorded.
	suite.Require().NotNil(updated.BuyerContact)
	suite.Equal(suite.miller.Phone, *updated.BuyerContact)
}

func (suite *SaleServiceTestSuite) TestFarmersCannotBuy() {
	listing := suite.openListing()

	_, err := suite.service.RequestBuy(listing.ID, suite.farmer, &RequestBuyRequest{})
	suite.True(apperrors.HasCode(err, apperrors.CodeForbidden))
}

func (suite *SaleServiceTestSuite) TestSecondRequestLoses() {
	listing := suite.openListing()

	_, err := suite.service.RequestBuy(listing.ID, suite.miller, &RequestBuyRequest{})
	suite.Require().NoError(err)

	rival := newTestUser(suite.T(), suite.db, "mill-two", models.RoleMiller)
	_, err = suite.service.RequestBuy(listing.ID, rival, &RequestBuyRequest{})
	suite.True(apperrors.HasCode(err, apperrors.CodeInvalidState))

	// The first buyer is still the one on record.
	current, err := suite.service.GetListing(listing.ID, suite.farmer)
	suite.Require().NoError(err)
	suite.Equal(suite.miller.ID, *current.BuyerID)
}

func (suite *SaleServiceTestSuite) TestRequestBuyLosesRaceAtCommit() {
	listing := suite.openListing()
	rival := newTestUser(suite.T(), suite.db, "mill-two", models.RoleMiller)

	// Flip the listing between the service's status read and its guarded
	// write, as a rival committing first would.
	flipped := false
	err := suite.db.Callback().Update().Before("gorm:update").Register("flip_to_requested", func(tx *gorm.DB) {
		if flipped {
			return
		}
		flipped = true
		suite.Require().NoError(suite.db.Exec(
			"UPDATE sale_listings SET status = ?, buyer_id = ? WHERE id = ?",
			models.ListingStatusRequested, rival.ID, listing.ID).Error)
	})
	suite.Require().NoError(err)

	_, err = suite.service.RequestBuy(listing.ID, suite.miller, &RequestBuyRequest{})
	suite.True(apperrors.HasCode(err, apperrors.CodeInvalidState))

	var current models.SaleListing
	suite.Require().NoError(suite.db.First(&current, "id = ?", listing.ID).Error)
	suite.Equal(models.ListingStatusRequested, current.Status)
	suite.Equal(rival.ID, *current.BuyerID)
}

func (suite *SaleServiceTestSuite) TestGetListingHidesRivalRequests() {
	listing := suite.openListing()
	negotiated := decimal.NewFromInt(9000)
	_, err := suite.service.RequestBuy(listing.ID, suite.miller, &RequestBuyRequest{
		NegotiatedPrice: &negotiated,
	})
	suite.Require().NoError(err)

	rival := newTestUser(suite.T(), suite.db, "mill-two", models.RoleMiller)
	_, err = suite.service.GetListing(listing.ID, rival)
	suite.True(apperrors.HasCode(err, apperrors.CodeNotFound),
		"a requested listing hides the buyer and negotiation from rivals")

	// The recorded buyer still sees it.
	got, err := suite.service.GetListing(listing.ID, suite.miller)
	suite.Require().NoError(err)
	suite.Equal(models.ListingStatusRequested, got.Status)

	// Once sold the listing is readable by any buyer role again.
	_, err = suite.service.ApproveSale(listing.ID, suite.farmer)
	suite.Require().NoError(err)
	sold, err := suite.service.GetListing(listing.ID, rival)
	suite.Require().NoError(err)
	suite.Equal(models.ListingStatusSold, sold.Status)
}

func (suite *SaleServiceTestSuite) TestApproveUsesNegotiatedPrice() {
	listing := suite.openListing()
	negotiated := decimal.NewFromInt(13500)
	_, err := suite.service.RequestBuy(listing.ID, suite.miller, &RequestBuyRequest{
		NegotiatedPrice: &negotiated,
	})
	suite.Require().NoError(err)

	sold, err := suite.service.ApproveSale(listing.ID, suite.farmer)
	suite.Require().NoError(err)

	suite.Equal(models.ListingStatusSold, sold.Status)
	suite.True(negotiated.Equal(sold.PricePerTon), "negotiated price becomes the price of record")
	suite.NotNil(sold.SoldAt)
}

func (suite *SaleServiceTestSuite) TestApproveKeepsAskingPriceWithoutNegotiation() {
	listing := suite.openListing()
	_, err := suite.service.RequestBuy(listing.ID, suite.miller, &RequestBuyRequest{})
	suite.Require().NoError(err)

	sold, err := suite.service.ApproveSale(listing.ID, suite.farmer)
	suite.Require().NoError(err)
	suite.True(decimal.NewFromInt(12000).Equal(sold.PricePerTon))
}

func (suite *SaleServiceTestSuite) TestApproveUsesNegotiationAtCommitTime() {
	listing := suite.openListing()
	first := decimal.NewFromInt(9000)
	_, err := suite.service.RequestBuy(listing.ID, suite.miller, &RequestBuyRequest{
		NegotiatedPrice: &first,
	})
	suite.Require().NoError(err)

	// A rejection and re-request land between the approval's read and its
	// guarded write; the price of record must come from the row at commit
	// time, not from the stale read.
	rival := newTestUser(suite.T(), suite.db, "mill-two", models.RoleMiller)
	swapped := false
	err = suite.db.Callback().Update().Before("gorm:update").Register("swap_negotiation", func(tx *gorm.DB) {
		if swapped {
			return
		}
		swapped = true
		suite.Require().NoError(suite.db.Exec(
			"UPDATE sale_listings SET buyer_id = ?, negotiated_price = ? WHERE id = ?",
			rival.ID, decimal.NewFromInt(14000), listing.ID).Error)
	})
	suite.Require().NoError(err)

	sold, err := suite.service.ApproveSale(listing.ID, suite.farmer)
	suite.Require().NoError(err)

	suite.True(decimal.NewFromInt(14000).Equal(sold.PricePerTon))
	suite.Require().NotNil(sold.BuyerID)
	suite.Equal(rival.ID, *sold.BuyerID)
}

func (suite *SaleServiceTestSuite) TestApproveOnlyByListingFarmer() {
	listing := suite.openListing()
	_, err := suite.service.RequestBuy(listing.ID, suite.miller, &RequestBuyRequest{})
	suite.Require().NoError(err)

	other := newTestUser(suite.T(), suite.db, "somsak", models.RoleFarmer)
	_, err = suite.service.ApproveSale(listing.ID, other)
	suite.True(apperrors.HasCode(err, apperrors.CodeForbidden))
}

func (suite *SaleServiceTestSuite) TestApproveWithoutRequestFails() {
	listing := suite.openListing()

	_, err := suite.service.ApproveSale(listing.ID, suite.farmer)
	suite.True(apperrors.HasCode(err, apperrors.CodeInvalidState))
}

func (suite *SaleServiceTestSuite) TestRejectReopensClean() {
	listing := suite.openListing()
	negotiated := decimal.NewFromInt(9000)
	_, err := suite.service.RequestBuy(listing.ID, suite.miller, &RequestBuyRequest{
		NegotiatedPrice: &negotiated,
		Contact:         "089-999-9999",
	})
	suite.Require().NoError(err)

	reopened, err := suite.service.RejectRequest(listing.ID, suite.farmer)
	suite.Require().NoError(err)

	suite.Equal(models.ListingStatusOpen, reopened.Status)
	suite.Nil(reopened.BuyerID)
	suite.Nil(reopened.BuyerContact)
	suite.Nil(reopened.NegotiatedPrice)
	// The asking price survives a rejected negotiation.
	suite.True(decimal.NewFromInt(12000).Equal(reopened.PricePerTon))
}

func (suite *SaleServiceTestSuite) TestSoldIsTerminal() {
	listing := suite.openListing()
	_, err := suite.service.RequestBuy(listing.ID, suite.miller, &RequestBuyRequest{})
	suite.Require().NoError(err)
	_, err = suite.service.ApproveSale(listing.ID, suite.farmer)
	suite.Require().NoError(err)

	_, err = suite.service.RequestBuy(listing.ID, suite.miller, &RequestBuyRequest{})
	suite.True(apperrors.HasCode(err, apperrors.CodeInvalidState))

	_, err = suite.service.RejectRequest(listing.ID, suite.farmer)
	suite.True(apperrors.HasCode(err, apperrors.CodeInvalidState))
}

func (suite *SaleServiceTestSuite) TestOpenMarketShowsOnlyOpenListings() {
	open := suite.openListing()

	second := newTestField(suite.T(), suite.db, suite.farmer, "second paddy", 8)
	requested, err := suite.service.CreateListing(suite.farmer, &CreateListingRequest{
		FieldID:     second.ID,
		QuantityTon: 2,
		PricePerTon: decimal.NewFromInt(11000),
		Phone:       "081-234-5678",
	})
	suite.Require().NoError(err)
	_, err = suite.service.RequestBuy(requested.ID, suite.miller, &RequestBuyRequest{})
	suite.Require().NoError(err)

	market, total, err := suite.service.OpenMarket(utils.PaginationParams{Page: 1, Limit: 20})
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal(open.ID, market[0].ID)
}

func (suite *SaleServiceTestSuite) TestListListingsVisibility() {
	listing := suite.openListing()

	otherFarmer := newTestUser(suite.T(), suite.db, "somsak", models.RoleFarmer)
	official := newTestUser(suite.T(), suite.db, "inspector", models.RoleGovt)

	_, total, err := suite.service.ListListings(otherFarmer, utils.PaginationParams{Page: 1, Limit: 20})
	suite.Require().NoError(err)
	suite.Equal(int64(0), total, "farmers see only their own listings")

	_, total, err = suite.service.ListListings(suite.miller, utils.PaginationParams{Page: 1, Limit: 20})
	suite.Require().NoError(err)
	suite.Equal(int64(1), total, "buyers see open listings")

	_, total, err = suite.service.ListListings(official, utils.PaginationParams{Page: 1, Limit: 20})
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)

	_, err = suite.service.GetListing(listing.ID, otherFarmer)
	suite.True(apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestSaleServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SaleServiceTestSuite))
}
