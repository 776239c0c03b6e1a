package repository

import (
	"tourism-booking/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	Booking        BookingRepository
	Catalog        CatalogRepository
	Cart           CartRepository
	CartCheckout   CartCheckoutRepository
	Referral       ReferralRepository
	Loyalty        LoyaltyRepository
	Analytics      AnalyticsRepository
	Reconciliation ReconciliationRepository
	User           UserRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Booking:        NewBookingRepository(db, log),
		Catalog:        NewCatalogRepository(db, log),
		Cart:           NewCartRepository(db, log),
		CartCheckout:   NewCartCheckoutRepository(db, log),
		Referral:       NewReferralRepository(db, log),
		Loyalty:        NewLoyaltyRepository(db, log),
		Analytics:      NewAnalyticsRepository(db, log),
		Reconciliation: NewReconciliationRepository(db, log),
		User:           NewUserRepository(db, log),
	}
}
