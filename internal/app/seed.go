package app

import (
	"time"

	dominv "github.com/Zhima-Mochi/storefront/internal/domain/inventory"
	dompromo "github.com/Zhima-Mochi/storefront/internal/domain/promotion"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Demo catalogue loaded into the in-memory store.
var (
	seedKeyboardID = uuid.MustParse("3b8f6a1e-2c4d-4e8a-9f10-6a7b8c9d0e11")
	seedMouseID    = uuid.MustParse("5d2e7b3f-4a6c-4b9d-8e21-7c8d9e0f1a22")
	seedCableID    = uuid.MustParse("7f4a9c5b-6e8d-4cae-9d32-8e9f0a1b2c33")
)

func seedProducts(now time.Time) []*dominv.Product {
	return []*dominv.Product{
		{
			ID: seedKeyboardID, Name: "Mechanical Keyboard", Category: "peripherals",
			Description: "Tenkeyless, brown switches",
			Price:       decimal.RequireFromString("89.90"), Quantity: 40, Threshold: 5, UpdatedAt: now,
		},
		{
			ID: seedMouseID, Name: "Wireless Mouse", Category: "peripherals",
			Description: "2.4 GHz, rechargeable",
			Price:       decimal.RequireFromString("24.50"), Quantity: 120, UpdatedAt: now,
		},
		{
			ID: seedCableID, Name: "USB-C Cable", Category: "accessories",
			Description: "1 m, braided",
			Price:       decimal.RequireFromString("9.99"), Quantity: 12, Threshold: 10, UpdatedAt: now,
		},
	}
}

func seedPromotions(now time.Time) []*dompromo.Promotion {
	start := now.AddDate(0, -1, 0)
	end := now.AddDate(1, 0, 0)
	return []*dompromo.Promotion{
		{
			ID: uuid.MustParse("a1b2c3d4-0001-4000-8000-000000000001"), Code: "RAMADAN20",
			Type: dompromo.TypeCartPromoCode, Value: decimal.NewFromInt(20),
			StartDate: start, EndDate: end, Active: true,
		},
		{
			ID: uuid.MustParse("a1b2c3d4-0002-4000-8000-000000000002"), Code: "KEYS15",
			Type: dompromo.TypeItemDiscount, Value: decimal.NewFromInt(15),
			StartDate: start, EndDate: end, Active: true,
			ApplicableProductIDs: []uuid.UUID{seedKeyboardID},
		},
		{
			ID: uuid.MustParse("a1b2c3d4-0003-4000-8000-000000000003"), Code: "FIVEOFF",
			Type: dompromo.TypeFixedAmount, Value: decimal.NewFromInt(5),
			StartDate: start, EndDate: end, Active: true,
		},
	}
}
