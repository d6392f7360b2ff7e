package provider

import (
	"context"

	"github.com/naturalys/internal/db"
	"github.com/naturalys/internal/service"
)

// ServiceFetcher reads storefront data through the admin services.
type ServiceFetcher struct {
	Products *service.ProductService
	Buttons  *service.ButtonService
	Settings *service.StoreSettingService
}

func (f ServiceFetcher) FetchProducts(ctx context.Context) ([]db.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.Products.ListOrdered()
}

func (f ServiceFetcher) FetchButtons(ctx context.Context) ([]db.MainButton, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.Buttons.ListOrdered()
}

func (f ServiceFetcher) FetchSettings(ctx context.Context) (*db.StoreSettings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.Settings.Get()
}
