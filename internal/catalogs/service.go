package catalogs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scoutfund/troopsales-backend/pkg/db/models"
	pkgerrors "github.com/scoutfund/troopsales-backend/pkg/errors"
)

type catalogsRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Catalog, error)
	List(ctx context.Context) ([]models.Catalog, error)
	ListProducts(ctx context.Context, catalogID uuid.UUID) ([]models.CatalogProduct, error)
}

// Service exposes read-only catalog browsing. Catalogs are not scoped to a
// profile, so any authenticated account can read them.
type Service interface {
	Get(ctx context.Context, catalogID uuid.UUID) (*CatalogDTO, error)
	List(ctx context.Context) ([]CatalogDTO, error)
	ListProducts(ctx context.Context, catalogID uuid.UUID) ([]ProductDTO, error)
}

type service struct {
	repo catalogsRepository
}

// NewService builds a catalog service.
func NewService(repo catalogsRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalogs repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, catalogID uuid.UUID) (*CatalogDTO, error) {
	catalog, err := s.repo.FindByID(ctx, catalogID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "catalog not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog")
	}
	return FromModel(catalog), nil
}

func (s *service) List(ctx context.Context) ([]CatalogDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list catalogs")
	}
	return FromModels(rows), nil
}

func (s *service) ListProducts(ctx context.Context, catalogID uuid.UUID) ([]ProductDTO, error) {
	catalog, err := s.repo.FindByID(ctx, catalogID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "catalog not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog")
	}
	products, err := s.repo.ListProducts(ctx, catalog.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list catalog products")
	}
	return ProductsFromModels(products), nil
}
