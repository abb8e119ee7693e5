package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scoutfund/troopsales-backend/internal/authz"
	"github.com/scoutfund/troopsales-backend/internal/pipeline"
	"github.com/scoutfund/troopsales-backend/pkg/db/models"
	"github.com/scoutfund/troopsales-backend/pkg/enums"
	pkgerrors "github.com/scoutfund/troopsales-backend/pkg/errors"
	"github.com/scoutfund/troopsales-backend/pkg/logger"
	pkgpagination "github.com/scoutfund/troopsales-backend/pkg/pagination"
)

type ordersRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListBySeason(ctx context.Context, opts ListQuery) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	DeleteTx(tx *gorm.DB, id uuid.UUID) error
}

type seasonsFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Season, error)
}

type productsFinder interface {
	FindProductsByIDs(ctx context.Context, catalogID uuid.UUID, ids []uuid.UUID) ([]models.CatalogProduct, error)
}

type resolver interface {
	Resolve(ctx context.Context, profileID, accountID uuid.UUID) (authz.Decision, error)
	Require(ctx context.Context, profileID, accountID uuid.UUID, required enums.Permission) (authz.Decision, error)
	RequireWithRetry(ctx context.Context, profileID, accountID uuid.UUID, required enums.Permission) (authz.Decision, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages customer orders captured under a season.
type Service interface {
	Create(ctx context.Context, callerID, seasonID uuid.UUID, input CreateOrderInput) (*OrderDTO, error)
	Get(ctx context.Context, callerID, orderID uuid.UUID) (*OrderDTO, error)
	ListBySeason(ctx context.Context, callerID, seasonID uuid.UUID, page pkgpagination.Params) (*ListResult, error)
	UpdateStatus(ctx context.Context, callerID, orderID uuid.UUID, status string) (*OrderDTO, error)
	Delete(ctx context.Context, callerID, orderID uuid.UUID) error
}

type service struct {
	repo     ordersRepository
	seasons  seasonsFinder
	products productsFinder
	resolver resolver
	executor *pipeline.Executor
	tx       txRunner
	logg     *logger.Logger
}

// ServiceParams collects the service dependencies.
type ServiceParams struct {
	Repo     ordersRepository
	Seasons  seasonsFinder
	Products productsFinder
	Resolver resolver
	Executor *pipeline.Executor
	Tx       txRunner
	Logger   *logger.Logger
}

// NewService builds an order service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Seasons == nil {
		return nil, fmt.Errorf("seasons repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("catalogs repository required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("resolver required")
	}
	if params.Executor == nil {
		return nil, fmt.Errorf("pipeline executor required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:     params.Repo,
		seasons:  params.Seasons,
		products: params.Products,
		resolver: params.Resolver,
		executor: params.Executor,
		tx:       params.Tx,
		logg:     params.Logger,
	}, nil
}

// CreateOrderInput carries the fields for a new order.
type CreateOrderInput struct {
	CustomerName    string
	CustomerContact *string
	Note            *string
	Items           []OrderItemInput
}

// OrderItemInput is one requested product line.
type OrderItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

func (s *service) Create(ctx context.Context, callerID, seasonID uuid.UUID, input CreateOrderInput) (*OrderDTO, error) {
	name := strings.TrimSpace(input.CustomerName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	quantities := make(map[uuid.UUID]int, len(input.Items))
	productIDs := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if _, seen := quantities[item.ProductID]; seen {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in order")
		}
		quantities[item.ProductID] = item.Quantity
		productIDs = append(productIDs, item.ProductID)
	}

	st, err := s.executor.Execute(ctx, callerID,
		pipeline.LookupSeason(s.seasons, seasonID),
		pipeline.Authorize(s.resolver, enums.PermissionWrite),
		pipeline.Check("check_products", func(ctx context.Context, st *pipeline.State) error {
			// Every line must reference the season's catalog; prices come
			// from the catalog, never from the request.
			products, err := s.products.FindProductsByIDs(ctx, st.Season.CatalogID, productIDs)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog products")
			}
			if len(products) != len(productIDs) {
				return pkgerrors.New(pkgerrors.CodeValidation, "order references products outside the season catalog")
			}
			items := make([]models.OrderItem, 0, len(products))
			for _, product := range products {
				items = append(items, models.OrderItem{
					ProductID: product.ID,
					Quantity:  quantities[product.ID],
					UnitPrice: product.UnitPrice,
				})
			}
			st.Order = &models.Order{
				SeasonID:        st.Season.ID,
				ProfileID:       st.Season.ProfileID,
				CustomerName:    name,
				CustomerContact: input.CustomerContact,
				Status:          enums.OrderStatusPending,
				Note:            input.Note,
				Items:           items,
			}
			return nil
		}),
		pipeline.Mutate("create_order", func(ctx context.Context, st *pipeline.State) error {
			if err := s.repo.Create(ctx, st.Order); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
			}
			st.Result = FromModel(st.Order)
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return st.Result.(*OrderDTO), nil
}

func (s *service) Get(ctx context.Context, callerID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	decision, err := s.resolver.Resolve(ctx, order.ProfileID, callerID)
	if err != nil {
		return nil, err
	}
	if !decision.Allows(enums.PermissionRead) {
		// Absent and forbidden collapse to the same not-found outcome.
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return FromModel(order), nil
}

func (s *service) ListBySeason(ctx context.Context, callerID, seasonID uuid.UUID, page pkgpagination.Params) (*ListResult, error) {
	season, err := s.seasons.FindByID(ctx, seasonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "season not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load season")
	}

	decision, err := s.resolver.Resolve(ctx, season.ProfileID, callerID)
	if err != nil {
		return nil, err
	}
	if !decision.Allows(enums.PermissionRead) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "season not found")
	}

	limit := pkgpagination.NormalizeLimit(page.Limit)
	query := ListQuery{
		SeasonID: seasonID,
		Limit:    pkgpagination.LimitWithBuffer(page.Limit),
	}
	if page.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(page.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, err := s.repo.ListBySeason(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: rows[limit].CreatedAt,
			ID:        rows[limit].ID,
		})
		rows = rows[:limit]
	}

	return &ListResult{
		Items:  FromModels(rows),
		Cursor: nextCursor,
	}, nil
}

func (s *service) UpdateStatus(ctx context.Context, callerID, orderID uuid.UUID, status string) (*OrderDTO, error) {
	parsed, err := enums.ParseOrderStatus(status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status")
	}

	st, err := s.executor.Execute(ctx, callerID,
		pipeline.LookupOrder(s.repo, orderID),
		pipeline.Authorize(s.resolver, enums.PermissionWrite),
		pipeline.Mutate("update_order_status", func(ctx context.Context, st *pipeline.State) error {
			if err := s.repo.UpdateStatus(ctx, orderID, parsed.String()); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
			}
			st.Order.Status = parsed
			st.Result = FromModel(st.Order)
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return st.Result.(*OrderDTO), nil
}

func (s *service) Delete(ctx context.Context, callerID, orderID uuid.UUID) error {
	// No existence pre-check: the lookup step answers FORBIDDEN for absent
	// and inaccessible alike, so a delete call never reveals whether an ID exists.
	_, err := s.executor.Execute(ctx, callerID,
		pipeline.LookupOrder(s.repo, orderID),
		pipeline.Authorize(s.resolver, enums.PermissionWrite),
		pipeline.Mutate("delete_order", func(ctx context.Context, _ *pipeline.State) error {
			err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
				return s.repo.DeleteTx(tx, orderID)
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
			}
			return nil
		}),
	)
	return err
}
