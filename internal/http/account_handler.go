package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Tooba-Farooq/4eyes/internal/account"
	"github.com/Tooba-Farooq/4eyes/internal/middleware"
)

type AddressStore interface {
	ListByUser(ctx context.Context, userID string) ([]account.Address, error)
	Create(ctx context.Context, a *account.Address) error
	Update(ctx context.Context, a *account.Address) error
	Delete(ctx context.Context, userID, id string) error
}

type FavouriteStore interface {
	ListByUser(ctx context.Context, userID string) ([]account.Favourite, error)
	Add(ctx context.Context, userID, productID string) (account.Favourite, error)
	Remove(ctx context.Context, userID, productID string) error
}

type CouponStore interface {
	ListValidForUser(ctx context.Context, userID string) ([]account.Coupon, error)
	Apply(ctx context.Context, userID, code string, cartTotal decimal.Decimal) (account.Applied, error)
}

// AccountHandler serves the signed-in user's addresses, favourites and
// coupons. Routes are mounted behind RequireUser.
type AccountHandler struct {
	addresses  AddressStore
	favourites FavouriteStore
	coupons    CouponStore
	log        *zap.Logger
	timeout    time.Duration
}

func NewAccountHandler(a AddressStore, f FavouriteStore, c CouponStore, log *zap.Logger, timeout time.Duration) *AccountHandler {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AccountHandler{addresses: a, favourites: f, coupons: c, log: log, timeout: timeout}
}

func (h *AccountHandler) ctx(r *http.Request) (context.Context, context.CancelFunc, string) {
	u, _ := middleware.GetUser(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	return ctx, cancel, u.ID
}

func (h *AccountHandler) internal(w http.ResponseWriter, msg string, err error) {
	h.log.Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (h *AccountHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, userID := h.ctx(r)
	defer cancel()

	addrs, err := h.addresses.ListByUser(ctx, userID)
	if err != nil {
		h.internal(w, "list addresses failed", err)
		return
	}
	writeJSON(w, http.StatusOK, addrs)
}

func (h *AccountHandler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	ctx, cancel, userID := h.ctx(r)
	defer cancel()

	a := req.address(userID, "")
	if err := h.addresses.Create(ctx, &a); err != nil {
		h.internal(w, "create address failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *AccountHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	ctx, cancel, userID := h.ctx(r)
	defer cancel()

	a := req.address(userID, chi.URLParam(r, "id"))
	if a.Type == "" {
		a.Type = account.AddressHome
	}
	if err := h.addresses.Update(ctx, &a); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			writeError(w, http.StatusNotFound, "address not found")
			return
		}
		h.internal(w, "update address failed", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *AccountHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, userID := h.ctx(r)
	defer cancel()

	if err := h.addresses.Delete(ctx, userID, chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			writeError(w, http.StatusNotFound, "address not found")
			return
		}
		h.internal(w, "delete address failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) ListFavourites(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, userID := h.ctx(r)
	defer cancel()

	favs, err := h.favourites.ListByUser(ctx, userID)
	if err != nil {
		h.internal(w, "list favourites failed", err)
		return
	}
	out := make([]favouriteResponse, 0, len(favs))
	for _, f := range favs {
		out = append(out, toFavouriteResponse(f))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AccountHandler) AddFavourite(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, userID := h.ctx(r)
	defer cancel()

	f, err := h.favourites.Add(ctx, userID, chi.URLParam(r, "productId"))
	if err != nil {
		switch {
		case errors.Is(err, account.ErrProductNotFound):
			writeError(w, http.StatusNotFound, "product not found")
		case errors.Is(err, account.ErrDuplicate):
			writeError(w, http.StatusConflict, "product is already a favourite")
		default:
			h.internal(w, "add favourite failed", err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, toFavouriteResponse(f))
}

func (h *AccountHandler) RemoveFavourite(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, userID := h.ctx(r)
	defer cancel()

	if err := h.favourites.Remove(ctx, userID, chi.URLParam(r, "productId")); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			writeError(w, http.StatusNotFound, "favourite not found")
			return
		}
		h.internal(w, "remove favourite failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, userID := h.ctx(r)
	defer cancel()

	coupons, err := h.coupons.ListValidForUser(ctx, userID)
	if err != nil {
		h.internal(w, "list coupons failed", err)
		return
	}
	out := make([]couponResponse, 0, len(coupons))
	for _, c := range coupons {
		out = append(out, toCouponResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AccountHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	total := decimal.Zero
	if req.CartTotal != nil {
		if req.CartTotal.IsNegative() {
			writeFieldErrors(w, map[string]string{"cart_total": "must be at least 0"})
			return
		}
		total = *req.CartTotal
	}

	ctx, cancel, userID := h.ctx(r)
	defer cancel()

	applied, err := h.coupons.Apply(ctx, userID, req.Code, total)
	if err != nil {
		var minErr *account.MinimumOrderError
		switch {
		case errors.Is(err, account.ErrCouponInvalid):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &minErr):
			writeError(w, http.StatusBadRequest, minErr.Error())
		default:
			h.internal(w, "apply coupon failed", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, applyCouponResponse{
		Coupon:   toCouponResponse(applied.Coupon),
		Discount: money(applied.Discount),
	})
}
