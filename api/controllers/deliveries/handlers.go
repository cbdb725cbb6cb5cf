package deliveries

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/artmarket-backend/api/middleware"
	"github.com/angelmondragon/artmarket-backend/api/responses"
	"github.com/angelmondragon/artmarket-backend/api/validators"
	"github.com/angelmondragon/artmarket-backend/internal/deliveries"
	"github.com/angelmondragon/artmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/artmarket-backend/pkg/errors"
	"github.com/angelmondragon/artmarket-backend/pkg/logger"
)

type acceptRequest struct {
	DeliveryFee *decimal.Decimal `json:"delivery_fee" validate:"required,gte=0"`
	PartnerID   *int64           `json:"partner_id,omitempty" validate:"omitempty,gt=0"`
}

type setStatusRequest struct {
	Status      string           `json:"status" validate:"required"`
	DeliveryFee *decimal.Decimal `json:"delivery_fee,omitempty"`
}

// List returns every delivery request, narrowed by any query filters given.
func List(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !available(svc, logg, w, r) {
			return
		}

		raw := validators.QueryMap(r)
		var (
			list *deliveries.DeliveryList
			err  error
		)
		if len(raw) == 0 {
			list, err = svc.ListAll(r.Context())
		} else {
			filters, parseErr := deliveries.ParseFilters(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, parseErr)
				return
			}
			list, err = svc.ListFiltered(r.Context(), filters)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func ListByStatus(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !available(svc, logg, w, r) {
			return
		}

		raw := chi.URLParam(r, "status")
		status, err := enums.ParseDeliveryStatus(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery status").
				WithDetails(map[string]any{"field": "status", "value": raw}))
			return
		}

		list, err := svc.ListByStatus(r.Context(), status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ListByDateRange serves ?from=&to= with the same date formats the filter
// listing accepts.
func ListByDateRange(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !available(svc, logg, w, r) {
			return
		}

		q := r.URL.Query()
		filters, err := deliveries.ParseFilters(map[string]string{
			"from": q.Get("from"),
			"to":   q.Get("to"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.From == nil || filters.To == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "from and to are required").
				WithDetails(map[string]any{"field": "from,to"}))
			return
		}

		list, err := svc.ListByDateRange(r.Context(), *filters.From, *filters.To)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func Stats(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !available(svc, logg, w, r) {
			return
		}
		stats, err := svc.Statistics(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func Get(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !available(svc, logg, w, r) {
			return
		}
		key, err := deliveryKey(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		delivery, err := svc.GetByID(r.Context(), key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}

// Accept moves a pending delivery to accepted. Delivery partners always
// accept for themselves; admins name the partner in the body.
func Accept(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !available(svc, logg, w, r) {
			return
		}
		key, err := deliveryKey(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req acceptRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := actorFromRequest(r)
		partnerID, err := resolvePartner(actor, req.PartnerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithDelivery(ctx, key.Source.String(), key.ID)
		}

		delivery, err := svc.Accept(ctx, deliveries.AcceptInput{
			Key:         key,
			ShippingFee: *req.DeliveryFee,
			PartnerID:   partnerID,
			Actor:       actor,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}

func MarkOutForDelivery(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(logg, svc, func(svc deliveries.Service, r *http.Request, key deliveries.Key) (*deliveries.DeliveryRequest, error) {
		return svc.MarkOutForDelivery(r.Context(), key, actorFromRequest(r))
	})
}

func MarkDelivered(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(logg, svc, func(svc deliveries.Service, r *http.Request, key deliveries.Key) (*deliveries.DeliveryRequest, error) {
		return svc.MarkDelivered(r.Context(), key, actorFromRequest(r))
	})
}

// AdminSetStatus writes any status without transition checks.
func AdminSetStatus(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !available(svc, logg, w, r) {
			return
		}
		key, err := deliveryKey(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req setStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseDeliveryStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery status").
				WithDetails(map[string]any{"field": "status", "value": req.Status}))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithDelivery(ctx, key.Source.String(), key.ID)
		}

		delivery, err := svc.SetStatus(ctx, deliveries.SetStatusInput{
			Key:         key,
			Status:      status,
			ShippingFee: req.DeliveryFee,
			Actor:       actorFromRequest(r),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}

type transitionFunc func(deliveries.Service, *http.Request, deliveries.Key) (*deliveries.DeliveryRequest, error)

func transition(logg *logger.Logger, svc deliveries.Service, apply transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !available(svc, logg, w, r) {
			return
		}
		key, err := deliveryKey(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			r = r.WithContext(logg.WithDelivery(r.Context(), key.Source.String(), key.ID))
		}

		delivery, err := apply(svc, r, key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}

func available(svc deliveries.Service, logg *logger.Logger, w http.ResponseWriter, r *http.Request) bool {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
		return false
	}
	return true
}

func deliveryKey(r *http.Request) (deliveries.Key, error) {
	id, err := validators.ParsePathID(r, "id")
	if err != nil {
		return deliveries.Key{}, err
	}
	return deliveries.ParseKey(chi.URLParam(r, "sourceType"), id)
}

func actorFromRequest(r *http.Request) deliveries.Actor {
	return deliveries.Actor{
		UserID: middleware.UserIDFromContext(r.Context()),
		Role:   middleware.RoleFromContext(r.Context()),
	}
}

func resolvePartner(actor deliveries.Actor, requested *int64) (int64, error) {
	if actor.Role == enums.UserRoleDeliveryPartner {
		if requested != nil && *requested != actor.UserID {
			return 0, pkgerrors.New(pkgerrors.CodeForbidden, "delivery partners can only accept for themselves")
		}
		return actor.UserID, nil
	}
	if requested == nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "partner_id is required").
			WithDetails(map[string]any{"field": "partner_id"})
	}
	return *requested, nil
}
