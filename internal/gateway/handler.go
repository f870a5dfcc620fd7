package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"ferryline/internal/availability"
	"ferryline/internal/cart"
	cartvalidator "ferryline/internal/cart/validator"
	"ferryline/internal/checkout"
	"ferryline/internal/countdown"
	"ferryline/internal/flow"
	apperrors "ferryline/pkg/errors"
	httpresp "ferryline/pkg/http"
	"ferryline/pkg/logger"
	"ferryline/pkg/model"
)

// ChannelStatus is the push channel's observable side.
type ChannelStatus interface {
	State() availability.State
	LastError() error
	Subscribed() bool
}

// Handler exposes the reservation flow over HTTP.
type Handler struct {
	flow    *flow.Controller
	channel ChannelStatus
	log     *logger.Logger
}

func NewHandler(flowCtrl *flow.Controller, channel ChannelStatus, log *logger.Logger) *Handler {
	return &Handler{
		flow:    flowCtrl,
		channel: channel,
		log:     log.WithComponent("gateway"),
	}
}

func (h *Handler) RegisterRoutes(router *httprouter.Router) {
	router.HandlerFunc(http.MethodPost, "/api/v1/search", h.Search)
	router.HandlerFunc(http.MethodGet, "/api/v1/results", h.Results)
	router.HandlerFunc(http.MethodPost, "/api/v1/selection", h.SelectSailing)

	router.HandlerFunc(http.MethodPost, "/api/v1/cart/passengers", h.AddPassenger)
	router.Handle(http.MethodPatch, "/api/v1/cart/passengers/:id", h.UpdatePassenger)
	router.Handle(http.MethodDelete, "/api/v1/cart/passengers/:id", h.RemovePassenger)
	router.HandlerFunc(http.MethodPost, "/api/v1/cart/vehicles", h.AddVehicle)
	router.Handle(http.MethodPatch, "/api/v1/cart/vehicles/:id", h.UpdateVehicle)
	router.Handle(http.MethodDelete, "/api/v1/cart/vehicles/:id", h.RemoveVehicle)
	router.HandlerFunc(http.MethodPut, "/api/v1/cart/cabins", h.SetCabins)
	router.HandlerFunc(http.MethodPut, "/api/v1/cart/meals", h.SetMeals)
	router.HandlerFunc(http.MethodPut, "/api/v1/cart/contact", h.SetContact)
	router.HandlerFunc(http.MethodPut, "/api/v1/cart/protection", h.SetProtection)
	router.HandlerFunc(http.MethodPost, "/api/v1/cart/promo", h.ApplyPromo)
	router.HandlerFunc(http.MethodGet, "/api/v1/cart/totals", h.Totals)

	router.HandlerFunc(http.MethodGet, "/api/v1/flow/state", h.FlowState)
	router.HandlerFunc(http.MethodPost, "/api/v1/flow/advance", h.Advance)
	router.HandlerFunc(http.MethodPost, "/api/v1/flow/goto", h.GoTo)
	router.HandlerFunc(http.MethodPost, "/api/v1/flow/new-search", h.NewSearch)

	router.HandlerFunc(http.MethodPost, "/api/v1/checkout/payment", h.ProceedToPayment)
	router.HandlerFunc(http.MethodPost, "/api/v1/checkout/confirm", h.ConfirmPayment)
	router.HandlerFunc(http.MethodGet, "/api/v1/checkout/countdown", h.Countdown)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.log.Warn("failed to decode request", "path", r.URL.Path, "error", err)
		httpresp.WriteError(w, apperrors.InvalidInput("invalid request payload"))
		return false
	}
	return true
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var params model.SearchParams
	if !h.decode(w, r, &params) {
		return
	}
	if params.Route == "" {
		httpresp.WriteError(w, apperrors.InvalidInput("route is required"))
		return
	}

	results, err := h.flow.Search(r.Context(), params)
	if err != nil {
		httpresp.WriteError(w, err)
		return
	}
	httpresp.WriteSuccess(w, results)
}

func (h *Handler) Results(w http.ResponseWriter, _ *http.Request) {
	httpresp.WriteSuccess(w, h.flow.Results())
}

type selectionRequest struct {
	Leg       string `json:"leg"`
	SailingID string `json:"sailingId"`
}

func (h *Handler) SelectSailing(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.flow.SelectSailing(req.Leg, req.SailingID); err != nil {
		httpresp.WriteError(w, err)
		return
	}
	httpresp.WriteNoContent(w)
}

func (h *Handler) AddPassenger(w http.ResponseWriter, r *http.Request) {
	var p model.Passenger
	if !h.decode(w, r, &p) {
		return
	}
	id := h.flow.AddPassenger(p)
	httpresp.WriteCreated(w, map[string]string{"id": id})
}

func (h *Handler) UpdatePassenger(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var patch cart.PassengerPatch
	if !h.decode(w, r, &patch) {
		return
	}
	if err := h.flow.UpdatePassenger(ps.ByName("id"), patch); err != nil {
		httpresp.WriteError(w, err)
		return
	}
	httpresp.WriteNoContent(w)
}

func (h *Handler) RemovePassenger(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	if err := h.flow.RemovePassenger(ps.ByName("id")); err != nil {
		httpresp.WriteError(w, err)
		return
	}
	httpresp.WriteNoContent(w)
}

func (h *Handler) AddVehicle(w http.ResponseWriter, r *http.Request) {
	var v model.Vehicle
	if !h.decode(w, r, &v) {
		return
	}
	id := h.flow.AddVehicle(v)
	httpresp.WriteCreated(w, map[string]string{"id": id})
}

func (h *Handler) UpdateVehicle(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var patch cart.VehiclePatch
	if !h.decode(w, r, &patch) {
		return
	}
	if err := h.flow.UpdateVehicle(ps.ByName("id"), patch); err != nil {
		httpresp.WriteError(w, err)
		return
	}
	httpresp.WriteNoContent(w)
}

func (h *Handler) RemoveVehicle(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	if err := h.flow.RemoveVehicle(ps.ByName("id")); err != nil {
		httpresp.WriteError(w, err)
		return
	}
	httpresp.WriteNoContent(w)
}

type cabinsRequest struct {
	Leg        string                 `json:"leg"`
	Selections []model.CabinSelection `json:"selections"`
}

func (h *Handler) SetCabins(w http.ResponseWriter, r *http.Request) {
	var req cabinsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.flow.SetCabinSelections(req.Leg, req.Selections); err != nil {
		httpresp.WriteError(w, err)
		return
	}
	httpresp.WriteNoContent(w)
}

func (h *Handler) SetMeals(w http.ResponseWriter, r *http.Request) {
	var items []model.MealSelection
	if !h.decode(w, r, &items) {
		return
	}
	h.flow.SetMeals(items)
	httpresp.WriteNoContent(w)
}

func (h *Handler) SetContact(w http.ResponseWriter, r *http.Request) {
	var info model.ContactInfo
	if !h.decode(w, r, &info) {
		return
	}
	h.flow.SetContactInfo(info)
	httpresp.WriteNoContent(w)
}

type protectionRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *Handler) SetProtection(w http.ResponseWriter, r *http.Request) {
	var req protectionRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.flow.SetCancellationProtection(req.Enabled)
	httpresp.WriteNoContent(w)
}

type promoRequest struct {
	Code string `json:"code"`
}

func (h *Handler) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	var req promoRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.flow.ApplyPromoCode(r.Context(), req.Code); err != nil {
		httpresp.WriteError(w, err)
		return
	}
	httpresp.WriteSuccess(w, h.flow.Totals())
}

func (h *Handler) Totals(w http.ResponseWriter, _ *http.Request) {
	httpresp.WriteSuccess(w, h.flow.Totals())
}

type flowStateResponse struct {
	Step       string              `json:"step"`
	Connection string              `json:"connection"`
	Subscribed bool                `json:"subscribed"`
	Countdown  *countdown.Snapshot `json:"countdown,omitempty"`
}

func (h *Handler) FlowState(w http.ResponseWriter, _ *http.Request) {
	resp := flowStateResponse{
		Step: h.flow.CurrentStep().String(),
	}
	if h.channel != nil {
		resp.Connection = string(h.channel.State())
		resp.Subscribed = h.channel.Subscribed()
	}
	if snap, ok := h.flow.Countdown(); ok {
		resp.Countdown = &snap
	}
	httpresp.WriteSuccess(w, resp)
}

func (h *Handler) Advance(w http.ResponseWriter, _ *http.Request) {
	step := h.flow.Advance()
	httpresp.WriteSuccess(w, map[string]string{"step": step.String()})
}

type gotoRequest struct {
	Step string `json:"step"`
}

func (h *Handler) GoTo(w http.ResponseWriter, r *http.Request) {
	var req gotoRequest
	if !h.decode(w, r, &req) {
		return
	}
	target, ok := checkout.ParseStep(req.Step)
	if !ok {
		httpresp.WriteError(w, apperrors.InvalidInput("unknown step: "+req.Step))
		return
	}
	moved := h.flow.GoTo(target)
	httpresp.WriteSuccess(w, map[string]any{
		"step":  h.flow.CurrentStep().String(),
		"moved": moved,
	})
}

func (h *Handler) NewSearch(w http.ResponseWriter, _ *http.Request) {
	h.flow.StartNewSearch()
	httpresp.WriteSuccess(w, map[string]string{"step": h.flow.CurrentStep().String()})
}

func (h *Handler) ProceedToPayment(w http.ResponseWriter, r *http.Request) {
	record, err := h.flow.ProceedToPayment(r.Context())
	if err != nil {
		var verrs cartvalidator.ValidationErrors
		if errors.As(err, &verrs) {
			httpresp.WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":        "cart validation failed",
				"firstSection": verrs.FirstSection(),
				"violations":   verrs,
			})
			return
		}
		httpresp.WriteError(w, err)
		return
	}
	httpresp.WriteCreated(w, record)
}

func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	record, err := h.flow.ConfirmPayment(r.Context())
	if err != nil {
		httpresp.WriteError(w, err)
		return
	}
	httpresp.WriteSuccess(w, record)
}

func (h *Handler) Countdown(w http.ResponseWriter, _ *http.Request) {
	snap, ok := h.flow.Countdown()
	if !ok {
		httpresp.WriteError(w, apperrors.NotFound("payment countdown"))
		return
	}
	httpresp.WriteSuccess(w, snap)
}
