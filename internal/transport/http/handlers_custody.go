package httptransport

import (
	"net/http"

	"krishichain/internal/custody"
	"krishichain/internal/product"
	"krishichain/pkg/domain"
)

type registerProductRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	custody.FarmerAttributes
}

type productResponse struct {
	ID           string `json:"id"`
	QRCode       string `json:"qr_code"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	CurrentStage string `json:"current_stage"`
}

func (h *Handler) handleRegisterProduct(w http.ResponseWriter, r *http.Request) {
	var req registerProductRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.engine.RegisterProduct(r.Context(), custody.RegisterProductInput{
		Name:       req.Name,
		Category:   req.Category,
		Attributes: req.FarmerAttributes,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "product registered successfully",
		"product": toProductResponse(p),
	})
}

type distributorRecordRequest struct {
	QRCode string `json:"qr_code"`
	custody.DistributorAttributes
}

func (h *Handler) handleDistributorRecord(w http.ResponseWriter, r *http.Request) {
	var req distributorRecordRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.advanceStage(w, r, req.QRCode, domain.StageDistributor, req.DistributorAttributes)
}

type retailerRecordRequest struct {
	QRCode string `json:"qr_code"`
	custody.RetailerAttributes
}

func (h *Handler) handleRetailerRecord(w http.ResponseWriter, r *http.Request) {
	var req retailerRecordRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.advanceStage(w, r, req.QRCode, domain.StageRetailer, req.RetailerAttributes)
}

type customerConfirmRequest struct {
	QRCode string `json:"qr_code"`
	custody.CustomerAttributes
}

func (h *Handler) handleCustomerConfirm(w http.ResponseWriter, r *http.Request) {
	var req customerConfirmRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.advanceStage(w, r, req.QRCode, domain.StageCustomer, req.CustomerAttributes)
}

func (h *Handler) advanceStage(w http.ResponseWriter, r *http.Request, qrCode string, target domain.Stage, attrs custody.StageAttributes) {
	p, err := h.engine.AdvanceStage(r.Context(), qrCode, target, attrs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "record added successfully",
		"product": toProductResponse(p),
	})
}

func toProductResponse(p *product.Product) productResponse {
	return productResponse{
		ID:           p.ID.String(),
		QRCode:       p.QRCode,
		Name:         p.Name,
		Category:     p.Category,
		CurrentStage: p.CurrentStage.String(),
	}
}
