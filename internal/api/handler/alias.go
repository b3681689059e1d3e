package handler

import (
	"net/http"

	"github.com/edvin/vpanel/internal/api/request"
	"github.com/edvin/vpanel/internal/api/response"
	"github.com/edvin/vpanel/internal/core"
	"github.com/edvin/vpanel/internal/model"
)

type Alias struct {
	svc *core.AliasService
}

func NewAlias(svc *core.AliasService) *Alias {
	return &Alias{svc: svc}
}

func (h *Alias) List(w http.ResponseWriter, r *http.Request) {
	aliases, hasMore, err := h.svc.List(r.Context(), request.ParseListParams(r))
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	if aliases == nil {
		aliases = []model.Alias{}
	}

	var last int64
	if len(aliases) > 0 {
		last = aliases[len(aliases)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, aliases, cursorFor(hasMore, last), hasMore)
}

func (h *Alias) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateAlias
	if err := request.Decode(r, &req); err != nil {
		response.WriteDecodeError(w, err)
		return
	}

	res, err := h.svc.Create(r.Context(), core.AliasInput{
		VhostID: req.VhostID,
		Source:  req.Source,
		Target:  req.Target,
		Active:  req.Active,
	}, boolOr(req.Configure, true))
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteResult(w, res, true)
}

func (h *Alias) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	a, err := h.svc.Get(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, a)
}

func (h *Alias) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req request.UpdateAlias
	if err := request.Decode(r, &req); err != nil {
		response.WriteDecodeError(w, err)
		return
	}

	res, err := h.svc.Update(r.Context(), id, core.AliasInput{
		VhostID: req.VhostID,
		Source:  req.Source,
		Target:  req.Target,
		Active:  req.Active,
	})
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteResult(w, res, false)
}

func (h *Alias) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	res, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteResult(w, res, false)
}

func (h *Alias) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req request.BulkDelete
	if err := request.Decode(r, &req); err != nil {
		response.WriteDecodeError(w, err)
		return
	}
	response.WriteBulk(w, h.svc.BulkDelete(r.Context(), req.IDs))
}
