package handler

import (
	"net/http"

	"github.com/edvin/vpanel/internal/api/request"
	"github.com/edvin/vpanel/internal/api/response"
	"github.com/edvin/vpanel/internal/core"
	"github.com/edvin/vpanel/internal/model"
)

type Mailbox struct {
	svc *core.MailboxService
}

func NewMailbox(svc *core.MailboxService) *Mailbox {
	return &Mailbox{svc: svc}
}

func (h *Mailbox) List(w http.ResponseWriter, r *http.Request) {
	mailboxes, hasMore, err := h.svc.List(r.Context(), request.ParseListParams(r))
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	if mailboxes == nil {
		mailboxes = []model.Mailbox{}
	}

	var last int64
	if len(mailboxes) > 0 {
		last = mailboxes[len(mailboxes)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, mailboxes, cursorFor(hasMore, last), hasMore)
}

func (h *Mailbox) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateMailbox
	if err := request.Decode(r, &req); err != nil {
		response.WriteDecodeError(w, err)
		return
	}

	res, err := h.svc.Create(r.Context(), core.MailboxInput{
		VhostID:    req.VhostID,
		Username:   req.Username,
		Password:   req.Password,
		Quota:      req.Quota,
		Active:     req.Active,
		SpamFilter: req.SpamFilter,
	}, boolOr(req.Setup, true))
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteResult(w, res, true)
}

func (h *Mailbox) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	m, err := h.svc.Get(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, m)
}

func (h *Mailbox) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req request.UpdateMailbox
	if err := request.Decode(r, &req); err != nil {
		response.WriteDecodeError(w, err)
		return
	}

	res, err := h.svc.Update(r.Context(), id, core.MailboxInput{
		VhostID:    req.VhostID,
		Username:   req.Username,
		Password:   req.Password,
		Quota:      req.Quota,
		Active:     req.Active,
		SpamFilter: req.SpamFilter,
	}, boolOr(req.Move, true))
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteResult(w, res, false)
}

func (h *Mailbox) Delete(w http.ResponseWriter, r *http.Request) {
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

func (h *Mailbox) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req request.BulkDelete
	if err := request.Decode(r, &req); err != nil {
		response.WriteDecodeError(w, err)
		return
	}
	response.WriteBulk(w, h.svc.BulkDelete(r.Context(), req.IDs))
}

func (h *Mailbox) Execute(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req request.ExecuteMailbox
	if err := request.Decode(r, &req); err != nil {
		response.WriteDecodeError(w, err)
		return
	}
	action, err := model.ParseMailboxAction(req.Command)
	if err != nil {
		response.WriteRejected(w, map[string]string{"command": "The selected command is invalid."})
		return
	}

	res, err := h.svc.Execute(r.Context(), id, action)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteResult(w, res, false)
}

// Stats reports the mail store's usage figures for one mailbox. Figures the
// store cannot report come back as zero.
func (h *Mailbox) Stats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	stats, err := h.svc.Stats(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, stats)
}
