package handler

import (
	"net/http"

	"github.com/edvin/vpanel/internal/api/request"
	"github.com/edvin/vpanel/internal/api/response"
	"github.com/edvin/vpanel/internal/core"
	"github.com/edvin/vpanel/internal/model"
)

type Vhost struct {
	svc       *core.VhostService
	mailboxes *core.MailboxService
	aliases   *core.AliasService
}

func NewVhost(svc *core.VhostService, mailboxes *core.MailboxService, aliases *core.AliasService) *Vhost {
	return &Vhost{svc: svc, mailboxes: mailboxes, aliases: aliases}
}

func (h *Vhost) List(w http.ResponseWriter, r *http.Request) {
	vhosts, hasMore, err := h.svc.List(r.Context(), request.ParseListParams(r))
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	if vhosts == nil {
		vhosts = []model.VirtualHost{}
	}

	var last int64
	if len(vhosts) > 0 {
		last = vhosts[len(vhosts)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, vhosts, cursorFor(hasMore, last), hasMore)
}

func (h *Vhost) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateVhost
	if err := request.Decode(r, &req); err != nil {
		response.WriteDecodeError(w, err)
		return
	}

	res, err := h.svc.Create(r.Context(), core.VhostInput{
		AccountID: req.AccountID,
		Domain:    req.Domain,
		Uname:     req.Uname,
		UID:       req.UID,
		GID:       req.GID,
		Aliases:   req.Aliases,
		Mailboxes: req.Mailboxes,
		MailQuota: req.MailQuota,
		DiskQuota: req.DiskQuota,
		Active:    req.Active,
	}, req.Configure)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteResult(w, res, true)
}

func (h *Vhost) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	v, err := h.svc.Get(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, v)
}

func (h *Vhost) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req request.UpdateVhost
	if err := request.Decode(r, &req); err != nil {
		response.WriteDecodeError(w, err)
		return
	}

	res, err := h.svc.Update(r.Context(), id, core.VhostInput{
		AccountID: req.AccountID,
		Domain:    req.Domain,
		Uname:     req.Uname,
		UID:       req.UID,
		GID:       req.GID,
		Aliases:   req.Aliases,
		Mailboxes: req.Mailboxes,
		MailQuota: req.MailQuota,
		DiskQuota: req.DiskQuota,
		Active:    req.Active,
	})
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteResult(w, res, false)
}

func (h *Vhost) Delete(w http.ResponseWriter, r *http.Request) {
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

func (h *Vhost) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req request.BulkDelete
	if err := request.Decode(r, &req); err != nil {
		response.WriteDecodeError(w, err)
		return
	}
	response.WriteBulk(w, h.svc.BulkDelete(r.Context(), req.IDs))
}

// Execute runs a maintenance action named by the request's command field.
func (h *Vhost) Execute(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req request.ExecuteVhost
	if err := request.Decode(r, &req); err != nil {
		response.WriteDecodeError(w, err)
		return
	}
	action, err := model.ParseVhostAction(req.Command)
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

// Mailboxes lists the mailboxes of one virtual host.
func (h *Vhost) Mailboxes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	params := request.ParseListParams(r)
	params.VhostID = id
	mailboxes, hasMore, err := h.mailboxes.List(r.Context(), params)
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

// Aliases lists the aliases of one virtual host.
func (h *Vhost) Aliases(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	params := request.ParseListParams(r)
	params.VhostID = id
	aliases, hasMore, err := h.aliases.List(r.Context(), params)
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

// ActiveMailboxes lists alias target candidates for one virtual host.
func (h *Vhost) ActiveMailboxes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	refs, err := h.mailboxes.ListActiveByVhost(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"items": refs})
}
