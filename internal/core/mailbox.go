package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/edvin/vpanel/internal/address"
	"github.com/edvin/vpanel/internal/api/request"
	"github.com/edvin/vpanel/internal/crypto"
	"github.com/edvin/vpanel/internal/model"
	"github.com/edvin/vpanel/internal/provision"
)

const mailboxColumns = `id, aid, hid, uid, gid, spamf, active, quota, "user", home, password, created_at, updated_at, domain`

// MailboxInput is the writable part of a mailbox. Username may be a bare
// local-part or a full address in the virtual host's domain.
type MailboxInput struct {
	VhostID    int64
	Username   string
	Password   string
	Quota      *int64
	Active     bool
	SpamFilter bool
}

type MailboxService struct {
	db     DB
	runner provision.Runner
}

func NewMailboxService(db DB, runner provision.Runner) *MailboxService {
	return &MailboxService{db: db, runner: runner}
}

// Create inserts a mailbox and, when setup is set, creates its maildir and
// credentials on the mail host.
func (s *MailboxService) Create(ctx context.Context, in MailboxInput, setup bool) (*Result, error) {
	v, err := vhostLimits(ctx, s.db, in.VhostID)
	if err != nil {
		return nil, err
	}
	addr, err := mailboxAddress(in.Username, v.Domain)
	if err != nil {
		return nil, err
	}
	if err := s.checkAddress(ctx, addr, v.Domain, 0); err != nil {
		return nil, err
	}

	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM vmails WHERE hid = $1`, v.ID).Scan(&count); err != nil {
		return nil, fmt.Errorf("count mailboxes for vhost %d: %w", v.ID, err)
	}
	if count >= v.Mailboxes {
		return nil, fieldError("hid", "This virtual host has reached its mailbox limit.")
	}

	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash mailbox password: %w", err)
	}

	m := &model.Mailbox{
		AccountID:  v.AccountID,
		VhostID:    v.ID,
		UID:        v.UID,
		GID:        v.GID,
		SpamFilter: in.SpamFilter,
		Active:     in.Active,
		Quota:      model.DefaultMailboxQuota,
		User:       addr,
		Home:       address.MailboxHome(v.Domain, address.LocalPart(addr)),
		Password:   hash,
		Domain:     v.Domain,
	}
	if in.Quota != nil {
		m.Quota = *in.Quota
	}

	err = s.db.QueryRow(ctx,
		`INSERT INTO vmails (aid, hid, uid, gid, spamf, active, quota, "user", home, password)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at, updated_at`,
		m.AccountID, m.VhostID, m.UID, m.GID, m.SpamFilter, m.Active, m.Quota, m.User, m.Home, m.Password,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if verr, ok := uniqueTaken(err, "username"); ok {
			return nil, verr
		}
		return nil, fmt.Errorf("insert mailbox: %w", err)
	}

	var outcomes []provision.Outcome
	if setup {
		outcomes = append(outcomes, s.runner.Run(ctx, provision.AddMailbox(addr, in.Password)))
	}

	res := Reconcile(addr, fmt.Sprintf("Mailbox %s created successfully.", addr),
		"Mailbox created in database but system setup failed", outcomes...)
	res.Data = m
	logResult(ctx, res, "mailbox created")
	return res, nil
}

func (s *MailboxService) Get(ctx context.Context, id int64) (*model.Mailbox, error) {
	m, err := scanMailbox(s.db.QueryRow(ctx, `SELECT `+mailboxColumns+` FROM vmails_view WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "mailbox", id)
	}
	return m, nil
}

func (s *MailboxService) List(ctx context.Context, params request.ListParams) ([]model.Mailbox, bool, error) {
	query := `SELECT ` + mailboxColumns + ` FROM vmails_view WHERE true`
	var args []any
	argIdx := 1

	if params.VhostID > 0 {
		query += fmt.Sprintf(` AND hid = $%d`, argIdx)
		args = append(args, params.VhostID)
		argIdx++
	}
	if params.Search != "" {
		query += fmt.Sprintf(` AND "user" ILIKE $%d`, argIdx)
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}
	if params.Active != nil {
		query += fmt.Sprintf(` AND active = $%d`, argIdx)
		args = append(args, *params.Active)
		argIdx++
	}
	if params.Cursor > 0 {
		query += fmt.Sprintf(` AND id < $%d`, argIdx)
		args = append(args, params.Cursor)
		argIdx++
	}

	query += ` ORDER BY id DESC`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, params.Limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list mailboxes: %w", err)
	}
	defer rows.Close()

	var mailboxes []model.Mailbox
	for rows.Next() {
		m, err := scanMailbox(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan mailbox: %w", err)
		}
		mailboxes = append(mailboxes, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate mailboxes: %w", err)
	}

	hasMore := len(mailboxes) > params.Limit
	if hasMore {
		mailboxes = mailboxes[:params.Limit]
	}
	return mailboxes, hasMore, nil
}

// ListActiveByVhost returns the active mailboxes of a virtual host, the
// candidates for an alias target.
func (s *MailboxService) ListActiveByVhost(ctx context.Context, hid int64) ([]model.MailboxRef, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, "user" FROM vmails WHERE hid = $1 AND active ORDER BY "user"`, hid)
	if err != nil {
		return nil, fmt.Errorf("list active mailboxes for vhost %d: %w", hid, err)
	}
	defer rows.Close()

	refs := []model.MailboxRef{}
	for rows.Next() {
		var r model.MailboxRef
		if err := rows.Scan(&r.ID, &r.User); err != nil {
			return nil, fmt.Errorf("scan mailbox ref: %w", err)
		}
		refs = append(refs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mailbox refs: %w", err)
	}
	return refs, nil
}

// Update writes the row, then moves the maildir when the address changed and
// move is set, then updates the stored credentials when a password was given.
func (s *MailboxService) Update(ctx context.Context, id int64, in MailboxInput, move bool) (*Result, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	v, err := vhostLimits(ctx, s.db, in.VhostID)
	if err != nil {
		return nil, err
	}
	addr, err := mailboxAddress(in.Username, v.Domain)
	if err != nil {
		return nil, err
	}
	if err := s.checkAddress(ctx, addr, v.Domain, id); err != nil {
		return nil, err
	}

	oldAddr := m.User
	m.AccountID = v.AccountID
	m.VhostID = v.ID
	m.UID = v.UID
	m.GID = v.GID
	m.SpamFilter = in.SpamFilter
	m.Active = in.Active
	m.User = addr
	m.Home = address.MailboxHome(v.Domain, address.LocalPart(addr))
	m.Domain = v.Domain
	if in.Quota != nil {
		m.Quota = *in.Quota
	}
	if in.Password != "" {
		hash, err := crypto.HashPassword(in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash mailbox password: %w", err)
		}
		m.Password = hash
	}

	err = s.db.QueryRow(ctx,
		`UPDATE vmails SET aid = $1, hid = $2, uid = $3, gid = $4, spamf = $5, active = $6, quota = $7,
		 "user" = $8, home = $9, password = $10, updated_at = now()
		 WHERE id = $11 RETURNING updated_at`,
		m.AccountID, m.VhostID, m.UID, m.GID, m.SpamFilter, m.Active, m.Quota, m.User, m.Home, m.Password, id,
	).Scan(&m.UpdatedAt)
	if err != nil {
		if verr, ok := uniqueTaken(err, "username"); ok {
			return nil, verr
		}
		return nil, notFound(err, "mailbox", id)
	}

	var outcomes []provision.Outcome
	if move && oldAddr != addr {
		outcomes = append(outcomes, s.runner.Run(ctx, provision.MoveMailbox(oldAddr, addr)))
	}
	if in.Password != "" {
		outcomes = append(outcomes, s.runner.Run(ctx, provision.UpdateMailbox(addr, in.Password)))
	}

	res := Reconcile(addr, "Mailbox updated successfully.",
		"Mailbox updated in database but system update failed", outcomes...)
	res.Data = m
	logResult(ctx, res, "mailbox updated")
	return res, nil
}

func (s *MailboxService) Delete(ctx context.Context, id int64) (*Result, error) {
	addr, err := s.delete(ctx, id)
	if err != nil {
		return nil, err
	}

	out := s.runner.Run(ctx, provision.RemoveMailbox(addr))
	res := Reconcile(addr, fmt.Sprintf("Mailbox %s removed successfully.", addr),
		"Mailbox removed from database but system cleanup failed", out)
	logResult(ctx, res, "mailbox deleted")
	return res, nil
}

func (s *MailboxService) BulkDelete(ctx context.Context, ids []int64) *BulkResult {
	res := newBulkResult(len(ids))
	for _, id := range ids {
		addr, err := s.delete(ctx, id)
		if err != nil {
			res.AddError(id, "", err)
			continue
		}
		res.Add(id, addr, s.runner.Run(ctx, provision.RemoveMailbox(addr)))
	}
	zerolog.Ctx(ctx).Info().Str("summary", res.Summary()).Msg("mailboxes bulk deleted")
	return res
}

func (s *MailboxService) Execute(ctx context.Context, id int64, action model.MailboxAction) (*Result, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cmd, err := provision.MailboxActionCommand(action, m.User)
	if err != nil {
		return nil, fieldError("command", "The selected command is invalid.")
	}

	out := s.runner.Run(ctx, cmd)
	res := Reconcile(m.User, "Command executed successfully: "+action.String(), "Command failed", out)
	res.Data = map[string]string{"output": out.Stdout}
	logResult(ctx, res, "mailbox action executed")
	return res, nil
}

// Stats reports mailbox usage. A failed or unparseable report yields zeros.
func (s *MailboxService) Stats(ctx context.Context, id int64) (model.MailboxStats, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return model.MailboxStats{}, err
	}

	out := s.runner.Run(ctx, provision.MailboxStats(m.User))
	if !out.OK {
		zerolog.Ctx(ctx).Warn().Str("mailbox", m.User).Str("diagnostic", out.Diagnostic()).Msg("mailbox stats failed")
		return model.MailboxStats{}, nil
	}
	stats, ok := provision.ParseStats(out.Stdout)
	if !ok {
		zerolog.Ctx(ctx).Warn().Str("mailbox", m.User).Msg("malformed mailbox stats output")
	}
	return stats, nil
}

func (s *MailboxService) delete(ctx context.Context, id int64) (string, error) {
	var addr string
	if err := s.db.QueryRow(ctx, `DELETE FROM vmails WHERE id = $1 RETURNING "user"`, id).Scan(&addr); err != nil {
		return "", notFound(err, "mailbox", id)
	}
	return addr, nil
}

// checkAddress rejects addr when another mailbox in domain already uses it.
func (s *MailboxService) checkAddress(ctx context.Context, addr, domain string, exceptID int64) error {
	var taken bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM vmails WHERE "user" = $1 AND "user" LIKE $2 AND id <> $3)`,
		addr, "%@"+domain, exceptID,
	).Scan(&taken)
	if err != nil {
		return fmt.Errorf("check mailbox uniqueness: %w", err)
	}
	if taken {
		return takenError("username")
	}
	return nil
}

// mailboxAddress derives the full address and requires it to be in domain.
func mailboxAddress(username, domain string) (string, error) {
	addr := address.Derive(username, domain)
	_, host, _ := strings.Cut(addr, "@")
	if !strings.EqualFold(host, domain) {
		return "", fieldError("username", fmt.Sprintf("The username must be an address in %s.", domain))
	}
	if len(addr) > address.MaxAddressLen {
		return "", fieldError("username", fmt.Sprintf("The mailbox address may not be longer than %d characters.", address.MaxAddressLen))
	}
	if len(address.MailboxHome(domain, address.LocalPart(addr))) > address.MaxHomeLen {
		return "", fieldError("username", fmt.Sprintf("The mailbox home may not be longer than %d characters.", address.MaxHomeLen))
	}
	return addr, nil
}

func scanMailbox(row pgx.Row) (*model.Mailbox, error) {
	var m model.Mailbox
	err := row.Scan(&m.ID, &m.AccountID, &m.VhostID, &m.UID, &m.GID, &m.SpamFilter, &m.Active, &m.Quota,
		&m.User, &m.Home, &m.Password, &m.CreatedAt, &m.UpdatedAt, &m.Domain)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
