package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/edvin/vpanel/internal/api/request"
	"github.com/edvin/vpanel/internal/model"
	"github.com/edvin/vpanel/internal/provision"
)

const vhostColumns = `id, aid, domain, uname, uid, gid, aliases, mailboxes, mailquota, diskquota, active, created_at, updated_at, num_mailboxes, num_aliases`

type VhostInput struct {
	AccountID int64
	Domain    string
	Uname     string
	UID       int
	GID       int
	Aliases   int
	Mailboxes int
	MailQuota int64
	DiskQuota int64
	Active    bool
}

type VhostService struct {
	db     DB
	runner provision.Runner
}

func NewVhostService(db DB, runner provision.Runner) *VhostService {
	return &VhostService{db: db, runner: runner}
}

// Create inserts a virtual host and, when configure is set, provisions the
// domain on the web server.
func (s *VhostService) Create(ctx context.Context, in VhostInput, configure bool) (*Result, error) {
	if err := s.checkOwner(ctx, in.AccountID); err != nil {
		return nil, err
	}
	if err := s.checkDomain(ctx, in.Domain, 0); err != nil {
		return nil, err
	}
	if in.Uname == "" {
		in.Uname = model.DefaultVhostUname
	}

	v := &model.VirtualHost{
		AccountID: in.AccountID,
		Domain:    in.Domain,
		Uname:     in.Uname,
		UID:       in.UID,
		GID:       in.GID,
		Aliases:   in.Aliases,
		Mailboxes: in.Mailboxes,
		MailQuota: in.MailQuota,
		DiskQuota: in.DiskQuota,
		Active:    in.Active,
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO vhosts (aid, domain, uname, uid, gid, aliases, mailboxes, mailquota, diskquota, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at, updated_at`,
		v.AccountID, v.Domain, v.Uname, v.UID, v.GID, v.Aliases, v.Mailboxes, v.MailQuota, v.DiskQuota, v.Active,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if verr, ok := uniqueTaken(err, "domain"); ok {
			return nil, verr
		}
		return nil, fmt.Errorf("insert vhost: %w", err)
	}

	var outcomes []provision.Outcome
	okMsg := fmt.Sprintf("Virtual host %s created successfully.", v.Domain)
	if configure {
		outcomes = append(outcomes, s.runner.Run(ctx, provision.AddVhost(v.Domain)))
		okMsg = fmt.Sprintf("Virtual host %s created and domain configured successfully.", v.Domain)
	}

	res := Reconcile(v.Domain, okMsg, "Virtual host created but domain configuration failed", outcomes...)
	res.Data = v
	logResult(ctx, res, "vhost created")
	return res, nil
}

func (s *VhostService) Get(ctx context.Context, id int64) (*model.VirtualHost, error) {
	v, err := scanVhost(s.db.QueryRow(ctx, `SELECT `+vhostColumns+` FROM vhosts_view WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "vhost", id)
	}
	return v, nil
}

func (s *VhostService) List(ctx context.Context, params request.ListParams) ([]model.VirtualHost, bool, error) {
	query := `SELECT ` + vhostColumns + ` FROM vhosts_view WHERE true`
	var args []any
	argIdx := 1

	if params.Search != "" {
		query += fmt.Sprintf(` AND domain ILIKE $%d`, argIdx)
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
		return nil, false, fmt.Errorf("list vhosts: %w", err)
	}
	defer rows.Close()

	var vhosts []model.VirtualHost
	for rows.Next() {
		v, err := scanVhost(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan vhost: %w", err)
		}
		vhosts = append(vhosts, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate vhosts: %w", err)
	}

	hasMore := len(vhosts) > params.Limit
	if hasMore {
		vhosts = vhosts[:params.Limit]
	}
	return vhosts, hasMore, nil
}

// Update rewrites the row only. Web server configuration is not touched.
func (s *VhostService) Update(ctx context.Context, id int64, in VhostInput) (*Result, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwner(ctx, in.AccountID); err != nil {
		return nil, err
	}
	if err := s.checkDomain(ctx, in.Domain, id); err != nil {
		return nil, err
	}
	if in.Uname == "" {
		in.Uname = v.Uname
	}

	v.AccountID = in.AccountID
	v.Domain = in.Domain
	v.Uname = in.Uname
	v.UID = in.UID
	v.GID = in.GID
	v.Aliases = in.Aliases
	v.Mailboxes = in.Mailboxes
	v.MailQuota = in.MailQuota
	v.DiskQuota = in.DiskQuota
	v.Active = in.Active

	err = s.db.QueryRow(ctx,
		`UPDATE vhosts SET aid = $1, domain = $2, uname = $3, uid = $4, gid = $5, aliases = $6,
		 mailboxes = $7, mailquota = $8, diskquota = $9, active = $10, updated_at = now()
		 WHERE id = $11 RETURNING updated_at`,
		v.AccountID, v.Domain, v.Uname, v.UID, v.GID, v.Aliases, v.Mailboxes, v.MailQuota, v.DiskQuota, v.Active, id,
	).Scan(&v.UpdatedAt)
	if err != nil {
		if verr, ok := uniqueTaken(err, "domain"); ok {
			return nil, verr
		}
		return nil, notFound(err, "vhost", id)
	}

	res := Reconcile(v.Domain, "Virtual host updated successfully.", "")
	res.Data = v
	return res, nil
}

// Delete removes the virtual host with its mailboxes and aliases in one
// statement, then removes the domain from the web server.
func (s *VhostService) Delete(ctx context.Context, id int64) (*Result, error) {
	domain, err := s.deleteCascade(ctx, id)
	if err != nil {
		return nil, err
	}

	out := s.runner.Run(ctx, provision.RemoveVhost(domain))
	res := Reconcile(domain,
		fmt.Sprintf("Virtual host %s and related data removed successfully.", domain),
		"Virtual host and database records removed, but domain cleanup failed",
		out)
	logResult(ctx, res, "vhost deleted")
	return res, nil
}

func (s *VhostService) BulkDelete(ctx context.Context, ids []int64) *BulkResult {
	res := newBulkResult(len(ids))
	for _, id := range ids {
		domain, err := s.deleteCascade(ctx, id)
		if err != nil {
			res.AddError(id, "", err)
			continue
		}
		res.Add(id, domain, s.runner.Run(ctx, provision.RemoveVhost(domain)))
	}
	zerolog.Ctx(ctx).Info().Str("summary", res.Summary()).Msg("vhosts bulk deleted")
	return res
}

// Execute runs a maintenance action for the virtual host. The command's
// standard output is returned in Data.
func (s *VhostService) Execute(ctx context.Context, id int64, action model.VhostAction) (*Result, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cmd, err := provision.VhostActionCommand(action, v.Domain)
	if err != nil {
		return nil, fieldError("command", "The selected command is invalid.")
	}

	out := s.runner.Run(ctx, cmd)
	res := Reconcile(v.Domain, "Command executed successfully: "+action.String(), "Command failed", out)
	res.Data = map[string]string{"output": out.Stdout}
	logResult(ctx, res, "vhost action executed")
	return res, nil
}

func (s *VhostService) deleteCascade(ctx context.Context, id int64) (string, error) {
	var domain string
	err := s.db.QueryRow(ctx,
		`WITH m AS (DELETE FROM vmails WHERE hid = $1),
		      a AS (DELETE FROM valias WHERE hid = $1)
		 DELETE FROM vhosts WHERE id = $1 RETURNING domain`, id,
	).Scan(&domain)
	if err != nil {
		return "", notFound(err, "vhost", id)
	}
	return domain, nil
}

func (s *VhostService) checkOwner(ctx context.Context, aid int64) error {
	var ok bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, aid,
	).Scan(&ok); err != nil {
		return fmt.Errorf("check vhost owner: %w", err)
	}
	if !ok {
		return fieldError("aid", "The selected account is invalid.")
	}
	return nil
}

func (s *VhostService) checkDomain(ctx context.Context, domain string, exceptID int64) error {
	var taken bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM vhosts WHERE domain = $1 AND id <> $2)`, domain, exceptID,
	).Scan(&taken); err != nil {
		return fmt.Errorf("check domain uniqueness: %w", err)
	}
	if taken {
		return takenError("domain")
	}
	return nil
}

// vhostLimits loads what mailbox and alias writes need from the parent host.
func vhostLimits(ctx context.Context, db DB, hid int64) (*model.VirtualHost, error) {
	var v model.VirtualHost
	err := db.QueryRow(ctx,
		`SELECT id, aid, domain, uid, gid, aliases, mailboxes FROM vhosts WHERE id = $1`, hid,
	).Scan(&v.ID, &v.AccountID, &v.Domain, &v.UID, &v.GID, &v.Aliases, &v.Mailboxes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fieldError("hid", "The selected virtual host is invalid.")
		}
		return nil, fmt.Errorf("get vhost %d: %w", hid, err)
	}
	return &v, nil
}

func scanVhost(row pgx.Row) (*model.VirtualHost, error) {
	var v model.VirtualHost
	err := row.Scan(&v.ID, &v.AccountID, &v.Domain, &v.Uname, &v.UID, &v.GID, &v.Aliases, &v.Mailboxes,
		&v.MailQuota, &v.DiskQuota, &v.Active, &v.CreatedAt, &v.UpdatedAt, &v.NumMailboxes, &v.NumAliases)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// logResult records a reconciled mutation at a level matching its state.
func logResult(ctx context.Context, res *Result, msg string) {
	ev := zerolog.Ctx(ctx).Info()
	if res.State == StateDegraded {
		ev = zerolog.Ctx(ctx).Warn().Strs("diagnostics", res.Diagnostics)
	}
	ev.Str("subject", res.Subject).Str("state", string(res.State)).Msg(msg)
}
