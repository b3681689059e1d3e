package core

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog"

	"github.com/edvin/vpanel/internal/api/request"
	"github.com/edvin/vpanel/internal/crypto"
	"github.com/edvin/vpanel/internal/model"
)

const (
	// DefaultAdminLogin is the login SeedAdmin creates when none is given.
	DefaultAdminLogin = "admin@example.com"
	// MinWebPasswordLen matches the webpw rule of the account requests.
	MinWebPasswordLen = 12

	otpPeriod = 5 * time.Minute
	otpIssuer = "vpanel"
)

// ErrInvalidCredentials covers unknown logins, wrong passwords, expired codes
// and suspended accounts alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

const accountColumns = `id, grp, acl, vhosts, login, fname, lname, altemail, otp, otpttl, cookie, webpw, created_at, updated_at`

// AccountInput is the writable part of an account. Nil pointers keep the
// stored value on update.
type AccountInput struct {
	Login     string
	FirstName string
	LastName  string
	AltEmail  string
	ACL       *model.ACL
	Group     *int
	Vhosts    *int
	Password  string
}

type AccountService struct {
	db  DB
	now func() time.Time
}

func NewAccountService(db DB) *AccountService {
	return &AccountService{db: db, now: time.Now}
}

func (s *AccountService) Create(ctx context.Context, in AccountInput) (*model.Account, error) {
	if err := s.checkLogin(ctx, in.Login, 0); err != nil {
		return nil, err
	}

	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash account password: %w", err)
	}

	a := &model.Account{
		Login:     in.Login,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		AltEmail:  optionalString(in.AltEmail),
		ACL:       model.ACLUser,
		Vhosts:    1,
		WebPW:     hash,
	}
	if in.ACL != nil {
		a.ACL = *in.ACL
	}
	if in.Group != nil {
		a.Group = *in.Group
	}
	if in.Vhosts != nil {
		a.Vhosts = *in.Vhosts
	}

	err = s.db.QueryRow(ctx,
		`INSERT INTO accounts (grp, acl, vhosts, login, fname, lname, altemail, webpw)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		a.Group, a.ACL, a.Vhosts, a.Login, a.FirstName, a.LastName, a.AltEmail, a.WebPW,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if verr, ok := uniqueTaken(err, "login"); ok {
			return nil, verr
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	zerolog.Ctx(ctx).Info().Int64("account_id", a.ID).Str("login", a.Login).Msg("account created")
	return a, nil
}

// Get returns an account the caller may see: their own, or any for an admin.
func (s *AccountService) Get(ctx context.Context, caller Caller, id int64) (*model.Account, error) {
	if !canAccessAccount(ctx, caller, id) {
		return nil, &AuthorizationError{Reason: "you may only view your own account"}
	}
	return s.GetByID(ctx, id)
}

// GetByID loads an account without an authorization check.
func (s *AccountService) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	a, err := scanAccount(s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "account", id)
	}
	return a, nil
}

func (s *AccountService) GetByLogin(ctx context.Context, login string) (*model.Account, error) {
	a, err := scanAccount(s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE login = $1`, login))
	if err != nil {
		return nil, notFound(err, "account", login)
	}
	return a, nil
}

func (s *AccountService) List(ctx context.Context, params request.ListParams) ([]model.Account, bool, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE true`
	var args []any
	argIdx := 1

	if params.Search != "" {
		query += fmt.Sprintf(` AND (login ILIKE $%d OR fname ILIKE $%d OR lname ILIKE $%d)`, argIdx, argIdx, argIdx)
		args = append(args, "%"+params.Search+"%")
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
		return nil, false, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate accounts: %w", err)
	}

	hasMore := len(accounts) > params.Limit
	if hasMore {
		accounts = accounts[:params.Limit]
	}
	return accounts, hasMore, nil
}

// ListAssignable returns every account that may own a virtual host.
func (s *AccountService) ListAssignable(ctx context.Context) ([]model.AccountRef, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, login FROM accounts WHERE acl <> $1 ORDER BY login`, model.ACLAnonymous)
	if err != nil {
		return nil, fmt.Errorf("list assignable accounts: %w", err)
	}
	defer rows.Close()

	refs := []model.AccountRef{}
	for rows.Next() {
		var r model.AccountRef
		if err := rows.Scan(&r.ID, &r.Login); err != nil {
			return nil, fmt.Errorf("scan account ref: %w", err)
		}
		refs = append(refs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account refs: %w", err)
	}
	return refs, nil
}

// Update writes in to account id. Privilege fields from a non-admin caller
// are dropped without error.
func (s *AccountService) Update(ctx context.Context, caller Caller, id int64, in AccountInput) (*model.Account, error) {
	if !canAccessAccount(ctx, caller, id) {
		return nil, &AuthorizationError{Reason: "you may only update your own account"}
	}

	a, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkLogin(ctx, in.Login, id); err != nil {
		return nil, err
	}

	a.Login = in.Login
	a.FirstName = in.FirstName
	a.LastName = in.LastName
	a.AltEmail = optionalString(in.AltEmail)
	if caller.HasAdminCapability(ctx) {
		if in.ACL != nil {
			a.ACL = *in.ACL
		}
		if in.Group != nil {
			a.Group = *in.Group
		}
		if in.Vhosts != nil {
			a.Vhosts = *in.Vhosts
		}
	}
	if in.Password != "" {
		hash, err := crypto.HashPassword(in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash account password: %w", err)
		}
		a.WebPW = hash
	}

	err = s.db.QueryRow(ctx,
		`UPDATE accounts SET grp = $1, acl = $2, vhosts = $3, login = $4, fname = $5, lname = $6,
		 altemail = $7, webpw = $8, updated_at = now()
		 WHERE id = $9 RETURNING updated_at`,
		a.Group, a.ACL, a.Vhosts, a.Login, a.FirstName, a.LastName, a.AltEmail, a.WebPW, id,
	).Scan(&a.UpdatedAt)
	if err != nil {
		if verr, ok := uniqueTaken(err, "login"); ok {
			return nil, verr
		}
		return nil, notFound(err, "account", id)
	}
	return a, nil
}

// Delete removes an account. Its virtual hosts, mailboxes and aliases go
// with it through the foreign key cascade; no command is dispatched.
func (s *AccountService) Delete(ctx context.Context, caller Caller, id int64) (*Result, error) {
	if caller.ActorID() == id {
		return nil, fieldError("id", SelfDeleteMessage)
	}

	var login string
	err := s.db.QueryRow(ctx, `DELETE FROM accounts WHERE id = $1 RETURNING login`, id).Scan(&login)
	if err != nil {
		return nil, notFound(err, "account", id)
	}

	zerolog.Ctx(ctx).Info().Int64("account_id", id).Str("login", login).Msg("account deleted")
	return Reconcile(login, "Account deleted successfully.", ""), nil
}

// BulkDelete removes each account in ids, skipping the caller's own.
func (s *AccountService) BulkDelete(ctx context.Context, caller Caller, ids []int64) *BulkResult {
	res := newBulkResult(len(ids))
	for _, id := range ids {
		if id == caller.ActorID() {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		var login string
		err := s.db.QueryRow(ctx, `DELETE FROM accounts WHERE id = $1 RETURNING login`, id).Scan(&login)
		if err != nil {
			res.AddError(id, "", notFound(err, "account", id))
			continue
		}
		res.Add(id, login)
	}
	zerolog.Ctx(ctx).Info().Str("summary", res.Summary()).Msg("accounts bulk deleted")
	return res
}

// Authenticate checks a login and password. Suspended and anonymous
// accounts cannot sign in.
func (s *AccountService) Authenticate(ctx context.Context, login, password string) (*model.Account, error) {
	a, err := s.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !crypto.VerifyPassword(password, a.WebPW) || !canSignIn(a) {
		return nil, ErrInvalidCredentials
	}
	return a, nil
}

// IssueOTP generates a single-use six digit code for account id, valid for
// five minutes, and stores it on the account.
func (s *AccountService) IssueOTP(ctx context.Context, id int64) (string, time.Time, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return "", time.Time{}, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      otpIssuer,
		AccountName: a.Login,
		Period:      uint(otpPeriod / time.Second),
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate otp key: %w", err)
	}
	now := s.now()
	code, err := totp.GenerateCodeCustom(key.Secret(), now, totp.ValidateOpts{
		Period:    uint(otpPeriod / time.Second),
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate otp code: %w", err)
	}

	expires := now.Add(otpPeriod)
	if _, err := s.db.Exec(ctx,
		`UPDATE accounts SET otp = $1, otpttl = $2, updated_at = now() WHERE id = $3`,
		code, expires.Unix(), id,
	); err != nil {
		return "", time.Time{}, fmt.Errorf("store otp for account %d: %w", id, err)
	}
	return code, expires, nil
}

// VerifyOTP signs in with a code from IssueOTP and consumes it.
func (s *AccountService) VerifyOTP(ctx context.Context, login, code string) (*model.Account, error) {
	a, err := s.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if a.OTP == "" || s.now().Unix() > a.OTPTTL || !canSignIn(a) {
		return nil, ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(a.OTP), []byte(code)) != 1 {
		return nil, ErrInvalidCredentials
	}

	if _, err := s.db.Exec(ctx,
		`UPDATE accounts SET otp = '', otpttl = 0, updated_at = now() WHERE id = $1`, a.ID,
	); err != nil {
		return nil, fmt.Errorf("clear otp for account %d: %w", a.ID, err)
	}
	a.OTP, a.OTPTTL = "", 0
	return a, nil
}

// IssueRememberToken creates a long-lived token for account id. Only its
// hash is stored.
func (s *AccountService) IssueRememberToken(ctx context.Context, id int64) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate remember token: %w", err)
	}
	token := hex.EncodeToString(buf)
	if _, err := s.db.Exec(ctx,
		`UPDATE accounts SET cookie = $1 WHERE id = $2`, crypto.GenericHash(token), id,
	); err != nil {
		return "", fmt.Errorf("store remember token for account %d: %w", id, err)
	}
	return token, nil
}

// AuthenticateRemember signs in with a token from IssueRememberToken.
func (s *AccountService) AuthenticateRemember(ctx context.Context, login, token string) (*model.Account, error) {
	a, err := s.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if a.Cookie == "" || !canSignIn(a) {
		return nil, ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(a.Cookie), []byte(crypto.GenericHash(token))) != 1 {
		return nil, ErrInvalidCredentials
	}
	return a, nil
}

// SeedAdmin creates a super admin account unless login already exists. It
// reports whether a row was inserted.
func (s *AccountService) SeedAdmin(ctx context.Context, login, password string) (bool, error) {
	if login == "" {
		login = DefaultAdminLogin
	}
	if utf8.RuneCountInString(password) < MinWebPasswordLen {
		return false, fieldError("webpw", fmt.Sprintf("The password must be at least %d characters.", MinWebPasswordLen))
	}
	var exists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE login = $1)`, login,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check admin account: %w", err)
	}
	if exists {
		return false, nil
	}

	acl := model.ACLSuperAdmin
	group := 0
	vhosts := 10
	if _, err := s.Create(ctx, AccountInput{
		Login:     login,
		FirstName: "Admin",
		LastName:  "User",
		AltEmail:  login,
		ACL:       &acl,
		Group:     &group,
		Vhosts:    &vhosts,
		Password:  password,
	}); err != nil {
		return false, err
	}
	return true, nil
}

// checkLogin rejects a login held by any account other than exceptID.
func (s *AccountService) checkLogin(ctx context.Context, login string, exceptID int64) error {
	var taken bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE login = $1 AND id <> $2)`, login, exceptID,
	).Scan(&taken)
	if err != nil {
		return fmt.Errorf("check login uniqueness: %w", err)
	}
	if taken {
		return takenError("login")
	}
	return nil
}

func canSignIn(a *model.Account) bool {
	return a.ACL != model.ACLSuspended && a.ACL != model.ACLAnonymous
}

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Group, &a.ACL, &a.Vhosts, &a.Login, &a.FirstName, &a.LastName,
		&a.AltEmail, &a.OTP, &a.OTPTTL, &a.Cookie, &a.WebPW, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
