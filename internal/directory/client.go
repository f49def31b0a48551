package directory

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/frahmantamala/ad-user-manager/internal"
	"github.com/go-ldap/ldap/v3"
)

const (
	AttrDistinguishedName  = "distinguishedName"
	AttrDisplayName        = "displayName"
	AttrCommonName         = "cn"
	AttrSAMAccountName     = "sAMAccountName"
	AttrMail               = "mail"
	AttrUserAccountControl = "userAccountControl"
	AttrTitle              = "title"
	AttrDepartment         = "department"
	AttrTelephoneNumber    = "telephoneNumber"
	AttrGivenName          = "givenName"
	AttrSurname            = "sn"
	AttrUnicodePwd         = "unicodePwd"
)

const (
	UsersFilter       = "(&(objectCategory=person)(objectClass=user))"
	userByLoginFilter = "(&(objectCategory=person)(objectClass=user)(sAMAccountName=%s))"
)

var errWriteNeedsTLS = errors.New("write operations require an encrypted connection (ldaps:// or start_tls)")

// UserFilter returns the search filter matching one login name. The name is
// escaped so it cannot alter the filter.
func UserFilter(username string) string {
	return fmt.Sprintf(userByLoginFilter, ldap.EscapeFilter(username))
}

// Conn is the subset of *ldap.Conn the client relies on.
type Conn interface {
	Bind(username, password string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	SearchWithPaging(req *ldap.SearchRequest, pagingSize uint32) (*ldap.SearchResult, error)
	Modify(req *ldap.ModifyRequest) error
	Close() error
}

// Dialer opens a new, not yet bound connection.
type Dialer func(ctx context.Context) (Conn, error)

type ldapConn struct {
	*ldap.Conn
}

func (c ldapConn) Close() error {
	c.Conn.Close()
	return nil
}

// NewDialer dials cfg.URL, upgrading with StartTLS when configured. The same
// tlsConfig serves ldaps and StartTLS.
func NewDialer(cfg internal.DirectoryConfig, tlsConfig *tls.Config) Dialer {
	return func(ctx context.Context) (Conn, error) {
		d := &net.Dialer{Timeout: cfg.Timeout}
		conn, err := ldap.DialURL(cfg.URL, ldap.DialWithDialer(d), ldap.DialWithTLSConfig(tlsConfig))
		if err != nil {
			return nil, err
		}
		if cfg.Timeout > 0 {
			conn.SetTimeout(cfg.Timeout)
		}
		if cfg.StartTLS {
			if err := conn.StartTLS(tlsConfig); err != nil {
				conn.Close()
				return nil, fmt.Errorf("start tls: %w", err)
			}
		}
		return ldapConn{conn}, nil
	}
}

// Names carries the attributes a password reset is derived from.
type Names struct {
	GivenName string
	Surname   string
	DN        string
}

type Client struct {
	cfg    internal.DirectoryConfig
	dial   Dialer
	logger *slog.Logger
}

func NewClient(cfg internal.DirectoryConfig, dial Dialer, logger *slog.Logger) *Client {
	if cfg.PageSize == 0 {
		cfg.PageSize = 500
	}
	return &Client{
		cfg:    cfg,
		dial:   dial,
		logger: logger,
	}
}

// connect dials and binds with the service account. Callers own the
// returned connection and must close it.
func (c *Client) connect(ctx context.Context, write bool) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, internal.NewDirectoryUnavailableError(err)
	}
	if write && !c.cfg.Encrypted() {
		return nil, internal.NewDirectoryUnavailableError(errWriteNeedsTLS)
	}

	conn, err := c.dial(ctx)
	if err != nil {
		c.logger.Error("directory dial failed", "url", c.cfg.URL, "error", err)
		return nil, internal.NewDirectoryUnavailableError(err)
	}

	if err := conn.Bind(c.cfg.Username, c.cfg.Password); err != nil {
		c.closeConn(conn)
		c.logger.Error("directory bind failed", "url", c.cfg.URL, "bind_user", c.cfg.Username, "error", err)
		return nil, internal.NewDirectoryUnavailableError(err)
	}

	return conn, nil
}

func (c *Client) closeConn(conn Conn) {
	if err := conn.Close(); err != nil {
		c.logger.Warn("directory connection close failed", "error", err)
	}
}

// Ping checks that the directory accepts a bind with the service account.
func (c *Client) Ping(ctx context.Context) error {
	conn, err := c.connect(ctx, false)
	if err != nil {
		return err
	}
	c.closeConn(conn)
	return nil
}

// SearchUsers runs a paged subtree search below the base DN.
func (c *Client) SearchUsers(ctx context.Context, filter string, attributes []string) ([]*ldap.Entry, error) {
	conn, err := c.connect(ctx, false)
	if err != nil {
		return nil, err
	}
	defer c.closeConn(conn)

	req := ldap.NewSearchRequest(
		c.cfg.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, 0, false,
		filter,
		attributes,
		nil,
	)

	res, err := conn.SearchWithPaging(req, c.cfg.PageSize)
	if err != nil {
		c.logger.Error("directory search failed", "filter", filter, "error", err)
		return nil, internal.NewDirectoryQueryError(err)
	}

	c.logger.Debug("directory search completed", "filter", filter, "entries", len(res.Entries))
	return res.Entries, nil
}

// FindUser returns the first entry whose sAMAccountName equals username.
func (c *Client) FindUser(ctx context.Context, username string, attributes []string) (*ldap.Entry, error) {
	entries, err := c.SearchUsers(ctx, UserFilter(username), attributes)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, internal.NewUserNotFoundError(username)
	}
	return entries[0], nil
}

func (c *Client) FindUserDN(ctx context.Context, username string) (string, error) {
	entry, err := c.FindUser(ctx, username, []string{AttrDistinguishedName})
	if err != nil {
		return "", err
	}
	return entryDN(entry), nil
}

// FindUserNames returns the given name, surname and DN of username. Missing
// attributes come back empty; deciding whether that is fatal is up to the
// caller.
func (c *Client) FindUserNames(ctx context.Context, username string) (*Names, error) {
	entry, err := c.FindUser(ctx, username, []string{AttrGivenName, AttrSurname, AttrDistinguishedName})
	if err != nil {
		return nil, err
	}
	return &Names{
		GivenName: entry.GetAttributeValue(AttrGivenName),
		Surname:   entry.GetAttributeValue(AttrSurname),
		DN:        entry.GetAttributeValue(AttrDistinguishedName),
	}, nil
}

// SetAccountDisabled flips ACCOUNTDISABLE on dn and keeps the remaining
// userAccountControl flags. The current value is read over the same
// connection that performs the modify.
func (c *Client) SetAccountDisabled(ctx context.Context, dn string, disabled bool) error {
	conn, err := c.connect(ctx, true)
	if err != nil {
		return err
	}
	defer c.closeConn(conn)

	current, err := c.currentUAC(conn, dn)
	if err != nil {
		return internal.NewDirectoryModifyError(err)
	}

	next := WithDisabled(current, disabled)
	req := ldap.NewModifyRequest(dn, nil)
	req.Replace(AttrUserAccountControl, []string{FormatUAC(next)})

	if err := conn.Modify(req); err != nil {
		c.logger.Error("directory modify failed", "task_id", internal.TaskIDFromContext(ctx), "dn", dn, "attribute", AttrUserAccountControl, "error", err)
		return internal.NewDirectoryModifyError(err)
	}

	c.logger.Info("account control updated", "task_id", internal.TaskIDFromContext(ctx), "dn", dn, "from", current, "to", next)
	return nil
}

func (c *Client) currentUAC(conn Conn, dn string) (int64, error) {
	req := ldap.NewSearchRequest(
		dn,
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		1, 0, false,
		"(objectClass=*)",
		[]string{AttrUserAccountControl},
		nil,
	)

	res, err := conn.Search(req)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", AttrUserAccountControl, err)
	}
	if len(res.Entries) == 0 {
		return 0, fmt.Errorf("entry %s not found", dn)
	}

	uac, ok := ParseUAC(res.Entries[0].GetAttributeValue(AttrUserAccountControl))
	if !ok {
		return UACNormalAccount, nil
	}
	return uac, nil
}

// SetPassword replaces unicodePwd in a single modify. Active Directory only
// accepts this over an encrypted connection.
func (c *Client) SetPassword(ctx context.Context, dn, password string) error {
	encoded, err := EncodePassword(password)
	if err != nil {
		return internal.NewDirectoryModifyError(err)
	}

	conn, err := c.connect(ctx, true)
	if err != nil {
		return err
	}
	defer c.closeConn(conn)

	req := ldap.NewModifyRequest(dn, nil)
	req.Replace(AttrUnicodePwd, []string{encoded})

	if err := conn.Modify(req); err != nil {
		c.logger.Error("directory password modify failed", "task_id", internal.TaskIDFromContext(ctx), "dn", dn, "error", err)
		return internal.NewDirectoryModifyError(err)
	}

	c.logger.Info("password replaced", "task_id", internal.TaskIDFromContext(ctx), "dn", dn)
	return nil
}

func entryDN(entry *ldap.Entry) string {
	if dn := strings.TrimSpace(entry.GetAttributeValue(AttrDistinguishedName)); dn != "" {
		return dn
	}
	return entry.DN
}
