package console

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/hashicorp/terraform-plugin-log/tflog"
	"github.com/shopspring/decimal"

	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/internal/events"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/identifier"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/storage"
)

type ClientStatus string

const (
	ClientActive   ClientStatus = "active"
	ClientInactive ClientStatus = "inactive"
	ClientProspect ClientStatus = "prospect"
)

func (s ClientStatus) Valid() bool {
	switch s {
	case ClientActive, ClientInactive, ClientProspect:
		return true
	}
	return false
}

const (
	clientColName      = "name"
	clientColCompany   = "company"
	clientColPhone     = "phone"
	clientColStatus    = "status"
	clientColNotes     = "notes"
	clientColRetainer  = "monthly_retainer"
	clientColCreatedBy = "created_by"
	clientColCreatedAt = "created_at"
	clientColUpdatedAt = "updated_at"
)

type Client struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Email           string           `json:"email"`
	Company         *string          `json:"company"`
	Phone           *string          `json:"phone"`
	Status          ClientStatus     `json:"status"`
	Notes           *string          `json:"notes"`
	MonthlyRetainer *decimal.Decimal `json:"monthly_retainer"`
	CreatedBy       string           `json:"created_by"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type ClientInput struct {
	Name            string           `json:"name"`
	Email           string           `json:"email"`
	Company         *string          `json:"company"`
	Phone           *string          `json:"phone"`
	Status          ClientStatus     `json:"status"`
	Notes           *string          `json:"notes"`
	MonthlyRetainer *decimal.Decimal `json:"monthly_retainer"`
}

func (in ClientInput) clean() (ClientInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Company = optional(in.Company)
	in.Phone = optional(in.Phone)
	in.Notes = optional(in.Notes)
	if in.Status == "" {
		in.Status = ClientProspect
	}
	if in.Name == "" {
		return in, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.Email == "" {
		return in, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return in, fmt.Errorf("%w: %q is not an email address", ErrInvalidInput, in.Email)
	}
	if !in.Status.Valid() {
		return in, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, in.Status)
	}
	if in.MonthlyRetainer != nil && in.MonthlyRetainer.IsNegative() {
		return in, fmt.Errorf("%w: monthly retainer cannot be negative", ErrInvalidInput)
	}
	return in, nil
}

func (cl *Client) columns() map[string]interface{} {
	columns := map[string]interface{}{
		clientColName:      cl.Name,
		clientColStatus:    string(cl.Status),
		clientColCreatedBy: cl.CreatedBy,
	}
	setOptional(columns, clientColCompany, cl.Company)
	setOptional(columns, clientColPhone, cl.Phone)
	setOptional(columns, clientColNotes, cl.Notes)
	if cl.MonthlyRetainer != nil {
		columns[clientColRetainer] = cl.MonthlyRetainer.String()
	}
	setTime(columns, clientColCreatedAt, &cl.CreatedAt)
	setTime(columns, clientColUpdatedAt, &cl.UpdatedAt)
	return columns
}

func rowToClient(row storage.Row) *Client {
	columns := row.Columns()
	cl := &Client{
		ID:        row.ID(),
		Name:      stringColumn(columns, clientColName),
		Email:     row.Identifier(),
		Company:   optionalColumn(columns, clientColCompany),
		Phone:     optionalColumn(columns, clientColPhone),
		Status:    ClientStatus(stringColumn(columns, clientColStatus)),
		Notes:     optionalColumn(columns, clientColNotes),
		CreatedBy: stringColumn(columns, clientColCreatedBy),
		CreatedAt: valueOrZero(timeColumn(columns, clientColCreatedAt)),
		UpdatedAt: valueOrZero(timeColumn(columns, clientColUpdatedAt)),
	}
	if s := stringColumn(columns, clientColRetainer); s != "" {
		if d, err := decimal.NewFromString(s); err == nil {
			cl.MonthlyRetainer = &d
		}
	}
	return cl
}

// CreateClient saves a new client. The email is the client's unique
// identifier; a duplicate fails with identifier.ErrTaken.
func (c *Console) CreateClient(ctx context.Context, who Principal, in ClientInput) (*Client, error) {
	if err := authorize(who, "create clients", RoleAdmin); err != nil {
		return nil, err
	}
	in, err := in.clean()
	if err != nil {
		return nil, err
	}

	now := c.now()
	cl := &Client{
		Name:            in.Name,
		Company:         in.Company,
		Phone:           in.Phone,
		Status:          in.Status,
		Notes:           in.Notes,
		MonthlyRetainer: in.MonthlyRetainer,
		CreatedBy:       who.UserID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	cl.Email, err = c.ids.Allocate(ctx, identifier.Clients, in.Email, "", func(ctx context.Context, email string) error {
		row, err := c.store.CreateRow(ctx, identifier.Clients.Name, email, cl.columns())
		if err != nil {
			return err
		}
		cl.ID = row.ID()
		return nil
	})
	if err != nil {
		return nil, err
	}

	tflog.Info(ctx, "client created", map[string]interface{}{"client_id": cl.ID})
	c.publish(ctx, "client", events.Created, identifier.Clients, cl.ID, cl.Email, who)
	return cl, nil
}

// UpdateClient replaces a client's fields. A changed email is checked against
// every other client.
func (c *Console) UpdateClient(ctx context.Context, who Principal, id string, in ClientInput) (*Client, error) {
	if err := authorize(who, "edit clients", RoleAdmin); err != nil {
		return nil, err
	}
	in, err := in.clean()
	if err != nil {
		return nil, err
	}
	existing, err := c.GetClient(ctx, who, id)
	if err != nil {
		return nil, err
	}

	cl := &Client{
		ID:              existing.ID,
		Name:            in.Name,
		Email:           existing.Email,
		Company:         in.Company,
		Phone:           in.Phone,
		Status:          in.Status,
		Notes:           in.Notes,
		MonthlyRetainer: in.MonthlyRetainer,
		CreatedBy:       existing.CreatedBy,
		CreatedAt:       existing.CreatedAt,
		UpdatedAt:       c.now(),
	}
	save := func(ctx context.Context, email string) error {
		_, err := c.store.UpdateRow(ctx, identifier.Clients.Name, id, email, cl.columns())
		return notFound(err, "client", id)
	}
	if in.Email == existing.Email {
		err = save(ctx, existing.Email)
	} else {
		cl.Email, err = c.ids.Allocate(ctx, identifier.Clients, in.Email, id, save)
	}
	if err != nil {
		return nil, err
	}

	c.publish(ctx, "client", events.Updated, identifier.Clients, cl.ID, cl.Email, who)
	return cl, nil
}

func (c *Console) GetClient(ctx context.Context, who Principal, id string) (*Client, error) {
	if err := authorize(who, "view clients", RoleAdmin, RoleStaff); err != nil {
		return nil, err
	}
	row, err := c.store.GetRowByID(ctx, identifier.Clients.Name, id)
	if err != nil {
		return nil, notFound(err, "client", id)
	}
	return rowToClient(row), nil
}

func (c *Console) GetClientByEmail(ctx context.Context, who Principal, email string) (*Client, error) {
	if err := authorize(who, "view clients", RoleAdmin, RoleStaff); err != nil {
		return nil, err
	}
	email = identifier.Clients.Base(email)
	row, err := c.store.GetRow(ctx, identifier.Clients.Name, email)
	if err != nil {
		return nil, notFound(err, "client", email)
	}
	return rowToClient(row), nil
}

func (c *Console) ListClients(ctx context.Context, who Principal, emailFilter string) ([]*Client, error) {
	if err := authorize(who, "view clients", RoleAdmin, RoleStaff); err != nil {
		return nil, err
	}
	rows, err := c.store.ListRows(ctx, identifier.Clients.Name, strings.ToLower(emailFilter))
	if err != nil {
		return nil, err
	}
	clients := make([]*Client, len(rows))
	for i, row := range rows {
		clients[i] = rowToClient(row)
	}
	return clients, nil
}

func (c *Console) DeleteClient(ctx context.Context, who Principal, id string) error {
	if err := authorize(who, "delete clients", RoleAdmin); err != nil {
		return err
	}
	existing, err := c.GetClient(ctx, who, id)
	if err != nil {
		return err
	}
	if err := c.store.DeleteRow(ctx, identifier.Clients.Name, id); err != nil {
		return notFound(err, "client", id)
	}
	c.publish(ctx, "client", events.Deleted, identifier.Clients, id, existing.Email, who)
	return nil
}
