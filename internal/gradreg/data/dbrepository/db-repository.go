package dbrepository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"gradreg/internal/gradreg/data"
	"gradreg/pkg/logging"
)

type DBStorage interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) (pgx.Row, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryValue(ctx context.Context, query string, args []any, dest []any) error
}

type DBRepository struct {
	storage DBStorage
	logger  *logging.ZapLogger
}

func New(storage DBStorage, logger *logging.ZapLogger) *DBRepository {
	return &DBRepository{
		storage: storage,
		logger:  logger,
	}
}

//go:embed sql/insert_registration.sql
var insertRegistrationQuery string

func (db *DBRepository) InsertRegistration(ctx context.Context, r *data.Registration) (int64, error) {
	var id int64
	err := db.storage.QueryValue(
		ctx,
		insertRegistrationQuery,
		[]any{
			r.Name,
			r.UniversityRegisterNo,
			r.CollegeRollNo,
			r.Degree,
			r.Course,
			r.WhatsappNumber,
			r.Email,
			r.Gender,
			r.Address,
			r.PursuingHigherStudies,
			r.HSCourseName,
			r.HSInstitutionName,
			r.Employed,
			r.LunchRequired,
			r.CompanionOption,
		},
		[]any{&id},
	)
	if err != nil {
		return 0, handleSQLError(err)
	}
	return id, nil
}

//go:embed sql/select_registration.sql
var selectRegistrationQuery string

func (db *DBRepository) GetRegistration(ctx context.Context, id int64) (*data.Registration, error) {
	r := &data.Registration{}
	err := db.storage.QueryValue(
		ctx,
		selectRegistrationQuery,
		[]any{id},
		registrationScanDest(r),
	)
	if err != nil {
		return nil, handleSQLError(err)
	}
	return r, nil
}

//go:embed sql/select_registrations.sql
var selectRegistrationsQuery string

func (db *DBRepository) GetAllRegistrations(ctx context.Context) ([]data.Registration, error) {
	rows, err := db.storage.Query(ctx, selectRegistrationsQuery)
	if err != nil {
		return nil, handleSQLError(err)
	}
	defer rows.Close()

	result := make([]data.Registration, 0)
	for rows.Next() {
		var r data.Registration
		if err := rows.Scan(registrationScanDest(&r)...); err != nil {
			return nil, handleSQLError(err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, handleSQLError(err)
	}
	return result, nil
}

//go:embed sql/registration_email_exists.sql
var registrationEmailExistsQuery string

func (db *DBRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := db.storage.QueryValue(ctx, registrationEmailExistsQuery, []any{email}, []any{&exists})
	if err != nil {
		return false, handleSQLError(err)
	}
	return exists, nil
}

//go:embed sql/insert_order.sql
var insertOrderQuery string

func (db *DBRepository) InsertOrder(ctx context.Context, order *data.Order) error {
	_, err := db.storage.Exec(
		ctx,
		insertOrderQuery,
		order.OrderID,
		order.RegistrationID,
		order.Amount,
		order.Currency,
		string(order.Status),
	)
	if err != nil {
		return handleSQLError(err)
	}
	return nil
}

//go:embed sql/select_order.sql
var selectOrderQuery string

func (db *DBRepository) GetOrder(ctx context.Context, orderID string) (*data.Order, error) {
	order := &data.Order{}
	err := db.storage.QueryValue(
		ctx,
		selectOrderQuery,
		[]any{orderID},
		[]any{
			&order.OrderID,
			&order.RegistrationID,
			&order.Amount,
			&order.Currency,
			&order.Status,
			&order.GatewayOrderID,
			&order.TransactionID,
			&order.PaymentMethodType,
			&order.BankReference,
			&order.ErrorCode,
			&order.ErrorDesc,
			&order.ReceiptNumber,
			&order.ReceiptGeneratedAt,
			&order.RawRequestEnvelope,
			&order.RawResponseEnvelope,
			&order.CreatedAt,
			&order.UpdatedAt,
		},
	)
	if err != nil {
		return nil, handleSQLError(err)
	}
	return order, nil
}

//go:embed sql/order_id_exists.sql
var orderIDExistsQuery string

func (db *DBRepository) OrderIDExists(ctx context.Context, orderID string) (bool, error) {
	var exists bool
	err := db.storage.QueryValue(ctx, orderIDExistsQuery, []any{orderID}, []any{&exists})
	if err != nil {
		return false, handleSQLError(err)
	}
	return exists, nil
}

//go:embed sql/set_gateway_order.sql
var setGatewayOrderQuery string

// SetGatewayOrder records the gateway-assigned order id and the audit
// envelopes. The gateway order id is set once; a second call is a no-op.
func (db *DBRepository) SetGatewayOrder(
	ctx context.Context,
	orderID string,
	gatewayOrderID string,
	rawRequestEnvelope string,
	rawResponseEnvelope string,
) error {
	_, err := db.storage.Exec(
		ctx,
		setGatewayOrderQuery,
		orderID,
		gatewayOrderID,
		rawRequestEnvelope,
		rawResponseEnvelope,
	)
	if err != nil {
		return handleSQLError(err)
	}
	return nil
}

//go:embed sql/apply_terminal_status.sql
var applyTerminalStatusQuery string

// ApplyTerminalStatus performs the single conditional update guarding all
// status transitions. It reports whether the row actually moved out of
// pending, which is how a lost-update race with a concurrent webhook or
// reconciliation poll is detected.
func (db *DBRepository) ApplyTerminalStatus(ctx context.Context, t *data.TerminalTransition) (bool, error) {
	tag, err := db.storage.Exec(
		ctx,
		applyTerminalStatusQuery,
		t.OrderID,
		string(t.Status),
		t.GatewayOrderID,
		t.TransactionID,
		t.PaymentMethodType,
		t.BankReference,
		t.ErrorCode,
		t.ErrorDesc,
		t.ReceiptNumber,
		t.ReceiptGeneratedAt,
		t.RawResponseEnvelope,
	)
	if err != nil {
		return false, handleSQLError(err)
	}
	return tag.RowsAffected() > 0, nil
}

//go:embed sql/select_pending_orders.sql
var selectPendingOrdersQuery string

func (db *DBRepository) GetPendingOrdersOlderThan(
	ctx context.Context,
	cutoff time.Time,
	limit int,
) ([]data.Order, error) {
	rows, err := db.storage.Query(ctx, selectPendingOrdersQuery, cutoff, limit)
	if err != nil {
		return nil, handleSQLError(err)
	}
	defer rows.Close()

	result := make([]data.Order, 0)
	for rows.Next() {
		var order data.Order
		err := rows.Scan(
			&order.OrderID,
			&order.RegistrationID,
			&order.Amount,
			&order.Currency,
			&order.Status,
			&order.CreatedAt,
		)
		if err != nil {
			return nil, handleSQLError(err)
		}
		result = append(result, order)
	}
	if err := rows.Err(); err != nil {
		return nil, handleSQLError(err)
	}
	return result, nil
}

func registrationScanDest(r *data.Registration) []any {
	return []any{
		&r.ID,
		&r.Name,
		&r.UniversityRegisterNo,
		&r.CollegeRollNo,
		&r.Degree,
		&r.Course,
		&r.WhatsappNumber,
		&r.Email,
		&r.Gender,
		&r.Address,
		&r.PursuingHigherStudies,
		&r.HSCourseName,
		&r.HSInstitutionName,
		&r.Employed,
		&r.LunchRequired,
		&r.CompanionOption,
		&r.CreatedAt,
	}
}

func handleSQLError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return data.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return data.ErrUniqueConstraintViolation
		}
	}
	return fmt.Errorf("database error: %w", err)
}
