package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ewanmcc/lumen-core/internal/protocol"
)

// Repository defines the interface for device snapshot persistence.
// Snapshots carry identity plus the last reported runtime attributes so
// a restarted client starts from known names and capabilities instead
// of an empty registry. This abstraction allows for different
// implementations (SQLite, mock, etc.) and enables unit testing without
// database dependencies.
type Repository interface {
	// Save upserts the snapshot for one device.
	Save(ctx context.Context, d *Device) error

	// GetByIdentifier retrieves a single snapshot.
	// Returns ErrNotFound if no snapshot exists for the identifier.
	GetByIdentifier(ctx context.Context, identifier string) (*Device, error)

	// List retrieves all persisted snapshots.
	List(ctx context.Context) ([]Device, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection with the
// device_snapshots migration applied.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save upserts the snapshot for one device. Connection status is
// runtime truth and is deliberately not persisted.
func (r *SQLiteRepository) Save(ctx context.Context, d *Device) error {
	query := `
		INSERT INTO device_snapshots (
			identifier, product_code, display_name, broker_topic,
			supports_broker, capabilities, power, brightness,
			color_red, color_green, color_blue, color_temp, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identifier) DO UPDATE SET
			product_code = excluded.product_code,
			display_name = excluded.display_name,
			broker_topic = excluded.broker_topic,
			supports_broker = excluded.supports_broker,
			capabilities = excluded.capabilities,
			power = excluded.power,
			brightness = excluded.brightness,
			color_red = excluded.color_red,
			color_green = excluded.color_green,
			color_blue = excluded.color_blue,
			color_temp = excluded.color_temp,
			updated_at = excluded.updated_at`

	var colorR, colorG, colorB sql.NullFloat64
	if d.Color != nil {
		colorR = sql.NullFloat64{Float64: d.Color.R, Valid: true}
		colorG = sql.NullFloat64{Float64: d.Color.G, Valid: true}
		colorB = sql.NullFloat64{Float64: d.Color.B, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		d.Identifier,
		d.ProductCode,
		d.Name,
		d.Topic,
		boolToInt(d.SupportsBroker),
		int(d.Capabilities),
		nullableBool(d.Power),
		nullableFloat(d.Brightness),
		colorR,
		colorG,
		colorB,
		nullableInt(d.ColorTemperature),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving device snapshot: %w", err)
	}

	return nil
}

// GetByIdentifier retrieves a single snapshot.
func (r *SQLiteRepository) GetByIdentifier(ctx context.Context, identifier string) (*Device, error) {
	query := `
		SELECT identifier, product_code, display_name, broker_topic,
			supports_broker, capabilities, power, brightness,
			color_red, color_green, color_blue, color_temp, updated_at
		FROM device_snapshots
		WHERE identifier = ?`

	row := r.db.QueryRowContext(ctx, query, identifier)
	d, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying device snapshot: %w", err)
	}
	return d, nil
}

// List retrieves all persisted snapshots, ordered by identifier.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	query := `
		SELECT identifier, product_code, display_name, broker_topic,
			supports_broker, capabilities, power, brightness,
			color_red, color_green, color_blue, color_temp, updated_at
		FROM device_snapshots
		ORDER BY identifier`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying device snapshots: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device snapshot: %w", err)
		}
		devices = append(devices, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device snapshots: %w", err)
	}

	return devices, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSnapshot scans a snapshot row into a Device. The restored device
// always starts offline; connection status is never persisted.
func scanSnapshot(scanner rowScanner) (*Device, error) {
	var d Device
	var supportsBroker, capabilities int
	var power sql.NullInt64
	var brightness sql.NullFloat64
	var colorR, colorG, colorB sql.NullFloat64
	var colorTemp sql.NullInt64
	var updatedAt string

	err := scanner.Scan(
		&d.Identifier,
		&d.ProductCode,
		&d.Name,
		&d.Topic,
		&supportsBroker,
		&capabilities,
		&power,
		&brightness,
		&colorR,
		&colorG,
		&colorB,
		&colorTemp,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.SupportsBroker = supportsBroker != 0
	d.Capabilities = Capability(capabilities)

	if power.Valid {
		v := power.Int64 != 0
		d.Power = &v
	}
	if brightness.Valid {
		v := brightness.Float64
		d.Brightness = &v
	}
	if colorR.Valid && colorG.Valid && colorB.Valid {
		d.Color = &protocol.Color{R: colorR.Float64, G: colorG.Float64, B: colorB.Float64}
	}
	if colorTemp.Valid {
		v := int(colorTemp.Int64)
		d.ColorTemperature = &v
	}

	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		d.StateUpdatedAt = &t
	}

	return &d, nil
}

// nullableBool returns a sql.NullInt64 for optional bool pointers.
func nullableBool(b *bool) sql.NullInt64 {
	if b == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(boolToInt(*b)), Valid: true}
}

// nullableFloat returns a sql.NullFloat64 for optional float pointers.
func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// nullableInt returns a sql.NullInt64 for optional int pointers.
func nullableInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
